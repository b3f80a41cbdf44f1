//go:build go1.22

package linear

// RewindPoint identifies a position within an [Arena] (or [Stack]) that
// allocation can later be rewound to.
type RewindPoint struct {
	chunk    int
	leftOver int
}

// Stack layers explicit scoped rewind points on top of an [Arena]. Go has no
// destructors, so a [Scope] stands in for the RAII guard that would
// otherwise rewind automatically when it goes out of scope: callers use
// [Stack.Enter] together with `defer scope.Close()`.
type Stack struct {
	Arena
}

var _ Allocator = (*Stack)(nil)

// NewStack creates an empty Stack with the given configuration.
func NewStack(cfg ArenaConfig) *Stack {
	return &Stack{Arena: *NewArena(cfg)}
}

// Enter opens a new scope, recording the current allocation position. The
// returned Scope must be closed, typically via `defer scope.Close()`, which
// rewinds the stack back to the position recorded here.
func (s *Stack) Enter() Scope {
	return Scope{stack: s, mark: s.Arena.Mark()}
}

// Scope is a rewind guard returned by [Stack.Enter].
//
// A Scope must be closed exactly once. Closing it twice is a programming
// error: every Close rewinds to the same mark recorded at Enter, so a
// second Close silently discards anything allocated since the first one
// (mirroring how a moved-from RAII guard is a use-after-move bug).
type Scope struct {
	stack *Stack
	mark  RewindPoint
}

// Close rewinds the owning Stack back to the position recorded when this
// Scope was entered.
func (s Scope) Close() {
	s.stack.Arena.SmartRewind(s.mark)
}
