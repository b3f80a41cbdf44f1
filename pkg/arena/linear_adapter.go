//go:build go1.22

package arena

import "golang.org/x/exp/constraints"

// LinearAdapter satisfies
// [github.com/latticeforge/corekit/pkg/linear.Allocator] (Alloc(size int)
// *byte / Release(p *byte, size int)) on top of a coalescing Allocator, for
// callers that only need bump-style pointer-in, pointer-out semantics but
// want the coalescing allocator's arena growth and defragmentation
// underneath instead of a dedicated linear buffer.
type LinearAdapter[S constraints.Unsigned] struct {
	alloc *Allocator[S]
	live  map[*byte]AllocHandle
}

// AsLinearAllocator wraps alloc as a linear.Allocator.
func AsLinearAllocator[S constraints.Unsigned](alloc *Allocator[S]) *LinearAdapter[S] {
	return &LinearAdapter[S]{alloc: alloc, live: make(map[*byte]AllocHandle)}
}

// Alloc requests size bytes from the wrapped Allocator and returns a
// pointer into its arena backing storage, or nil if the request failed.
func (l *LinearAdapter[S]) Alloc(size int) *byte {
	res, err := l.alloc.Allocate(Desc[S]{Size: S(size)})
	if err != nil {
		return nil
	}

	backing := l.alloc.ArenaBacking(res.Arena)
	p := &backing[int(res.Offset)]
	l.live[p] = res.Alloc

	return p
}

// Release deallocates the block p was handed out for. size is accepted to
// satisfy linear.Allocator but unused: the wrapped Allocator already knows
// each block's size.
func (l *LinearAdapter[S]) Release(p *byte, _ int) {
	h, ok := l.live[p]
	if !ok {
		return
	}
	delete(l.live, p)
	_, _ = l.alloc.Deallocate(h)
}
