//go:build go1.22

package arena

// Link is the pair of neighbor ids a [List] threads through a node's own
// storage. The node type itself embeds a Link (or several, one per list it
// participates in) as a plain named field; List never allocates a node of
// its own.
type Link[ID comparable] struct {
	Prev, Next ID
}

// List is an intrusive doubly-linked list over externally-owned nodes.
// Nodes are identified by ID (typically [BlockID] or [ArenaHandle]); the
// caller supplies a link accessor that resolves an ID to the particular
// Link field this list is threaded through, which is what lets the same
// node type participate in more than one List (for instance, [Block]
// belongs to both its owning arena's block-order list and a placement
// strategy's free list).
type List[ID comparable] struct {
	head, tail ID
	null       ID
}

// NewList creates an empty List whose "no node" sentinel is null (normally
// the zero value of ID).
func NewList[ID comparable](null ID) List[ID] {
	return List[ID]{head: null, tail: null, null: null}
}

// Empty reports whether the list has no nodes.
func (l *List[ID]) Empty() bool { return l.head == l.null }

// Front returns the first node, or the null id if the list is empty.
func (l *List[ID]) Front() ID { return l.head }

// Back returns the last node, or the null id if the list is empty.
func (l *List[ID]) Back() ID { return l.tail }

// PushBack appends id to the end of the list.
func (l *List[ID]) PushBack(id ID, link func(ID) *Link[ID]) {
	ln := link(id)
	ln.Prev, ln.Next = l.tail, l.null

	if l.tail != l.null {
		link(l.tail).Next = id
	} else {
		l.head = id
	}

	l.tail = id
}

// InsertAfter inserts id immediately after the existing node after.
func (l *List[ID]) InsertAfter(after, id ID, link func(ID) *Link[ID]) {
	afterLn := link(after)
	ln := link(id)
	ln.Prev, ln.Next = after, afterLn.Next

	if afterLn.Next != l.null {
		link(afterLn.Next).Prev = id
	} else {
		l.tail = id
	}

	afterLn.Next = id
}

// InsertBefore inserts id immediately before the existing node before.
func (l *List[ID]) InsertBefore(before, id ID, link func(ID) *Link[ID]) {
	beforeLn := link(before)
	ln := link(id)
	ln.Next, ln.Prev = before, beforeLn.Prev

	if beforeLn.Prev != l.null {
		link(beforeLn.Prev).Next = id
	} else {
		l.head = id
	}

	beforeLn.Prev = id
}

// Erase removes id from the list and clears its own Link fields.
func (l *List[ID]) Erase(id ID, link func(ID) *Link[ID]) {
	l.unlink(id, link)

	ln := link(id)
	ln.Prev, ln.Next = l.null, l.null
}

// Erase2 removes id from the list without clearing its own Link fields,
// for the case where the node is about to be recycled and its link storage
// will be overwritten anyway.
func (l *List[ID]) Erase2(id ID, link func(ID) *Link[ID]) {
	l.unlink(id, link)
}

func (l *List[ID]) unlink(id ID, link func(ID) *Link[ID]) {
	ln := link(id)

	if ln.Prev != l.null {
		link(ln.Prev).Next = ln.Next
	} else {
		l.head = ln.Next
	}

	if ln.Next != l.null {
		link(ln.Next).Prev = ln.Prev
	} else {
		l.tail = ln.Prev
	}
}

// Clear empties the list without touching any node's Link fields.
func (l *List[ID]) Clear() { l.head, l.tail = l.null, l.null }
