//go:build go1.22

package strategy

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/latticeforge/corekit/pkg/arena"
	"github.com/latticeforge/corekit/pkg/opt"
)

// BestFitTree tracks free blocks in a red-black tree keyed by size (ties
// broken by BlockID, to give every node a strict total order without
// needing a separate equal-size chain), threaded through each [arena.Block]'s
// TreeParent/TreeLeft/TreeRight/TreeRed fields. Finding the best fit for a
// request is the tree's usual "smallest key >= size" walk.
type BestFitTree[S constraints.Unsigned] struct {
	root  arena.BlockID
	count uint32
}

const (
	red   = true
	black = false
)

func treeNode[S constraints.Unsigned](bank *arena.BlockBank[S], id arena.BlockID) *arena.Block[S] {
	return bank.At(uint32(id))
}

func less[S constraints.Unsigned](bank *arena.BlockBank[S], a, b arena.BlockID) bool {
	na, nb := treeNode(bank, a), treeNode(bank, b)
	if na.Length != nb.Length {
		return na.Length < nb.Length
	}
	return a < b
}

func colorOf[S constraints.Unsigned](bank *arena.BlockBank[S], id arena.BlockID) bool {
	if id == nullBlockID {
		return black
	}
	return treeNode(bank, id).TreeRed
}

func (t *BestFitTree[S]) rotateLeft(bank *arena.BlockBank[S], x arena.BlockID) {
	nx := treeNode(bank, x)
	y := nx.TreeRight
	ny := treeNode(bank, y)

	nx.TreeRight = ny.TreeLeft
	if ny.TreeLeft != nullBlockID {
		treeNode(bank, ny.TreeLeft).TreeParent = x
	}
	ny.TreeParent = nx.TreeParent
	if nx.TreeParent == nullBlockID {
		t.root = y
	} else if p := treeNode(bank, nx.TreeParent); p.TreeLeft == x {
		p.TreeLeft = y
	} else {
		p.TreeRight = y
	}
	ny.TreeLeft = x
	nx.TreeParent = y
}

func (t *BestFitTree[S]) rotateRight(bank *arena.BlockBank[S], x arena.BlockID) {
	nx := treeNode(bank, x)
	y := nx.TreeLeft
	ny := treeNode(bank, y)

	nx.TreeLeft = ny.TreeRight
	if ny.TreeRight != nullBlockID {
		treeNode(bank, ny.TreeRight).TreeParent = x
	}
	ny.TreeParent = nx.TreeParent
	if nx.TreeParent == nullBlockID {
		t.root = y
	} else if p := treeNode(bank, nx.TreeParent); p.TreeRight == x {
		p.TreeRight = y
	} else {
		p.TreeLeft = y
	}
	ny.TreeRight = x
	nx.TreeParent = y
}

func (t *BestFitTree[S]) insertNode(bank *arena.BlockBank[S], id arena.BlockID) {
	n := treeNode(bank, id)
	n.TreeLeft, n.TreeRight = nullBlockID, nullBlockID
	n.TreeRed = red

	var parent arena.BlockID = nullBlockID
	cur := t.root
	for cur != nullBlockID {
		parent = cur
		if less[S](bank, id, cur) {
			cur = treeNode(bank, cur).TreeLeft
		} else {
			cur = treeNode(bank, cur).TreeRight
		}
	}
	n.TreeParent = parent

	if parent == nullBlockID {
		t.root = id
	} else if less[S](bank, id, parent) {
		treeNode(bank, parent).TreeLeft = id
	} else {
		treeNode(bank, parent).TreeRight = id
	}

	t.count++
	t.fixInsert(bank, id)
}

func (t *BestFitTree[S]) fixInsert(bank *arena.BlockBank[S], z arena.BlockID) {
	for {
		nz := treeNode(bank, z)
		if nz.TreeParent == nullBlockID {
			break
		}
		p := treeNode(bank, nz.TreeParent)
		if !p.TreeRed {
			break
		}

		gp := treeNode(bank, p.TreeParent)
		if nz.TreeParent == gp.TreeLeft {
			uncle := gp.TreeRight
			if colorOf(bank, uncle) == red {
				p.TreeRed = false
				treeNode(bank, uncle).TreeRed = false
				gp.TreeRed = true
				z = p.TreeParent
				continue
			}
			if z == p.TreeRight {
				z = nz.TreeParent
				t.rotateLeft(bank, z)
				p = treeNode(bank, treeNode(bank, z).TreeParent)
			}
			p.TreeRed = false
			gp.TreeRed = true
			t.rotateRight(bank, p.TreeParent)
		} else {
			uncle := gp.TreeLeft
			if colorOf(bank, uncle) == red {
				p.TreeRed = false
				treeNode(bank, uncle).TreeRed = false
				gp.TreeRed = true
				z = p.TreeParent
				continue
			}
			if z == p.TreeLeft {
				z = nz.TreeParent
				t.rotateRight(bank, z)
				p = treeNode(bank, treeNode(bank, z).TreeParent)
			}
			p.TreeRed = false
			gp.TreeRed = true
			t.rotateLeft(bank, p.TreeParent)
		}
	}
	treeNode(bank, t.root).TreeRed = false
}

func (t *BestFitTree[S]) transplant(bank *arena.BlockBank[S], u, v arena.BlockID) {
	nu := treeNode(bank, u)
	if nu.TreeParent == nullBlockID {
		t.root = v
	} else if p := treeNode(bank, nu.TreeParent); p.TreeLeft == u {
		p.TreeLeft = v
	} else {
		p.TreeRight = v
	}
	if v != nullBlockID {
		treeNode(bank, v).TreeParent = nu.TreeParent
	}
}

func (t *BestFitTree[S]) minimum(bank *arena.BlockBank[S], id arena.BlockID) arena.BlockID {
	for treeNode(bank, id).TreeLeft != nullBlockID {
		id = treeNode(bank, id).TreeLeft
	}
	return id
}

func (t *BestFitTree[S]) deleteNode(bank *arena.BlockBank[S], z arena.BlockID) {
	nz := treeNode(bank, z)
	y := z
	yOrigColor := colorOf(bank, y)
	var x, xParent arena.BlockID

	if nz.TreeLeft == nullBlockID {
		x, xParent = nz.TreeRight, nz.TreeParent
		t.transplant(bank, z, nz.TreeRight)
	} else if nz.TreeRight == nullBlockID {
		x, xParent = nz.TreeLeft, nz.TreeParent
		t.transplant(bank, z, nz.TreeLeft)
	} else {
		y = t.minimum(bank, nz.TreeRight)
		ny := treeNode(bank, y)
		yOrigColor = colorOf(bank, y)
		x = ny.TreeRight

		if ny.TreeParent == z {
			xParent = y
		} else {
			xParent = ny.TreeParent
			t.transplant(bank, y, ny.TreeRight)
			ny.TreeRight = nz.TreeRight
			treeNode(bank, ny.TreeRight).TreeParent = y
		}
		t.transplant(bank, z, y)
		ny.TreeLeft = nz.TreeLeft
		treeNode(bank, ny.TreeLeft).TreeParent = y
		ny.TreeRed = nz.TreeRed
	}

	t.count--

	if yOrigColor == black {
		t.fixDelete(bank, x, xParent)
	}
}

func (t *BestFitTree[S]) fixDelete(bank *arena.BlockBank[S], x, parent arena.BlockID) {
	for x != t.root && colorOf(bank, x) == black {
		if parent == nullBlockID {
			break
		}
		p := treeNode(bank, parent)

		if x == p.TreeLeft {
			w := p.TreeRight
			if colorOf(bank, w) == red {
				treeNode(bank, w).TreeRed = false
				p.TreeRed = true
				t.rotateLeft(bank, parent)
				p = treeNode(bank, parent)
				w = p.TreeRight
			}
			nw := treeNode(bank, w)
			if colorOf(bank, nw.TreeLeft) == black && colorOf(bank, nw.TreeRight) == black {
				nw.TreeRed = true
				x = parent
				parent = p.TreeParent
				continue
			}
			if colorOf(bank, nw.TreeRight) == black {
				if nw.TreeLeft != nullBlockID {
					treeNode(bank, nw.TreeLeft).TreeRed = false
				}
				nw.TreeRed = true
				t.rotateRight(bank, w)
				p = treeNode(bank, parent)
				w = p.TreeRight
				nw = treeNode(bank, w)
			}
			nw.TreeRed = p.TreeRed
			p.TreeRed = false
			if nw.TreeRight != nullBlockID {
				treeNode(bank, nw.TreeRight).TreeRed = false
			}
			t.rotateLeft(bank, parent)
			x = t.root
		} else {
			w := p.TreeLeft
			if colorOf(bank, w) == red {
				treeNode(bank, w).TreeRed = false
				p.TreeRed = true
				t.rotateRight(bank, parent)
				p = treeNode(bank, parent)
				w = p.TreeLeft
			}
			nw := treeNode(bank, w)
			if colorOf(bank, nw.TreeRight) == black && colorOf(bank, nw.TreeLeft) == black {
				nw.TreeRed = true
				x = parent
				parent = p.TreeParent
				continue
			}
			if colorOf(bank, nw.TreeLeft) == black {
				if nw.TreeRight != nullBlockID {
					treeNode(bank, nw.TreeRight).TreeRed = false
				}
				nw.TreeRed = true
				t.rotateLeft(bank, w)
				p = treeNode(bank, parent)
				w = p.TreeLeft
				nw = treeNode(bank, w)
			}
			nw.TreeRed = p.TreeRed
			p.TreeRed = false
			if nw.TreeLeft != nullBlockID {
				treeNode(bank, nw.TreeLeft).TreeRed = false
			}
			t.rotateRight(bank, parent)
			x = t.root
		}
	}
	if x != nullBlockID {
		treeNode(bank, x).TreeRed = false
	}
}

// lowerBound returns the smallest tracked block with size >= size.
func (t *BestFitTree[S]) lowerBound(bank *arena.BlockBank[S], size S) arena.BlockID {
	cur := t.root
	best := nullBlockID
	for cur != nullBlockID {
		n := treeNode(bank, cur)
		if n.Length >= size {
			best = cur
			cur = n.TreeLeft
		} else {
			cur = n.TreeRight
		}
	}
	return best
}

// TryAllocate returns the smallest tracked free block at least size bytes.
func (t *BestFitTree[S]) TryAllocate(bank *arena.BlockBank[S], size S) opt.Option[arena.Cursor[S]] {
	id := t.lowerBound(bank, size)
	if id == nullBlockID {
		return opt.None[arena.Cursor[S]]()
	}
	return opt.Some(arena.Cursor[S]{Block: id, Size: treeNode(bank, id).Length})
}

// Commit removes the chosen block from the tree and returns it.
func (t *BestFitTree[S]) Commit(bank *arena.BlockBank[S], _ S, cur arena.Cursor[S]) arena.BlockID {
	t.deleteNode(bank, cur.Block)
	return cur.Block
}

// AddFreeArena registers block as a fresh arena's sole free span.
func (t *BestFitTree[S]) AddFreeArena(bank *arena.BlockBank[S], block arena.BlockID) {
	t.insertNode(bank, block)
}

// AddFree inserts block into the tree at the position its size demands.
func (t *BestFitTree[S]) AddFree(bank *arena.BlockBank[S], block arena.BlockID) {
	t.insertNode(bank, block)
}

// GrowFreeNode re-seats block after its size grows, since the tree order
// depends on size.
func (t *BestFitTree[S]) GrowFreeNode(bank *arena.BlockBank[S], block arena.BlockID, newSize S) {
	t.deleteNode(bank, block)
	treeNode(bank, block).Length = newSize
	t.insertNode(bank, block)
}

// ReplaceAndGrow swaps old for new, with new already sized to newSize.
func (t *BestFitTree[S]) ReplaceAndGrow(bank *arena.BlockBank[S], old, newID arena.BlockID, newSize S) {
	t.deleteNode(bank, old)
	_ = newSize
	t.insertNode(bank, newID)
}

// Erase removes block from the tree.
func (t *BestFitTree[S]) Erase(bank *arena.BlockBank[S], block arena.BlockID) {
	t.deleteNode(bank, block)
}

// TotalFreeNodes returns the number of tracked free blocks.
func (t *BestFitTree[S]) TotalFreeNodes(bank *arena.BlockBank[S]) uint32 { return t.count }

// TotalFreeSize returns the sum of every tracked free block's size.
func (t *BestFitTree[S]) TotalFreeSize(bank *arena.BlockBank[S]) S {
	var total S
	t.walk(bank, t.root, func(id arena.BlockID) { total += treeNode(bank, id).Length })
	return total
}

func (t *BestFitTree[S]) walk(bank *arena.BlockBank[S], id arena.BlockID, fn func(arena.BlockID)) {
	if id == nullBlockID {
		return
	}
	n := treeNode(bank, id)
	t.walk(bank, n.TreeLeft, fn)
	fn(id)
	t.walk(bank, n.TreeRight, fn)
}

// ValidateIntegrity checks in-order size ordering and that every node is a
// live, free block.
func (t *BestFitTree[S]) ValidateIntegrity(bank *arena.BlockBank[S]) error {
	var (
		prev    arena.BlockID = nullBlockID
		walkErr error
	)
	t.walk(bank, t.root, func(id arena.BlockID) {
		if walkErr != nil {
			return
		}
		if !bank.IsAlive(uint32(id)) {
			walkErr = fmt.Errorf("strategy: tree block %d is not alive", id)
			return
		}
		if !treeNode(bank, id).Free {
			walkErr = fmt.Errorf("strategy: tree block %d tracked as free but Block.Free is false", id)
			return
		}
		if prev != nullBlockID && less[S](bank, id, prev) {
			walkErr = fmt.Errorf("strategy: tree out of order at block %d", id)
			return
		}
		prev = id
	})
	return walkErr
}
