package buddy

import (
	"unsafe"

	"github.com/joshuapare/poolkit/internal/buf"
)

const none = -1

// metaSize is the side-table cost of one min_block unit.
const metaSize = int64(unsafe.Sizeof(meta{}))

// meta describes the min_block unit at the same index. Only units that
// start a block (head) carry a meaningful order; free heads are linked into
// the free list of their order.
type meta struct {
	order int8
	head  bool
	free  bool
	prev  int32
	next  int32
}

// arena is one buddy tree. Its books live in meta/heads/counts; mem is
// never read or written by the bookkeeping code.
type arena struct {
	raw  []byte
	mem  []byte
	base uintptr

	meta   []meta
	heads  []int // free-list head unit per order, none when empty
	counts []int // free blocks per order
	live   int   // allocated blocks
}

func newArena(raw, mem []byte, maxOrder int) *arena {
	a := &arena{
		raw:    raw,
		mem:    mem,
		base:   buf.Addr(mem),
		meta:   make([]meta, 1<<maxOrder),
		heads:  make([]int, maxOrder+1),
		counts: make([]int, maxOrder+1),
	}
	for j := range a.heads {
		a.heads[j] = none
	}
	a.push(0, maxOrder)
	return a
}

// push marks unit as the head of a free block of the given order.
func (a *arena) push(unit, order int) {
	next := a.heads[order]
	a.meta[unit] = meta{order: int8(order), head: true, free: true, prev: none, next: int32(next)}
	if next != none {
		a.meta[next].prev = int32(unit)
	}
	a.heads[order] = unit
	a.counts[order]++
}

// unlink removes the free block at unit from its order's list.
func (a *arena) unlink(unit, order int) {
	m := &a.meta[unit]
	if m.prev != none {
		a.meta[m.prev].next = m.next
	} else {
		a.heads[order] = int(m.next)
	}
	if m.next != none {
		a.meta[m.next].prev = m.prev
	}
	m.free = false
	m.prev, m.next = none, none
	a.counts[order]--
}

// pop unlinks and returns the head of order's free list.
func (a *arena) pop(order int) int {
	unit := a.heads[order]
	a.unlink(unit, order)
	return unit
}

// blocks calls fn for every block in address order until fn returns false.
func (a *arena) blocks(fn func(unit int, m meta) bool) {
	for unit := 0; unit < len(a.meta); unit += 1 << a.meta[unit].order {
		if !fn(unit, a.meta[unit]) {
			return
		}
	}
}
