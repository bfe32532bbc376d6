// Package freestack implements the intrusive LIFO free-slot stack shared by
// the fixed-slot backends. Links live inside the free slots themselves as
// 32-bit slot indices, so the stack needs no memory of its own and never
// stores Go pointers in pool memory.
package freestack

import "github.com/joshuapare/poolkit/internal/buf"

// MaxSlots is the largest number of slots one stack can index.
const MaxSlots = 1<<31 - 1

const none = ^uint32(0)

// Stack is a LIFO of free slot indices threaded through a memory region.
// The zero value is not ready for use; call Init.
type Stack struct {
	head uint32
	n    int
}

// Init empties the stack.
func (s *Stack) Init() {
	s.head = none
	s.n = 0
}

// Format pushes slots count-1 down to 0, so that slot 0 is handed out first
// and consecutive pops walk the region in address order.
func (s *Stack) Format(mem []byte, slot, count int) {
	s.Init()
	for i := count - 1; i >= 0; i-- {
		s.Push(mem, slot, i)
	}
}

// Len returns the number of free slots on the stack.
func (s *Stack) Len() int { return s.n }

// Push links slot idx in as the new head.
func (s *Stack) Push(mem []byte, slot, idx int) {
	buf.PutU32LE(mem[idx*slot:], s.head)
	s.head = uint32(idx)
	s.n++
}

// Pop unlinks and returns the head slot index.
func (s *Stack) Pop(mem []byte, slot int) (int, bool) {
	if s.head == none {
		return 0, false
	}
	idx := int(s.head)
	s.head = buf.U32LE(mem[idx*slot:])
	s.n--
	return idx, true
}

// Walk calls fn for every free slot index, head first, without modifying the stack.
func (s *Stack) Walk(mem []byte, slot int, fn func(idx int)) {
	for cur := s.head; cur != none; cur = buf.U32LE(mem[int(cur)*slot:]) {
		fn(int(cur))
	}
}
