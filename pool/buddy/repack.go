package buddy

import (
	"cmp"
	"slices"

	"github.com/joshuapare/poolkit/internal/buf"
	"github.com/joshuapare/poolkit/pool"
)

// position orders blocks across the pool: arena first, then unit.
type position struct {
	arena int
	unit  int
}

func (a position) less(b position) bool {
	return a.arena < b.arena || (a.arena == b.arena && a.unit < b.unit)
}

type liveBlock struct {
	position
	order int
}

// Repack walks live blocks from the highest address down and moves each one
// into the lowest free block of its class that lies before it. Space freed
// by a move coalesces immediately, so tail arenas drain and become
// releasable by GC. The source block is freed only after fn returned.
func (p *buddyPool) Repack(fn pool.RepackFunc) {
	var live []liveBlock
	for i, a := range p.arenas {
		a.blocks(func(unit int, m meta) bool {
			if !m.free {
				live = append(live, liveBlock{position{i, unit}, int(m.order)})
			}
			return true
		})
	}
	slices.SortFunc(live, func(x, y liveBlock) int {
		if c := cmp.Compare(y.arena, x.arena); c != 0 {
			return c
		}
		return cmp.Compare(y.unit, x.unit)
	})

	for _, lb := range live {
		to, j, ok := p.lowestFree(lb.order, lb.position)
		if !ok {
			continue
		}
		dstArena, srcArena := p.arenas[to.arena], p.arenas[lb.arena]
		dstArena.unlink(to.unit, j)
		p.carve(dstArena, to.unit, j, lb.order)

		bs := p.blockSize(lb.order)
		dst := buf.Slot(dstArena.mem, to.unit<<p.minShift, bs, bs)
		src := buf.Slot(srcArena.mem, lb.unit<<p.minShift, bs, bs)
		copy(dst, src)
		fn(dst, src)
		p.release(srcArena, lb.unit)
		p.relocated++
	}
}

// lowestFree finds the lowest-positioned free block of class >= k that
// starts before limit. It returns the block position and its class.
func (p *buddyPool) lowestFree(k int, limit position) (position, int, bool) {
	var (
		best  position
		order int
		found bool
	)
	for i := 0; i <= limit.arena && i < len(p.arenas); i++ {
		a := p.arenas[i]
		for j := k; j <= p.maxOrder; j++ {
			for unit := a.heads[j]; unit != none; unit = int(a.meta[unit].next) {
				pos := position{i, unit}
				if !pos.less(limit) {
					continue
				}
				if !found || pos.less(best) {
					best, order, found = pos, j, true
				}
			}
		}
		if found {
			return best, order, true
		}
	}
	return best, order, false
}
