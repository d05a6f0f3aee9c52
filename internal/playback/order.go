package playback

import "math/rand"

// playOrder maintains the visit order over the queue without touching
// the canonical track slice. Sequential mode is the identity order;
// shuffle deals a permutation with the current track first, so turning
// shuffle off simply restores the identity at the same track.
type playOrder struct {
	order []int // position -> canonical index
	pos   int
}

// rebuild sets a fresh order over n tracks. The canonical index cur
// keeps its place at the front of a shuffled order, or its own slot in
// a sequential one. cur may be -1 when nothing is current.
func (p *playOrder) rebuild(n, cur int, shuffled bool, rng *rand.Rand) {
	p.order = make([]int, n)
	for i := range p.order {
		p.order[i] = i
	}
	if n == 0 {
		p.pos = 0
		return
	}

	if !shuffled {
		p.pos = 0
		if cur >= 0 && cur < n {
			p.pos = cur
		}
		return
	}

	rng.Shuffle(n, func(i, j int) {
		p.order[i], p.order[j] = p.order[j], p.order[i]
	})
	p.pos = 0
	if cur >= 0 && cur < n {
		// Move the current track to the front of the deal.
		for i, idx := range p.order {
			if idx == cur {
				p.order[0], p.order[i] = p.order[i], p.order[0]
				break
			}
		}
	}
}

// extend appends k new canonical indexes to the end of the order.
func (p *playOrder) extend(k int) {
	n := len(p.order)
	for i := 0; i < k; i++ {
		p.order = append(p.order, n+i)
	}
}

// current returns the canonical index at the playhead, or -1 when the
// order is empty.
func (p *playOrder) current() int {
	if len(p.order) == 0 || p.pos < 0 || p.pos >= len(p.order) {
		return -1
	}
	return p.order[p.pos]
}

// len returns the number of tracks in the order.
func (p *playOrder) len() int {
	return len(p.order)
}

// hasNext reports whether advancing is possible. wrap allows moving
// past the end back to the first position.
func (p *playOrder) hasNext(wrap bool) bool {
	if len(p.order) == 0 {
		return false
	}
	if wrap {
		return true
	}
	return p.pos < len(p.order)-1
}

// hasPrevious reports whether there is an earlier position.
func (p *playOrder) hasPrevious() bool {
	return len(p.order) > 0 && p.pos > 0
}

// next advances the playhead. It reports false when the end is reached
// and wrapping is not allowed.
func (p *playOrder) next(wrap bool) bool {
	if len(p.order) == 0 {
		return false
	}
	if p.pos < len(p.order)-1 {
		p.pos++
		return true
	}
	if wrap {
		p.pos = 0
		return true
	}
	return false
}

// previous steps the playhead back, reporting whether it moved.
func (p *playOrder) previous() bool {
	if !p.hasPrevious() {
		return false
	}
	p.pos--
	return true
}

// jump moves the playhead to the position holding canonical index idx.
func (p *playOrder) jump(idx int) bool {
	for pos, v := range p.order {
		if v == idx {
			p.pos = pos
			return true
		}
	}
	return false
}
