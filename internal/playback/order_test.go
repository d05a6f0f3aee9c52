package playback

import (
	"math/rand"
	"testing"
)

func TestPlayOrderSequentialRebuild(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var p playOrder
	p.rebuild(5, 2, false, rng)

	if got := p.current(); got != 2 {
		t.Errorf("current() = %d, want 2", got)
	}
	if got := p.len(); got != 5 {
		t.Errorf("len() = %d, want 5", got)
	}
	for i, idx := range p.order {
		if idx != i {
			t.Errorf("order[%d] = %d, want %d", i, idx, i)
		}
	}
}

func TestPlayOrderShuffleKeepsCurrentFirst(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	var p playOrder
	p.rebuild(8, 3, true, rng)

	if got := p.current(); got != 3 {
		t.Errorf("current() = %d, want 3 at the front of the deal", got)
	}
	if p.order[0] != 3 {
		t.Errorf("order[0] = %d, want 3", p.order[0])
	}

	// The order must still be a permutation of every index.
	seen := make(map[int]bool)
	for _, idx := range p.order {
		if idx < 0 || idx >= 8 {
			t.Fatalf("order contains out of range index %d", idx)
		}
		if seen[idx] {
			t.Fatalf("order contains duplicate index %d", idx)
		}
		seen[idx] = true
	}
	if len(seen) != 8 {
		t.Errorf("order covers %d indexes, want 8", len(seen))
	}
}

func TestPlayOrderNext(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		startPos int
		wrap     bool
		want     bool
		wantPos  int
	}{
		{name: "advances mid queue", n: 3, startPos: 0, wrap: false, want: true, wantPos: 1},
		{name: "stops at end without wrap", n: 3, startPos: 2, wrap: false, want: false, wantPos: 2},
		{name: "wraps at end", n: 3, startPos: 2, wrap: true, want: true, wantPos: 0},
		{name: "empty order", n: 0, startPos: 0, wrap: true, want: false, wantPos: 0},
	}

	rng := rand.New(rand.NewSource(1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p playOrder
			p.rebuild(tt.n, 0, false, rng)
			p.pos = tt.startPos

			if got := p.next(tt.wrap); got != tt.want {
				t.Errorf("next(%v) = %v, want %v", tt.wrap, got, tt.want)
			}
			if p.pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", p.pos, tt.wantPos)
			}
		})
	}
}

func TestPlayOrderPrevious(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		startPos int
		want     bool
		wantPos  int
	}{
		{name: "steps back mid queue", n: 3, startPos: 2, want: true, wantPos: 1},
		{name: "refuses at first position", n: 3, startPos: 0, want: false, wantPos: 0},
		{name: "empty order", n: 0, startPos: 0, want: false, wantPos: 0},
	}

	rng := rand.New(rand.NewSource(1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p playOrder
			p.rebuild(tt.n, 0, false, rng)
			p.pos = tt.startPos

			if got := p.previous(); got != tt.want {
				t.Errorf("previous() = %v, want %v", got, tt.want)
			}
			if p.pos != tt.wantPos {
				t.Errorf("pos = %d, want %d", p.pos, tt.wantPos)
			}
		})
	}
}

func TestPlayOrderHasNext(t *testing.T) {
	tests := []struct {
		name string
		n    int
		pos  int
		wrap bool
		want bool
	}{
		{name: "mid queue", n: 3, pos: 1, wrap: false, want: true},
		{name: "end without wrap", n: 3, pos: 2, wrap: false, want: false},
		{name: "end with wrap", n: 3, pos: 2, wrap: true, want: true},
		{name: "single track with wrap", n: 1, pos: 0, wrap: true, want: true},
		{name: "empty with wrap", n: 0, pos: 0, wrap: true, want: false},
	}

	rng := rand.New(rand.NewSource(1))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p playOrder
			p.rebuild(tt.n, 0, false, rng)
			p.pos = tt.pos

			if got := p.hasNext(tt.wrap); got != tt.want {
				t.Errorf("hasNext(%v) = %v, want %v", tt.wrap, got, tt.want)
			}
		})
	}
}

func TestPlayOrderExtend(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	var p playOrder
	p.rebuild(3, 1, false, rng)
	p.extend(2)

	if got := p.len(); got != 5 {
		t.Fatalf("len() = %d, want 5", got)
	}
	if p.order[3] != 3 || p.order[4] != 4 {
		t.Errorf("extended tail = [%d %d], want [3 4]", p.order[3], p.order[4])
	}
	if got := p.current(); got != 1 {
		t.Errorf("current() = %d after extend, want 1", got)
	}
}

func TestPlayOrderJump(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	var p playOrder
	p.rebuild(5, 0, true, rng)

	if !p.jump(4) {
		t.Fatal("jump(4) = false, want true")
	}
	if got := p.current(); got != 4 {
		t.Errorf("current() = %d after jump, want 4", got)
	}
	if p.jump(99) {
		t.Error("jump(99) = true, want false")
	}
}

func TestPlayOrderEmpty(t *testing.T) {
	var p playOrder

	if got := p.current(); got != -1 {
		t.Errorf("current() = %d on empty order, want -1", got)
	}
	if p.hasNext(true) {
		t.Error("hasNext(true) = true on empty order, want false")
	}
	if p.hasPrevious() {
		t.Error("hasPrevious() = true on empty order, want false")
	}
}
