package feed

import (
	"fmt"
	"testing"

	"github.com/debemdeboas/inkwell/internal/model"
	"github.com/google/go-cmp/cmp"
)

func makeView(n int) []model.Post {
	view := make([]model.Post, n)
	for i := range view {
		view[i].ID = model.PostID(fmt.Sprint(i))
	}
	return view
}

func TestSlice(t *testing.T) {
	for _, size := range []int{0, 1, 3, 7} {
		view := makeView(size)
		for n := -1; n <= 9; n++ {
			got := Slice(view, n)

			want := min(max(n, 0), size)
			if len(got) != want {
				t.Errorf("Slice(%d items, %d) returned %d items, want %d", size, n, len(got), want)
			}
			if diff := cmp.Diff(view[:len(got)], got); diff != "" {
				t.Errorf("Slice(%d items, %d) is not a prefix (-want +got):\n%s", size, n, diff)
			}
		}
	}
}

func TestWindowIncreaseDecrease(t *testing.T) {
	w := NewWindow(3, 3, 3)

	steps := []struct {
		name string
		op   func() int
		want int
	}{
		{"load more", func() int { return w.Increase(10) }, 6},
		{"load more", func() int { return w.Increase(10) }, 9},
		{"load more clamps", func() int { return w.Increase(10) }, 10},
		{"load more at end", func() int { return w.Increase(10) }, 10},
		{"show fewer", func() int { return w.Decrease() }, 7},
		{"show fewer", func() int { return w.Decrease() }, 4},
		{"show fewer floors", func() int { return w.Decrease() }, 3},
		{"show fewer at min", func() int { return w.Decrease() }, 3},
		{"short view keeps min", func() int { return w.Increase(1) }, 3},
	}

	for _, s := range steps {
		if got := s.op(); got != s.want {
			t.Fatalf("%s: expected %d, got %d", s.name, s.want, got)
		}
	}
}

func TestWindowFlags(t *testing.T) {
	w := NewWindow(3, 3, 3)

	if !w.HasMore(5) || w.HasMore(3) {
		t.Error("Unexpected HasMore")
	}
	if w.CanShowFewer() {
		t.Error("Expected CanShowFewer to be false at the minimum")
	}

	w.Increase(5)
	if w.HasMore(5) || !w.CanShowFewer() {
		t.Errorf("Unexpected flags at %d of 5", w.Count)
	}
}

func TestWindowResetsOnFilterChange(t *testing.T) {
	w := NewWindow(3, 3, 3)
	w.SetFilter(Query{Tag: "all"}.Key())

	for _, grown := range []int{1, 2, 5} {
		t.Run(fmt.Sprint(grown), func(t *testing.T) {
			for i := 0; i < grown; i++ {
				w.Increase(100)
			}

			if w.SetFilter(Query{Tag: "all"}.Key()) {
				t.Error("Expected no reset for the same filter")
			}
			if w.Count == 3 {
				t.Error("Expected window to keep its size for the same filter")
			}

			if !w.SetFilter(Query{Tag: fmt.Sprint("tag-", grown)}.Key()) {
				t.Error("Expected reset on filter change")
			}
			if w.Count != 3 {
				t.Errorf("Expected count 3 after filter change, got %d", w.Count)
			}

			w.SetFilter(Query{Tag: "all"}.Key())
		})
	}
}

func TestNewWindowClamps(t *testing.T) {
	w := NewWindow(0, 0, 0)
	if w.Count != 1 || w.Step != 1 || w.Min != 1 {
		t.Errorf("Expected 1/1/1, got %d/%d/%d", w.Count, w.Step, w.Min)
	}
}
