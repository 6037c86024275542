package feed

import "github.com/debemdeboas/inkwell/internal/model"

// Window is the number of posts of a view currently shown. Load more grows it
// by Step, show fewer shrinks it by Step down to Min.
type Window struct {
	Count int
	Step  int
	Min   int

	initial int
	key     string
}

func NewWindow(initial, step, minimum int) *Window {
	if minimum < 1 {
		minimum = 1
	}
	if initial < minimum {
		initial = minimum
	}
	if step < 1 {
		step = 1
	}
	return &Window{Count: initial, Step: step, Min: minimum, initial: initial}
}

// Slice returns the first n posts of view, or all of them when there are fewer.
func Slice(view []model.Post, n int) []model.Post {
	if n < 0 {
		n = 0
	}
	return view[:min(n, len(view))]
}

func (w *Window) Slice(view []model.Post) []model.Post {
	return Slice(view, w.Count)
}

// Increase grows the window by one step, capped at total but never below Min.
func (w *Window) Increase(total int) int {
	w.Count = max(w.Min, min(w.Count+w.Step, total))
	return w.Count
}

func (w *Window) Decrease() int {
	w.Count = max(w.Min, w.Count-w.Step)
	return w.Count
}

// SetFilter resets the window to its initial size when key differs from the
// previous filter. It reports whether a reset happened.
func (w *Window) SetFilter(key string) bool {
	if key == w.key {
		return false
	}
	w.key = key
	w.Count = w.initial
	return true
}

func (w *Window) HasMore(total int) bool {
	return w.Count < total
}

func (w *Window) CanShowFewer() bool {
	return w.Count > w.Min
}
