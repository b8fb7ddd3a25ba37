package types

import "fmt"

// Warnings accumulates non-fatal problems across every phase of a run so they
// can be summarized once instead of being logged where they occur.
type Warnings struct {
	items []string
}

func (w *Warnings) Add(msg string) {
	if w == nil {
		return
	}
	w.items = append(w.items, msg)
}

func (w *Warnings) Addf(format string, args ...any) {
	w.Add(fmt.Sprintf(format, args...))
}

// All returns a copy of the collected warnings in insertion order.
func (w *Warnings) All() []string {
	if w == nil {
		return nil
	}
	return append([]string(nil), w.items...)
}

func (w *Warnings) Len() int {
	if w == nil {
		return 0
	}
	return len(w.items)
}
