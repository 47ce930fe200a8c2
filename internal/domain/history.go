package domain

import "time"

type Highlight struct {
	Selection string `json:"selection"`
	Fill      string `json:"fill"`
}

type History struct {
	ID           string
	BookID       string
	ReaderID     string
	LastLocation string
	Highlights   []Highlight
	UpdatedAt    time.Time
}

// ApplyHighlights adds highlights, or with remove set drops every stored
// highlight whose selection matches one of the given ones.
func (h *History) ApplyHighlights(highlights []Highlight, remove bool) {
	if !remove {
		h.Highlights = append(h.Highlights, highlights...)
		return
	}
	drop := make(map[string]struct{}, len(highlights))
	for _, hl := range highlights {
		drop[hl.Selection] = struct{}{}
	}
	kept := h.Highlights[:0]
	for _, hl := range h.Highlights {
		if _, ok := drop[hl.Selection]; !ok {
			kept = append(kept, hl)
		}
	}
	h.Highlights = kept
}
