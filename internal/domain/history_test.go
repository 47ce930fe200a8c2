package domain

import "testing"

func TestHistory_ApplyHighlights(t *testing.T) {
	h := History{}
	h.ApplyHighlights([]Highlight{{Selection: "s1", Fill: "yellow"}, {Selection: "s2", Fill: "red"}}, false)
	if len(h.Highlights) != 2 {
		t.Fatalf("expected 2 highlights, got %d", len(h.Highlights))
	}

	h.ApplyHighlights([]Highlight{{Selection: "s1"}}, true)
	if len(h.Highlights) != 1 || h.Highlights[0].Selection != "s2" {
		t.Fatalf("unexpected highlights after removal: %+v", h.Highlights)
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"The Go Programming Language": "the-go-programming-language",
		"  Hello,   World!  ":         "hello-world",
		"Book 2 abc123":               "book-2-abc123",
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Fatalf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}
