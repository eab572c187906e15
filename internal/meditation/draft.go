package meditation

import (
	"fmt"
	"strings"
)

// Visibility controls who can list a finished meditation.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ParseVisibility normalizes a visibility value. Empty input yields public.
func ParseVisibility(value string) (Visibility, error) {
	switch v := Visibility(strings.ToLower(strings.TrimSpace(value))); v {
	case "":
		return VisibilityPublic, nil
	case VisibilityPublic, VisibilityPrivate:
		return v, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidVisibility, value)
	}
}

// Valid reports whether v is public or private.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Draft is an unsaved meditation awaiting validation and submission.
type Draft struct {
	Title       string
	Description string
	Visibility  Visibility
	Segments    *Sequence
}

// NewDraft returns an empty public draft.
func NewDraft() *Draft {
	return &Draft{
		Visibility: VisibilityPublic,
		Segments:   NewSequence(),
	}
}

// Ordered returns the draft's segments in order, tolerating a nil sequence.
func (d *Draft) Ordered() []Segment {
	if d == nil || d.Segments == nil {
		return nil
	}
	return d.Segments.Ordered()
}
