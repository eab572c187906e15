package meditation

import (
	"fmt"
	"strings"
)

// Kind discriminates the segment variants.
type Kind string

const (
	KindText  Kind = "text"
	KindPause Kind = "pause"
	KindSound Kind = "sound"
)

// DefaultSpeed is the neutral narration speed assigned to text segments.
const DefaultSpeed = "1.0"

// Kinds returns the segment kinds in display order.
func Kinds() []Kind {
	return []Kind{KindText, KindPause, KindSound}
}

// ParseKind normalizes a segment type name.
func ParseKind(value string) (Kind, error) {
	switch kind := Kind(strings.ToLower(strings.TrimSpace(value))); kind {
	case KindText, KindPause, KindSound:
		return kind, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, value)
	}
}

// Segment is one row of a meditation sequence. The interface is sealed; the
// only implementations are *TextSegment, *PauseSegment and *SoundSegment.
type Segment interface {
	Kind() Kind
	SegmentID() string
	Position() int

	setPosition(int)
	clone() Segment
}

// Base carries the identity shared by every variant. ID is client-local and
// never sent to the backend; Order is the zero-based position.
type Base struct {
	ID    string
	Order int
}

func (b *Base) SegmentID() string { return b.ID }

func (b *Base) Position() int { return b.Order }

func (b *Base) setPosition(order int) { b.Order = order }

// TextSegment is spoken narration.
type TextSegment struct {
	Base
	Text  string
	Speed string
}

func (*TextSegment) Kind() Kind { return KindText }

func (s *TextSegment) clone() Segment {
	cp := *s
	return &cp
}

// PauseSegment is timed silence.
type PauseSegment struct {
	Base
	DurationSeconds string
}

func (*PauseSegment) Kind() Kind { return KindPause }

func (s *PauseSegment) clone() Segment {
	cp := *s
	return &cp
}

// SoundSegment plays a pre-recorded asset from the catalog.
type SoundSegment struct {
	Base
	SoundFile string
}

func (*SoundSegment) Kind() Kind { return KindSound }

func (s *SoundSegment) clone() Segment {
	cp := *s
	return &cp
}

func newSegment(kind Kind, id string) (Segment, error) {
	switch kind {
	case KindText:
		return &TextSegment{Base: Base{ID: id}, Speed: DefaultSpeed}, nil
	case KindPause:
		return &PauseSegment{Base: Base{ID: id}}, nil
	case KindSound:
		return &SoundSegment{Base: Base{ID: id}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
