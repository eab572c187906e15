package meditation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Patch describes an edit to one segment. Nil fields are left untouched.
// Setting Kind to a different variant replaces the row with a fresh segment
// that keeps the ID and position; the old variant's fields are dropped before
// the remaining patch fields are applied.
type Patch struct {
	Kind            *Kind
	Text            *string
	Speed           *string
	DurationSeconds *string
	SoundFile       *string
}

// Sequence is the ordered list of segments in a draft. It is not safe for
// concurrent use.
type Sequence struct {
	segments []Segment
	newID    func() string
}

// NewSequence returns an empty sequence that assigns UUIDs to new segments.
func NewSequence() *Sequence {
	return &Sequence{newID: uuid.NewString}
}

// Len returns the number of segments.
func (s *Sequence) Len() int {
	if s == nil {
		return 0
	}
	return len(s.segments)
}

// Add inserts a blank segment of the given kind at position and returns a copy
// of it. Negative positions and positions past the end append.
func (s *Sequence) Add(kind Kind, position int) (Segment, error) {
	id := s.nextID()
	seg, err := newSegment(kind, id)
	if err != nil {
		return nil, err
	}
	n := len(s.segments)
	if position < 0 || position > n {
		position = n
	}
	s.segments = append(s.segments, nil)
	copy(s.segments[position+1:], s.segments[position:])
	s.segments[position] = seg
	s.renumber()
	return seg.clone(), nil
}

// Remove deletes the segment with the given ID.
func (s *Sequence) Remove(id string) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("remove %q: %w", id, ErrSegmentNotFound)
	}
	s.segments = append(s.segments[:idx], s.segments[idx+1:]...)
	s.renumber()
	return nil
}

// Update applies patch to the segment with the given ID. The edit is
// all-or-nothing: when any field is rejected the segment is unchanged.
func (s *Sequence) Update(id string, patch Patch) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("update %q: %w", id, ErrSegmentNotFound)
	}
	current := s.segments[idx]

	next := current.clone()
	if patch.Kind != nil && *patch.Kind != current.Kind() {
		fresh, err := newSegment(*patch.Kind, current.SegmentID())
		if err != nil {
			return fmt.Errorf("update %q: %w", id, err)
		}
		fresh.setPosition(current.Position())
		next = fresh
	}
	if err := applyPatch(next, patch); err != nil {
		return fmt.Errorf("update %q: %w", id, err)
	}
	s.segments[idx] = next
	return nil
}

// Reorder moves the segment with the given ID to newPosition, clamped to the
// valid range.
func (s *Sequence) Reorder(id string, newPosition int) error {
	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("reorder %q: %w", id, ErrSegmentNotFound)
	}
	last := len(s.segments) - 1
	if newPosition < 0 {
		newPosition = 0
	}
	if newPosition > last {
		newPosition = last
	}
	if newPosition == idx {
		return nil
	}
	seg := s.segments[idx]
	s.segments = append(s.segments[:idx], s.segments[idx+1:]...)
	s.segments = append(s.segments, nil)
	copy(s.segments[newPosition+1:], s.segments[newPosition:])
	s.segments[newPosition] = seg
	s.renumber()
	return nil
}

// Get returns a copy of the segment with the given ID.
func (s *Sequence) Get(id string) (Segment, bool) {
	idx := s.indexOf(id)
	if idx < 0 {
		return nil, false
	}
	return s.segments[idx].clone(), true
}

// Ordered returns copies of all segments; Position() is exactly 0..n-1.
func (s *Sequence) Ordered() []Segment {
	if s == nil {
		return nil
	}
	out := make([]Segment, len(s.segments))
	for i, seg := range s.segments {
		out[i] = seg.clone()
	}
	return out
}

func (s *Sequence) nextID() string {
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s.newID()
}

func (s *Sequence) indexOf(id string) int {
	if s == nil {
		return -1
	}
	for i, seg := range s.segments {
		if seg.SegmentID() == id {
			return i
		}
	}
	return -1
}

func (s *Sequence) renumber() {
	for i, seg := range s.segments {
		seg.setPosition(i)
	}
}

func applyPatch(seg Segment, patch Patch) error {
	switch v := seg.(type) {
	case *TextSegment:
		if err := rejectFields(patch, "duration", "sound"); err != nil {
			return err
		}
		if patch.Text != nil {
			v.Text = *patch.Text
		}
		if patch.Speed != nil {
			v.Speed = strings.TrimSpace(*patch.Speed)
			if v.Speed == "" {
				v.Speed = DefaultSpeed
			}
		}
	case *PauseSegment:
		if err := rejectFields(patch, "text", "speed", "sound"); err != nil {
			return err
		}
		if patch.DurationSeconds != nil {
			v.DurationSeconds = strings.TrimSpace(*patch.DurationSeconds)
		}
	case *SoundSegment:
		if err := rejectFields(patch, "text", "speed", "duration"); err != nil {
			return err
		}
		if patch.SoundFile != nil {
			v.SoundFile = strings.TrimSpace(*patch.SoundFile)
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownKind, seg)
	}
	return nil
}

func rejectFields(patch Patch, fields ...string) error {
	for _, field := range fields {
		var set bool
		switch field {
		case "text":
			set = patch.Text != nil
		case "speed":
			set = patch.Speed != nil
		case "duration":
			set = patch.DurationSeconds != nil
		case "sound":
			set = patch.SoundFile != nil
		}
		if set {
			return fmt.Errorf("%w: %s", ErrFieldNotApplicable, field)
		}
	}
	return nil
}
