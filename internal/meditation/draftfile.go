package meditation

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// draftDocument is the on-disk TOML shape of a draft:
//
//	title = "Evening clarity"
//	visibility = "private"
//
//	[[segment]]
//	type = "text"
//	text = "Breathe in"
//	speed = "1.0"
type draftDocument struct {
	Title       string            `toml:"title"`
	Description string            `toml:"description"`
	Visibility  string            `toml:"visibility"`
	Segments    []segmentDocument `toml:"segment"`
}

type segmentDocument struct {
	Type     string  `toml:"type"`
	Text     *string `toml:"text"`
	Speed    any     `toml:"speed"`
	Duration any     `toml:"duration"`
	Sound    *string `toml:"sound"`
}

// LoadDraftFile reads a TOML draft document from path.
func LoadDraftFile(path string) (*Draft, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	draft, err := ParseDraft(data)
	if err != nil {
		return nil, fmt.Errorf("parse draft %s: %w", path, err)
	}
	return draft, nil
}

// ParseDraft decodes a TOML draft document. Segment fields that do not belong
// to the segment's type are rejected.
func ParseDraft(data []byte) (*Draft, error) {
	var doc draftDocument
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}

	visibility, err := ParseVisibility(doc.Visibility)
	if err != nil {
		return nil, err
	}

	draft := NewDraft()
	draft.Title = doc.Title
	draft.Description = doc.Description
	draft.Visibility = visibility

	for i, sd := range doc.Segments {
		kind, err := ParseKind(sd.Type)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		seg, err := draft.Segments.Add(kind, -1)
		if err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
		patch := Patch{Text: sd.Text, SoundFile: sd.Sound}
		if patch.Speed, err = scalarString(sd.Speed); err != nil {
			return nil, fmt.Errorf("segment %d speed: %w", i+1, err)
		}
		if patch.DurationSeconds, err = scalarString(sd.Duration); err != nil {
			return nil, fmt.Errorf("segment %d duration: %w", i+1, err)
		}
		if err := draft.Segments.Update(seg.SegmentID(), patch); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i+1, err)
		}
	}
	return draft, nil
}

// scalarString accepts TOML strings and numbers so `speed = 0.9` and
// `speed = "0.9"` are equivalent.
func scalarString(value any) (*string, error) {
	var s string
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		s = v
	case int64:
		s = strconv.FormatInt(v, 10)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	default:
		return nil, fmt.Errorf("unsupported value %v", value)
	}
	return &s, nil
}
