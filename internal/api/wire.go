package api

import (
	"fmt"
	"strings"

	"mantrify/internal/meditation"
)

// SegmentWire is one element of meditationArray. ID is the 1-based array
// position; the segment's client-local ID is never sent.
type SegmentWire struct {
	ID            int    `json:"id"`
	Type          string `json:"type"`
	Text          string `json:"text,omitempty"`
	Speed         string `json:"speed,omitempty"`
	PauseDuration string `json:"pauseDuration,omitempty"`
	SoundFile     string `json:"soundFile,omitempty"`
}

// CreateRequest is the body of POST /meditations/create.
type CreateRequest struct {
	Title           string        `json:"title"`
	Description     string        `json:"description,omitempty"`
	Visibility      string        `json:"visibility"`
	MeditationArray []SegmentWire `json:"meditationArray"`
}

// CreateResponse is the backend's acceptance of a generation job.
type CreateResponse struct {
	Message  string `json:"message"`
	QueueID  int64  `json:"queueId"`
	FilePath string `json:"filePath"`
}

// EncodeCreateRequest converts a draft to its wire form. Sound references are
// resolved to catalog filenames when catalog knows them.
func EncodeCreateRequest(d *meditation.Draft, catalog *meditation.Catalog) (CreateRequest, error) {
	if d == nil {
		return CreateRequest{}, fmt.Errorf("encode draft: draft is nil")
	}
	visibility := d.Visibility
	if visibility == "" {
		visibility = meditation.VisibilityPublic
	}
	req := CreateRequest{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Visibility:  string(visibility),
	}
	segments := d.Ordered()
	req.MeditationArray = make([]SegmentWire, 0, len(segments))
	for i, seg := range segments {
		wire := SegmentWire{ID: i + 1, Type: string(seg.Kind())}
		switch s := seg.(type) {
		case *meditation.TextSegment:
			wire.Text = s.Text
			wire.Speed = s.Speed
			if strings.TrimSpace(wire.Speed) == "" {
				wire.Speed = meditation.DefaultSpeed
			}
		case *meditation.PauseSegment:
			wire.PauseDuration = s.DurationSeconds
		case *meditation.SoundSegment:
			wire.SoundFile = s.SoundFile
			if sound, ok := catalog.Lookup(s.SoundFile); ok {
				wire.SoundFile = sound.Filename
			}
		default:
			return CreateRequest{}, fmt.Errorf("encode draft: segment %d: %w: %T", i, meditation.ErrUnknownKind, seg)
		}
		req.MeditationArray = append(req.MeditationArray, wire)
	}
	return req, nil
}
