package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Meditation is a finished meditation as reported by the backend.
type Meditation struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"userId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	ListenCount int64     `json:"listenCount"`
	Favorite    bool      `json:"favorite"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// UnmarshalJSON accepts the legacy `listens` counter when `listenCount` is absent.
func (m *Meditation) UnmarshalJSON(data []byte) error {
	type plain Meditation
	var aux struct {
		plain
		ListenCount *int64 `json:"listenCount"`
		Listens     *int64 `json:"listens"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Meditation(aux.plain)
	switch {
	case aux.ListenCount != nil:
		m.ListenCount = *aux.ListenCount
	case aux.Listens != nil:
		m.ListenCount = *aux.Listens
	}
	return nil
}

// MeditationUpdate carries the editable metadata; nil fields are omitted.
type MeditationUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Visibility  *string `json:"visibility,omitempty"`
}

// CreateMeditation posts a create request exactly once. A response without a
// queue ID or file path is a protocol error.
func (c *Client) CreateMeditation(ctx context.Context, req CreateRequest) (CreateResponse, error) {
	const op = "create meditation"
	var resp CreateResponse
	if err := c.do(ctx, call{op: op, method: http.MethodPost, path: []string{"meditations", "create"}, body: req, out: &resp}); err != nil {
		return CreateResponse{}, err
	}
	if resp.QueueID <= 0 || strings.TrimSpace(resp.FilePath) == "" {
		return CreateResponse{}, &Error{Kind: ErrProtocol, Op: op, Message: "response missing queueId or filePath"}
	}
	return resp, nil
}

// ListMeditations returns public meditations, plus the caller's private ones
// when a credential is available.
func (c *Client) ListMeditations(ctx context.Context) ([]Meditation, error) {
	var resp struct {
		Meditations      []Meditation `json:"meditations"`
		MeditationsArray []Meditation `json:"meditationsArray"`
	}
	if err := c.do(ctx, call{op: "list meditations", method: http.MethodGet, path: []string{"meditations", "all"}, out: &resp}); err != nil {
		return nil, err
	}
	if resp.Meditations != nil {
		return resp.Meditations, nil
	}
	return resp.MeditationsArray, nil
}

// StreamURL returns the streaming location of a finished meditation.
func (c *Client) StreamURL(meditationID int64) string {
	return StreamURL(c.BaseURL(), meditationID)
}

// StreamURL builds the streaming location for meditationID under baseURL.
func StreamURL(baseURL string, meditationID int64) string {
	return strings.TrimRight(baseURL, "/") + "/meditations/" + strconv.FormatInt(meditationID, 10) + "/stream"
}

// FavoriteResult echoes the new favorite flag.
type FavoriteResult struct {
	Message      string `json:"message"`
	MeditationID int64  `json:"meditationId"`
	Favorite     bool   `json:"favorite"`
}

// SetFavorite marks or unmarks a meditation as a favorite of the caller.
func (c *Client) SetFavorite(ctx context.Context, meditationID int64, favorite bool) (FavoriteResult, error) {
	var resp FavoriteResult
	err := c.do(ctx, call{
		op:     "favorite meditation",
		method: http.MethodPost,
		path:   []string{"meditations", "favorite", strconv.FormatInt(meditationID, 10), strconv.FormatBool(favorite)},
		out:    &resp,
	})
	return resp, err
}

// UpdateMeditation edits title, description or visibility.
func (c *Client) UpdateMeditation(ctx context.Context, meditationID int64, update MeditationUpdate) (Meditation, error) {
	var resp struct {
		Message    string     `json:"message"`
		Meditation Meditation `json:"meditation"`
	}
	err := c.do(ctx, call{
		op:     "update meditation",
		method: http.MethodPatch,
		path:   []string{"meditations", "update", strconv.FormatInt(meditationID, 10)},
		body:   update,
		out:    &resp,
	})
	return resp.Meditation, err
}

// DeleteResult is the backend acknowledgement of a delete.
type DeleteResult struct {
	Message string
	ID      int64
}

// DeleteMeditation removes one of the caller's meditations.
func (c *Client) DeleteMeditation(ctx context.Context, meditationID int64) (DeleteResult, error) {
	var resp struct {
		Message      string `json:"message"`
		MeditationID int64  `json:"meditationId"`
	}
	err := c.do(ctx, call{
		op:     "delete meditation",
		method: http.MethodDelete,
		path:   []string{"meditations", strconv.FormatInt(meditationID, 10)},
		out:    &resp,
	})
	return DeleteResult{Message: resp.Message, ID: resp.MeditationID}, err
}
