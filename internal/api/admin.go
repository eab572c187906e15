package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"mantrify/internal/queue"
)

// QueueRecords lists every generation job across users. Requires an operator
// credential.
func (c *Client) QueueRecords(ctx context.Context) ([]queue.Record, error) {
	var resp struct {
		Queue []queue.Record `json:"queue"`
	}
	if err := c.do(ctx, call{op: "list queue", method: http.MethodGet, path: []string{"admin", "queuer"}, out: &resp}); err != nil {
		return nil, err
	}
	return resp.Queue, nil
}

// QueueRecord fetches one queue record. It returns nil, nil when the backend no
// longer lists the record. The backend only exposes the full listing, so the
// record is picked out of it.
func (c *Client) QueueRecord(ctx context.Context, queueID int64) (*queue.Record, error) {
	records, err := c.QueueRecords(ctx)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].ID == queueID {
			rec := records[i]
			return &rec, nil
		}
	}
	return nil, nil
}

// DeleteQueueRecord removes a queue record. It does not stop generation that is
// already running.
func (c *Client) DeleteQueueRecord(ctx context.Context, queueID int64) (DeleteResult, error) {
	var resp struct {
		Message string `json:"message"`
		QueueID int64  `json:"queueId"`
	}
	err := c.do(ctx, call{
		op:     "delete queue record",
		method: http.MethodDelete,
		path:   []string{"admin", "queuer", strconv.FormatInt(queueID, 10)},
		out:    &resp,
	})
	return DeleteResult{Message: resp.Message, ID: resp.QueueID}, err
}

// AdminMeditations lists meditations across all users.
func (c *Client) AdminMeditations(ctx context.Context) ([]Meditation, error) {
	var resp struct {
		Meditations []Meditation `json:"meditations"`
	}
	if err := c.do(ctx, call{op: "list all meditations", method: http.MethodGet, path: []string{"admin", "meditations"}, out: &resp}); err != nil {
		return nil, err
	}
	return resp.Meditations, nil
}

// AdminDeleteMeditation removes any user's meditation.
func (c *Client) AdminDeleteMeditation(ctx context.Context, meditationID int64) (DeleteResult, error) {
	var resp struct {
		Message      string `json:"message"`
		MeditationID int64  `json:"meditationId"`
	}
	err := c.do(ctx, call{
		op:     "admin delete meditation",
		method: http.MethodDelete,
		path:   []string{"admin", "meditations", strconv.FormatInt(meditationID, 10)},
		out:    &resp,
	})
	return DeleteResult{Message: resp.Message, ID: resp.MeditationID}, err
}

// AdminUser is an account as seen by operators.
type AdminUser struct {
	ID                   int64      `json:"id"`
	Username             string     `json:"username"`
	Email                string     `json:"email"`
	IsEmailVerified      bool       `json:"isEmailVerified"`
	EmailVerifiedAt      *time.Time `json:"emailVerifiedAt"`
	IsAdmin              bool       `json:"isAdmin"`
	HasPublicMeditations bool       `json:"hasPublicMeditations"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// Users lists every account.
func (c *Client) Users(ctx context.Context) ([]AdminUser, error) {
	var resp struct {
		Users []AdminUser `json:"users"`
	}
	if err := c.do(ctx, call{op: "list users", method: http.MethodGet, path: []string{"admin", "users"}, out: &resp}); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// DeleteUserOptions controls what happens to a removed user's content.
type DeleteUserOptions struct {
	// SavePublicMeditations reassigns the user's public meditations to the
	// shared benevolent account instead of deleting them.
	SavePublicMeditations bool `json:"savePublicMeditationsAsBenevolentUser"`
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, userID int64, opts DeleteUserOptions) (DeleteResult, error) {
	var resp struct {
		Message string `json:"message"`
		UserID  int64  `json:"userId"`
	}
	err := c.do(ctx, call{
		op:     "delete user",
		method: http.MethodDelete,
		path:   []string{"admin", "users", strconv.FormatInt(userID, 10)},
		body:   opts,
		out:    &resp,
	})
	return DeleteResult{Message: resp.Message, ID: resp.UserID}, err
}
