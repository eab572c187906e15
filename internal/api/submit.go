package api

import (
	"context"
	"log/slog"
	"sync/atomic"

	"mantrify/internal/composition"
	"mantrify/internal/logging"
	"mantrify/internal/meditation"
)

// Submission is the handle of an accepted generation job.
type Submission struct {
	QueueID  int64
	FilePath string
	Message  string
}

// Submitter sends drafts to the backend. At most one Submit runs at a time per
// Submitter; a concurrent call fails fast with ErrSubmissionInFlight.
type Submitter struct {
	client    *Client
	validator *composition.Validator
	logger    *slog.Logger
	inFlight  atomic.Bool
}

// NewSubmitter pairs a client with the validator that gates submission.
func NewSubmitter(client *Client, validator *composition.Validator, logger *slog.Logger) *Submitter {
	return &Submitter{
		client:    client,
		validator: validator,
		logger:    logging.NewComponentLogger(logger, "submitter"),
	}
}

// Submit validates d again and posts it exactly once. Local validation
// failures return a *composition.ValidationError without touching the network.
// Server rejections return an *Error whose FieldErrors can be merged with
// MergeRejection. Nothing is retried.
func (s *Submitter) Submit(ctx context.Context, d *meditation.Draft) (Submission, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return Submission{}, ErrSubmissionInFlight
	}
	defer s.inFlight.Store(false)

	result := s.validator.Validate(d)
	if !result.Valid {
		s.logger.Debug("draft failed validation", logging.Int("field_errors", len(result.FieldErrors)))
		return Submission{}, result.Err()
	}

	req, err := EncodeCreateRequest(d, s.validator.Catalog)
	if err != nil {
		return Submission{}, err
	}

	resp, err := s.client.CreateMeditation(ctx, req)
	if err != nil {
		s.logger.Warn("submission failed",
			logging.String(logging.FieldEventType, "submission_failed"),
			logging.String(logging.FieldImpact, "meditation was not queued"),
			logging.Bool("retryable", Retryable(err)),
			logging.Error(err),
		)
		return Submission{}, err
	}

	s.logger.Info("meditation queued",
		logging.Int64(logging.FieldQueueID, resp.QueueID),
		logging.Int("segments", len(req.MeditationArray)),
	)
	return Submission{QueueID: resp.QueueID, FilePath: resp.FilePath, Message: resp.Message}, nil
}
