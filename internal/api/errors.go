package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"mantrify/internal/composition"
	"mantrify/internal/textutil"
)

// maxRawErrorRunes caps how much of a non-JSON error body is kept.
const maxRawErrorRunes = 200

var (
	ErrValidation         = errors.New("request rejected by server validation")
	ErrUnauthorized       = errors.New("not authenticated")
	ErrForbidden          = errors.New("insufficient privilege")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrRateLimited        = errors.New("rate limited")
	ErrRejected           = errors.New("request rejected")
	ErrTransient          = errors.New("generation service unavailable")
	ErrProtocol           = errors.New("unexpected response from server")
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
)

// Error describes a failed backend call. Kind is one of the sentinels above.
type Error struct {
	Kind        error
	Op          string
	StatusCode  int
	Code        string
	Message     string
	FieldErrors map[string]string
	Err         error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (%d)", e.StatusCode)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the same call by hand may succeed.
// Nothing in this package retries on its own.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

// UserMessage maps err to the sentence shown to a person.
func UserMessage(err error) string {
	var apiErr *Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, composition.ErrInvalid):
		return "Fix the listed fields before submitting."
	case errors.Is(err, ErrSubmissionInFlight):
		return "A submission is already in progress; wait for it to finish."
	case errors.Is(err, ErrUnauthorized):
		return "You must log in to do that."
	case errors.Is(err, ErrForbidden):
		return "Insufficient privilege for this action."
	case errors.Is(err, ErrRateLimited):
		return "Too many requests; wait a moment and try again."
	case errors.Is(err, ErrTransient):
		return "The generation service is unavailable; try again."
	case errors.Is(err, ErrProtocol):
		return "The server sent an unexpected response."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, ErrNotFound):
		return "Not found."
	default:
		return err.Error()
	}
}

// MergeRejection folds server-side field errors from err into local. It
// returns local unchanged when err carries no field errors.
func MergeRejection(local composition.Result, err error) composition.Result {
	var apiErr *Error
	if !errors.As(err, &apiErr) || len(apiErr.FieldErrors) == 0 {
		return local
	}
	return local.Merge(apiErr.FieldErrors)
}

func kindForStatus(code int) error {
	switch {
	case code == http.StatusBadRequest, code == http.StatusUnprocessableEntity:
		return ErrValidation
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code >= 500:
		return ErrTransient
	default:
		return ErrRejected
	}
}

// errorEnvelope accepts `{"error": {"code", "message", "details"}}` as well as
// flat `{"message", "errors"}` bodies.
type errorEnvelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

type errorBody struct {
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func decodeErrorBody(op string, status int, body []byte) *Error {
	apiErr := &Error{Kind: kindForStatus(status), Op: op, StatusCode: status}

	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		apiErr.Message = textutil.Truncate(strings.TrimSpace(string(body)), maxRawErrorRunes)
		return apiErr
	}
	apiErr.Message = env.Message

	if len(env.Error) > 0 {
		var inner errorBody
		if err := json.Unmarshal(env.Error, &inner); err == nil {
			apiErr.Code = inner.Code
			if inner.Message != "" {
				apiErr.Message = inner.Message
			}
			apiErr.FieldErrors = decodeFieldErrors(inner.Details)
		} else {
			var msg string
			if json.Unmarshal(env.Error, &msg) == nil && msg != "" {
				apiErr.Message = msg
			}
		}
	}
	if apiErr.FieldErrors == nil {
		apiErr.FieldErrors = decodeFieldErrors(env.Errors)
	}
	return apiErr
}

type fieldDetail struct {
	Field   string `json:"field"`
	Path    string `json:"path"`
	Message string `json:"message"`
}

func decodeFieldErrors(raw json.RawMessage) map[string]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string]string)

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil {
		for field, msg := range asMap {
			out[normalizeFieldKey(field)] = msg
		}
	} else {
		var asList []fieldDetail
		if err := json.Unmarshal(raw, &asList); err != nil {
			return nil
		}
		for _, d := range asList {
			field := d.Field
			if field == "" {
				field = d.Path
			}
			if field == "" {
				continue
			}
			out[normalizeFieldKey(field)] = d.Message
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var wireSegmentKey = regexp.MustCompile(`^meditationArray(?:\[(\d+)\]|\.(\d+))(?:\.(\w+))?$`)

var wireFieldNames = map[string]string{
	"text":          "text",
	"speed":         "speed",
	"pauseDuration": "duration",
	"soundFile":     "sound",
}

// normalizeFieldKey maps wire field paths onto the draft field paths used by
// composition, so server and local errors share one namespace.
func normalizeFieldKey(field string) string {
	field = strings.TrimSpace(field)
	if field == "meditationArray" {
		return composition.FieldSegments
	}
	m := wireSegmentKey.FindStringSubmatch(field)
	if m == nil {
		return field
	}
	idx := m[1]
	if idx == "" {
		idx = m[2]
	}
	name, ok := wireFieldNames[m[3]]
	if !ok {
		if m[3] == "" {
			return fmt.Sprintf("%s[%s]", composition.FieldSegments, idx)
		}
		name = m[3]
	}
	return fmt.Sprintf("%s[%s].%s", composition.FieldSegments, idx, name)
}
