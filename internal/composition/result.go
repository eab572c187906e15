package composition

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

const (
	FieldTitle       = "title"
	FieldDescription = "description"
	FieldVisibility  = "visibility"
	FieldSegments    = "segments"
)

// ErrInvalid marks every *ValidationError.
var ErrInvalid = errors.New("draft is invalid")

// SegmentField returns the field path for a per-segment error.
func SegmentField(index int, field string) string {
	return fmt.Sprintf("%s[%d].%s", FieldSegments, index, field)
}

// Result is the outcome of validating a draft.
type Result struct {
	Valid       bool
	FieldErrors map[string]string
}

// Fields returns the failing field paths in display order: draft fields
// first, then segments by position.
func (r Result) Fields() []string {
	keys := slices.Collect(maps.Keys(r.FieldErrors))
	slices.SortFunc(keys, compareFields)
	return keys
}

// Merge returns a copy of r with extra field errors added. Entries in extra
// replace local messages for the same field.
func (r Result) Merge(extra map[string]string) Result {
	merged := make(map[string]string, len(r.FieldErrors)+len(extra))
	maps.Copy(merged, r.FieldErrors)
	for field, msg := range extra {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		merged[field] = msg
	}
	return Result{Valid: len(merged) == 0, FieldErrors: merged}
}

// Err returns a *ValidationError when r is invalid, nil otherwise.
func (r Result) Err() error {
	if r.Valid && len(r.FieldErrors) == 0 {
		return nil
	}
	return &ValidationError{FieldErrors: maps.Clone(r.FieldErrors)}
}

// ValidationError reports field-scoped problems with a draft.
type ValidationError struct {
	FieldErrors map[string]string
}

func (e *ValidationError) Error() string {
	fields := Result{FieldErrors: e.FieldErrors}.Fields()
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+": "+e.FieldErrors[field])
	}
	if len(parts) == 0 {
		return ErrInvalid.Error()
	}
	return ErrInvalid.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

var segmentFieldPattern = regexp.MustCompile(`^segments\[(\d+)\]`)

var fieldRank = map[string]int{
	FieldTitle:       0,
	FieldDescription: 1,
	FieldVisibility:  2,
	FieldSegments:    3,
}

func compareFields(a, b string) int {
	ra, ia := rankField(a)
	rb, ib := rankField(b)
	if ra != rb {
		return ra - rb
	}
	if ia != ib {
		return ia - ib
	}
	return strings.Compare(a, b)
}

func rankField(field string) (int, int) {
	if rank, ok := fieldRank[field]; ok {
		return rank, -1
	}
	if m := segmentFieldPattern.FindStringSubmatch(field); m != nil {
		idx, _ := strconv.Atoi(m[1])
		return len(fieldRank), idx
	}
	return len(fieldRank) + 1, -1
}
