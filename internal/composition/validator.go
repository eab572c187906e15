package composition

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"mantrify/internal/meditation"
)

// Validator checks drafts against Rules and a sound Catalog.
type Validator struct {
	Rules   Rules
	Catalog *meditation.Catalog
}

// NewValidator returns a validator for the given limits and catalog.
func NewValidator(rules Rules, catalog *meditation.Catalog) *Validator {
	return &Validator{Rules: rules, Catalog: catalog}
}

// Validate reports every problem with d. It performs no I/O and returns the
// same Result for the same input.
func (v *Validator) Validate(d *meditation.Draft) Result {
	errs := make(map[string]string)
	if d == nil {
		d = &meditation.Draft{}
	}

	title := strings.TrimSpace(d.Title)
	switch n := utf8.RuneCountInString(title); {
	case n == 0:
		errs[FieldTitle] = "title is required"
	case v.Rules.TitleMax > 0 && n > v.Rules.TitleMax:
		errs[FieldTitle] = fmt.Sprintf("title must be at most %d characters", v.Rules.TitleMax)
	}

	if v.Rules.DescriptionMax > 0 && utf8.RuneCountInString(d.Description) > v.Rules.DescriptionMax {
		errs[FieldDescription] = fmt.Sprintf("description must be at most %d characters", v.Rules.DescriptionMax)
	}

	if !d.Visibility.Valid() {
		errs[FieldVisibility] = "visibility must be public or private"
	}

	segments := d.Ordered()
	if len(segments) == 0 {
		errs[FieldSegments] = "add at least one segment"
	}
	for i, seg := range segments {
		v.validateSegment(i, seg, errs)
	}

	return Result{Valid: len(errs) == 0, FieldErrors: errs}
}

func (v *Validator) validateSegment(i int, seg meditation.Segment, errs map[string]string) {
	switch s := seg.(type) {
	case *meditation.TextSegment:
		if strings.TrimSpace(s.Text) == "" {
			errs[SegmentField(i, "text")] = "text is required"
		}
		speed, ok := parsePositiveDecimal(s.Speed)
		switch {
		case !ok:
			errs[SegmentField(i, "speed")] = "speed must be a positive decimal"
		case speed < v.Rules.SpeedMin || speed > v.Rules.SpeedMax:
			errs[SegmentField(i, "speed")] = fmt.Sprintf("speed must be between %s and %s",
				formatBound(v.Rules.SpeedMin), formatBound(v.Rules.SpeedMax))
		}
	case *meditation.PauseSegment:
		duration, ok := parsePositiveDecimal(s.DurationSeconds)
		switch {
		case !ok:
			errs[SegmentField(i, "duration")] = "duration must be a positive number of seconds"
		case v.Rules.PauseMaxSeconds > 0 && duration > v.Rules.PauseMaxSeconds:
			errs[SegmentField(i, "duration")] = fmt.Sprintf("duration must be at most %s seconds",
				formatBound(v.Rules.PauseMaxSeconds))
		}
	case *meditation.SoundSegment:
		switch {
		case strings.TrimSpace(s.SoundFile) == "":
			errs[SegmentField(i, "sound")] = "select a sound"
		default:
			if _, ok := v.Catalog.Lookup(s.SoundFile); !ok {
				errs[SegmentField(i, "sound")] = fmt.Sprintf("unknown sound %q", s.SoundFile)
			}
		}
	default:
		errs[fmt.Sprintf("%s[%d]", FieldSegments, i)] = fmt.Sprintf("unsupported segment type %T", seg)
	}
}

func parsePositiveDecimal(value string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

func formatBound(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
