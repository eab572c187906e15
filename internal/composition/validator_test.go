package composition_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/composition"
	"mantrify/internal/meditation"
)

func ptr[T any](v T) *T { return &v }

func newValidator() *composition.Validator {
	return composition.NewValidator(composition.DefaultRules(), meditation.NewCatalog([]meditation.Sound{
		{Name: "Rain", Filename: "rain.mp3"},
		{Name: "Ocean Waves", Filename: "ocean-waves.mp3"},
	}))
}

func addSegment(t *testing.T, d *meditation.Draft, kind meditation.Kind, patch meditation.Patch) {
	t.Helper()
	seg, err := d.Segments.Add(kind, -1)
	require.NoError(t, err)
	require.NoError(t, d.Segments.Update(seg.SegmentID(), patch))
}

func eveningClarity(t *testing.T) *meditation.Draft {
	t.Helper()
	d := meditation.NewDraft()
	d.Title = "Evening clarity"
	addSegment(t, d, meditation.KindText, meditation.Patch{Text: ptr("Breathe in"), Speed: ptr("1.0")})
	addSegment(t, d, meditation.KindPause, meditation.Patch{DurationSeconds: ptr("3.0")})
	addSegment(t, d, meditation.KindSound, meditation.Patch{SoundFile: ptr("rain")})
	return d
}

func TestValidDraftPasses(t *testing.T) {
	result := newValidator().Validate(eveningClarity(t))
	require.True(t, result.Valid)
	require.Empty(t, result.FieldErrors)
	require.NoError(t, result.Err())
}

func TestValidateIsIdempotent(t *testing.T) {
	v := newValidator()
	d := eveningClarity(t)
	d.Title = ""
	d.Description = strings.Repeat("x", 501)

	first := v.Validate(d)
	second := v.Validate(d)
	require.Equal(t, first, second)
}

func TestEmptyTitleFails(t *testing.T) {
	for _, title := range []string{"", "   ", "\t\n"} {
		d := eveningClarity(t)
		d.Title = title
		result := newValidator().Validate(d)
		require.False(t, result.Valid)
		require.Equal(t, []string{composition.FieldTitle}, result.Fields())
	}
}

func TestTitleAndDescriptionLimits(t *testing.T) {
	v := newValidator()

	d := eveningClarity(t)
	d.Title = "  " + strings.Repeat("a", 100) + "  "
	d.Description = strings.Repeat("d", 500)
	require.True(t, v.Validate(d).Valid, "limits are inclusive and title is trimmed")

	d.Title = strings.Repeat("a", 101)
	d.Description = strings.Repeat("d", 501)
	result := v.Validate(d)
	require.Equal(t, []string{composition.FieldTitle, composition.FieldDescription}, result.Fields())
	require.Len(t, d.Description, 501, "description is never truncated")
}

func TestEmptySequenceFails(t *testing.T) {
	d := meditation.NewDraft()
	d.Title = "Fine title"
	result := newValidator().Validate(d)
	require.False(t, result.Valid)
	require.Contains(t, result.FieldErrors, composition.FieldSegments)

	d.Segments = nil
	require.Contains(t, newValidator().Validate(d).FieldErrors, composition.FieldSegments)
}

func TestVisibilityMustBeKnown(t *testing.T) {
	d := eveningClarity(t)
	d.Visibility = "friends"
	require.Equal(t, []string{composition.FieldVisibility}, newValidator().Validate(d).Fields())
}

func TestSegmentRules(t *testing.T) {
	cases := []struct {
		name  string
		kind  meditation.Kind
		patch meditation.Patch
		field string
	}{
		{"empty text", meditation.KindText, meditation.Patch{Text: ptr("  ")}, "segments[0].text"},
		{"speed not a number", meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr("fast")}, "segments[0].speed"},
		{"speed negative", meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr("-1")}, "segments[0].speed"},
		{"speed below range", meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr("0.69")}, "segments[0].speed"},
		{"speed above range", meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr("1.21")}, "segments[0].speed"},
		{"speed infinite", meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr("Inf")}, "segments[0].speed"},
		{"pause missing", meditation.KindPause, meditation.Patch{}, "segments[0].duration"},
		{"pause zero", meditation.KindPause, meditation.Patch{DurationSeconds: ptr("0")}, "segments[0].duration"},
		{"pause too long", meditation.KindPause, meditation.Patch{DurationSeconds: ptr("300.5")}, "segments[0].duration"},
		{"sound missing", meditation.KindSound, meditation.Patch{}, "segments[0].sound"},
		{"sound unknown", meditation.KindSound, meditation.Patch{SoundFile: ptr("thunder")}, "segments[0].sound"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := meditation.NewDraft()
			d.Title = "Title"
			addSegment(t, d, tc.kind, tc.patch)
			result := newValidator().Validate(d)
			require.False(t, result.Valid)
			require.Equal(t, []string{tc.field}, result.Fields())
		})
	}
}

func TestSpeedBoundsAreInclusive(t *testing.T) {
	for _, speed := range []string{"0.7", "1.2", "0.85"} {
		d := meditation.NewDraft()
		d.Title = "Title"
		addSegment(t, d, meditation.KindText, meditation.Patch{Text: ptr("hi"), Speed: ptr(speed)})
		require.True(t, newValidator().Validate(d).Valid, "speed %s", speed)
	}
}

func TestFieldsAreOrderedByPosition(t *testing.T) {
	d := meditation.NewDraft()
	for i := 0; i < 12; i++ {
		addSegment(t, d, meditation.KindPause, meditation.Patch{})
	}
	result := newValidator().Validate(d)
	fields := result.Fields()
	require.Equal(t, composition.FieldTitle, fields[0])
	require.Equal(t, "segments[2].duration", fields[3])
	require.Equal(t, "segments[10].duration", fields[11])
}

func TestMergeAndErr(t *testing.T) {
	local := newValidator().Validate(eveningClarity(t))
	merged := local.Merge(map[string]string{"title": "title already used", "": "ignored"})
	require.False(t, merged.Valid)
	require.Equal(t, map[string]string{"title": "title already used"}, merged.FieldErrors)
	require.Empty(t, local.FieldErrors, "merge does not mutate the receiver")

	err := merged.Err()
	require.ErrorIs(t, err, composition.ErrInvalid)
	var verr *composition.ValidationError
	require.True(t, errors.As(err, &verr))
	require.Equal(t, "title already used", verr.FieldErrors["title"])
	require.Contains(t, err.Error(), "title: title already used")
}
