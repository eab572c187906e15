package meditation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"mantrify/internal/meditation"
)

func TestSummary(t *testing.T) {
	catalog := meditation.NewCatalog([]meditation.Sound{{Name: "Rain", Filename: "rain.mp3"}})
	long := strings.Repeat("é", 60)

	cases := []struct {
		seg  meditation.Segment
		want string
	}{
		{&meditation.TextSegment{Text: "Breathe in", Speed: "1.0"}, `Text: "Breathe in" (speed: 1x)`},
		{&meditation.TextSegment{Text: long}, `Text: "` + strings.Repeat("é", 50) + `..."`},
		{&meditation.PauseSegment{DurationSeconds: "3"}, "Pause: 3s"},
		{&meditation.PauseSegment{DurationSeconds: "90"}, "Pause: 1m 30s"},
		{&meditation.SoundSegment{SoundFile: "rain.mp3"}, "Sound: Rain"},
		{&meditation.SoundSegment{SoundFile: "thunder.mp3"}, "Sound: thunder.mp3"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, meditation.Summary(tc.seg, catalog))
	}
}
