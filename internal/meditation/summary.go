package meditation

import (
	"fmt"
	"strings"

	"mantrify/internal/textutil"
)

const summaryTextLimit = 50

// Summary renders a one-line description of seg for confirmation views.
func Summary(seg Segment, catalog *Catalog) string {
	switch v := seg.(type) {
	case *TextSegment:
		line := fmt.Sprintf("Text: %q", textutil.Truncate(v.Text, summaryTextLimit))
		if speed := strings.TrimSpace(v.Speed); speed != "" {
			line += fmt.Sprintf(" (speed: %s)", textutil.FormatSpeed(speed))
		}
		return line
	case *PauseSegment:
		return "Pause: " + textutil.FormatPause(v.DurationSeconds)
	case *SoundSegment:
		return "Sound: " + catalog.DisplayName(v.SoundFile)
	default:
		return fmt.Sprintf("Unknown segment %T", seg)
	}
}
