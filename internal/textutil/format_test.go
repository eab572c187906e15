package textutil

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		limit int
		want  string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"breathe in slowly", 7, "breathe..."},
		{"ωωωωω", 3, "ωωω..."},
		{"anything", 0, ""},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.limit); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.limit, got, tt.want)
		}
	}
}

func TestTitleCase(t *testing.T) {
	tests := map[string]string{
		"pending":     "Pending",
		"in_progress": "In Progress",
		"gave-up":     "Gave Up",
		"  ":          "",
	}
	for in, want := range tests {
		if got := TitleCase(in); got != want {
			t.Errorf("TitleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	if got := FormatCount(1234567); got != "1,234,567" {
		t.Fatalf("FormatCount = %q", got)
	}
	if got := FormatCount(7); got != "7" {
		t.Fatalf("FormatCount = %q", got)
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := map[string]string{
		"0.85": "0.85x",
		"1.0":  "1x",
		" 1.2": "1.2x",
		"":     "",
		"fast": "fast",
	}
	for in, want := range tests {
		if got := FormatSpeed(in); got != want {
			t.Errorf("FormatSpeed(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatPause(t *testing.T) {
	tests := map[string]string{
		"3":   "3s",
		"2.5": "2.5s",
		"60":  "1m",
		"90":  "1m 30s",
		"abc": "abc",
	}
	for in, want := range tests {
		if got := FormatPause(in); got != want {
			t.Errorf("FormatPause(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := map[string]string{
		"Morning Calm":  "morning_calm",
		"  ":            "unknown",
		"__":            "unknown",
		"Body-Scan_v2!": "body-scan_v2",
	}
	for in, want := range tests {
		if got := SanitizeToken(in); got != want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTernary(t *testing.T) {
	if Ternary(true, "a", "b") != "a" || Ternary(false, 1, 2) != 2 {
		t.Fatal("Ternary picked the wrong branch")
	}
}
