package output

import (
	"bytes"
	"testing"
	"time"

	"taskbridge/internal/platform"
)

func TestFormatTask(t *testing.T) {
	due := time.Date(2026, 5, 17, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		num  int
		task platform.TaskRecord
		want string
	}{
		{"plain", 1, platform.TaskRecord{ExternalID: "abc", Title: "Buy milk"}, "   1  Buy milk  [abc]\n"},
		{"done", 12, platform.TaskRecord{ExternalID: "x", Title: "Ship", Completed: true}, "  12  Ship (done)  [x]\n"},
		{"due", 3, platform.TaskRecord{ExternalID: "y", Title: "Pay rent", Due: &due}, "   3  Pay rent (due 2026-05-17)  [y]\n"},
		{"untitled", 4, platform.TaskRecord{ExternalID: "z", Title: "  "}, "   4  (untitled)  [z]\n"},
		{"multiline", 5, platform.TaskRecord{ExternalID: "w", Title: "a\r\nb"}, "   5  a  b  [w]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatTask(&buf, tt.num, tt.task)
			if buf.String() != tt.want {
				t.Errorf("expected %q, got %q", tt.want, buf.String())
			}
		})
	}
}

func TestFormatPlatform(t *testing.T) {
	var buf bytes.Buffer
	FormatPlatform(&buf, "googletasks", true, true)
	FormatPlatform(&buf, "notion", true, false)
	FormatPlatform(&buf, "trello", false, false)

	want := "googletasks [active]\nnotion [configured]\ntrello\n"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}
