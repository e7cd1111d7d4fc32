package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// UpdateGoldenEnv names the variable that makes golden checks rewrite
// testdata instead of comparing.
const UpdateGoldenEnv = "TASKBRIDGE_UPDATE_GOLDEN"

// GoldenString checks CLI output against testdata/<name>.golden and reports
// the first line that differs.
func GoldenString(t *testing.T, name, got string) {
	t.Helper()

	path := filepath.Join("testdata", name+".golden")
	if os.Getenv(UpdateGoldenEnv) != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("golden %s: %v", name, err)
		}
		if err := os.WriteFile(path, []byte(got), 0644); err != nil {
			t.Fatalf("golden %s: %v", name, err)
		}
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("golden %s: %v (set %s=1 to create it)\noutput:\n%s", name, err, UpdateGoldenEnv, got)
	}
	want := string(data)
	if got == want {
		return
	}

	wantLines, gotLines := strings.Split(want, "\n"), strings.Split(got, "\n")
	for i := 0; i < len(wantLines) || i < len(gotLines); i++ {
		var w, g string
		if i < len(wantLines) {
			w = wantLines[i]
		}
		if i < len(gotLines) {
			g = gotLines[i]
		}
		if w != g {
			t.Errorf("golden %s: line %d differs\nwant: %q\ngot:  %q", name, i+1, w, g)
			return
		}
	}
	t.Errorf("golden %s: output differs", name)
}
