package patch

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

func TestGenerateDiff_ChangedFile(t *testing.T) {
	files := []File{{
		Path:   "data/contrats.csv",
		Before: "coverRef,healthHthc\n\"A1,\"\"10,5\"\"\"\n",
		After:  "coverRef,healthHthc\nA1,10.5\n",
	}}
	out := GenerateDiff(files, nil)
	if out == "" {
		t.Fatal("expected non-empty diff for a repaired file")
	}
	if !strings.Contains(out, "# patch for data/contrats.csv") {
		t.Errorf("diff missing file header: %q", out)
	}
	if !strings.Contains(out, "@@") {
		t.Errorf("diff missing hunk: %q", out)
	}
}

func TestGenerateDiff_UnchangedFileSkipped(t *testing.T) {
	files := []File{{Path: "claims.csv", Before: "a,b\r\n1,2\r\n", After: "a,b\n1,2\n"}}
	logger, hook := test.NewNullLogger()
	out := GenerateDiff(files, logger)
	if out != "" {
		t.Errorf("expected empty diff for unchanged file, got: %q", out)
	}
	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry for the unchanged file")
	}
	if entry.Level != logrus.InfoLevel {
		t.Errorf("expected info level, got %s", entry.Level)
	}
	if entry.Data["file"] != "claims.csv" {
		t.Errorf("expected file field claims.csv, got %v", entry.Data["file"])
	}
}

func TestGenerateDiff_EmptyFiles(t *testing.T) {
	out := GenerateDiff(nil, nil)
	if out != "" {
		t.Errorf("expected empty string for nil files, got %q", out)
	}
}

func TestApply_RoundTrip(t *testing.T) {
	before := "coverRef,healthHthc\n\"A1,\"\"10,5\"\"\"\nA2,11\n"
	after := "coverRef,healthHthc\nA1,10.5\nA2,11\n"
	out := GenerateDiff([]File{{Path: "x.csv", Before: before, After: after}}, nil)

	got, ok, err := Apply(out, before)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if !ok {
		t.Fatal("patch did not apply cleanly")
	}
	if got != after {
		t.Errorf("got %q, want %q", got, after)
	}
}
