// Package patch turns the text-level CSV repairs into a reviewable patch.
package patch

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/sirupsen/logrus"
)

// File is one source file before and after quote repair.
type File struct {
	Path   string
	Before string
	After  string
}

// GenerateDiff returns a diff-match-patch text for every file whose content
// changed, suitable for writing to --repair-patch-out. Files are emitted in
// the given order. Both sides are normalized to LF line endings first so that
// a CRLF export does not show every line as changed. Files left untouched are
// logged at info level on log, which may be nil.
func GenerateDiff(files []File, log logrus.FieldLogger) string {
	if len(files) == 0 {
		return ""
	}

	dmp := diffmatchpatch.New()
	var out strings.Builder

	for _, f := range files {
		before := normalize(f.Before)
		after := normalize(f.After)
		if before == after {
			if log != nil {
				log.WithField("file", f.Path).Info("no quote repair needed")
			}
			continue
		}

		diffs := dmp.DiffMain(before, after, false)
		patchList := dmp.PatchMake(before, diffs)
		patchText := dmp.PatchToText(patchList)
		if patchText == "" {
			continue
		}

		out.WriteString(fmt.Sprintf("# patch for %s\n", f.Path))
		out.WriteString(patchText)
		out.WriteString("\n")
	}

	return out.String()
}

// Apply replays a patch text produced by GenerateDiff for a single file on
// its original content. It reports false if any hunk failed to apply.
func Apply(patchText, original string) (string, bool, error) {
	var body strings.Builder
	for _, line := range strings.SplitAfter(patchText, "\n") {
		if strings.HasPrefix(line, "# patch for ") {
			continue
		}
		body.WriteString(line)
	}

	dmp := diffmatchpatch.New()
	patches, err := dmp.PatchFromText(strings.TrimRight(body.String(), "\n") + "\n")
	if err != nil {
		return "", false, fmt.Errorf("parse patch: %w", err)
	}
	result, applied := dmp.PatchApply(patches, normalize(original))
	for _, ok := range applied {
		if !ok {
			return result, false, nil
		}
	}
	return result, true, nil
}

// normalize converts CRLF to LF.
func normalize(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}
