package unidiff

import (
	"strings"

	"github.com/revq-dev/revq/internal/model"
)

const headerMarker = "diff --git "

// Parse splits a raw unified-diff blob into an ordered sequence of DiffFile
// records, one per "diff --git a/<old> b/<new>" header. Lines after a header
// accumulate into that file's diff text until the next header or end of
// input; the last section is flushed at end of input even without a trailing
// header.
//
// A blob containing zero header lines parses to the empty list — Phabricator
// legitimately returns an empty diff for a revision with no changes recorded
// yet. New/deleted flags are not derivable from the raw text and stay false;
// a rename is reported when the header's old and new paths differ.
func Parse(blob string) []model.DiffFile {
	if strings.TrimSpace(blob) == "" {
		return nil
	}

	var files []model.DiffFile
	var current *model.DiffFile
	var body strings.Builder

	flush := func() {
		if current == nil {
			return
		}
		current.DiffText = body.String()
		files = append(files, *current)
		current = nil
		body.Reset()
	}

	for _, line := range strings.Split(blob, "\n") {
		if strings.HasPrefix(line, headerMarker) {
			flush()
			oldPath, newPath := parseHeaderPaths(line)
			current = &model.DiffFile{
				OldPath:       oldPath,
				NewPath:       newPath,
				IsRenamedFile: oldPath != "" && newPath != "" && oldPath != newPath,
			}
			continue
		}
		if current != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	return files
}

// parseHeaderPaths extracts the old and new relative paths from a
// "diff --git a/<old> b/<new>" line. Paths with spaces are handled by
// splitting on the " b/" boundary rather than on whitespace.
func parseHeaderPaths(line string) (oldPath, newPath string) {
	rest := strings.TrimPrefix(line, headerMarker)
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		return "", ""
	}
	oldPath = strings.TrimPrefix(rest[:idx], "a/")
	newPath = rest[idx+len(" b/"):]
	return oldPath, newPath
}
