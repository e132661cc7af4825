package helper

import (
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spance/wearprobe/wearagent/definitions"
)

// SnapshotDiff renders before and after as a unified diff, one element per line.
func SnapshotDiff(before, after definitions.Snapshot) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        snapshotLines(before),
		B:        snapshotLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	})
	if err != nil {
		return ""
	}
	return diff
}

func snapshotLines(s definitions.Snapshot) []string {
	elements := s.Elements()
	lines := make([]string, 0, len(elements))
	for _, e := range elements {
		lines = append(lines, e.String()+"\n")
	}
	return lines
}
