// Package registry reads the file-based inputs of a test campaign: watch-face labels,
// APK lists and the set of packages whose display test already completed.
package registry

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Labels maps a package name to the watch-face label shown by the companion app.
type Labels map[string]string

// LoadLabels reads CSV rows of (package, internal name, label). Later rows win.
func LoadLabels(path string) (Labels, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ReadLabels(f)
}

func ReadLabels(r io.Reader) (Labels, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	labels := Labels{}
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read labels line %d: %w", line, err)
		}
		if len(row) < 3 {
			continue
		}
		pkg := strings.TrimSpace(row[0])
		if pkg == "" {
			continue
		}
		labels[pkg] = row[2]
	}
	return labels, nil
}

// Lookup returns the label of pkg.
func (l Labels) Lookup(pkg string) (string, error) {
	label, ok := l[pkg]
	if !ok {
		return "", fmt.Errorf("no watch face label for %s", pkg)
	}
	return label, nil
}
