package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// Completed lists the packages that have a "<pkg><suffix>" file in dir, sorted.
func Completed(dir, suffix string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+suffix))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	pkgs := lo.FilterMap(matches, func(m string, _ int) (string, bool) {
		pkg := strings.TrimSuffix(filepath.Base(m), suffix)
		return pkg, pkg != ""
	})
	sort.Strings(pkgs)
	return pkgs, nil
}

// Pending returns pkgs without the completed ones, keeping order.
func Pending(pkgs, completed []string) []string {
	return lo.Without(pkgs, completed...)
}
