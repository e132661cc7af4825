package registry

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// LoadApkList reads an APK list file and returns the package names it names, sorted and unique.
func LoadApkList(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open apk list: %w", err)
	}
	defer f.Close()
	return ReadApkList(f)
}

// ReadApkList parses one APK path per line. Blank lines and '#' comments are skipped,
// only the first space-separated token counts and the package is the base name without ".apk".
func ReadApkList(r io.Reader) ([]string, error) {
	var pkgs []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.Split(line, " ")[0]
		pkg := strings.TrimSuffix(path.Base(line), ".apk")
		if pkg == "" || pkg == "." || pkg == "/" {
			continue
		}
		pkgs = append(pkgs, pkg)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read apk list: %w", err)
	}
	pkgs = lo.Uniq(pkgs)
	sort.Strings(pkgs)
	return pkgs, nil
}

// ApkPath is the conventional location of pkg's APK inside dir.
func ApkPath(dir, pkg string) string {
	return path.Join(dir, pkg+".apk")
}
