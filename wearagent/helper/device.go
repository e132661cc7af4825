package helper

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spance/wearprobe/wearagent/definitions"
)

// ParseDisplaySize reads `wm size` output. An override size wins over the physical size.
func ParseDisplaySize(output string) (width, height int, err error) {
	var physical, override string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if v, ok := strings.CutPrefix(line, "Physical size:"); ok {
			physical = strings.TrimSpace(v)
		} else if v, ok := strings.CutPrefix(line, "Override size:"); ok {
			override = strings.TrimSpace(v)
		}
	}
	size := override
	if size == "" {
		size = physical
	}
	if size == "" {
		return 0, 0, fmt.Errorf("no display size in %q", strings.TrimSpace(output))
	}

	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return 0, 0, fmt.Errorf("malformed display size %q", size)
	}
	width, err = strconv.Atoi(w)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed display width %q: %w", w, err)
	}
	height, err = strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed display height %q: %w", h, err)
	}
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	return width, height, nil
}

// PackageListed reports whether `pm list packages` output contains exactly pkg.
func PackageListed(output, pkg string) bool {
	want := "package:" + pkg
	for _, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

// ParseDeviceList reads `adb devices -l` output.
func ParseDeviceList(output string) []definitions.DeviceInfo {
	var devices []definitions.DeviceInfo
	scanner := bufio.NewScanner(strings.NewReader(output))

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}

		deviceID := parts[0]
		connType := definitions.USB
		if strings.Contains(deviceID, ":") {
			connType = definitions.Remote
		}

		var model string
		for _, part := range parts[2:] {
			if v, ok := strings.CutPrefix(part, "model:"); ok {
				model = v
				break
			}
		}

		devices = append(devices, definitions.DeviceInfo{
			DeviceID:       deviceID,
			Status:         parts[1],
			ConnectionType: connType,
			Model:          model,
		})
	}
	return devices
}

// InstallFailed detects the "Failure [...]" line older adb versions print with a zero exit status.
func InstallFailed(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Failure") {
			return line, true
		}
	}
	return "", false
}
