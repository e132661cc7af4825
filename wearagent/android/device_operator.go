package android

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/helper"
	"github.com/spance/wearprobe/wearagent/shell"
)

const remoteScreenshotPath = "/sdcard/tmp.png"

// ADBDevice runs package, diagnostic and screen operations against devices through adb.
type ADBDevice struct {
	exec   *shell.Executor
	filter definitions.ListenerFilter
}

func NewADBDevice(exec *shell.Executor, filter definitions.ListenerFilter) *ADBDevice {
	return &ADBDevice{exec: exec, filter: filter}
}

func (r *ADBDevice) Executor() *shell.Executor {
	return r.exec
}

func (r *ADBDevice) GetDisplaySize(ctx context.Context, deviceID string) (int, int, error) {
	res, err := r.exec.RunChecked(ctx, deviceID, "shell", "wm", "size")
	if err != nil {
		return 0, 0, err
	}
	w, h, err := helper.ParseDisplaySize(res.Stdout)
	if err != nil {
		return 0, 0, definitions.CommandFailed("wm size", err)
	}
	return w, h, nil
}

func (r *ADBDevice) IsPackageInstalled(ctx context.Context, deviceID, pkg string) (bool, error) {
	res, err := r.exec.RunChecked(ctx, deviceID, "shell", "pm", "list", "packages")
	if err != nil {
		return false, err
	}
	return helper.PackageListed(res.Stdout, pkg), nil
}

// Install installs apkPath on deviceID unless pkg is already present.
func (r *ADBDevice) Install(ctx context.Context, deviceID, pkg, apkPath string) error {
	installed, err := r.IsPackageInstalled(ctx, deviceID, pkg)
	if err != nil {
		return err
	}
	if installed {
		log.Warn().Str("pkg", pkg).Str("device", deviceID).Msg("already installed")
		return nil
	}

	res, err := r.exec.RunWithRetry(ctx, r.exec.Command(deviceID, "install", apkPath))
	if err != nil {
		return err
	}
	if line, failed := helper.InstallFailed(res.Stdout + "\n" + res.Stderr); failed {
		return definitions.CommandFailed(res.CommandLine(), fmt.Errorf("%s", line))
	}
	log.Debug().Str("pkg", pkg).Str("device", deviceID).Msg("[Install] installed")
	return nil
}

func (r *ADBDevice) Uninstall(ctx context.Context, deviceID, pkg string) error {
	res, err := r.exec.Run(ctx, deviceID, "uninstall", pkg)
	if err != nil {
		return err
	}
	if !res.Success() {
		return definitions.CommandFailed(res.CommandLine(),
			fmt.Errorf("exit status %d: %s", res.ExitCode, strings.TrimSpace(res.Stdout+res.Stderr)))
	}
	return nil
}

// ReadSensors captures the current third-party sensor registrations of deviceID.
func (r *ADBDevice) ReadSensors(ctx context.Context, deviceID string) (definitions.Snapshot, error) {
	res, err := r.exec.RunChecked(ctx, deviceID, "shell", "dumpsys", "sensorservice")
	if err != nil {
		return definitions.Snapshot{}, err
	}
	snapshot, degraded := helper.ParseSensorRegistrations(res.Stdout, r.filter)
	if degraded > 0 {
		log.Debug().Int("lines", degraded).Str("device", deviceID).Msg("[ReadSensors] skipped malformed dumpsys lines")
	}
	return snapshot, nil
}

func (r *ADBDevice) StartActivity(ctx context.Context, deviceID, component string) error {
	_, err := r.exec.RunChecked(ctx, deviceID, "shell", "am", "start", "-n", component)
	return err
}

func (r *ADBDevice) KeyEvent(ctx context.Context, deviceID, keycode string) error {
	_, err := r.exec.RunChecked(ctx, deviceID, "shell", "input", "keyevent", keycode)
	return err
}

func (r *ADBDevice) ClearLogcat(ctx context.Context, deviceID string) error {
	_, err := r.exec.RunChecked(ctx, deviceID, "logcat", "-c")
	return err
}

// GetScreenshot captures the screen of deviceID as PNG.
func (r *ADBDevice) GetScreenshot(ctx context.Context, deviceID string) (*definitions.Screenshot, error) {
	tempPath := filepath.Join(os.TempDir(), fmt.Sprintf("screenshot_%s.png", uuid.New().String()))
	defer func() {
		_ = os.Remove(tempPath)
	}()

	res, err := r.exec.RunChecked(ctx, deviceID, "shell", "screencap", "-p", remoteScreenshotPath)
	if err != nil {
		return nil, err
	}
	if strings.Contains(res.Stdout, "Status: -1") || strings.Contains(res.Stdout, "Failed") {
		return nil, definitions.CommandFailed(res.CommandLine(), fmt.Errorf("%s", strings.TrimSpace(res.Stdout)))
	}

	if _, err := r.exec.RunChecked(ctx, deviceID, "pull", remoteScreenshotPath, tempPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(tempPath)
	if err != nil {
		return nil, fmt.Errorf("read screenshot: %w", err)
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	bounds := img.Bounds()

	return &definitions.Screenshot{
		Data:   data,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
