package wearagent

import (
	"context"

	"github.com/spance/wearprobe/wearagent/definitions"
)

// PackageInstaller installs and removes the application under test on one device.
type PackageInstaller interface {
	Install(ctx context.Context, deviceID, pkg, apkPath string) error
	Uninstall(ctx context.Context, deviceID, pkg string) error
}

// SensorReader captures the sensor registrations of a device.
type SensorReader interface {
	ReadSensors(ctx context.Context, deviceID string) (definitions.Snapshot, error)
}

type ScreenCapturer interface {
	GetScreenshot(ctx context.Context, deviceID string) (*definitions.Screenshot, error)
}

type LogCleaner interface {
	ClearLogcat(ctx context.Context, deviceID string) error
}

// Device is the adb side of a test run.
type Device interface {
	PackageInstaller
	SensorReader
	ScreenCapturer
	LogCleaner
}

// WatchFaceSelector makes a watch face current through the handheld companion app.
type WatchFaceSelector interface {
	Select(ctx context.Context, handheldID, label string) error
	Deselect(ctx context.Context, handheldID, fallbackLabel string) error
}

// GestureRunner plays named wearable events.
type GestureRunner interface {
	Supports(name string) bool
	Run(ctx context.Context, script []string) error
}

type LabelLookup interface {
	Lookup(pkg string) (string, error)
}
