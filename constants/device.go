package constants

import "time"

const (
	ADB = "adb"

	DefaultWearSerial = "127.0.0.1:4444"
	DefaultMonkeyPort = 12345
)

// Gesture timing.
const (
	LongTimeout   = 45 * time.Second
	MediumTimeout = 5 * time.Second
	ShortTimeout  = 1 * time.Second
	HoldTimeout   = 1 * time.Second
	SwipeDuration = 100 * time.Millisecond
	SwipeSteps    = 10
)

const (
	KeycodeHome   = "KEYCODE_HOME"
	KeycodeWakeup = "KEYCODE_WAKEUP"
)

// Companion (handheld) app.
const (
	CompanionPackage       = "com.google.android.wearable.app"
	CompanionLauncher      = CompanionPackage + "/com.google.android.clockwork.companion.launcher.LauncherActivity"
	CompanionWatchFaces    = "Watch faces"
	CompanionMore          = "More"
	CompanionWatchFaceItem = CompanionPackage + ":id/watch_face_title"

	// DefaultWatchFace is pre-installed by Google; selecting it simulates leaving the face under test.
	DefaultWatchFace = "Astral"
)
