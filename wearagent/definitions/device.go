package definitions

import "context"

type ConnectionType string

const (
	USB    ConnectionType = "usb"
	Remote ConnectionType = "remote"
)

type DeviceInfo struct {
	DeviceID       string         `json:"device_id"`
	Status         string         `json:"status"`
	ConnectionType ConnectionType `json:"connection_type"`
	Model          string         `json:"model,omitempty"`
}

// Screenshot represents a captured PNG screenshot.
type Screenshot struct {
	Data   []byte `json:"-"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type TouchAction string

const (
	TouchDown      TouchAction = "down"
	TouchUp        TouchAction = "up"
	TouchMove      TouchAction = "move"
	TouchDownAndUp TouchAction = "downAndUp"
)

type KeyAction string

const (
	KeyDown      KeyAction = "down"
	KeyUp        KeyAction = "up"
	KeyDownAndUp KeyAction = "downAndUp"
)

// Capabilities is the input surface a live wearable session exposes.
// Raw forwards a command verbatim to the native device link for anything not wrapped here.
type Capabilities interface {
	Size() (width, height int)
	Touch(ctx context.Context, x, y int, action TouchAction) error
	Press(ctx context.Context, keycode string, action KeyAction) error
	Wake(ctx context.Context) error
	Raw(ctx context.Context, command string) (string, error)
}
