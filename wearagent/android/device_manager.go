package android

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/helper"
)

// Connect runs `adb connect` for a network address. It reports failure via the output message too.
func (r *ADBDevice) Connect(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.exec.RunChecked(ctx, "", "connect", address)
	if err != nil {
		return fmt.Sprintf("Connect error: %v", err), err
	}

	lowerOutput := strings.ToLower(res.Stdout)
	if strings.Contains(lowerOutput, "already connected") {
		return fmt.Sprintf("Already connected to %s", address), nil
	}
	if strings.HasPrefix(lowerOutput, "connected") || strings.Contains(lowerOutput, " connected") {
		return fmt.Sprintf("Connected to %s", address), nil
	}

	msg := strings.TrimSpace(res.Stdout + res.Stderr)
	return fmt.Sprintf("Connection error: %s", msg), definitions.ConnectionLost("adb connect "+address, fmt.Errorf("%s", msg))
}

func (r *ADBDevice) Disconnect(ctx context.Context, address string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	args := []string{"disconnect"}
	if len(address) > 0 {
		args = append(args, address)
	}
	res, err := r.exec.RunChecked(ctx, "", args...)
	if err != nil {
		return fmt.Sprintf("Disconnect error: %v", err), err
	}
	return strings.TrimSpace(res.Stdout), nil
}

func (r *ADBDevice) ListDevices(ctx context.Context) ([]definitions.DeviceInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := r.exec.RunChecked(ctx, "", "devices", "-l")
	if err != nil {
		return nil, err
	}
	return helper.ParseDeviceList(res.Stdout), nil
}

func (r *ADBDevice) IsConnected(ctx context.Context, deviceID string) bool {
	devices, err := r.ListDevices(ctx)
	if err != nil {
		return false
	}
	for _, d := range devices {
		if d.DeviceID == deviceID {
			return d.Status == "device"
		}
	}
	return false
}

func (r *ADBDevice) Forward(ctx context.Context, deviceID string, localPort, remotePort int) error {
	_, err := r.exec.RunChecked(ctx, deviceID, "forward",
		"tcp:"+strconv.Itoa(localPort), "tcp:"+strconv.Itoa(remotePort))
	return err
}

// StartMonkey launches the monkey network server on deviceID. The returned process runs until killed.
func (r *ADBDevice) StartMonkey(ctx context.Context, deviceID string, port int) (*exec.Cmd, error) {
	argv := r.exec.Command(deviceID, "shell", "monkey", "--port", strconv.Itoa(port))
	log.Debug().Str("cmd", fmt.Sprintf("[StartMonkey] run cmd: %s", strings.Join(argv, " "))).Msg("")

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return nil, definitions.ConnectionLost("start monkey", err)
	}
	return cmd, nil
}
