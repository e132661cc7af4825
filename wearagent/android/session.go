package android

import (
	"context"
	"errors"
	"net"
	"os/exec"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/monkey"
)

// Link is the native input channel to a device.
type Link interface {
	Do(ctx context.Context, command string) (string, error)
	Touch(ctx context.Context, x, y int, action definitions.TouchAction) error
	Press(ctx context.Context, keycode string, action definitions.KeyAction) error
	Wake(ctx context.Context) error
	GetVar(ctx context.Context, name string) (string, error)
	Close() error
}

// livenessVar is read from a fresh link to prove the device end is answering.
const livenessVar = "build.device"

// LinkDialer opens a Link to deviceID.
type LinkDialer func(ctx context.Context, deviceID string) (Link, error)

// Session is a live, connected wearable. Width and Height are fixed for its lifetime.
// A session created by a ConnectionManager replaces its link after ConnectionLost and replays
// the failed call once.
type Session struct {
	DeviceID string
	Width    int
	Height   int
	link     Link
	manager  *ConnectionManager
}

var _ definitions.Capabilities = (*Session)(nil)

func NewSession(deviceID string, width, height int, link Link) *Session {
	return &Session{DeviceID: deviceID, Width: width, Height: height, link: link}
}

func (s *Session) Size() (int, int) {
	return s.Width, s.Height
}

func (s *Session) Touch(ctx context.Context, x, y int, action definitions.TouchAction) error {
	return s.call(ctx, func(l Link) error {
		return l.Touch(ctx, x, y, action)
	})
}

func (s *Session) Press(ctx context.Context, keycode string, action definitions.KeyAction) error {
	return s.call(ctx, func(l Link) error {
		return l.Press(ctx, keycode, action)
	})
}

func (s *Session) Wake(ctx context.Context) error {
	return s.call(ctx, func(l Link) error {
		return l.Wake(ctx)
	})
}

// Raw sends command to the device link verbatim.
func (s *Session) Raw(ctx context.Context, command string) (string, error) {
	var out string
	err := s.call(ctx, func(l Link) error {
		var err error
		out, err = l.Do(ctx, command)
		return err
	})
	return out, err
}

func (s *Session) call(ctx context.Context, fn func(Link) error) error {
	err := fn(s.link)
	if err == nil || s.manager == nil || !errors.Is(err, definitions.ErrConnectionLost) {
		return err
	}
	log.Warn().Err(err).Str("device", s.DeviceID).Msg("[Session] link lost, reconnecting")
	if err := s.reestablish(ctx); err != nil {
		return err
	}
	return fn(s.link)
}

func (s *Session) reestablish(ctx context.Context) error {
	_ = s.link.Close()
	fresh, err := s.manager.Connect(ctx, s.DeviceID)
	if err != nil {
		return err
	}
	if fresh.Width != s.Width || fresh.Height != s.Height {
		log.Warn().Str("device", s.DeviceID).Int("width", fresh.Width).Int("height", fresh.Height).
			Msg("[Session] display size changed, keeping the original")
	}
	s.link = fresh.link
	return nil
}

func (s *Session) Close() error {
	if s.link == nil {
		return nil
	}
	return s.link.Close()
}

// ConnectionManager establishes wearable sessions and keeps retrying until one works.
type ConnectionManager struct {
	device *ADBDevice
	dial   LinkDialer
	clock  definitions.Clock
	delay  time.Duration
}

// NewConnectionManager returns a manager that dials links with dial.
// A nil dial starts the monkey server on the device and forwards port to it.
func NewConnectionManager(device *ADBDevice, dial LinkDialer, clock definitions.Clock, timeouts definitions.Timeouts, port int) *ConnectionManager {
	m := &ConnectionManager{
		device: device,
		dial:   dial,
		clock:  clock,
		delay:  timeouts.ReconnectDelay,
	}
	if m.clock == nil {
		m.clock = definitions.SystemClock{}
	}
	if m.dial == nil {
		m.dial = MonkeyDialer(device, port)
	}
	return m
}

// Connect returns a Session for deviceID. Failures of any step are retried without limit;
// only ctx cancellation ends the loop early.
func (m *ConnectionManager) Connect(ctx context.Context, deviceID string) (*Session, error) {
	for attempt := 1; ; attempt++ {
		session, err := m.tryConnect(ctx, deviceID)
		if err == nil {
			log.Info().Str("device", deviceID).Int("width", session.Width).Int("height", session.Height).
				Int("attempt", attempt).Msg("connected")
			return session, nil
		}
		log.Warn().Err(err).Str("device", deviceID).Int("attempt", attempt).Msg("connect failed, retrying")

		if err := m.clock.Sleep(ctx, m.delay); err != nil {
			return nil, definitions.ConnectionLost("connect "+deviceID, err)
		}
	}
}

func (m *ConnectionManager) tryConnect(ctx context.Context, deviceID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if isNetworkAddress(deviceID) {
		if _, err := m.device.Connect(ctx, deviceID); err != nil {
			return nil, err
		}
	}

	link, err := m.dial(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	if _, err := link.GetVar(ctx, livenessVar); err != nil {
		_ = link.Close()
		return nil, err
	}

	width, height, err := m.device.GetDisplaySize(ctx, deviceID)
	if err != nil {
		_ = link.Close()
		return nil, err
	}
	session := NewSession(deviceID, width, height, link)
	session.manager = m
	return session, nil
}

// MonkeyDialer starts `monkey --port` on the device, forwards the port locally and dials it.
func MonkeyDialer(device *ADBDevice, port int) LinkDialer {
	return func(ctx context.Context, deviceID string) (Link, error) {
		cmd, err := device.StartMonkey(context.WithoutCancel(ctx), deviceID, port)
		if err != nil {
			return nil, err
		}
		if err := device.Forward(ctx, deviceID, port, port); err != nil {
			killMonkey(cmd)
			return nil, err
		}
		client, err := monkey.Dial(ctx, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
		if err != nil {
			killMonkey(cmd)
			return nil, err
		}
		return &monkeyLink{Client: client, cmd: cmd}, nil
	}
}

type monkeyLink struct {
	*monkey.Client
	cmd *exec.Cmd
}

func (l *monkeyLink) Close() error {
	err := l.Client.Close()
	killMonkey(l.cmd)
	return err
}

func killMonkey(cmd *exec.Cmd) {
	if cmd == nil || cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
	_ = cmd.Wait()
}

// isNetworkAddress reports whether deviceID is a host:port pair rather than a USB serial.
func isNetworkAddress(deviceID string) bool {
	host, port, err := net.SplitHostPort(deviceID)
	if err != nil || host == "" {
		return false
	}
	_, err = strconv.Atoi(port)
	return err == nil
}
