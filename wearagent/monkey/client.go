// Package monkey speaks the line protocol of the on-device `monkey --port` server.
package monkey

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/wearagent/definitions"
)

const defaultReplyTimeout = 10 * time.Second

type Client struct {
	conn         net.Conn
	reader       *bufio.Reader
	replyTimeout time.Duration
}

func NewClient(conn net.Conn) *Client {
	return &Client{
		conn:         conn,
		reader:       bufio.NewReader(conn),
		replyTimeout: defaultReplyTimeout,
	}
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, definitions.ConnectionLost("dial monkey "+addr, err)
	}
	return NewClient(conn), nil
}

// Do sends one command line and returns the value of an "OK[:value]" reply.
// Transport failures are ConnectionLost; an "ERROR" reply is CommandFailed.
func (c *Client) Do(ctx context.Context, command string) (string, error) {
	deadline := time.Now().Add(c.replyTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = c.conn.SetDeadline(deadline)

	log.Trace().Str("cmd", command).Msg("[Monkey] send")
	if _, err := fmt.Fprintf(c.conn, "%s\n", command); err != nil {
		return "", definitions.ConnectionLost(command, err)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", definitions.ConnectionLost(command, err)
	}
	line = strings.TrimRight(line, "\r\n")
	log.Trace().Str("cmd", command).Str("reply", line).Msg("[Monkey] recv")

	switch {
	case line == "OK":
		return "", nil
	case strings.HasPrefix(line, "OK:"):
		return strings.TrimPrefix(line, "OK:"), nil
	case strings.HasPrefix(line, "ERROR"):
		msg := strings.TrimPrefix(strings.TrimPrefix(line, "ERROR"), ":")
		if msg == "" {
			msg = "monkey replied ERROR"
		}
		return "", definitions.CommandFailed(command, fmt.Errorf("%s", msg))
	default:
		return "", definitions.CommandFailed(command, fmt.Errorf("unexpected reply %q", line))
	}
}

func (c *Client) Touch(ctx context.Context, x, y int, action definitions.TouchAction) error {
	var cmd string
	switch action {
	case definitions.TouchDown, definitions.TouchUp, definitions.TouchMove:
		cmd = fmt.Sprintf("touch %s %d %d", action, x, y)
	case definitions.TouchDownAndUp:
		cmd = fmt.Sprintf("tap %d %d", x, y)
	default:
		return fmt.Errorf("unknown touch action %q", action)
	}
	_, err := c.Do(ctx, cmd)
	return err
}

func (c *Client) Press(ctx context.Context, keycode string, action definitions.KeyAction) error {
	var cmd string
	switch action {
	case definitions.KeyDown, definitions.KeyUp:
		cmd = fmt.Sprintf("key %s %s", action, keycode)
	case definitions.KeyDownAndUp:
		cmd = "press " + keycode
	default:
		return fmt.Errorf("unknown key action %q", action)
	}
	_, err := c.Do(ctx, cmd)
	return err
}

func (c *Client) Wake(ctx context.Context) error {
	_, err := c.Do(ctx, "wake")
	return err
}

func (c *Client) GetVar(ctx context.Context, name string) (string, error) {
	return c.Do(ctx, "getvar "+name)
}

// Close asks the server to end the session and drops the connection.
func (c *Client) Close() error {
	_ = c.conn.SetDeadline(time.Now().Add(time.Second))
	_, _ = fmt.Fprint(c.conn, "done\n")
	return c.conn.Close()
}
