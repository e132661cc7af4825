package companion

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/bytedance/sonic"
	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/utils"
)

const (
	strategyUiAutomator = "-android uiautomator"
	// W3C element reference key.
	elementKey = "element-6066-11e4-a52e-4f735466cecf"
	// Upper bound of scroll gestures issued while looking for the end of a list.
	maxScrollGestures = 30
	// Seconds of inactivity after which the server ends a session nobody quit.
	newCommandTimeout = 300
)

// ErrInvalidSession reports that the server no longer knows the session id.
var ErrInvalidSession = errors.New("appium: invalid session")

// UiAutomator talks to an Appium server running the UiAutomator2 driver for one handheld.
type UiAutomator struct {
	BaseURL   string
	SessionID string
	Udid      string
	HTTP      *http.Client
}

func NewUiAutomator(baseURL, udid string) *UiAutomator {
	return &UiAutomator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Udid:    udid,
		HTTP: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// UiAutomatorFactory returns an AutomatorFactory that starts one Appium session per handheld.
func UiAutomatorFactory(baseURL string) AutomatorFactory {
	return func(ctx context.Context, handheldID string) (Automator, error) {
		u := NewUiAutomator(baseURL, handheldID)
		if _, err := u.StartSession(ctx); err != nil {
			return nil, err
		}
		return u, nil
	}
}

type newSessionRequest struct {
	Capabilities struct {
		AlwaysMatch map[string]any `json:"alwaysMatch"`
	} `json:"capabilities"`
}

func (u *UiAutomator) StartSession(ctx context.Context) (string, error) {
	var req newSessionRequest
	req.Capabilities.AlwaysMatch = map[string]any{
		"platformName":             "Android",
		"appium:automationName":    "UiAutomator2",
		"appium:udid":              u.Udid,
		"appium:noReset":           true,
		"appium:newCommandTimeout": newCommandTimeout,
	}

	var resp struct {
		Value struct {
			SessionID string `json:"sessionId"`
		} `json:"value"`
	}
	if err := u.post(ctx, "/session", req, &resp); err != nil {
		return "", err
	}
	if resp.Value.SessionID == "" {
		return "", fmt.Errorf("appium: empty session id")
	}
	u.SessionID = resp.Value.SessionID
	log.Debug().Str("session", u.SessionID).Str("udid", u.Udid).Msg("[UiAutomator] session started")
	return u.SessionID, nil
}

// FindElements returns the element ids matching a UiAutomator expression.
func (u *UiAutomator) FindElements(ctx context.Context, expr string) ([]string, error) {
	body := map[string]string{
		"using": strategyUiAutomator,
		"value": expr,
	}
	var resp struct {
		Value []map[string]any `json:"value"`
	}
	if err := u.post(ctx, u.sessionPath("/elements"), body, &resp); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Value))
	for _, el := range resp.Value {
		id := utils.AnyToString(el[elementKey])
		if id == "" {
			id = utils.AnyToString(el["ELEMENT"])
		}
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (u *UiAutomator) ClickElement(ctx context.Context, elementID string) error {
	return u.post(ctx, u.sessionPath("/element/"+elementID+"/click"), map[string]any{}, nil)
}

// Execute runs a "mobile:" script and returns its raw value.
func (u *UiAutomator) Execute(ctx context.Context, script string, args map[string]any) (any, error) {
	body := map[string]any{
		"script": script,
		"args":   []any{args},
	}
	var resp struct {
		Value any `json:"value"`
	}
	if err := u.post(ctx, u.sessionPath("/execute/sync"), body, &resp); err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (u *UiAutomator) Quit(ctx context.Context) error {
	if u.SessionID == "" {
		return nil
	}
	if err := u.do(ctx, http.MethodDelete, u.sessionPath(""), nil, nil); err != nil {
		return err
	}
	u.SessionID = ""
	return nil
}

func (u *UiAutomator) Exists(ctx context.Context, sel Selector) (bool, error) {
	ids, err := u.FindElements(ctx, sel.UiSelector())
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (u *UiAutomator) Click(ctx context.Context, sel Selector) error {
	id, err := u.first(ctx, sel.UiSelector())
	if err != nil {
		return err
	}
	return u.ClickElement(ctx, id)
}

// ScrollToEnd scrolls container down until the driver reports it cannot scroll further.
func (u *UiAutomator) ScrollToEnd(ctx context.Context, container Selector) error {
	id, err := u.first(ctx, container.UiSelector())
	if err != nil {
		return err
	}
	for i := 0; i < maxScrollGestures; i++ {
		more, err := u.Execute(ctx, "mobile: scrollGesture", map[string]any{
			"elementId": id,
			"direction": "down",
			"percent":   1.0,
		})
		if err != nil {
			return err
		}
		if !utils.AnyToBool(more) {
			return nil
		}
	}
	log.Warn().Str("container", container.String()).Msg("[UiAutomator] list did not reach its end")
	return nil
}

// ScrollTo scrolls container until target is in view.
func (u *UiAutomator) ScrollTo(ctx context.Context, container, target Selector) error {
	expr := fmt.Sprintf("new UiScrollable(%s).scrollIntoView(%s)", container.UiSelector(), target.UiSelector())
	_, err := u.first(ctx, expr)
	return err
}

func (u *UiAutomator) first(ctx context.Context, expr string) (string, error) {
	ids, err := u.FindElements(ctx, expr)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 {
		return "", fmt.Errorf("appium: no element matches %s", expr)
	}
	return ids[0], nil
}

func (u *UiAutomator) sessionPath(suffix string) string {
	return "/session/" + u.SessionID + suffix
}

func (u *UiAutomator) post(ctx context.Context, path string, body, result any) error {
	return u.do(ctx, http.MethodPost, path, body, result)
}

func (u *UiAutomator) do(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("appium: marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.BaseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("appium: create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Trace().Str("method", method).Str("path", path).Msg("[UiAutomator] request")
	resp, err := u.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("appium: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("appium: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		if isInvalidSession(respBody) {
			return fmt.Errorf("appium: %s %s: status %d: %w", method, path, resp.StatusCode, ErrInvalidSession)
		}
		return fmt.Errorf("appium: %s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("appium: unmarshal response: %w", err)
		}
	}
	return nil
}

func isInvalidSession(body []byte) bool {
	var reply struct {
		Value struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		} `json:"value"`
	}
	if err := json.Unmarshal(body, &reply); err != nil {
		return false
	}
	return reply.Value.Error == "invalid session id" ||
		strings.Contains(reply.Value.Message, "session is either terminated or not started")
}
