package companion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appiumRequest struct {
	Method string
	Path   string
	Body   map[string]any
}

// fakeAppium serves canned WebDriver replies and records what it was asked.
func fakeAppium(t *testing.T, replies map[string]string) (*httptest.Server, *[]appiumRequest) {
	var requests []appiumRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		req := appiumRequest{Method: r.Method, Path: r.URL.Path}
		if len(data) > 0 {
			assert.NoError(t, json.Unmarshal(data, &req.Body))
		}
		requests = append(requests, req)

		reply, ok := replies[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"value":{"error":"unknown command"}}`)
			return
		}
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestUiAutomatorSessionAndClick(t *testing.T) {
	srv, requests := fakeAppium(t, map[string]string{
		"POST /session":                     `{"value":{"sessionId":"s1","capabilities":{}}}`,
		"POST /session/s1/elements":         `{"value":[{"element-6066-11e4-a52e-4f735466cecf":"e1"}]}`,
		"POST /session/s1/element/e1/click": `{"value":null}`,
	})

	auto, err := UiAutomatorFactory(srv.URL + "/")(context.Background(), "phone")
	require.NoError(t, err)
	require.NoError(t, auto.Click(context.Background(), Selector{Text: "More"}))

	reqs := *requests
	require.Len(t, reqs, 3)
	caps := reqs[0].Body["capabilities"].(map[string]any)["alwaysMatch"].(map[string]any)
	assert.Equal(t, "UiAutomator2", caps["appium:automationName"])
	assert.Equal(t, "phone", caps["appium:udid"])

	assert.Equal(t, "-android uiautomator", reqs[1].Body["using"])
	assert.Equal(t, `new UiSelector().text("More")`, reqs[1].Body["value"])
	assert.Equal(t, "/session/s1/element/e1/click", reqs[2].Path)
}

func TestUiAutomatorExists(t *testing.T) {
	srv, _ := fakeAppium(t, map[string]string{
		"POST /session/s1/elements": `{"value":[]}`,
	})
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	ok, err := u.Exists(context.Background(), Selector{Text: "Watch faces"})
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Error(t, u.Click(context.Background(), Selector{Text: "Watch faces"}))
}

func TestUiAutomatorScrollToEnd(t *testing.T) {
	scrolls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/session/s1/elements":
			_, _ = io.WriteString(w, `{"value":[{"ELEMENT":"list"}]}`)
		case "/session/s1/execute/sync":
			scrolls++
			if scrolls < 3 {
				_, _ = io.WriteString(w, `{"value":true}`)
			} else {
				_, _ = io.WriteString(w, `{"value":false}`)
			}
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	require.NoError(t, u.ScrollToEnd(context.Background(), watchFaceList))
	assert.Equal(t, 3, scrolls)
}

func TestUiAutomatorScrollTo(t *testing.T) {
	srv, requests := fakeAppium(t, map[string]string{
		"POST /session/s1/elements": `{"value":[{"element-6066-11e4-a52e-4f735466cecf":"e9"}]}`,
	})
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	require.NoError(t, u.ScrollTo(context.Background(), watchFaceList, Selector{TextStartsWith: "Astral"}))
	assert.Equal(t,
		`new UiScrollable(new UiSelector().scrollable(true)).scrollIntoView(new UiSelector().textStartsWith("Astral"))`,
		(*requests)[0].Body["value"])
}

func TestUiAutomatorHTTPError(t *testing.T) {
	srv, _ := fakeAppium(t, map[string]string{})
	_, err := NewUiAutomator(srv.URL, "phone").StartSession(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestUiAutomatorInvalidSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"value":{"error":"invalid session id","message":"session s1 not found"}}`)
	}))
	defer srv.Close()
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	_, err := u.Exists(context.Background(), Selector{Text: "Watch faces"})
	assert.True(t, errors.Is(err, ErrInvalidSession))
}

func TestUiAutomatorUnknownCommandIsNotInvalidSession(t *testing.T) {
	srv, _ := fakeAppium(t, map[string]string{})
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	_, err := u.Exists(context.Background(), Selector{Text: "Watch faces"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidSession))
}

func TestUiAutomatorQuit(t *testing.T) {
	srv, requests := fakeAppium(t, map[string]string{
		"DELETE /session/s1": `{"value":null}`,
	})
	u := NewUiAutomator(srv.URL, "phone")
	u.SessionID = "s1"

	require.NoError(t, u.Quit(context.Background()))
	assert.Empty(t, u.SessionID)
	require.NoError(t, u.Quit(context.Background()))
	require.Len(t, *requests, 1)
	assert.Equal(t, http.MethodDelete, (*requests)[0].Method)
}
