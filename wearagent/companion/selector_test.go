package companion

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spance/wearprobe/constants"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// journal collects the calls of every fake in the order they happen.
type journal struct {
	calls []string
}

func (j *journal) add(s string) { j.calls = append(j.calls, s) }

type fakeHandheld struct {
	j *journal
}

func (d *fakeHandheld) StartActivity(_ context.Context, deviceID, component string) error {
	d.j.add("start " + deviceID + " " + component)
	return nil
}

func (d *fakeHandheld) KeyEvent(_ context.Context, deviceID, keycode string) error {
	d.j.add("key " + deviceID + " " + keycode)
	return nil
}

type fakeAutomator struct {
	j *journal
	// hiddenPolls is how many Exists calls on the watch faces tab report false.
	hiddenPolls int
	// failures maps an operation name to how many times it fails before succeeding.
	failures map[string]int
	// expired makes every call fail as if the server had dropped the session.
	expired bool
	quits   int
}

func (a *fakeAutomator) fail(op string) error {
	if a.expired {
		return fmt.Errorf("%s: %w", op, ErrInvalidSession)
	}
	if a.failures[op] > 0 {
		a.failures[op]--
		return errors.New(op + " failed")
	}
	return nil
}

func (a *fakeAutomator) Quit(context.Context) error {
	a.quits++
	return nil
}

func (a *fakeAutomator) Exists(_ context.Context, sel Selector) (bool, error) {
	a.j.add("exists " + sel.Text)
	if err := a.fail("exists"); err != nil {
		return false, err
	}
	if a.hiddenPolls > 0 {
		a.hiddenPolls--
		return false, nil
	}
	return true, nil
}

func (a *fakeAutomator) Click(_ context.Context, sel Selector) error {
	a.j.add("click " + sel.Text + sel.TextStartsWith)
	return a.fail("click")
}

func (a *fakeAutomator) ScrollToEnd(_ context.Context, container Selector) error {
	a.j.add("scroll end")
	return a.fail("scrollEnd")
}

func (a *fakeAutomator) ScrollTo(_ context.Context, container, target Selector) error {
	a.j.add("scroll to " + target.TextStartsWith + " " + target.ResourceID)
	return a.fail("scrollTo")
}

type fakeSwiper struct {
	j *journal
}

func (s *fakeSwiper) SwipeLeft(context.Context) error {
	s.j.add("swipe left")
	return nil
}

type journalClock struct {
	j *journal
}

func (c *journalClock) Sleep(_ context.Context, d time.Duration) error {
	c.j.add("sleep " + d.String())
	return nil
}

func newTestSelector(auto *fakeAutomator) (*WatchFaceSelector, *journal, *int) {
	j := auto.j
	opened := 0
	factory := func(_ context.Context, handheldID string) (Automator, error) {
		opened++
		return auto, nil
	}
	s := NewWatchFaceSelector(&fakeHandheld{j: j}, factory, &fakeSwiper{j: j}, &journalClock{j: j}, definitions.DefaultTimeouts())
	return s, j, &opened
}

func TestSelectWhenListVisible(t *testing.T) {
	j := &journal{}
	s, _, opened := newTestSelector(&fakeAutomator{j: j})

	require.NoError(t, s.Select(context.Background(), "phone", `Pearl\ Free`))
	assert.Equal(t, []string{
		"key phone KEYCODE_WAKEUP",
		"exists Watch faces",
		"scroll end",
		"scroll to Pearl Free " + constants.CompanionWatchFaceItem,
		"click Pearl Free",
	}, j.calls)

	require.NoError(t, s.Select(context.Background(), "phone", "Other"))
	assert.Equal(t, 1, *opened)
}

func TestSelectOpensCompanionUntilVisible(t *testing.T) {
	j := &journal{}
	s, _, _ := newTestSelector(&fakeAutomator{j: j, hiddenPolls: 2})

	require.NoError(t, s.Select(context.Background(), "phone", "Astral"))
	assert.Equal(t, []string{
		"key phone KEYCODE_WAKEUP",
		"exists Watch faces",
		"start phone " + constants.CompanionLauncher,
		"click More",
		"sleep 2s",
		"exists Watch faces",
		"start phone " + constants.CompanionLauncher,
		"click More",
		"sleep 2s",
		"exists Watch faces",
		"scroll end",
		"scroll to Astral " + constants.CompanionWatchFaceItem,
		"click Astral",
	}, j.calls)
}

func TestSelectRetriesOnce(t *testing.T) {
	j := &journal{}
	s, _, _ := newTestSelector(&fakeAutomator{j: j, failures: map[string]int{"scrollTo": 1}})

	require.NoError(t, s.Select(context.Background(), "phone", "Astral"))
	assert.Equal(t, 2, count(j.calls, "scroll to Astral "+constants.CompanionWatchFaceItem))
}

func TestSelectSurfacesSecondFailure(t *testing.T) {
	j := &journal{}
	s, _, _ := newTestSelector(&fakeAutomator{j: j, failures: map[string]int{"click": 5}})

	err := s.Select(context.Background(), "phone", "Astral")
	assert.True(t, errors.Is(err, definitions.ErrCommandFailed))
	assert.Equal(t, 2, count(j.calls, "click Astral"))
}

func TestDeselect(t *testing.T) {
	j := &journal{}
	s, _, _ := newTestSelector(&fakeAutomator{j: j})

	require.NoError(t, s.Deselect(context.Background(), "phone", ""))
	assert.Equal(t, []string{"sleep 5s", "swipe left", "sleep 5s", "key phone KEYCODE_WAKEUP"}, j.calls[:4])
	assert.Equal(t, "click "+constants.DefaultWatchFace, j.calls[len(j.calls)-1])
}

func TestSelectReopensExpiredSession(t *testing.T) {
	j := &journal{}
	stale := &fakeAutomator{j: j, expired: true}
	fresh := &fakeAutomator{j: j}
	autos := []*fakeAutomator{stale, fresh}
	opened := 0
	factory := func(context.Context, string) (Automator, error) {
		a := autos[opened]
		opened++
		return a, nil
	}
	s := NewWatchFaceSelector(&fakeHandheld{j: j}, factory, &fakeSwiper{j: j}, &journalClock{j: j}, definitions.DefaultTimeouts())

	require.NoError(t, s.Select(context.Background(), "phone", "Astral"))
	assert.Equal(t, 2, opened)
	assert.Equal(t, 2, count(j.calls, "exists Watch faces"))
	assert.Equal(t, "click Astral", j.calls[len(j.calls)-1])

	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, fresh.quits)
	assert.Zero(t, stale.quits)
}

func TestCloseQuitsEverySession(t *testing.T) {
	j := &journal{}
	auto := &fakeAutomator{j: j}
	s, _, opened := newTestSelector(auto)

	require.NoError(t, s.Select(context.Background(), "phone", "Astral"))
	require.NoError(t, s.Close(context.Background()))
	assert.Equal(t, 1, auto.quits)

	require.NoError(t, s.Select(context.Background(), "phone", "Astral"))
	assert.Equal(t, 2, *opened)
}

func TestSelectorExpression(t *testing.T) {
	assert.Equal(t,
		`new UiSelector().text("Watch faces").className("android.widget.TextView").packageName("com.google.android.wearable.app")`,
		watchFacesTab.UiSelector())
	assert.Equal(t, `new UiSelector().scrollable(true)`, watchFaceList.UiSelector())
	assert.Equal(t, `new UiSelector().textStartsWith("Say \"hi\"")`, Selector{TextStartsWith: `Say "hi"`}.UiSelector())
}

func count(calls []string, want string) int {
	n := 0
	for _, c := range calls {
		if c == want {
			n++
		}
	}
	return n
}
