package companion

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/constants"
	"github.com/spance/wearprobe/wearagent/definitions"
	"github.com/spance/wearprobe/wearagent/shell"
)

// HandheldDevice is the adb surface the selector needs on the handheld.
type HandheldDevice interface {
	StartActivity(ctx context.Context, deviceID, component string) error
	KeyEvent(ctx context.Context, deviceID, keycode string) error
}

// Swiper moves the wearable away from the face under test.
type Swiper interface {
	SwipeLeft(ctx context.Context) error
}

var (
	watchFacesTab = Selector{
		Text:        constants.CompanionWatchFaces,
		ClassName:   "android.widget.TextView",
		PackageName: constants.CompanionPackage,
	}
	moreButton    = Selector{Text: constants.CompanionMore}
	watchFaceList = Selector{Scrollable: true}
)

// WatchFaceSelector makes a watch face current through the handheld companion app.
type WatchFaceSelector struct {
	device     HandheldDevice
	newAuto    AutomatorFactory
	automators map[string]Automator
	wearable   Swiper
	clock      definitions.Clock
	timeouts   definitions.Timeouts
}

func NewWatchFaceSelector(device HandheldDevice, factory AutomatorFactory, wearable Swiper, clock definitions.Clock, timeouts definitions.Timeouts) *WatchFaceSelector {
	if clock == nil {
		clock = definitions.SystemClock{}
	}
	return &WatchFaceSelector{
		device:     device,
		newAuto:    factory,
		automators: map[string]Automator{},
		wearable:   wearable,
		clock:      clock,
		timeouts:   timeouts,
	}
}

func (s *WatchFaceSelector) automator(ctx context.Context, handheldID string) (Automator, error) {
	if a, ok := s.automators[handheldID]; ok {
		return a, nil
	}
	a, err := s.newAuto(ctx, handheldID)
	if err != nil {
		return nil, err
	}
	s.automators[handheldID] = a
	return a, nil
}

// automate runs fn against the handheld's automator under the one-retry discipline.
// A session the server no longer knows is dropped so the retry opens a fresh one.
func (s *WatchFaceSelector) automate(ctx context.Context, handheldID, op string, fn func(Automator) error) error {
	return shell.RetryOnce(op, func() error {
		auto, err := s.automator(ctx, handheldID)
		if err != nil {
			return err
		}
		err = fn(auto)
		if errors.Is(err, ErrInvalidSession) {
			log.Warn().Err(err).Str("handheld", handheldID).Msg("[Select] automation session gone")
			delete(s.automators, handheldID)
		}
		return err
	})
}

// Close ends every automation session the selector opened.
func (s *WatchFaceSelector) Close(ctx context.Context) error {
	var errs []error
	for id, auto := range s.automators {
		if err := auto.Quit(ctx); err != nil {
			log.Warn().Err(err).Str("handheld", id).Msg("[Select] quit automation session failed")
			errs = append(errs, err)
		}
		delete(s.automators, id)
	}
	return errors.Join(errs...)
}

// Select opens the companion watch-face list on handheldID and activates the entry starting with label.
// The list is polled until visible, with no limit.
func (s *WatchFaceSelector) Select(ctx context.Context, handheldID, label string) error {
	label = strings.ReplaceAll(label, `\`, "")
	log.Debug().Str("label", label).Str("handheld", handheldID).Msg("[Select] selecting watch face")

	if err := shell.RetryOnce("wake handheld", func() error {
		return s.device.KeyEvent(ctx, handheldID, constants.KeycodeWakeup)
	}); err != nil {
		return err
	}

	for {
		var visible bool
		if err := s.automate(ctx, handheldID, "find "+watchFacesTab.String(), func(auto Automator) error {
			var err error
			visible, err = auto.Exists(ctx, watchFacesTab)
			return err
		}); err != nil {
			return err
		}
		if visible {
			break
		}

		log.Info().Str("handheld", handheldID).Msg("open wear companion app...")
		if err := shell.RetryOnce("start companion", func() error {
			return s.device.StartActivity(ctx, handheldID, constants.CompanionLauncher)
		}); err != nil {
			return err
		}
		if err := s.automate(ctx, handheldID, "click "+moreButton.String(), func(auto Automator) error {
			return auto.Click(ctx, moreButton)
		}); err != nil {
			return err
		}
		if err := s.clock.Sleep(ctx, s.timeouts.PollInterval); err != nil {
			return err
		}
	}

	if err := s.automate(ctx, handheldID, "scroll to end", func(auto Automator) error {
		return auto.ScrollToEnd(ctx, watchFaceList)
	}); err != nil {
		return err
	}

	item := Selector{TextStartsWith: label, ResourceID: constants.CompanionWatchFaceItem}
	if err := s.automate(ctx, handheldID, "scroll to "+item.String(), func(auto Automator) error {
		return auto.ScrollTo(ctx, watchFaceList, item)
	}); err != nil {
		return err
	}

	target := Selector{TextStartsWith: label}
	log.Debug().Str("label", label).Msg("[Select] click")
	return s.automate(ctx, handheldID, "click "+target.String(), func(auto Automator) error {
		return auto.Click(ctx, target)
	})
}

// Deselect leaves the face under test by swiping the wearable and selecting fallbackLabel.
func (s *WatchFaceSelector) Deselect(ctx context.Context, handheldID, fallbackLabel string) error {
	if fallbackLabel == "" {
		fallbackLabel = constants.DefaultWatchFace
	}
	if err := s.clock.Sleep(ctx, s.timeouts.Medium); err != nil {
		return err
	}
	if err := s.wearable.SwipeLeft(ctx); err != nil {
		return err
	}
	if err := s.clock.Sleep(ctx, s.timeouts.Medium); err != nil {
		return err
	}
	return s.Select(ctx, handheldID, fallbackLabel)
}
