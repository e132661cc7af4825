// Package gesture turns named wearable events into touch and key input on a device session.
package gesture

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/constants"
	"github.com/spance/wearprobe/wearagent/definitions"
)

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// SwipePath is a straight-line drag from Start to End split into Steps moves over Duration.
type SwipePath struct {
	Start    Point
	End      Point
	Duration time.Duration
	Steps    int
}

func (p SwipePath) Validate() error {
	if p.Steps < 1 {
		return fmt.Errorf("swipe: steps must be >= 1, got %d", p.Steps)
	}
	if p.Duration < 0 {
		return fmt.Errorf("swipe: negative duration %s", p.Duration)
	}
	return nil
}

type Engine struct {
	device   definitions.Capabilities
	registry *Registry
	clock    definitions.Clock
	timeouts definitions.Timeouts
}

func NewEngine(device definitions.Capabilities, registry *Registry, clock definitions.Clock, timeouts definitions.Timeouts) *Engine {
	if registry == nil {
		registry = DefaultRegistry()
	}
	if clock == nil {
		clock = definitions.SystemClock{}
	}
	return &Engine{device: device, registry: registry, clock: clock, timeouts: timeouts}
}

// Supports reports whether name can be played. Known but unsupported events are rejected.
func (e *Engine) Supports(name string) bool {
	return e.registry.Supported(name)
}

// Execute runs the gesture registered as name.
func (e *Engine) Execute(ctx context.Context, name string) error {
	h, ok := e.registry.Lookup(name)
	if !ok {
		return definitions.UnsupportedEvent(name)
	}
	log.Debug().Str("event", name).Msg("[Gesture] execute")
	return h(e, ctx)
}

// Run executes script in order and stops at the first failure.
func (e *Engine) Run(ctx context.Context, script []string) error {
	if err := e.registry.Validate(script); err != nil {
		return err
	}
	for _, name := range script {
		if err := e.Execute(ctx, name); err != nil {
			log.Error().Err(err).Str("event", name).Msg("[Gesture] event failed")
			return err
		}
	}
	return nil
}

// Swipe presses at Start, moves in equal integer steps and releases at End.
func (e *Engine) Swipe(ctx context.Context, path SwipePath) error {
	if err := path.Validate(); err != nil {
		return err
	}
	gapX := (path.End.X - path.Start.X) / path.Steps
	gapY := (path.End.Y - path.Start.Y) / path.Steps
	pause := path.Duration / time.Duration(path.Steps)

	x, y := path.Start.X, path.Start.Y
	if err := e.device.Touch(ctx, x, y, definitions.TouchDown); err != nil {
		return err
	}
	for i := 0; i < path.Steps; i++ {
		x += gapX
		y += gapY
		if err := e.device.Touch(ctx, x, y, definitions.TouchMove); err != nil {
			return err
		}
		if err := e.clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return e.device.Touch(ctx, path.End.X, path.End.Y, definitions.TouchUp)
}

func (e *Engine) swipe(ctx context.Context, start, end Point) error {
	return e.Swipe(ctx, SwipePath{
		Start:    start,
		End:      end,
		Duration: e.timeouts.SwipeDuration,
		Steps:    e.timeouts.SwipeSteps,
	})
}

func (e *Engine) Standby(ctx context.Context) error {
	return e.clock.Sleep(ctx, e.timeouts.Long)
}

func (e *Engine) SwipeRight(ctx context.Context) error {
	w, h := e.device.Size()
	return e.swipe(ctx, Point{50, h / 2}, Point{w - 25, h / 2})
}

func (e *Engine) SwipeLeft(ctx context.Context) error {
	w, h := e.device.Size()
	return e.swipe(ctx, Point{w - 50, h / 2}, Point{50, h / 2})
}

func (e *Engine) SwipeUp(ctx context.Context) error {
	w, h := e.device.Size()
	if err := e.swipe(ctx, Point{w / 2, h - 10}, Point{w / 2, h / 2}); err != nil {
		return err
	}
	return e.clock.Sleep(ctx, e.timeouts.Short)
}

func (e *Engine) SwipeDown(ctx context.Context) error {
	w, h := e.device.Size()
	if err := e.swipe(ctx, Point{w / 2, 0}, Point{w / 2, h/2 + 50}); err != nil {
		return err
	}
	return e.clock.Sleep(ctx, e.timeouts.Short)
}

func (e *Engine) PressSideButton(ctx context.Context) error {
	if err := e.device.Press(ctx, constants.KeycodeHome, definitions.KeyDownAndUp); err != nil {
		return err
	}
	return e.clock.Sleep(ctx, e.timeouts.Short)
}

func (e *Engine) PressAndHoldSideButton(ctx context.Context) error {
	if err := e.device.Press(ctx, constants.KeycodeHome, definitions.KeyDown); err != nil {
		return err
	}
	if err := e.clock.Sleep(ctx, e.timeouts.Hold); err != nil {
		return err
	}
	return e.device.Press(ctx, constants.KeycodeHome, definitions.KeyUp)
}

func (e *Engine) TapScreenCenter(ctx context.Context) error {
	w, h := e.device.Size()
	return e.device.Touch(ctx, w/2, h/2, definitions.TouchDownAndUp)
}

func (e *Engine) TapAndHoldScreenCenter(ctx context.Context) error {
	w, h := e.device.Size()
	if err := e.device.Touch(ctx, w/2, h/2, definitions.TouchDown); err != nil {
		return err
	}
	if err := e.clock.Sleep(ctx, e.timeouts.Hold); err != nil {
		return err
	}
	return e.device.Touch(ctx, w/2, h/2, definitions.TouchUp)
}

func (e *Engine) Wake(ctx context.Context) error {
	return e.device.Wake(ctx)
}
