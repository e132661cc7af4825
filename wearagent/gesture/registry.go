package gesture

import (
	"context"
	"sort"

	"github.com/samber/lo"
	"github.com/spance/wearprobe/wearagent/definitions"
)

// Handler performs one named gesture through the engine.
type Handler func(e *Engine, ctx context.Context) error

// Registry maps event names to handlers. It is built explicitly and handed to an Engine.
type Registry struct {
	handlers    map[string]Handler
	unsupported map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{handlers: map[string]Handler{}, unsupported: map[string]bool{}}
}

// Register adds or replaces the handler for name.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
	delete(r.unsupported, name)
}

// RegisterUnsupported records an event that is known but cannot be played. Executing it fails
// with UnsupportedEvent and scripts naming it are rejected by Validate.
func (r *Registry) RegisterUnsupported(name string) {
	r.handlers[name] = unsupported(name)
	r.unsupported[name] = true
}

func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Supported reports whether name has a handler that can be played.
func (r *Registry) Supported(name string) bool {
	_, ok := r.handlers[name]
	return ok && !r.unsupported[name]
}

// Names lists every registered event, playable or not.
func (r *Registry) Names() []string {
	names := lo.Keys(r.handlers)
	sort.Strings(names)
	return names
}

func (r *Registry) SupportedNames() []string {
	return lo.Filter(r.Names(), func(name string, _ int) bool {
		return r.Supported(name)
	})
}

// Validate fails with UnsupportedEvent on the first script entry that cannot be played.
func (r *Registry) Validate(script []string) error {
	for _, name := range script {
		if !r.Supported(name) {
			return definitions.UnsupportedEvent(name)
		}
	}
	return nil
}

// Events that exist on real hardware but cannot be produced over the input link.
var unsupportedEvents = []string{
	"palm",
	"palm_over_screen",
	"flick_wrist_in",
	"flick_wrist_out",
	"shake",
	"tilt",
}

// DefaultRegistry returns the standard wearable event table.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("standby", (*Engine).Standby)
	r.Register("swipe_right", (*Engine).SwipeRight)
	r.Register("swipe_left", (*Engine).SwipeLeft)
	r.Register("swipe_up", (*Engine).SwipeUp)
	r.Register("swipe_down", (*Engine).SwipeDown)
	r.Register("press_side_button", (*Engine).PressSideButton)
	r.Register("press_and_hold_side_button", (*Engine).PressAndHoldSideButton)
	r.Register("tap_screen_center", (*Engine).TapScreenCenter)
	r.Register("tap_and_hold_screen_center", (*Engine).TapAndHoldScreenCenter)
	r.Register("wake", (*Engine).Wake)
	for _, name := range unsupportedEvents {
		r.RegisterUnsupported(name)
	}
	return r
}

func unsupported(name string) Handler {
	return func(*Engine, context.Context) error {
		return definitions.UnsupportedEvent(name)
	}
}
