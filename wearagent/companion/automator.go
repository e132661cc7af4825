// Package companion drives the watch-face picker of the handheld companion app.
package companion

import (
	"context"
	"strconv"
	"strings"
)

// Selector identifies a UI element on the handheld. Zero fields are not constrained.
type Selector struct {
	Text           string
	TextStartsWith string
	ClassName      string
	PackageName    string
	ResourceID     string
	Scrollable     bool
}

// UiSelector renders s as an Android UiSelector expression.
func (s Selector) UiSelector() string {
	var b strings.Builder
	b.WriteString("new UiSelector()")
	add := func(method, value string) {
		if value != "" {
			b.WriteString("." + method + "(" + strconv.Quote(value) + ")")
		}
	}
	add("text", s.Text)
	add("textStartsWith", s.TextStartsWith)
	add("className", s.ClassName)
	add("packageName", s.PackageName)
	add("resourceId", s.ResourceID)
	if s.Scrollable {
		b.WriteString(".scrollable(true)")
	}
	return b.String()
}

func (s Selector) String() string {
	return s.UiSelector()
}

// Automator is the UI automation service running against one handheld.
type Automator interface {
	Exists(ctx context.Context, sel Selector) (bool, error)
	Click(ctx context.Context, sel Selector) error
	ScrollToEnd(ctx context.Context, container Selector) error
	ScrollTo(ctx context.Context, container, target Selector) error
	Quit(ctx context.Context) error
}

// AutomatorFactory opens an Automator bound to handheldID.
type AutomatorFactory func(ctx context.Context, handheldID string) (Automator, error)
