package definitions

import (
	"errors"
	"fmt"
)

// ErrorKind classifies harness failures so callers can choose between retry and abort.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindConnectionLost is recovered by the connection manager and never reaches a run report.
	KindConnectionLost
	// KindCommandFailed is surfaced after exactly one retry.
	KindCommandFailed
	// KindUnsupportedEvent marks a missing gesture, never retried.
	KindUnsupportedEvent
	// KindSetupFailed aborts a run before a verdict is produced.
	KindSetupFailed
	// KindParseDegraded is tolerated: the offending diagnostic lines are skipped.
	KindParseDegraded
)

var (
	ErrConnectionLost   = errors.New("connection lost")
	ErrCommandFailed    = errors.New("command failed")
	ErrUnsupportedEvent = errors.New("unsupported event")
	ErrSetupFailed      = errors.New("setup failed")
	ErrParseDegraded    = errors.New("parse degraded")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindConnectionLost:
		return ErrConnectionLost
	case KindCommandFailed:
		return ErrCommandFailed
	case KindUnsupportedEvent:
		return ErrUnsupportedEvent
	case KindSetupFailed:
		return ErrSetupFailed
	case KindParseDegraded:
		return ErrParseDegraded
	default:
		return nil
	}
}

func (k ErrorKind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return "unknown"
}

type HarnessError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *HarnessError) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *HarnessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match a HarnessError against the sentinel of its kind.
func (e *HarnessError) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

func NewError(kind ErrorKind, op string, err error) error {
	return &HarnessError{Kind: kind, Op: op, Err: err}
}

func ConnectionLost(op string, err error) error {
	return NewError(KindConnectionLost, op, err)
}

func CommandFailed(op string, err error) error {
	return NewError(KindCommandFailed, op, err)
}

func UnsupportedEvent(name string) error {
	return NewError(KindUnsupportedEvent, name, nil)
}

func SetupFailed(op string, err error) error {
	return NewError(KindSetupFailed, op, err)
}

// KindOf returns the kind of the outermost HarnessError in err's chain.
func KindOf(err error) ErrorKind {
	var he *HarnessError
	if errors.As(err, &he) {
		return he.Kind
	}
	return KindUnknown
}

// Retryable reports whether err is a transient device or link failure.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindConnectionLost, KindCommandFailed:
		return true
	default:
		return false
	}
}
