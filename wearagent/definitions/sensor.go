package definitions

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// SensorElement is one (sensor type, listener) registration.
// It is comparable, so two elements are equal iff both fields match.
type SensorElement struct {
	SensorType string `json:"sensor_type"`
	Listener   string `json:"listener"`
}

func (e SensorElement) String() string {
	return fmt.Sprintf("Sensor: %s, Listener: %s.", e.SensorType, e.Listener)
}

// Snapshot is an immutable set of sensor registrations captured at one instant.
type Snapshot struct {
	elements map[SensorElement]struct{}
}

func NewSnapshot(elements ...SensorElement) Snapshot {
	set := make(map[SensorElement]struct{}, len(elements))
	for _, e := range elements {
		set[e] = struct{}{}
	}
	return Snapshot{elements: set}
}

func (s Snapshot) Len() int {
	return len(s.elements)
}

func (s Snapshot) Contains(e SensorElement) bool {
	_, ok := s.elements[e]
	return ok
}

// Elements returns the members ordered by listener, then sensor type.
func (s Snapshot) Elements() []SensorElement {
	out := lo.Keys(s.elements)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Listener != out[j].Listener {
			return out[i].Listener < out[j].Listener
		}
		return out[i].SensorType < out[j].SensorType
	})
	return out
}

// Difference returns the elements of s that are not in other (s − other).
func (s Snapshot) Difference(other Snapshot) Snapshot {
	return NewSnapshot(lo.Filter(lo.Keys(s.elements), func(e SensorElement, _ int) bool {
		return !other.Contains(e)
	})...)
}

func (s Snapshot) Equal(other Snapshot) bool {
	return s.Len() == other.Len() && s.Difference(other).Len() == 0
}

// ListenerFilter drops registrations owned by the platform.
// Only third-party listeners are leak candidates.
type ListenerFilter struct {
	Prefixes []string `yaml:"prefixes" json:"prefixes"`
	Exact    []string `yaml:"exact" json:"exact"`
}

func (f ListenerFilter) Ignore(listener string) bool {
	if listener == "" {
		return true
	}
	if lo.Contains(f.Exact, listener) {
		return true
	}
	return lo.SomeBy(f.Prefixes, func(p string) bool {
		return p != "" && strings.HasPrefix(listener, p)
	})
}
