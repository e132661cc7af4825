package constants

import (
	_ "embed"
	"errors"
	"sync"

	json "github.com/bytedance/sonic"
)

//go:embed ignored_listeners.json
var ignoredListenersJSON []byte

// IgnoredListeners lists sensor listeners owned by the platform.
// The list is heuristic and meant to be overridden from config, not treated as exhaustive.
type IgnoredListeners struct {
	Prefixes []string `json:"prefixes"`
	Exact    []string `json:"exact"`
}

var (
	ignored IgnoredListeners
	errLoad error
	once    = new(sync.Once)
)

// Load loads the ignored listener list from the embedded JSON
func Load() (IgnoredListeners, error) {
	once.Do(func() {
		if err := json.Unmarshal(ignoredListenersJSON, &ignored); err != nil {
			errLoad = errors.Join(err, errors.New("failed to unmarshal embedded ignored_listeners.json"))
		}
	})
	return ignored, errLoad
}

// DefaultIgnoredListeners returns a copy of the embedded list, or an empty list if it is unreadable.
func DefaultIgnoredListeners() IgnoredListeners {
	l, err := Load()
	if err != nil {
		return IgnoredListeners{}
	}
	return IgnoredListeners{
		Prefixes: append([]string(nil), l.Prefixes...),
		Exact:    append([]string(nil), l.Exact...),
	}
}
