package framegrab

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// BackendConstructor builds a Browser for the given options.
type BackendConstructor func(opts Options) Browser

const (
	BackendChromedp = "chromedp"
	BackendRod      = "rod"
)

var (
	mu       sync.RWMutex
	registry = map[string]BackendConstructor{}
)

func init() {
	RegisterBackend(BackendChromedp, func(opts Options) Browser { return NewChromedpBrowser(opts) })
	RegisterBackend(BackendRod, func(opts Options) Browser { return NewRodBrowser(opts) })
}

// RegisterBackend registers a named backend constructor. Names are case-insensitive
// and registering an existing name replaces it.
func RegisterBackend(name string, ctor BackendConstructor) {
	if name == "" || ctor == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(name)] = ctor
}

// NewBrowser returns the Browser registered under opts.Backend, defaulting to chromedp.
func NewBrowser(opts Options) (Browser, error) {
	backend := strings.ToLower(strings.TrimSpace(opts.Backend))
	if backend == "" {
		backend = BackendChromedp
	}

	mu.RLock()
	ctor, ok := registry[backend]
	mu.RUnlock()
	if !ok {
		return nil, stepError(ErrConfig, "select backend",
			fmt.Errorf("backend %q not registered: available backends=%v", backend, Backends()))
	}

	return ctor(opts), nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
