package webclient

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/raysh454/intent/internal/logging"
)

// Constructor builds one backend from cfg.
type Constructor func(cfg Config, logger logging.Logger) (WebClient, error)

type backendSet struct {
	mu    sync.RWMutex
	ctors map[Client]Constructor
}

var backends = &backendSet{ctors: map[Client]Constructor{
	ClientNetHTTP: func(cfg Config, logger logging.Logger) (WebClient, error) {
		if cfg.Timeout <= 0 {
			cfg.Timeout = DefaultConfig().Timeout
		}
		return NewNetHTTPClient(cfg, logger, &http.Client{Timeout: cfg.Timeout})
	},
	ClientChromedp: func(cfg Config, logger logging.Logger) (WebClient, error) {
		return NewChromedpClient(cfg, logger)
	},
}}

// RegisterBackend adds or replaces a backend. Names are case-insensitive.
func RegisterBackend(name Client, ctor Constructor) {
	name = normalize(name)
	if name == "" || ctor == nil {
		return
	}
	backends.mu.Lock()
	backends.ctors[name] = ctor
	backends.mu.Unlock()
}

// Backends lists the registered backend names in order.
func Backends() []Client {
	backends.mu.RLock()
	defer backends.mu.RUnlock()
	out := make([]Client, 0, len(backends.ctors))
	for name := range backends.ctors {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// NewWebClient builds the backend named by cfg.Client, nethttp when unset.
func NewWebClient(cfg Config, logger logging.Logger) (WebClient, error) {
	if logger == nil {
		logger = logging.Nop{}
	}
	name := normalize(cfg.Client)
	if name == "" {
		name = ClientNetHTTP
	}

	backends.mu.RLock()
	ctor := backends.ctors[name]
	backends.mu.RUnlock()
	if ctor == nil {
		return nil, fmt.Errorf("webclient: unknown backend %q (have %v)", name, Backends())
	}

	wc, err := ctor(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("webclient: %s: %w", name, err)
	}
	if wc == nil {
		return nil, fmt.Errorf("webclient: %s returned no client", name)
	}
	return wc, nil
}

func normalize(c Client) Client {
	return Client(strings.ToLower(strings.TrimSpace(string(c))))
}
