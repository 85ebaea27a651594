package generator

import (
	"sync"

	"github.com/ziadkadry99/notedraft/internal/config"
	"github.com/ziadkadry99/notedraft/internal/llm"
)

// The heavy backend is process-wide state. Lifecycle:
//   - built on first use, exactly once even under concurrent first calls;
//   - read concurrently without locking after that;
//   - never torn down here;
//   - replaced only by an explicit Reconfigure. A later Shared call with a
//     different config still gets the cached instance.
//
// A failed build is not cached, so the next call tries again.
var shared heavyCache

// cacheEntry is built from the config it was created with, whichever caller
// ends up running the build.
type cacheEntry struct {
	cfg  *config.Config
	once sync.Once
	gen  *ModelGenerator
	err  error
}

type heavyCache struct {
	mu    sync.RWMutex
	entry *cacheEntry
}

// Shared returns the process-wide heavy generator, building it from cfg on
// first use.
func Shared(cfg *config.Config) (*ModelGenerator, error) {
	return shared.build(shared.current(cfg))
}

// Reconfigure replaces the cached heavy generator with one built from cfg.
func Reconfigure(cfg *config.Config) (*ModelGenerator, error) {
	e := &cacheEntry{cfg: cfg}
	shared.mu.Lock()
	shared.entry = e
	shared.mu.Unlock()
	return shared.build(e)
}

func (c *heavyCache) current(cfg *config.Config) *cacheEntry {
	c.mu.RLock()
	e := c.entry
	c.mu.RUnlock()
	if e != nil {
		return e
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		c.entry = &cacheEntry{cfg: cfg}
	}
	return c.entry
}

func (c *heavyCache) build(e *cacheEntry) (*ModelGenerator, error) {
	e.once.Do(func() {
		e.gen, e.err = buildHeavy(e.cfg)
	})
	if e.err != nil {
		c.mu.Lock()
		if c.entry == e {
			c.entry = nil
		}
		c.mu.Unlock()
		return nil, e.err
	}
	return e.gen, nil
}

func buildHeavy(cfg *config.Config) (*ModelGenerator, error) {
	if cfg.ModelID == "" {
		return nil, &config.ConfigurationError{Key: "model_id", Reason: "heavy backend requires a model identifier"}
	}
	provider, err := llm.NewProvider(string(cfg.Engine), cfg.ModelID, cfg.BaseURL)
	if err != nil {
		return nil, &config.ConfigurationError{Key: "engine", Reason: err.Error()}
	}
	if cfg.RequestsPerMinute > 0 {
		provider = llm.NewRateLimitedProvider(provider, cfg.RequestsPerMinute)
	}
	gen := NewModelGenerator(provider, cfg.ModelID, cfg.GenerationTimeout)
	gen.jsonMode = cfg.JSONMode
	return gen, nil
}
