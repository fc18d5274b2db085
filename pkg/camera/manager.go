package camera

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Manager holds the capture configuration of a long-running process and
// applies partial updates to it.
type Manager struct {
	config Config
	mu     sync.RWMutex
}

// NewManager creates a manager starting from cfg.
func NewManager(cfg Config) *Manager {
	return &Manager{config: cfg}
}

// Config returns the current capture configuration.
func (m *Manager) Config() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// SetConfig replaces the configuration after validating it.
func (m *Manager) SetConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Update applies the recognised keys of params: preset, device, warmup,
// width, height and timeout_ms. A preset sets both dimensions and is
// applied before explicit width and height. Unknown keys are ignored.
func (m *Manager) Update(params map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := m.config

	if name, ok := params["preset"].(string); ok && name != "" {
		res, err := GetPreset(name)
		if err != nil {
			return err
		}
		cfg.Width, cfg.Height = res.Width, res.Height
	}

	for key, value := range params {
		var target *int
		switch key {
		case "device":
			target = &cfg.Device
		case "warmup":
			target = &cfg.Warmup
		case "width":
			target = &cfg.Width
		case "height":
			target = &cfg.Height
		case "timeout_ms":
			v, ok := toInt(value)
			if !ok {
				return fmt.Errorf("%s must be a number", key)
			}
			cfg.Timeout = time.Duration(v) * time.Millisecond
			continue
		default:
			continue
		}
		v, ok := toInt(value)
		if !ok {
			return fmt.Errorf("%s must be a number", key)
		}
		*target = v
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	m.config = cfg
	return nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		i, err := val.Int64()
		if err == nil {
			return int(i), true
		}
	}
	return 0, false
}
