// Package config owns the on-disk provider catalog, the health store,
// and the current-provider pointer the router reads. It mirrors the
// reference CLI's dual YAML/JSON config manager, generalized to the
// dialect-tagged provider catalog this proxy needs.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/cc-switch/proxy/internal/dialect"
)

// RectifierConfig gates the narrow error-text-driven body mutations.
type RectifierConfig struct {
	Enabled                  bool `yaml:"enabled" json:"enabled"`
	RequestThinkingSignature bool `yaml:"request_thinking_signature" json:"request_thinking_signature"`
	RequestThinkingBudget    bool `yaml:"request_thinking_budget" json:"request_thinking_budget"`
}

// Config is the full on-disk shape: server bind address, the provider
// catalog, the current-provider pointer per dialect, and ambient
// settings.
type Config struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`

	UpstreamProxyURL string `yaml:"upstream_proxy_url,omitempty" json:"upstream_proxy_url,omitempty"`

	Rectifier RectifierConfig `yaml:"rectifier" json:"rectifier"`

	Providers []Provider `yaml:"providers" json:"providers"`

	// CurrentProvider maps a dialect name to the id of the provider
	// presently selected for it.
	CurrentProvider map[string]string `yaml:"current_provider" json:"current_provider"`
}

func (c *Config) clone() *Config {
	if c == nil {
		return nil
	}

	clone := &Config{
		Host:             c.Host,
		Port:             c.Port,
		UpstreamProxyURL: c.UpstreamProxyURL,
		Rectifier:        c.Rectifier,
	}

	clone.Providers = make([]Provider, len(c.Providers))
	for i, p := range c.Providers {
		clone.Providers[i] = p.Clone()
	}

	clone.CurrentProvider = make(map[string]string, len(c.CurrentProvider))
	for k, v := range c.CurrentProvider {
		clone.CurrentProvider[k] = v
	}

	return clone
}

const (
	legacyDirName = ".cc-switch-router"
	newDirName    = ".cc-switch-proxy"
	envConfigDir  = "CC_SWITCH_CONFIG_DIR"
	envAdminKey   = "CC_SWITCH_API_KEY"
)

// Manager owns the parsed config behind an atomic pointer, plus the
// health store and the per-request-independent file paths.
type Manager struct {
	baseDir  string
	yamlPath string
	jsonPath string

	value  atomic.Pointer[Config]
	health *HealthStore

	// loadGroup collapses concurrent Load/Reload calls (e.g. a status
	// request racing a SIGHUP-triggered reload) into a single disk read
	// and parse, so callers all observe the same freshly loaded config
	// instead of each re-parsing the file independently.
	loadGroup singleflight.Group
}

// NewManager resolves the config directory (honoring CC_SWITCH_CONFIG_DIR,
// and using an existing legacy directory in place when the current one
// does not exist; nothing is moved or renamed) without loading anything
// yet.
func NewManager() (*Manager, error) {
	baseDir, err := resolveBaseDir()
	if err != nil {
		return nil, fmt.Errorf("resolve config directory: %w", err)
	}

	return &Manager{
		baseDir:  baseDir,
		yamlPath: filepath.Join(baseDir, "config.yaml"),
		jsonPath: filepath.Join(baseDir, "config.json"),
		health:   NewHealthStore(),
	}, nil
}

func resolveBaseDir() (string, error) {
	if dir := os.Getenv(envConfigDir); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	legacy := filepath.Join(home, legacyDirName)
	current := filepath.Join(home, newDirName)

	if _, err := os.Stat(current); err == nil {
		return current, nil
	}

	if info, err := os.Stat(legacy); err == nil && info.IsDir() {
		return legacy, nil
	}

	return current, nil
}

// BaseDir returns the resolved config directory.
func (m *Manager) BaseDir() string { return m.baseDir }

// Exists reports whether a config file is already on disk.
func (m *Manager) Exists() bool {
	if _, err := os.Stat(m.yamlPath); err == nil {
		return true
	}
	if _, err := os.Stat(m.jsonPath); err == nil {
		return true
	}
	return false
}

// GetPath returns the config file path in use, preferring whichever
// format is already on disk and falling back to the YAML path for a
// first run.
func (m *Manager) GetPath() string {
	return m.primaryPath()
}

// Health returns the shared health store.
func (m *Manager) Health() *HealthStore { return m.health }

// Load reads the config file from disk, auto-detecting YAML vs JSON. If
// neither file exists, it scaffolds a minimal config (empty catalog)
// rather than erroring, matching the reference CLI's first-run
// behavior.
func (m *Manager) Load() error {
	_, err, _ := m.loadGroup.Do("load", func() (any, error) {
		return nil, m.loadLocked()
	})
	return err
}

func (m *Manager) loadLocked() error {
	data, path, err := m.readConfigBytes()
	if err != nil {
		return err
	}

	if data == nil {
		cfg := minimalConfig()
		m.value.Store(cfg)
		return m.persist(cfg, m.yamlPath)
	}

	cfg, err := parseConfig(data, path)
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	m.value.Store(cfg)

	return nil
}

func (m *Manager) readConfigBytes() (data []byte, path string, err error) {
	if b, err := os.ReadFile(m.yamlPath); err == nil {
		return b, m.yamlPath, nil
	} else if !os.IsNotExist(err) {
		return nil, "", err
	}

	if b, err := os.ReadFile(m.jsonPath); err == nil {
		return b, m.jsonPath, nil
	} else if !os.IsNotExist(err) {
		return nil, "", err
	}

	return nil, "", nil
}

// parseConfig auto-detects format from the first non-whitespace byte:
// '{' means JSON, anything else is parsed as YAML.
func parseConfig(data []byte, path string) (*Config, error) {
	trimmed := bytes.TrimSpace(data)

	cfg := &Config{}

	if len(trimmed) > 0 && trimmed[0] == '{' {
		if err := json.Unmarshal(trimmed, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	_ = path

	return cfg, nil
}

func minimalConfig() *Config {
	cfg := &Config{
		Host:            "127.0.0.1",
		Port:            8787,
		Providers:       []Provider{},
		CurrentProvider: map[string]string{},
	}

	if key := os.Getenv(envAdminKey); key != "" {
		// Admin key lives outside the file; nothing to scaffold here,
		// the middleware reads the env var directly.
		_ = key
	}

	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8787
	}
	if cfg.CurrentProvider == nil {
		cfg.CurrentProvider = map[string]string{}
	}
}

// Reload re-parses the config file from disk and atomically swaps the
// live pointer.
func (m *Manager) Reload() error {
	return m.Load()
}

// Snapshot returns a deep clone of the current config. The forwarder
// must work off a snapshot for the duration of one request rather than
// the live pointer.
func (m *Manager) Snapshot() *Config {
	cur := m.value.Load()
	if cur == nil {
		return minimalConfig()
	}
	return cur.clone()
}

// AdminAPIKey returns the key guarding /status and /providers: the
// CC_SWITCH_API_KEY env var bypasses the gate entirely when unset.
func (m *Manager) AdminAPIKey() string {
	return os.Getenv(envAdminKey)
}

// ProvidersByDialect returns a snapshot's providers filtered to one
// dialect.
func (c *Config) ProvidersByDialect(d dialect.Dialect) []Provider {
	out := make([]Provider, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Dialect == d {
			out = append(out, p)
		}
	}
	return out
}

// ProviderByID looks up a provider by id within a snapshot.
func (c *Config) ProviderByID(id string) (Provider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// SetCurrentProvider persists the current-provider pointer for a
// dialect and writes the config back to disk in whichever format it was
// last loaded from.
func (m *Manager) SetCurrentProvider(d dialect.Dialect, providerID string) error {
	cur := m.value.Load()
	if cur == nil {
		return fmt.Errorf("config not loaded")
	}

	next := cur.clone()
	next.CurrentProvider[string(d)] = providerID
	m.value.Store(next)

	path := m.yamlPath
	if _, err := os.Stat(m.jsonPath); err == nil {
		if _, err := os.Stat(m.yamlPath); err != nil {
			path = m.jsonPath
		}
	}

	return m.persist(next, path)
}

// CurrentProviderID returns the provider id currently selected for a
// dialect.
func (c *Config) CurrentProviderID(d dialect.Dialect) (string, bool) {
	id, ok := c.CurrentProvider[string(d)]
	return id, ok && id != ""
}

// persist writes cfg to disk in the format implied by path's extension.
func (m *Manager) persist(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	var out []byte
	var err error

	if filepath.Ext(path) == ".json" {
		out, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		out, err = yaml.Marshal(cfg)
	}

	if err != nil {
		return err
	}

	return os.WriteFile(path, out, 0o600)
}

// AddProvider appends a provider to the catalog and persists it.
func (m *Manager) AddProvider(p Provider) error {
	cur := m.value.Load()
	if cur == nil {
		return fmt.Errorf("config not loaded")
	}

	next := cur.clone()
	next.Providers = append(next.Providers, p)
	m.value.Store(next)

	return m.persist(next, m.primaryPath())
}

// RemoveProvider deletes a provider by id and persists the result.
func (m *Manager) RemoveProvider(id string) error {
	cur := m.value.Load()
	if cur == nil {
		return fmt.Errorf("config not loaded")
	}

	next := cur.clone()
	filtered := next.Providers[:0]
	for _, p := range next.Providers {
		if p.ID != id {
			filtered = append(filtered, p)
		}
	}
	next.Providers = filtered
	m.value.Store(next)

	return m.persist(next, m.primaryPath())
}

func (m *Manager) primaryPath() string {
	if _, err := os.Stat(m.jsonPath); err == nil {
		if _, err := os.Stat(m.yamlPath); err != nil {
			return m.jsonPath
		}
	}
	return m.yamlPath
}
