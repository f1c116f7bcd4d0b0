package config

import (
	"time"

	"github.com/cc-switch/proxy/internal/dialect"
)

// Provider describes one configured upstream: who it is, what dialect
// it speaks to clients, and how to reach and authenticate against it.
type Provider struct {
	ID      string          `yaml:"id" json:"id"`
	Name    string          `yaml:"name" json:"name"`
	Dialect dialect.Dialect `yaml:"dialect" json:"dialect"`

	Settings ProviderSettings `yaml:"settings" json:"settings"`
	Meta     ProviderMeta     `yaml:"meta,omitempty" json:"meta,omitempty"`

	// SortIndex governs fallback order within a dialect. Nil sorts last
	// (treated as 9999 per the router's tie-break rule).
	SortIndex *uint32   `yaml:"sort_index,omitempty" json:"sort_index,omitempty"`
	CreatedAt time.Time `yaml:"created_at,omitempty" json:"created_at,omitempty"`
}

// ProviderSettings is the semi-structured settings blob: environment-
// style keys first, flat fallbacks second, plus custom headers. The
// desktop UI (and hand-edited configs ported from it) write the flat
// base URL/key under any of several spellings, so each carries its own
// field rather than one canonical key.
type ProviderSettings struct {
	Env           map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	BaseURL       string            `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	BaseURLCamel  string            `yaml:"baseURL,omitempty" json:"baseURL,omitempty"`
	APIEndpoint   string            `yaml:"apiEndpoint,omitempty" json:"apiEndpoint,omitempty"`
	APIKey        string            `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	APIKeyCamel   string            `yaml:"apiKey,omitempty" json:"apiKey,omitempty"`
	CustomHeaders map[string]string `yaml:"custom_headers,omitempty" json:"custom_headers,omitempty"`
}

// ResolvedBaseURL returns the flat base URL fallback, checking every
// accepted spelling in priority order: base_url, baseURL, apiEndpoint.
func (s ProviderSettings) ResolvedBaseURL() string {
	switch {
	case s.BaseURL != "":
		return s.BaseURL
	case s.BaseURLCamel != "":
		return s.BaseURLCamel
	default:
		return s.APIEndpoint
	}
}

// ResolvedAPIKey returns the flat API key fallback, checking every
// accepted spelling in priority order: apiKey, api_key.
func (s ProviderSettings) ResolvedAPIKey() string {
	if s.APIKeyCamel != "" {
		return s.APIKeyCamel
	}
	return s.APIKey
}

// ProviderMeta carries optional per-provider overrides for the format
// transformer and Codex model mapping.
type ProviderMeta struct {
	FormatTransform   *FormatTransformMeta   `yaml:"format_transform,omitempty" json:"format_transform,omitempty"`
	CodexModelMapping *CodexModelMappingMeta `yaml:"codex_model_mapping,omitempty" json:"codex_model_mapping,omitempty"`
}

// FormatTransformMeta describes the (source,target) transform this
// provider needs, if any.
type FormatTransformMeta struct {
	Enabled            bool   `yaml:"enabled" json:"enabled"`
	SourceFormat       string `yaml:"source_format" json:"source_format"`
	TargetFormat       string `yaml:"target_format" json:"target_format"`
	TransformStreaming bool   `yaml:"transform_streaming" json:"transform_streaming"`
}

// CodexModelMappingMeta describes the model/effort rewrite table for a
// Codex-dialect provider.
type CodexModelMappingMeta struct {
	Enabled   bool              `yaml:"enabled" json:"enabled"`
	ModelMap  map[string]string `yaml:"model_map,omitempty" json:"model_map,omitempty"`
	EffortMap map[string]string `yaml:"effort_map,omitempty" json:"effort_map,omitempty"`
}

// Clone returns a deep copy of p, used by Manager.Snapshot so callers
// never observe or mutate the live config.
func (p Provider) Clone() Provider {
	clone := p

	if p.Settings.Env != nil {
		clone.Settings.Env = make(map[string]string, len(p.Settings.Env))
		for k, v := range p.Settings.Env {
			clone.Settings.Env[k] = v
		}
	}

	if p.Settings.CustomHeaders != nil {
		clone.Settings.CustomHeaders = make(map[string]string, len(p.Settings.CustomHeaders))
		for k, v := range p.Settings.CustomHeaders {
			clone.Settings.CustomHeaders[k] = v
		}
	}

	if p.Meta.FormatTransform != nil {
		ft := *p.Meta.FormatTransform
		clone.Meta.FormatTransform = &ft
	}

	if p.Meta.CodexModelMapping != nil {
		cm := *p.Meta.CodexModelMapping
		if cm.ModelMap != nil {
			cm.ModelMap = make(map[string]string, len(p.Meta.CodexModelMapping.ModelMap))
			for k, v := range p.Meta.CodexModelMapping.ModelMap {
				cm.ModelMap[k] = v
			}
		}
		if cm.EffortMap != nil {
			cm.EffortMap = make(map[string]string, len(p.Meta.CodexModelMapping.EffortMap))
			for k, v := range p.Meta.CodexModelMapping.EffortMap {
				cm.EffortMap[k] = v
			}
		}
		clone.Meta.CodexModelMapping = &cm
	}

	if p.SortIndex != nil {
		idx := *p.SortIndex
		clone.SortIndex = &idx
	}

	return clone
}

// SortIndexOrDefault returns the provider's sort index, defaulting to
// 9999 when unset, per the router's fallback ordering rule.
func (p Provider) SortIndexOrDefault() uint32 {
	if p.SortIndex == nil {
		return 9999
	}
	return *p.SortIndex
}
