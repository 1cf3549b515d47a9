// Package config provides configuration types and loading for ceovirtual.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration struct.
type Config struct {
	Store      StoreConfig      `json:"store"`
	Provider   ProviderConfig   `json:"provider"`
	Gateway    GatewayConfig    `json:"gateway"`
	Compaction CompactionConfig `json:"compaction"`
	Research   ResearchConfig   `json:"research"`
	Lookup     LookupConfig     `json:"lookup"`
}

// StoreConfig contains the record store endpoint and admin credentials.
// The admin credential exchange happens at the start of every turn; no
// token is cached across turns.
type StoreConfig struct {
	URL           string `json:"url" envconfig:"STORE_URL"`
	AdminIdentity string `json:"adminIdentity" envconfig:"STORE_ADMIN_IDENTITY"`
	AdminPassword string `json:"adminPassword" envconfig:"STORE_ADMIN_PASSWORD"`
}

// ProviderConfig contains settings for the generative service.
type ProviderConfig struct {
	APIKey      string  `json:"apiKey" envconfig:"ANTHROPIC_API_KEY"`
	APIBase     string  `json:"apiBase,omitempty" envconfig:"ANTHROPIC_API_BASE"`
	Model       string  `json:"model" envconfig:"MODEL"`
	MaxTokens   int     `json:"maxTokens" envconfig:"MAX_TOKENS"`
	Temperature float64 `json:"temperature" envconfig:"TEMPERATURE"`
}

// GatewayConfig configures the HTTP turn API.
type GatewayConfig struct {
	Addr string `json:"addr" envconfig:"GATEWAY_ADDR"`
}

// CompactionConfig tunes the conversation compaction engine.
type CompactionConfig struct {
	Threshold     int    `json:"threshold" envconfig:"COMPACTION_THRESHOLD"`
	KeepRecent    int    `json:"keepRecent" envconfig:"COMPACTION_KEEP_RECENT"`
	SweepSchedule string `json:"sweepSchedule" envconfig:"COMPACTION_SWEEP_SCHEDULE"`
}

// ResearchConfig tunes the initial-research page scrape.
type ResearchConfig struct {
	MaxPageChars int `json:"maxPageChars" envconfig:"RESEARCH_MAX_PAGE_CHARS"`
}

// LookupConfig tunes the mid-turn web lookup.
type LookupConfig struct {
	MaxPageChars int `json:"maxPageChars" envconfig:"LOOKUP_MAX_PAGE_CHARS"`
}

// ApplyDefaults fills zero values with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider.Model == "" {
		c.Provider.Model = "claude-sonnet-4-20250514"
	}
	if c.Provider.MaxTokens == 0 {
		c.Provider.MaxTokens = 1500
	}
	if c.Gateway.Addr == "" {
		c.Gateway.Addr = ":8090"
	}
	if c.Compaction.Threshold == 0 {
		c.Compaction.Threshold = 20
	}
	if c.Compaction.KeepRecent == 0 {
		c.Compaction.KeepRecent = 10
	}
	if c.Compaction.SweepSchedule == "" {
		c.Compaction.SweepSchedule = "@every 10m"
	}
	if c.Research.MaxPageChars == 0 {
		c.Research.MaxPageChars = 8000
	}
	if c.Lookup.MaxPageChars == 0 {
		c.Lookup.MaxPageChars = 10000
	}
}

// Validate checks that the settings required for a turn are present.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Store.URL) == "" {
		missing = append(missing, "store.url")
	}
	if strings.TrimSpace(c.Store.AdminIdentity) == "" {
		missing = append(missing, "store.adminIdentity")
	}
	if strings.TrimSpace(c.Store.AdminPassword) == "" {
		missing = append(missing, "store.adminPassword")
	}
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		missing = append(missing, "provider.apiKey")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}
