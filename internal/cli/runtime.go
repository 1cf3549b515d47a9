package cli

import (
	"fmt"

	"github.com/ceovirtual/ceovirtual/internal/agent"
	"github.com/ceovirtual/ceovirtual/internal/config"
	"github.com/ceovirtual/ceovirtual/internal/provider"
	"github.com/ceovirtual/ceovirtual/internal/research"
	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/webfetch"
)

// runtime bundles the long-lived pieces every command builds from config.
// Store sessions are still acquired per turn; only the clients live here.
type runtime struct {
	cfg          *config.Config
	store        *store.Client
	provider     provider.LLMProvider
	fetcher      *webfetch.Fetcher
	orchestrator *agent.Orchestrator
	researcher   *research.Researcher
}

func buildRuntime() (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	storeClient := store.NewClient(cfg.Store.URL)
	prov := provider.NewAnthropicProvider(cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Provider.Model)
	fetcher := webfetch.New()

	orch := agent.NewOrchestrator(agent.Options{
		Store:               storeClient,
		AdminIdentity:       cfg.Store.AdminIdentity,
		AdminPassword:       cfg.Store.AdminPassword,
		Provider:            prov,
		Fetcher:             fetcher,
		MaxTokens:           cfg.Provider.MaxTokens,
		Temperature:         cfg.Provider.Temperature,
		LookupMaxChars:      cfg.Lookup.MaxPageChars,
		CompactionThreshold: cfg.Compaction.Threshold,
		KeepRecent:          cfg.Compaction.KeepRecent,
	})

	researcher := research.New(research.Options{
		Store:         storeClient,
		AdminIdentity: cfg.Store.AdminIdentity,
		AdminPassword: cfg.Store.AdminPassword,
		Provider:      prov,
		Fetcher:       fetcher,
		MaxPageChars:  cfg.Research.MaxPageChars,
	})

	return &runtime{
		cfg:          cfg,
		store:        storeClient,
		provider:     prov,
		fetcher:      fetcher,
		orchestrator: orch,
		researcher:   researcher,
	}, nil
}

func (rt *runtime) adminCreds() (identity, password string) {
	return rt.cfg.Store.AdminIdentity, rt.cfg.Store.AdminPassword
}
