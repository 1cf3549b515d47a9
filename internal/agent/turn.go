// Package agent orchestrates one conversation turn: context assembly,
// generation, update extraction and application, persistence, and the
// compaction trigger.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/memory"
	"github.com/ceovirtual/ceovirtual/internal/provider"
	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/webfetch"
)

// recentWindow is how many recent messages feed the model's history.
const recentWindow = 10

// compactionBudget bounds a detached compaction run.
const compactionBudget = 2 * time.Minute

// ErrUnknownCompany marks a turn request for a company id that does not
// exist. This is the one NotFound that surfaces as a client error.
var ErrUnknownCompany = errors.New("unknown company")

// Options configure an Orchestrator.
type Options struct {
	Store         *store.Client
	AdminIdentity string
	AdminPassword string
	Provider      provider.LLMProvider
	Fetcher       *webfetch.Fetcher

	MaxTokens      int
	Temperature    float64
	LookupMaxChars int

	CompactionThreshold int
	KeepRecent          int
}

// Orchestrator runs turns. It holds no per-company state: every turn
// authenticates a fresh store session and reconstructs context from the
// store, so instances are interchangeable.
type Orchestrator struct {
	store         *store.Client
	adminIdentity string
	adminPassword string
	provider      provider.LLMProvider
	fetcher       *webfetch.Fetcher

	maxTokens      int
	temperature    float64
	lookupMaxChars int

	compactionThreshold int
	keepRecent          int
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 1500
	}
	if opts.LookupMaxChars == 0 {
		opts.LookupMaxChars = 10000
	}
	if opts.Fetcher == nil {
		opts.Fetcher = webfetch.New()
	}
	return &Orchestrator{
		store:               opts.Store,
		adminIdentity:       opts.AdminIdentity,
		adminPassword:       opts.AdminPassword,
		provider:            opts.Provider,
		fetcher:             opts.Fetcher,
		maxTokens:           opts.MaxTokens,
		temperature:         opts.Temperature,
		lookupMaxChars:      opts.LookupMaxChars,
		compactionThreshold: opts.CompactionThreshold,
		keepRecent:          opts.KeepRecent,
	}
}

// FileDescriptor describes a file attached to a turn. Tabular files carry a
// parsed sample; images and PDFs carry base64 data for a mixed content
// block.
type FileDescriptor struct {
	Name      string           `json:"fileName"`
	Kind      string           `json:"type"`
	Headers   []string         `json:"headers,omitempty"`
	TotalRows int              `json:"totalRows,omitempty"`
	Rows      []map[string]any `json:"rows,omitempty"`
	Data      string           `json:"data,omitempty"`
	MediaType string           `json:"mediaType,omitempty"`
}

// TurnRequest is one user-message-in.
type TurnRequest struct {
	CompanyID string
	Message   string
	File      *FileDescriptor
}

// TurnResult is the assistant-reply-out plus bookkeeping.
type TurnResult struct {
	Reply             string
	TraceID           string
	Stats             knowledge.ApplyStats
	CompactionStarted bool
}

// Run executes one turn. Failures before a reply exists (auth, company
// lookup, primary generation) abort the turn; everything after degrades
// with a log line so the caller always gets the reply.
func (o *Orchestrator) Run(ctx context.Context, req *TurnRequest) (*TurnResult, error) {
	traceID := uuid.NewString()

	sess, err := o.store.Authenticate(ctx, o.adminIdentity, o.adminPassword)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	acc := knowledge.NewAccessor(sess)

	snap, err := o.loadSnapshot(ctx, acc, req.CompanyID)
	if err != nil {
		return nil, err
	}

	userContent := renderUserContent(req.Message, req.File)
	messages := buildMessages(snap, userContent, req.File)

	resp, err := o.provider.Chat(ctx, &provider.ChatRequest{
		System:      buildSystemPrompt(snap),
		Messages:    messages,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generation: %w", err)
	}

	reply := o.webLookup(ctx, snap.Company, messages, resp.Content)

	clean, updates := knowledge.Extract(reply)

	result := &TurnResult{Reply: clean, TraceID: traceID}
	if !updates.Empty() {
		fileName := ""
		if req.File != nil {
			fileName = req.File.Name
		}
		prov := knowledge.ProvenanceForTurn(fileName, time.Now())
		result.Stats = knowledge.NewMutator(acc).Apply(ctx, req.CompanyID, updates, prov)
	}

	o.persistTurn(ctx, acc, req, userContent, clean)

	if compactor := memory.NewCompactor(acc, o.provider, o.compactionThreshold, o.keepRecent); compactor.ShouldCompact(ctx, req.CompanyID) {
		o.startCompaction(ctx, req.CompanyID, traceID)
		result.CompactionStarted = true
	}

	slog.Info("Turn complete", "trace", traceID, "company", req.CompanyID,
		"facts", result.Stats.FactsCreated, "metrics", result.Stats.MetricsCreated,
		"entities", result.Stats.EntitiesCreated, "topics", result.Stats.TopicsPatched)
	return result, nil
}

// loadSnapshot reads the turn context. The company read is authoritative:
// a missing company is a client error. The five sibling reads run
// concurrently and individually degrade to empty on failure.
func (o *Orchestrator) loadSnapshot(ctx context.Context, acc *knowledge.Accessor, companyID string) (*knowledge.Snapshot, error) {
	company, err := acc.Company(ctx, companyID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownCompany, companyID)
		}
		return nil, fmt.Errorf("load company: %w", err)
	}

	snap := &knowledge.Snapshot{Company: company}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if items, err := acc.Facts(gctx, companyID); err != nil {
			slog.Warn("Facts load failed", "company", companyID, "error", err)
		} else {
			snap.Facts = items
		}
		return nil
	})
	g.Go(func() error {
		if items, err := acc.Metrics(gctx, companyID); err != nil {
			slog.Warn("Metrics load failed", "company", companyID, "error", err)
		} else {
			snap.Metrics = items
		}
		return nil
	})
	g.Go(func() error {
		if items, err := acc.Entities(gctx, companyID); err != nil {
			slog.Warn("Entities load failed", "company", companyID, "error", err)
		} else {
			snap.Entities = items
		}
		return nil
	})
	g.Go(func() error {
		if items, err := acc.Topics(gctx, companyID); err != nil {
			slog.Warn("Topics load failed", "company", companyID, "error", err)
		} else {
			snap.Topics = items
		}
		return nil
	})
	g.Go(func() error {
		if items, err := acc.RecentMessages(gctx, companyID, recentWindow); err != nil {
			slog.Warn("Recent messages load failed", "company", companyID, "error", err)
		} else {
			snap.Recent = items
		}
		return nil
	})
	g.Wait()

	return snap, nil
}

// buildMessages assembles the chronological history plus the current user
// message, attaching image/document data when present.
func buildMessages(snap *knowledge.Snapshot, userContent string, file *FileDescriptor) []provider.Message {
	history := snap.ChronologicalRecent()
	messages := make([]provider.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, provider.Message{Role: m.Role, Content: m.Content})
	}

	current := provider.Message{Role: "user", Content: userContent}
	if file != nil && file.Data != "" && (file.Kind == "image" || file.Kind == "pdf") {
		kind := "image"
		if file.Kind == "pdf" {
			kind = "document"
		}
		current.Attachments = []provider.Attachment{{
			Kind:      kind,
			MediaType: file.MediaType,
			Data:      file.Data,
		}}
	}
	return append(messages, current)
}

// persistTurn appends the turn's two messages. The reply already exists, so
// write failures degrade to a log line.
func (o *Orchestrator) persistTurn(ctx context.Context, acc *knowledge.Accessor, req *TurnRequest, userContent, reply string) {
	userMsg := &knowledge.Message{
		CompanyID: req.CompanyID,
		Role:      "user",
		Content:   userContent,
		Compacted: false,
	}
	if req.File != nil {
		userMsg.FileName = req.File.Name
		userMsg.FileKind = req.File.Kind
	}
	if err := acc.CreateMessage(ctx, userMsg); err != nil {
		slog.Warn("User message persist failed", "company", req.CompanyID, "error", err)
	}

	assistantMsg := &knowledge.Message{
		CompanyID: req.CompanyID,
		Role:      "assistant",
		Content:   reply,
		Compacted: false,
	}
	if err := acc.CreateMessage(ctx, assistantMsg); err != nil {
		slog.Warn("Assistant message persist failed", "company", req.CompanyID, "error", err)
	}
}

// startCompaction runs compaction detached from the turn: its own store
// session, its own deadline, and no way to fail the reply that was already
// produced.
func (o *Orchestrator) startCompaction(ctx context.Context, companyID, traceID string) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), compactionBudget)
	go func() {
		defer cancel()
		sess, err := o.store.Authenticate(bg, o.adminIdentity, o.adminPassword)
		if err != nil {
			slog.Warn("Compaction session failed", "trace", traceID, "company", companyID, "error", err)
			return
		}
		acc := knowledge.NewAccessor(sess)
		company, err := acc.Company(bg, companyID)
		if err != nil {
			slog.Warn("Compaction company load failed", "trace", traceID, "company", companyID, "error", err)
			return
		}
		compactor := memory.NewCompactor(acc, o.provider, o.compactionThreshold, o.keepRecent)
		if err := compactor.Compact(bg, company); err != nil {
			slog.Warn("Compaction failed", "trace", traceID, "company", companyID, "error", err)
		}
	}()
}
