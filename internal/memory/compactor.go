// Package memory implements conversation compaction: folding old turns into
// the company's rolling summary so the active context stays bounded.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/provider"
)

const (
	// DefaultThreshold triggers compaction once this many messages are
	// uncompacted.
	DefaultThreshold = 20
	// DefaultKeepRecent messages always stay out of the summary.
	DefaultKeepRecent = 10

	// SummaryDelimiter joins summary segments. The rolling summary only
	// ever grows; segments are never rewritten.
	SummaryDelimiter = "\n\n---\n\n"

	summaryMaxTokens = 500
)

const summaryPrompt = `Resume esta conversación en 2-3 párrafos, capturando:
- Información clave que el usuario compartió sobre su empresa
- Decisiones o acuerdos a los que llegaron
- Temas pendientes o que quedaron abiertos

Conversación:
%s

Responde SOLO con el resumen, sin introducción.`

// Compactor summarizes old uncompacted messages into the rolling summary.
type Compactor struct {
	acc        *knowledge.Accessor
	provider   provider.LLMProvider
	threshold  int
	keepRecent int
}

// NewCompactor creates a compactor with the given limits; zero values take
// the defaults.
func NewCompactor(acc *knowledge.Accessor, prov provider.LLMProvider, threshold, keepRecent int) *Compactor {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	if keepRecent <= 0 {
		keepRecent = DefaultKeepRecent
	}
	return &Compactor{
		acc:        acc,
		provider:   prov,
		threshold:  threshold,
		keepRecent: keepRecent,
	}
}

// ShouldCompact reports whether the company's uncompacted backlog exceeds
// the threshold. Count failures read as false; the next turn re-checks.
func (c *Compactor) ShouldCompact(ctx context.Context, companyID string) bool {
	count, err := c.acc.UncompactedCount(ctx, companyID)
	if err != nil {
		slog.Warn("Uncompacted count failed", "company", companyID, "error", err)
		return false
	}
	return count > c.threshold
}

// Compact summarizes all but the newest keepRecent uncompacted messages and
// merges the result into the rolling summary. The summary patch and the
// per-message flag patches are separate store writes; a crash in between
// leaves messages to be re-summarized on a later run, which the merge
// delimiter makes visible but harmless.
func (c *Compactor) Compact(ctx context.Context, company *knowledge.Company) error {
	runID := uuid.NewString()

	messages, err := c.acc.UncompactedMessages(ctx, company.ID)
	if err != nil {
		return fmt.Errorf("fetch uncompacted: %w", err)
	}
	if len(messages) <= c.keepRecent {
		return nil
	}
	toSummarize := messages[:len(messages)-c.keepRecent]

	transcript := Transcript(toSummarize)

	resp, err := c.provider.Chat(ctx, &provider.ChatRequest{
		MaxTokens: summaryMaxTokens,
		Messages: []provider.Message{
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, transcript)},
		},
	})
	if err != nil {
		return fmt.Errorf("summary generation: %w", err)
	}

	merged := MergeSummaries(company.RollingSummary, strings.TrimSpace(resp.Content))
	if err := c.acc.PatchSummary(ctx, company.ID, merged); err != nil {
		return fmt.Errorf("patch rolling summary: %w", err)
	}

	marked := 0
	for _, msg := range toSummarize {
		if err := c.acc.MarkCompacted(ctx, msg.ID); err != nil {
			slog.Warn("Mark compacted failed", "run", runID, "message", msg.ID, "error", err)
			continue
		}
		marked++
	}

	slog.Info("Compacted messages", "run", runID, "company", company.ID,
		"summarized", len(toSummarize), "marked", marked)
	return nil
}

// Transcript renders messages as a role-labeled conversation, oldest first.
func Transcript(messages []knowledge.Message) string {
	lines := make([]string, len(messages))
	for i, m := range messages {
		role := "Usuario"
		if m.Role == "assistant" {
			role = "CEO"
		}
		lines[i] = fmt.Sprintf("%s: %s", role, m.Content)
	}
	return strings.Join(lines, "\n\n")
}

// MergeSummaries appends the new segment to the existing summary. The
// existing text is never rewritten or truncated.
func MergeSummaries(existing, next string) string {
	if existing == "" {
		return next
	}
	return existing + SummaryDelimiter + next
}
