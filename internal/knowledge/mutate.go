package knowledge

import (
	"context"
	"log/slog"
	"time"
)

// ProvenanceForTurn stamps provenance for updates extracted during a turn:
// file-derived knowledge is marked upload with high confidence, plain chat
// knowledge conversation with medium confidence.
func ProvenanceForTurn(fileName string, now time.Time) Provenance {
	if fileName != "" {
		return Provenance{
			Kind:  SourceUpload,
			Label: fileName,
			Date:  now.Format("2006-01-02"),
		}
	}
	return Provenance{
		Kind:  SourceConversation,
		Label: "conversación",
		Date:  now.Format("2006-01-02"),
	}
}

func (p Provenance) confidence() string {
	if p.Kind == SourceUpload {
		return TierHigh
	}
	return TierMedium
}

// ApplyStats summarizes one mutation pass.
type ApplyStats struct {
	FactsCreated    int
	MetricsCreated  int
	EntitiesCreated int
	TopicsPatched   int
	Errors          int
}

// Mutator applies extracted update sets to the knowledge base.
type Mutator struct {
	acc *Accessor
}

// NewMutator creates a mutator over the turn's accessor.
func NewMutator(acc *Accessor) *Mutator {
	return &Mutator{acc: acc}
}

// Apply writes every update as an independent record. Writes do not form a
// transaction: a failed write is logged and counted while the rest proceed.
// Topic updates resolve the existing row by (company, key) and patch it;
// keys with no row are dropped; topics are fixed at onboarding.
func (m *Mutator) Apply(ctx context.Context, companyID string, set UpdateSet, prov Provenance) ApplyStats {
	var stats ApplyStats

	for _, u := range set.Facts {
		fact := &Fact{
			CompanyID:   companyID,
			Category:    u.Category,
			Body:        u.Body,
			SourceKind:  prov.Kind,
			SourceLabel: prov.Label,
			SourceDate:  prov.Date,
			Relevance:   TierMedium,
			Confidence:  prov.confidence(),
			Current:     true,
		}
		if err := m.acc.CreateFact(ctx, fact); err != nil {
			slog.Warn("Fact write failed", "company", companyID, "error", err)
			stats.Errors++
			continue
		}
		stats.FactsCreated++
	}

	for _, u := range set.Metrics {
		metric := &Metric{
			CompanyID:   companyID,
			Name:        u.Name,
			Value:       u.Value,
			Unit:        u.Unit,
			Period:      u.Period,
			Category:    u.Category,
			SourceKind:  prov.Kind,
			SourceLabel: prov.Label,
			SourceDate:  prov.Date,
			Confidence:  prov.confidence(),
		}
		if err := m.acc.CreateMetric(ctx, metric); err != nil {
			slog.Warn("Metric write failed", "company", companyID, "metric", u.Name, "error", err)
			stats.Errors++
			continue
		}
		stats.MetricsCreated++
	}

	for _, u := range set.Entities {
		entity := &Entity{
			CompanyID:   companyID,
			Type:        u.Type,
			Name:        u.Name,
			Attributes:  u.Attributes,
			Active:      true,
			SourceKind:  prov.Kind,
			SourceLabel: prov.Label,
		}
		if err := m.acc.CreateEntity(ctx, entity); err != nil {
			slog.Warn("Entity write failed", "company", companyID, "entity", u.Name, "error", err)
			stats.Errors++
			continue
		}
		stats.EntitiesCreated++
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, u := range set.Topics {
		topic, err := m.acc.TopicByKey(ctx, companyID, u.Key)
		if err != nil {
			slog.Warn("Topic lookup failed", "company", companyID, "topic", u.Key, "error", err)
			stats.Errors++
			continue
		}
		if topic == nil {
			slog.Debug("Dropping update for unknown topic", "company", companyID, "topic", u.Key)
			continue
		}
		if err := m.acc.PatchTopic(ctx, topic.ID, u.State, u.SummaryValue, now); err != nil {
			slog.Warn("Topic patch failed", "company", companyID, "topic", u.Key, "error", err)
			stats.Errors++
			continue
		}
		stats.TopicsPatched++
	}

	return stats
}
