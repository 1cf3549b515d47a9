package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ceovirtual/ceovirtual/internal/store"
)

// childCollections lists every collection owned by a company, in delete
// order (the company row itself goes last).
var childCollections = []string{
	CollectionMessages,
	CollectionFacts,
	CollectionMetrics,
	CollectionEntities,
	CollectionTopics,
}

// ResetConversation deletes all messages, clears the rolling summary, and
// removes conversation-sourced facts. Accumulated metrics, entities, and the
// knowledge map survive.
func (a *Accessor) ResetConversation(ctx context.Context, companyID string) error {
	ids, err := a.listIDs(ctx, CollectionMessages, store.Filter("empresa_id='%s'", companyID))
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := a.sess.Delete(ctx, CollectionMessages, id); err != nil {
			slog.Warn("Message delete failed", "id", id, "error", err)
		}
	}

	if err := a.PatchSummary(ctx, companyID, ""); err != nil {
		return fmt.Errorf("clear rolling summary: %w", err)
	}

	factIDs, err := a.listIDs(ctx, CollectionFacts,
		store.Filter("empresa_id='%s' && fuente_tipo='%s'", companyID, SourceConversation))
	if err != nil {
		return err
	}
	for _, id := range factIDs {
		if err := a.sess.Delete(ctx, CollectionFacts, id); err != nil {
			slog.Warn("Fact delete failed", "id", id, "error", err)
		}
	}

	slog.Info("Conversation reset", "company", companyID,
		"messages", len(ids), "facts", len(factIDs))
	return nil
}

// DeleteCompany cascades: every child record first, then the company row.
func (a *Accessor) DeleteCompany(ctx context.Context, companyID string) error {
	for _, collection := range childCollections {
		ids, err := a.listIDs(ctx, collection, store.Filter("empresa_id='%s'", companyID))
		if err != nil {
			// Missing collections are tolerated so partial deployments
			// can still be cleaned up.
			if store.IsNotFound(err) {
				continue
			}
			return err
		}
		for _, id := range ids {
			if err := a.sess.Delete(ctx, collection, id); err != nil {
				slog.Warn("Cascade delete failed", "collection", collection, "id", id, "error", err)
			}
		}
	}

	if err := a.sess.Delete(ctx, CollectionCompanies, companyID); err != nil {
		return fmt.Errorf("delete company: %w", err)
	}
	slog.Info("Company deleted", "company", companyID)
	return nil
}
