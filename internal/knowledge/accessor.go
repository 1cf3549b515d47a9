package knowledge

import (
	"context"
	"fmt"

	"github.com/ceovirtual/ceovirtual/internal/store"
)

// Page caps: regular reads stay within pageLimit records per call; bulk
// reset/delete flows may fetch up to bulkLimit ids at once.
const (
	pageLimit = 50
	bulkLimit = 500
)

// Accessor provides typed read/write operations over a store session. It
// holds the session for exactly one turn (or one maintenance run) and is
// discarded with it. It never retries; store errors propagate typed.
type Accessor struct {
	sess *store.Session
}

// NewAccessor wraps a freshly authenticated session.
func NewAccessor(sess *store.Session) *Accessor {
	return &Accessor{sess: sess}
}

// Company fetches the subject record. Unknown ids surface as
// store.NotFoundError for the caller to classify.
func (a *Accessor) Company(ctx context.Context, id string) (*Company, error) {
	var c Company
	if err := a.sess.Get(ctx, CollectionCompanies, id, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCompany inserts a company and fills in its assigned id.
func (a *Accessor) CreateCompany(ctx context.Context, c *Company) error {
	return a.sess.Create(ctx, CollectionCompanies, c, c)
}

// PatchCompany applies a partial update to a company record.
func (a *Accessor) PatchCompany(ctx context.Context, id string, patch map[string]any) error {
	return a.sess.Patch(ctx, CollectionCompanies, id, patch, nil)
}

// Companies lists all companies, newest first.
func (a *Accessor) Companies(ctx context.Context) ([]Company, error) {
	var items []Company
	_, err := a.sess.List(ctx, CollectionCompanies, store.ListOptions{
		Sort:    "-created",
		PerPage: bulkLimit,
	}, &items)
	return items, err
}

func (a *Accessor) listForCompany(ctx context.Context, collection, companyID string, out any) error {
	_, err := a.sess.List(ctx, collection, store.ListOptions{
		Filter:  store.Filter("empresa_id='%s'", companyID),
		PerPage: pageLimit,
	}, out)
	return err
}

// Facts lists up to 50 facts for a company.
func (a *Accessor) Facts(ctx context.Context, companyID string) ([]Fact, error) {
	var items []Fact
	err := a.listForCompany(ctx, CollectionFacts, companyID, &items)
	return items, err
}

// Metrics lists up to 50 metrics for a company.
func (a *Accessor) Metrics(ctx context.Context, companyID string) ([]Metric, error) {
	var items []Metric
	err := a.listForCompany(ctx, CollectionMetrics, companyID, &items)
	return items, err
}

// Entities lists up to 50 tracked entities for a company.
func (a *Accessor) Entities(ctx context.Context, companyID string) ([]Entity, error) {
	var items []Entity
	err := a.listForCompany(ctx, CollectionEntities, companyID, &items)
	return items, err
}

// Topics lists the knowledge map for a company.
func (a *Accessor) Topics(ctx context.Context, companyID string) ([]Topic, error) {
	var items []Topic
	err := a.listForCompany(ctx, CollectionTopics, companyID, &items)
	return items, err
}

// TopicByKey resolves a knowledge-map topic by its stable key. Returns
// (nil, nil) when no row exists: topics are fixed at onboarding and updates
// for unknown keys are dropped by the mutator.
func (a *Accessor) TopicByKey(ctx context.Context, companyID, key string) (*Topic, error) {
	var items []Topic
	_, err := a.sess.List(ctx, CollectionTopics, store.ListOptions{
		Filter:  store.Filter("empresa_id='%s' && tema='%s'", companyID, key),
		PerPage: 1,
	}, &items)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// RecentMessages returns the newest n messages, most recent first. Callers
// that need chronological order must re-order (see Snapshot).
func (a *Accessor) RecentMessages(ctx context.Context, companyID string, n int) ([]Message, error) {
	var items []Message
	_, err := a.sess.List(ctx, CollectionMessages, store.ListOptions{
		Filter:  store.Filter("empresa_id='%s'", companyID),
		Sort:    "-created",
		PerPage: n,
	}, &items)
	return items, err
}

// UncompactedCount returns how many messages have not yet been folded into
// the rolling summary, without fetching any rows.
func (a *Accessor) UncompactedCount(ctx context.Context, companyID string) (int, error) {
	return a.sess.List(ctx, CollectionMessages, store.ListOptions{
		Filter:  store.Filter("empresa_id='%s' && resumido=false", companyID),
		PerPage: 1,
	}, nil)
}

// UncompactedMessages returns uncompacted messages oldest first.
func (a *Accessor) UncompactedMessages(ctx context.Context, companyID string) ([]Message, error) {
	var items []Message
	_, err := a.sess.List(ctx, CollectionMessages, store.ListOptions{
		Filter:  store.Filter("empresa_id='%s' && resumido=false", companyID),
		Sort:    "created",
		PerPage: pageLimit,
	}, &items)
	return items, err
}

// CreateFact stores a new fact.
func (a *Accessor) CreateFact(ctx context.Context, f *Fact) error {
	return a.sess.Create(ctx, CollectionFacts, f, f)
}

// CreateMetric stores a new metric reading.
func (a *Accessor) CreateMetric(ctx context.Context, m *Metric) error {
	return a.sess.Create(ctx, CollectionMetrics, m, m)
}

// CreateEntity stores a new tracked entity.
func (a *Accessor) CreateEntity(ctx context.Context, e *Entity) error {
	return a.sess.Create(ctx, CollectionEntities, e, e)
}

// CreateTopic seeds one knowledge-map row. Only onboarding calls this; the
// mutator never inserts topics.
func (a *Accessor) CreateTopic(ctx context.Context, t *Topic) error {
	return a.sess.Create(ctx, CollectionTopics, t, t)
}

// CreateMessage appends a conversation message.
func (a *Accessor) CreateMessage(ctx context.Context, m *Message) error {
	return a.sess.Create(ctx, CollectionMessages, m, m)
}

// PatchTopic updates a topic's state, summary value, and learned timestamp.
func (a *Accessor) PatchTopic(ctx context.Context, id, state, summaryValue, learnedAt string) error {
	return a.sess.Patch(ctx, CollectionTopics, id, map[string]any{
		"estado":          state,
		"valor_resumen":   summaryValue,
		"fecha_aprendido": learnedAt,
	}, nil)
}

// PatchSummary replaces the company's rolling summary.
func (a *Accessor) PatchSummary(ctx context.Context, companyID, summary string) error {
	return a.sess.Patch(ctx, CollectionCompanies, companyID, map[string]any{
		"resumen_conversacion": summary,
	}, nil)
}

// MarkCompacted flips one message's compacted flag.
func (a *Accessor) MarkCompacted(ctx context.Context, messageID string) error {
	return a.sess.Patch(ctx, CollectionMessages, messageID, map[string]any{
		"resumido": true,
	}, nil)
}

// listIDs fetches up to bulkLimit record ids matching a filter, for the
// reset and cascade-delete flows.
func (a *Accessor) listIDs(ctx context.Context, collection, filter string) ([]string, error) {
	var items []struct {
		ID string `json:"id"`
	}
	_, err := a.sess.List(ctx, collection, store.ListOptions{
		Filter:  filter,
		PerPage: bulkLimit,
	}, &items)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids, nil
}
