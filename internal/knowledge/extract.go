package knowledge

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Delimiters of the structured side channel embedded in model replies.
const (
	updateBlockOpen  = "<datos_nuevos>"
	updateBlockClose = "</datos_nuevos>"
)

// UpdateSet is the typed result of extracting a structured block.
type UpdateSet struct {
	Facts    []FactUpdate
	Metrics  []MetricUpdate
	Entities []EntityUpdate
	Topics   []TopicUpdate
}

// Empty reports whether the set carries no updates.
func (u UpdateSet) Empty() bool {
	return len(u.Facts) == 0 && len(u.Metrics) == 0 &&
		len(u.Entities) == 0 && len(u.Topics) == 0
}

// FactUpdate is a normalized fact entry.
type FactUpdate struct {
	Body     string
	Category string
}

// MetricUpdate is one metric reading from the block.
type MetricUpdate struct {
	Name     string  `json:"nombre"`
	Value    float64 `json:"valor"`
	Unit     string  `json:"unidad"`
	Period   string  `json:"periodo"`
	Category string  `json:"categoria"`
}

// EntityUpdate is one tracked entity from the block.
type EntityUpdate struct {
	Type       string         `json:"tipo"`
	Name       string         `json:"nombre"`
	Attributes map[string]any `json:"datos"`
}

// TopicUpdate patches one knowledge-map topic by key.
type TopicUpdate struct {
	Key          string `json:"tema"`
	State        string `json:"estado"`
	SummaryValue string `json:"valor_resumen"`
}

// factEntry accepts both shapes producers emit for a fact: a bare string
// (legacy) or an object {"texto": ..., "categoria": ...}. Older objects used
// "hecho" instead of "texto"; both are accepted.
type factEntry struct {
	Body     string
	Category string
}

func (f *factEntry) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.Body = s
		return nil
	}
	var obj struct {
		Texto     string `json:"texto"`
		Hecho     string `json:"hecho"`
		Categoria string `json:"categoria"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	f.Body = obj.Texto
	if f.Body == "" {
		f.Body = obj.Hecho
	}
	f.Category = obj.Categoria
	return nil
}

type updatePayload struct {
	Facts    []factEntry    `json:"hechos"`
	Metrics  []MetricUpdate `json:"metricas"`
	Entities []EntityUpdate `json:"entidades"`
	Topics   []TopicUpdate  `json:"conocimiento_actualizar"`
}

// Extract locates the structured block in a model reply, parses it, and
// returns the reply with the block removed plus the typed update set.
//
// No block is the common case and returns the text unchanged with an empty
// set. A malformed block is logged, stripped from the visible text, and
// treated as empty: a user-facing reply is never blocked by a broken side
// channel.
func Extract(reply string) (string, UpdateSet) {
	start := strings.Index(reply, updateBlockOpen)
	if start < 0 {
		return reply, UpdateSet{}
	}
	rest := reply[start+len(updateBlockOpen):]
	end := strings.Index(rest, updateBlockClose)
	if end < 0 {
		// Unterminated block: drop everything from the open marker.
		slog.Warn("Unterminated update block in reply")
		return strings.TrimSpace(reply[:start]), UpdateSet{}
	}

	raw := rest[:end]
	clean := strings.TrimSpace(reply[:start] + rest[end+len(updateBlockClose):])

	var payload updatePayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		slog.Warn("Malformed update block, treating as empty", "error", err)
		return clean, UpdateSet{}
	}

	var set UpdateSet
	for _, f := range payload.Facts {
		body := strings.TrimSpace(f.Body)
		if body == "" {
			continue
		}
		category := f.Category
		if category == "" {
			category = DefaultFactCategory
		}
		set.Facts = append(set.Facts, FactUpdate{Body: body, Category: category})
	}
	for _, m := range payload.Metrics {
		if strings.TrimSpace(m.Name) == "" {
			continue
		}
		set.Metrics = append(set.Metrics, m)
	}
	for _, e := range payload.Entities {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		set.Entities = append(set.Entities, e)
	}
	for _, t := range payload.Topics {
		if strings.TrimSpace(t.Key) == "" {
			continue
		}
		set.Topics = append(set.Topics, t)
	}
	return clean, set
}
