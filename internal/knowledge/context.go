package knowledge

import (
	"fmt"
	"strconv"
	"strings"
)

// maxSuggestedQuestions caps how many open questions the context surfaces.
// First three in store order; no ranking.
const maxSuggestedQuestions = 3

// Snapshot is everything the assembler needs for one turn: the company and
// its knowledge records as read from the store. Recent holds the newest
// messages most-recent-first, exactly as the store returns them.
type Snapshot struct {
	Company  *Company
	Facts    []Fact
	Metrics  []Metric
	Entities []Entity
	Topics   []Topic
	Recent   []Message
}

// ChronologicalRecent returns the recent messages re-ordered oldest first.
// The store returns them reverse-chronological; conversation history sent to
// the model must be chronological.
func (s *Snapshot) ChronologicalRecent() []Message {
	out := make([]Message, len(s.Recent))
	for i, m := range s.Recent {
		out[len(s.Recent)-1-i] = m
	}
	return out
}

// BuildContext renders the snapshot into the structured context block for
// the system prompt. Pure function: identical snapshots produce
// byte-identical output.
func BuildContext(s *Snapshot) string {
	c := s.Company
	if c == nil {
		c = &Company{}
	}

	var b strings.Builder

	fmt.Fprintf(&b, "EMPRESA: %s\n", orDefault(c.Name, "Sin nombre"))
	fmt.Fprintf(&b, "RUBRO: %s\n", orDefault(c.Industry, "Desconocido"))
	fmt.Fprintf(&b, "DESCRIPCIÓN: %s\n", orDefault(c.Description, "Sin descripción"))
	fmt.Fprintf(&b, "PRODUCTOS/SERVICIOS: %s\n", orDefault(c.Products, "Desconocido"))
	teamSize := "Desconocido"
	if c.TeamSize > 0 {
		teamSize = strconv.Itoa(c.TeamSize)
	}
	fmt.Fprintf(&b, "TAMAÑO EQUIPO: %s\n", teamSize)

	fmt.Fprintf(&b, "\nHECHOS QUE CONOZCO (%d):\n", len(s.Facts))
	if len(s.Facts) == 0 {
		b.WriteString("Ninguno aún\n")
	}
	for _, f := range s.Facts {
		if tag := renderSourceTag(f.SourceKind, f.SourceLabel, f.SourceDate); tag != "" {
			fmt.Fprintf(&b, "- (%s) [%s] %s\n", tag, f.Category, f.Body)
		} else {
			fmt.Fprintf(&b, "- [%s] %s\n", f.Category, f.Body)
		}
	}

	fmt.Fprintf(&b, "\nMÉTRICAS QUE CONOZCO (%d):\n", len(s.Metrics))
	if len(s.Metrics) == 0 {
		b.WriteString("Ninguna aún\n")
	}
	for _, m := range s.Metrics {
		line := fmt.Sprintf("%s: %s %s (%s)", m.Name, formatValue(m.Value),
			orDefault(m.Unit, ""), orDefault(m.Period, "s/periodo"))
		line = strings.ReplaceAll(line, "  ", " ")
		if tag := renderSourceTag(m.SourceKind, m.SourceLabel, m.SourceDate); tag != "" {
			fmt.Fprintf(&b, "- (%s) %s\n", tag, line)
		} else {
			fmt.Fprintf(&b, "- %s\n", line)
		}
	}

	fmt.Fprintf(&b, "\nENTIDADES QUE CONOZCO (%d):\n", len(s.Entities))
	if len(s.Entities) == 0 {
		b.WriteString("Ninguna aún\n")
	}
	for _, group := range groupEntities(s.Entities) {
		fmt.Fprintf(&b, "[%s]\n", group.Type)
		for _, name := range group.Names {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}

	var known []string
	var questions []string
	for _, t := range s.Topics {
		switch t.State {
		case TopicKnown:
			known = append(known, t.Key)
		case TopicUnknown:
			if len(questions) < maxSuggestedQuestions && t.SuggestedQuestion != "" {
				questions = append(questions, t.SuggestedQuestion)
			}
		}
	}
	fmt.Fprintf(&b, "\nLO QUE SÉ: %s\n", orDefault(strings.Join(known, ", "), "Muy poco"))
	fmt.Fprintf(&b, "LO QUE NO SÉ Y DEBERÍA PREGUNTAR: %s\n",
		orDefault(strings.Join(questions, " | "), "Nada pendiente"))

	if c.RollingSummary != "" {
		fmt.Fprintf(&b, "\nRESUMEN DE CONVERSACIONES ANTERIORES:\n%s\n", c.RollingSummary)
	}

	return strings.TrimSpace(b.String())
}

type entityGroup struct {
	Type  string
	Names []string
}

// groupEntities buckets entities by type, preserving first-seen type order
// and store order inside each bucket so output stays deterministic.
func groupEntities(entities []Entity) []entityGroup {
	var order []string
	byType := make(map[string][]string)
	for _, e := range entities {
		if _, seen := byType[e.Type]; !seen {
			order = append(order, e.Type)
		}
		byType[e.Type] = append(byType[e.Type], e.Name)
	}
	groups := make([]entityGroup, len(order))
	for i, t := range order {
		groups[i] = entityGroup{Type: t, Names: byType[t]}
	}
	return groups
}

// renderSourceTag formats the provenance triple for a context line.
// Unrecognized kinds fall back to the bare date; fully unknown provenance
// renders nothing.
func renderSourceTag(kind, label, date string) string {
	switch kind {
	case SourceConversation:
		return strings.TrimSpace("conversación " + date)
	case SourceUpload:
		return strings.TrimSpace("archivo " + strings.TrimSpace(label+" "+date))
	case SourceWeb:
		return strings.TrimSpace("web " + strings.TrimSpace(label+" "+date))
	case SourceInitialResearch:
		return strings.TrimSpace("investigación inicial " + date)
	default:
		return date
	}
}

// formatValue renders a metric value without a trailing ".0" for integers.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
