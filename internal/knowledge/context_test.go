package knowledge

import (
	"strings"
	"testing"
)

func sampleSnapshot() *Snapshot {
	return &Snapshot{
		Company: &Company{
			ID:       "e1",
			Name:     "Panadería El Sol",
			Industry: "alimentos",
			TeamSize: 8,
		},
		Facts: []Fact{
			{Category: "ventas", Body: "vende mayorista a cafeterías", SourceKind: SourceConversation, SourceDate: "2024-02-01"},
			{Category: "otro", Body: "fundada en 2015", SourceKind: SourceUpload, SourceLabel: "historia.pdf", SourceDate: "2024-02-02"},
		},
		Metrics: []Metric{
			{Name: "ventas_mensuales", Value: 50000, Unit: "USD", Period: "2024-01", SourceKind: SourceConversation, SourceDate: "2024-02-01"},
		},
		Entities: []Entity{
			{Type: "cliente", Name: "Café Norte"},
			{Type: "proveedor", Name: "Molinos Río"},
			{Type: "cliente", Name: "Bar Central"},
		},
		Topics: []Topic{
			{Key: "rubro", State: TopicKnown},
			{Key: "facturacion_mensual", State: TopicUnknown, SuggestedQuestion: "¿Cuál es la facturación mensual aproximada?"},
			{Key: "competidores", State: TopicUnknown, SuggestedQuestion: "¿Quiénes son sus principales competidores?"},
		},
	}
}

func TestBuildContextIsDeterministic(t *testing.T) {
	first := BuildContext(sampleSnapshot())
	second := BuildContext(sampleSnapshot())
	if first != second {
		t.Fatal("identical snapshots produced different context blocks")
	}
}

func TestBuildContextRendersKnowledge(t *testing.T) {
	out := BuildContext(sampleSnapshot())

	for _, want := range []string{
		"EMPRESA: Panadería El Sol",
		"RUBRO: alimentos",
		"TAMAÑO EQUIPO: 8",
		"HECHOS QUE CONOZCO (2):",
		"- (conversación 2024-02-01) [ventas] vende mayorista a cafeterías",
		"- (archivo historia.pdf 2024-02-02) [otro] fundada en 2015",
		"ventas_mensuales: 50000 USD (2024-01)",
		"LO QUE SÉ: rubro",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("context missing %q\n---\n%s", want, out)
		}
	}
}

func TestBuildContextGroupsEntitiesByFirstSeenType(t *testing.T) {
	out := BuildContext(sampleSnapshot())

	cliente := strings.Index(out, "[cliente]")
	proveedor := strings.Index(out, "[proveedor]")
	if cliente < 0 || proveedor < 0 {
		t.Fatalf("expected entity groups in output:\n%s", out)
	}
	if cliente > proveedor {
		t.Error("expected cliente group before proveedor (first-seen order)")
	}
	section := out[cliente:proveedor]
	if !strings.Contains(section, "Café Norte") || !strings.Contains(section, "Bar Central") {
		t.Errorf("cliente group should hold both clients:\n%s", section)
	}
}

func TestBuildContextCapsSuggestedQuestions(t *testing.T) {
	snap := sampleSnapshot()
	snap.Topics = []Topic{
		{Key: "a", State: TopicUnknown, SuggestedQuestion: "¿A?"},
		{Key: "b", State: TopicUnknown, SuggestedQuestion: "¿B?"},
		{Key: "c", State: TopicUnknown, SuggestedQuestion: "¿C?"},
		{Key: "d", State: TopicUnknown, SuggestedQuestion: "¿D?"},
	}

	out := BuildContext(snap)
	if !strings.Contains(out, "¿A? | ¿B? | ¿C?") {
		t.Errorf("expected first three questions joined:\n%s", out)
	}
	if strings.Contains(out, "¿D?") {
		t.Error("fourth question should be dropped")
	}
}

func TestBuildContextEmptySnapshot(t *testing.T) {
	out := BuildContext(&Snapshot{Company: &Company{Name: "Nueva"}})

	for _, want := range []string{
		"HECHOS QUE CONOZCO (0):\nNinguno aún",
		"LO QUE SÉ: Muy poco",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("context missing %q\n---\n%s", want, out)
		}
	}
	if strings.Contains(out, "RESUMEN DE CONVERSACIONES ANTERIORES") {
		t.Error("empty summary should not render a summary section")
	}
}

func TestBuildContextIncludesRollingSummary(t *testing.T) {
	snap := sampleSnapshot()
	snap.Company.RollingSummary = "Hablamos de precios de harina."

	out := BuildContext(snap)
	if !strings.Contains(out, "RESUMEN DE CONVERSACIONES ANTERIORES:\nHablamos de precios de harina.") {
		t.Errorf("summary section missing:\n%s", out)
	}
}

func TestRenderSourceTagFallsBackToDate(t *testing.T) {
	if got := renderSourceTag("satellite", "x", "2024-03-01"); got != "2024-03-01" {
		t.Errorf("unknown kind should render the bare date, got %q", got)
	}
}

func TestChronologicalRecentReverses(t *testing.T) {
	snap := &Snapshot{Recent: []Message{
		{ID: "m3", Content: "c"},
		{ID: "m2", Content: "b"},
		{ID: "m1", Content: "a"},
	}}

	got := snap.ChronologicalRecent()
	if got[0].ID != "m1" || got[1].ID != "m2" || got[2].ID != "m3" {
		t.Errorf("expected oldest-first order, got %v %v %v", got[0].ID, got[1].ID, got[2].ID)
	}
}
