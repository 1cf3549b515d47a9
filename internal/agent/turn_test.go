package agent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/provider"
	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/store/storetest"
	"github.com/ceovirtual/ceovirtual/internal/webfetch"
)

type scriptProvider struct {
	replies []string
	calls   []*provider.ChatRequest
	err     error
}

func (s *scriptProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	s.calls = append(s.calls, req)
	if s.err != nil {
		return nil, s.err
	}
	i := len(s.calls) - 1
	if i >= len(s.replies) {
		i = len(s.replies) - 1
	}
	return &provider.ChatResponse{Content: s.replies[i]}, nil
}

func (s *scriptProvider) DefaultModel() string { return "stub-model" }

func setupTurn(t *testing.T, prov provider.LLMProvider) (*storetest.Server, *Orchestrator) {
	t.Helper()
	srv := storetest.New("admin@test.local", "secret")
	t.Cleanup(srv.Close)

	orch := NewOrchestrator(Options{
		Store:               store.NewClient(srv.URL()),
		AdminIdentity:       "admin@test.local",
		AdminPassword:       "secret",
		Provider:            prov,
		Fetcher:             webfetch.New(),
		MaxTokens:           1500,
		CompactionThreshold: 20,
		KeepRecent:          10,
	})
	return srv, orch
}

func TestRunAppliesExtractedUpdates(t *testing.T) {
	prov := &scriptProvider{replies: []string{`¡Anotado! Enero cerró en $50,000.

<datos_nuevos>
{"metricas": [{"nombre": "ventas", "valor": 50000, "unidad": "USD", "periodo": "2024-01"}]}
</datos_nuevos>`}}

	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})
	companyID := company["id"].(string)

	result, err := orch.Run(context.Background(), &TurnRequest{
		CompanyID: companyID,
		Message:   "Las ventas de enero fueron 50000 dólares",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if strings.Contains(result.Reply, "datos_nuevos") {
		t.Errorf("block leaked into reply: %q", result.Reply)
	}
	if result.Reply != "¡Anotado! Enero cerró en $50,000." {
		t.Errorf("unexpected reply: %q", result.Reply)
	}
	if result.Stats.MetricsCreated != 1 {
		t.Errorf("expected one metric created: %+v", result.Stats)
	}

	metrics := srv.Records(knowledge.CollectionMetrics)
	if len(metrics) != 1 || metrics[0]["nombre"] != "ventas" || metrics[0]["valor"] != float64(50000) {
		t.Errorf("unexpected metric records: %+v", metrics)
	}
	if metrics[0]["fuente_tipo"] != knowledge.SourceConversation {
		t.Errorf("conversation provenance not stamped: %+v", metrics[0])
	}

	messages := srv.Records(knowledge.CollectionMessages)
	if len(messages) != 2 {
		t.Fatalf("expected user and assistant messages persisted, got %d", len(messages))
	}
	if messages[0]["role"] != "user" || messages[1]["role"] != "assistant" {
		t.Errorf("unexpected roles: %v / %v", messages[0]["role"], messages[1]["role"])
	}
	if messages[1]["content"] != result.Reply {
		t.Errorf("assistant message must store the stripped reply: %v", messages[1]["content"])
	}
}

func TestRunUnknownCompany(t *testing.T) {
	_, orch := setupTurn(t, &scriptProvider{replies: []string{"hola"}})

	_, err := orch.Run(context.Background(), &TurnRequest{CompanyID: "missing", Message: "hola"})
	if !errors.Is(err, ErrUnknownCompany) {
		t.Fatalf("expected ErrUnknownCompany, got %v", err)
	}
}

func TestRunDegradesWhenSiblingReadsFail(t *testing.T) {
	prov := &scriptProvider{replies: []string{"Todo bien."}}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})
	srv.FailCollections[knowledge.CollectionFacts] = true
	srv.FailCollections[knowledge.CollectionMetrics] = true

	result, err := orch.Run(context.Background(), &TurnRequest{
		CompanyID: company["id"].(string),
		Message:   "hola",
	})
	if err != nil {
		t.Fatalf("failed sibling reads must not abort the turn: %v", err)
	}
	if result.Reply != "Todo bien." {
		t.Errorf("unexpected reply: %q", result.Reply)
	}
}

func TestRunSendsChronologicalHistory(t *testing.T) {
	prov := &scriptProvider{replies: []string{"Sigo acá."}}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})
	companyID := company["id"].(string)
	srv.Seed(knowledge.CollectionMessages, map[string]any{"empresa_id": companyID, "role": "user", "content": "primero"})
	srv.Seed(knowledge.CollectionMessages, map[string]any{"empresa_id": companyID, "role": "assistant", "content": "segundo"})

	if _, err := orch.Run(context.Background(), &TurnRequest{CompanyID: companyID, Message: "tercero"}); err != nil {
		t.Fatalf("run: %v", err)
	}

	msgs := prov.calls[0].Messages
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "primero" || msgs[1].Content != "segundo" || msgs[2].Content != "tercero" {
		t.Errorf("history out of order: %q %q %q", msgs[0].Content, msgs[1].Content, msgs[2].Content)
	}
}

func TestRunWebLookupFetchFailureSubstitutesApology(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	prov := &scriptProvider{replies: []string{"Dejame revisar el sitio. <buscar_web>precios actuales</buscar_web>"}}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{
		"nombre":    "Acme",
		"sitio_web": deadURL,
	})

	result, err := orch.Run(context.Background(), &TurnRequest{
		CompanyID: company["id"].(string),
		Message:   "¿Qué precios publicamos?",
	})
	if err != nil {
		t.Fatalf("lookup failure must not fail the turn: %v", err)
	}

	if !strings.Contains(result.Reply, "Intenté consultar el sitio web de la empresa pero no pude acceder en este momento.") {
		t.Errorf("expected apology in reply: %q", result.Reply)
	}
	if strings.Contains(result.Reply, "buscar_web") {
		t.Errorf("lookup block leaked: %q", result.Reply)
	}
	if len(prov.calls) != 1 {
		t.Errorf("no second generation expected after a failed fetch, got %d calls", len(prov.calls))
	}
}

func TestRunWebLookupSecondGenerationReplacesReply(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>Pan artesanal $5 el kilo</p></body></html>"))
	}))
	defer site.Close()

	prov := &scriptProvider{replies: []string{
		"Dejame revisar el sitio. <buscar_web>precios</buscar_web>",
		"Según el sitio, el pan artesanal cuesta $5 el kilo.",
	}}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{
		"nombre":    "Acme",
		"sitio_web": site.URL,
	})

	result, err := orch.Run(context.Background(), &TurnRequest{
		CompanyID: company["id"].(string),
		Message:   "¿Qué precios publicamos?",
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.Reply != "Según el sitio, el pan artesanal cuesta $5 el kilo." {
		t.Errorf("second generation should replace the reply: %q", result.Reply)
	}
	if len(prov.calls) != 2 {
		t.Fatalf("expected a second generation, got %d calls", len(prov.calls))
	}
	followUp := prov.calls[1].Messages
	if !strings.Contains(followUp[len(followUp)-1].Content, "Pan artesanal $5 el kilo") {
		t.Error("fetched page content missing from the follow-up prompt")
	}
}

func TestRunGenerationFailureAborts(t *testing.T) {
	prov := &scriptProvider{err: errors.New("upstream down")}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})

	_, err := orch.Run(context.Background(), &TurnRequest{CompanyID: company["id"].(string), Message: "hola"})
	if err == nil {
		t.Fatal("expected error when primary generation fails")
	}
	if got := len(srv.Records(knowledge.CollectionMessages)); got != 0 {
		t.Errorf("no messages should persist without a reply, got %d", got)
	}
}

func TestRenderUserContentTabularSample(t *testing.T) {
	file := &FileDescriptor{
		Name:      "ventas.csv",
		Kind:      "tabular",
		Headers:   []string{"mes", "total"},
		TotalRows: 12,
		Rows: []map[string]any{
			{"mes": "enero", "total": 50000},
		},
	}

	out := renderUserContent("", file)
	for _, want := range []string{"ventas.csv", "mes, total", "Total registros: 12", "enero", "Analiza este archivo"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered content missing %q:\n%s", want, out)
		}
	}
}

func TestRunAttachesImageData(t *testing.T) {
	prov := &scriptProvider{replies: []string{"Veo el gráfico."}}
	srv, orch := setupTurn(t, prov)
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})

	_, err := orch.Run(context.Background(), &TurnRequest{
		CompanyID: company["id"].(string),
		Message:   "¿Qué ves?",
		File: &FileDescriptor{
			Name:      "grafico.png",
			Kind:      "image",
			MediaType: "image/png",
			Data:      "aGVsbG8=",
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	last := prov.calls[0].Messages[len(prov.calls[0].Messages)-1]
	if len(last.Attachments) != 1 || last.Attachments[0].Kind != "image" || last.Attachments[0].Data != "aGVsbG8=" {
		t.Errorf("image attachment missing: %+v", last.Attachments)
	}

	userMsg := srv.Records(knowledge.CollectionMessages)[0]
	if userMsg["archivo_nombre"] != "grafico.png" || userMsg["archivo_tipo"] != "image" {
		t.Errorf("file metadata not persisted: %+v", userMsg)
	}
}
