package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ceovirtual/ceovirtual/internal/agent"
	"github.com/ceovirtual/ceovirtual/internal/config"
	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/provider"
	"github.com/ceovirtual/ceovirtual/internal/research"
	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/store/storetest"
	"github.com/ceovirtual/ceovirtual/internal/webfetch"
)

type stubProvider struct {
	reply string
}

func (s *stubProvider) Chat(ctx context.Context, req *provider.ChatRequest) (*provider.ChatResponse, error) {
	return &provider.ChatResponse{Content: s.reply}, nil
}

func (s *stubProvider) DefaultModel() string { return "stub-model" }

func setupGateway(t *testing.T, reply string) (*storetest.Server, *runtime) {
	t.Helper()
	srv := storetest.New("admin@test.local", "secret")
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Store.URL = srv.URL()
	cfg.Store.AdminIdentity = "admin@test.local"
	cfg.Store.AdminPassword = "secret"
	cfg.ApplyDefaults()

	storeClient := store.NewClient(srv.URL())
	prov := &stubProvider{reply: reply}
	fetcher := webfetch.New()

	rt := &runtime{
		cfg:      cfg,
		store:    storeClient,
		provider: prov,
		fetcher:  fetcher,
		orchestrator: agent.NewOrchestrator(agent.Options{
			Store:               storeClient,
			AdminIdentity:       cfg.Store.AdminIdentity,
			AdminPassword:       cfg.Store.AdminPassword,
			Provider:            prov,
			Fetcher:             fetcher,
			MaxTokens:           cfg.Provider.MaxTokens,
			CompactionThreshold: cfg.Compaction.Threshold,
			KeepRecent:          cfg.Compaction.KeepRecent,
		}),
		researcher: research.New(research.Options{
			Store:         storeClient,
			AdminIdentity: cfg.Store.AdminIdentity,
			AdminPassword: cfg.Store.AdminPassword,
			Provider:      prov,
			Fetcher:       fetcher,
		}),
	}
	return srv, rt
}

func TestHandleChatReturnsReply(t *testing.T) {
	srv, rt := setupGateway(t, "Todo anotado.")
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})

	body := `{"empresa_id": "` + company["id"].(string) + `", "mensaje": "hola"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	rt.handleChat(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Reply string `json:"respuesta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "Todo anotado." {
		t.Errorf("unexpected reply: %q", resp.Reply)
	}
}

func TestHandleChatUnknownCompanyIs404(t *testing.T) {
	_, rt := setupGateway(t, "hola")

	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"empresa_id": "missing", "mensaje": "hola"}`))
	rec := httptest.NewRecorder()
	rt.handleChat(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "error") {
		t.Errorf("expected error body, got %s", rec.Body.String())
	}
}

func TestHandleChatRejectsMissingFields(t *testing.T) {
	_, rt := setupGateway(t, "hola")

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"mensaje": "hola"}`))
	rec := httptest.NewRecorder()
	rt.handleChat(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleResetClearsMessages(t *testing.T) {
	srv, rt := setupGateway(t, "hola")
	company := srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})
	companyID := company["id"].(string)
	srv.Seed(knowledge.CollectionMessages, map[string]any{"empresa_id": companyID, "role": "user", "content": "x"})

	req := httptest.NewRequest(http.MethodPost, "/api/reset",
		strings.NewReader(`{"empresa_id": "`+companyID+`"}`))
	rec := httptest.NewRecorder()
	rt.handleReset(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := len(srv.Records(knowledge.CollectionMessages)); got != 0 {
		t.Errorf("messages not cleared, %d remain", got)
	}
}

func TestHandleCompaniesLists(t *testing.T) {
	srv, rt := setupGateway(t, "hola")
	srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Acme"})
	srv.Seed(knowledge.CollectionCompanies, map[string]any{"nombre": "Otra"})

	req := httptest.NewRequest(http.MethodGet, "/api/empresas", nil)
	rec := httptest.NewRecorder()
	rt.handleCompanies(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var companies []knowledge.Company
	if err := json.Unmarshal(rec.Body.Bytes(), &companies); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(companies) != 2 {
		t.Errorf("expected 2 companies, got %d", len(companies))
	}
}
