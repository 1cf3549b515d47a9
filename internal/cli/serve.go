package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/ceovirtual/ceovirtual/internal/agent"
	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/memory"
	"github.com/ceovirtual/ceovirtual/internal/store"
)

const sweepBudget = 5 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP gateway",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	printHeader("🌐 CEOVirtual Gateway")

	rt, err := buildRuntime()
	if err != nil {
		fmt.Printf("Config error: %v\n", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", rt.handleChat)
	mux.HandleFunc("POST /api/onboard", rt.handleOnboard)
	mux.HandleFunc("POST /api/reset", rt.handleReset)
	mux.HandleFunc("POST /api/delete", rt.handleDelete)
	mux.HandleFunc("GET /api/empresas", rt.handleCompanies)

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(rt.cfg.Compaction.SweepSchedule, rt.compactionSweep); err != nil {
		fmt.Printf("Sweep schedule error: %v\n", err)
		os.Exit(1)
	}
	sweeper.Start()
	defer sweeper.Stop()

	srv := &http.Server{Addr: rt.cfg.Gateway.Addr, Handler: mux}

	go func() {
		slog.Info("Gateway listening", "addr", rt.cfg.Gateway.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Gateway stopped", "error", err)
			os.Exit(1)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type chatRequest struct {
	CompanyID string                `json:"empresa_id"`
	Message   string                `json:"mensaje"`
	File      *agent.FileDescriptor `json:"archivo,omitempty"`
}

type chatResponse struct {
	Reply string `json:"respuesta"`
}

func (rt *runtime) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" || req.Message == "" {
		writeError(w, http.StatusBadRequest, "empresa_id and mensaje are required")
		return
	}

	result, err := rt.orchestrator.Run(r.Context(), &agent.TurnRequest{
		CompanyID: req.CompanyID,
		Message:   req.Message,
		File:      req.File,
	})
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Reply: result.Reply})
}

type onboardRequest struct {
	CompanyName string `json:"nombre_empresa"`
	SiteURL     string `json:"sitio_web,omitempty"`
}

type onboardResponse struct {
	CompanyID string `json:"empresa_id"`
	Greeting  string `json:"saludo"`
}

func (rt *runtime) handleOnboard(w http.ResponseWriter, r *http.Request) {
	var req onboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "nombre_empresa is required")
		return
	}

	result, err := rt.researcher.Onboard(r.Context(), req.CompanyName, req.SiteURL)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, onboardResponse{CompanyID: result.CompanyID, Greeting: result.Greeting})
}

type companyRequest struct {
	CompanyID string `json:"empresa_id"`
}

func (rt *runtime) handleReset(w http.ResponseWriter, r *http.Request) {
	rt.handleCompanyAction(w, r, func(ctx context.Context, acc *knowledge.Accessor, companyID string) error {
		return acc.ResetConversation(ctx, companyID)
	})
}

func (rt *runtime) handleDelete(w http.ResponseWriter, r *http.Request) {
	rt.handleCompanyAction(w, r, func(ctx context.Context, acc *knowledge.Accessor, companyID string) error {
		return acc.DeleteCompany(ctx, companyID)
	})
}

func (rt *runtime) handleCompanyAction(w http.ResponseWriter, r *http.Request, action func(context.Context, *knowledge.Accessor, string) error) {
	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CompanyID == "" {
		writeError(w, http.StatusBadRequest, "empresa_id is required")
		return
	}

	identity, password := rt.adminCreds()
	sess, err := rt.store.Authenticate(r.Context(), identity, password)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	if err := action(r.Context(), knowledge.NewAccessor(sess), req.CompanyID); err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (rt *runtime) handleCompanies(w http.ResponseWriter, r *http.Request) {
	identity, password := rt.adminCreds()
	sess, err := rt.store.Authenticate(r.Context(), identity, password)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	companies, err := knowledge.NewAccessor(sess).Companies(r.Context())
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

// compactionSweep re-checks every company against the compaction threshold.
// It heals the gap left by a crash between summarizing messages and marking
// them, since ShouldCompact counts only unmarked messages.
func (rt *runtime) compactionSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepBudget)
	defer cancel()

	identity, password := rt.adminCreds()
	sess, err := rt.store.Authenticate(ctx, identity, password)
	if err != nil {
		slog.Warn("Compaction sweep session failed", "error", err)
		return
	}
	acc := knowledge.NewAccessor(sess)

	companies, err := acc.Companies(ctx)
	if err != nil {
		slog.Warn("Compaction sweep company list failed", "error", err)
		return
	}

	compactor := memory.NewCompactor(acc, rt.provider, rt.cfg.Compaction.Threshold, rt.cfg.Compaction.KeepRecent)
	for i := range companies {
		company := &companies[i]
		if !compactor.ShouldCompact(ctx, company.ID) {
			continue
		}
		if err := compactor.Compact(ctx, company); err != nil {
			slog.Warn("Sweep compaction failed", "company", company.ID, "error", err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeTurnError maps internal failures to HTTP statuses: unknown company
// is the caller's mistake, everything else is an upstream failure.
func writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agent.ErrUnknownCompany):
		writeError(w, http.StatusNotFound, err.Error())
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case store.IsAuth(err):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}
