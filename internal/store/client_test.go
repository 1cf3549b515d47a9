package store_test

import (
	"context"
	"testing"

	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/store/storetest"
)

func setupSession(t *testing.T) (*storetest.Server, *store.Session) {
	t.Helper()
	srv := storetest.New("admin@test.local", "secret")
	t.Cleanup(srv.Close)

	sess, err := store.NewClient(srv.URL()).Authenticate(context.Background(), "admin@test.local", "secret")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	return srv, sess
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	srv := storetest.New("admin@test.local", "secret")
	defer srv.Close()

	_, err := store.NewClient(srv.URL()).Authenticate(context.Background(), "admin@test.local", "wrong")
	if err == nil {
		t.Fatal("expected auth error")
	}
	if !store.IsAuth(err) {
		t.Errorf("expected AuthError, got %v", err)
	}
}

func TestGetUnknownRecordIsNotFound(t *testing.T) {
	_, sess := setupSession(t)

	var out map[string]any
	err := sess.Get(context.Background(), "empresas", "missing", &out)
	if !store.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCreateGetPatchRoundTrip(t *testing.T) {
	_, sess := setupSession(t)
	ctx := context.Background()

	type company struct {
		ID   string `json:"id,omitempty"`
		Name string `json:"nombre"`
	}

	created := company{Name: "Acme"}
	if err := sess.Create(ctx, "empresas", created, &created); err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected assigned id")
	}

	if err := sess.Patch(ctx, "empresas", created.ID, map[string]any{"nombre": "Acme SA"}, nil); err != nil {
		t.Fatalf("patch: %v", err)
	}

	var got company
	if err := sess.Get(ctx, "empresas", created.ID, &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Acme SA" {
		t.Errorf("expected patched name, got %q", got.Name)
	}
}

func TestListFiltersAndCounts(t *testing.T) {
	srv, sess := setupSession(t)
	ctx := context.Background()

	srv.Seed("hechos", map[string]any{"empresa_id": "e1", "hecho": "a"})
	srv.Seed("hechos", map[string]any{"empresa_id": "e1", "hecho": "b"})
	srv.Seed("hechos", map[string]any{"empresa_id": "e2", "hecho": "c"})

	var items []struct {
		Body string `json:"hecho"`
	}
	total, err := sess.List(ctx, "hechos", store.ListOptions{
		Filter:  store.Filter("empresa_id='%s'", "e1"),
		PerPage: 50,
	}, &items)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("expected 2 records, got total=%d len=%d", total, len(items))
	}
}

func TestFilterEscapesQuotes(t *testing.T) {
	got := store.Filter("nombre='%s'", "O'Brien")
	want := `nombre='O\'Brien'`
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
