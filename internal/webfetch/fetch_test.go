package webfetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
<title>Panadería El Sol</title>
<style>body { color: red; }</style>
<script>console.log("tracking");</script>
</head>
<body>
<h1>Panadería   El Sol</h1>
<p>Pan artesanal desde 2015.</p>
<noscript>Habilite JavaScript</noscript>
</body>
</html>`

func TestFetchTextStripsMarkup(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	text, err := New().FetchText(context.Background(), srv.URL, 8000)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if !strings.Contains(text, "Panadería El Sol") || !strings.Contains(text, "Pan artesanal desde 2015.") {
		t.Errorf("page text missing: %q", text)
	}
	for _, banned := range []string{"console.log", "color: red", "Habilite JavaScript", "<"} {
		if strings.Contains(text, banned) {
			t.Errorf("markup leaked: %q in %q", banned, text)
		}
	}
	if gotUA != "Mozilla/5.0 (compatible; CEOVirtual/1.0)" {
		t.Errorf("unexpected user agent: %q", gotUA)
	}
}

func TestFetchTextNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	if _, err := New().FetchText(context.Background(), srv.URL, 8000); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestStripTagsCapsLength(t *testing.T) {
	page := "<p>" + strings.Repeat("palabra ", 100) + "</p>"
	out := StripTags(page, 50)
	if len(out) > 50 {
		t.Errorf("expected at most 50 chars, got %d", len(out))
	}
	if out == "" {
		t.Error("expected non-empty text")
	}
}

func TestStripTagsCollapsesWhitespace(t *testing.T) {
	out := StripTags("<p>uno\n\n  dos\t tres</p>", 0)
	if out != "uno dos tres" {
		t.Errorf("expected collapsed text, got %q", out)
	}
}
