package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/provider"
)

// Markers of the web-query side channel in a first-pass reply.
const (
	lookupBlockOpen  = "<buscar_web>"
	lookupBlockClose = "</buscar_web>"
)

// lookupApology replaces the query block when the site cannot be fetched.
const lookupApology = "Intenté consultar el sitio web de la empresa pero no pude acceder en este momento."

const lookupFollowUp = `Contenido extraído del sitio web de la empresa (%s):
---
%s
---

Respondé la consulta original del usuario usando esta información. No menciones el proceso de búsqueda.`

// webLookup runs the optional sub-turn: when the first reply requests the
// company site and a site reference is known, fetch the page and generate a
// second reply that replaces the visible one. Every failure path degrades:
// the turn always ends with a usable reply.
func (o *Orchestrator) webLookup(ctx context.Context, company *knowledge.Company, messages []provider.Message, reply string) string {
	query, ok := cutLookupBlock(reply)
	if !ok {
		return reply
	}

	if company == nil || company.SiteURL == "" {
		return stripLookupBlock(reply)
	}

	page, err := o.fetcher.FetchText(ctx, company.SiteURL, o.lookupMaxChars)
	if err != nil {
		slog.Warn("Web lookup fetch failed", "company", company.ID, "url", company.SiteURL, "error", err)
		return replaceLookupBlock(reply, lookupApology)
	}

	followUp := append(append([]provider.Message{}, messages...),
		provider.Message{Role: "assistant", Content: reply},
		provider.Message{Role: "user", Content: fmt.Sprintf(lookupFollowUp, company.SiteURL, page)},
	)
	resp, err := o.provider.Chat(ctx, &provider.ChatRequest{
		System:      "",
		Messages:    followUp,
		MaxTokens:   o.maxTokens,
		Temperature: o.temperature,
	})
	if err != nil {
		slog.Warn("Web lookup generation failed", "company", company.ID, "query", query, "error", err)
		return replaceLookupBlock(reply, lookupApology)
	}
	return resp.Content
}

// cutLookupBlock returns the query inside the lookup block, if present.
func cutLookupBlock(reply string) (string, bool) {
	start := strings.Index(reply, lookupBlockOpen)
	if start < 0 {
		return "", false
	}
	rest := reply[start+len(lookupBlockOpen):]
	end := strings.Index(rest, lookupBlockClose)
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(rest[:end]), true
}

func stripLookupBlock(reply string) string {
	return replaceLookupBlock(reply, "")
}

// replaceLookupBlock swaps the whole block (markers included) for the given
// text, trimming the result.
func replaceLookupBlock(reply, replacement string) string {
	start := strings.Index(reply, lookupBlockOpen)
	if start < 0 {
		return reply
	}
	rest := reply[start+len(lookupBlockOpen):]
	end := strings.Index(rest, lookupBlockClose)
	if end < 0 {
		return reply
	}
	out := reply[:start] + replacement + rest[end+len(lookupBlockClose):]
	return strings.TrimSpace(out)
}
