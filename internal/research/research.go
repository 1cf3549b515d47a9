// Package research implements onboarding: an initial investigation of the
// company from its public site, seeding the company record, first facts,
// and the knowledge map.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
	"github.com/ceovirtual/ceovirtual/internal/provider"
	"github.com/ceovirtual/ceovirtual/internal/store"
	"github.com/ceovirtual/ceovirtual/internal/webfetch"
)

// DefaultMaxPageChars caps the site text fed to the research prompt.
const DefaultMaxPageChars = 8000

const researchMaxTokens = 2000

// Profile is the structured result of the initial investigation.
type Profile struct {
	Name           string            `json:"nombre"`
	Industry       string            `json:"rubro"`
	Description    string            `json:"descripcion"`
	Products       string            `json:"productos_servicios"`
	Location       string            `json:"ubicacion"`
	Age            string            `json:"antiguedad"`
	Findings       []string          `json:"datos_interesantes"`
	Competitors    []string          `json:"posibles_competidores"`
	KeyQuestions   []string          `json:"preguntas_clave"`
	Greeting       string            `json:"saludo_personalizado"`
	KnowledgeLevel map[string]string `json:"nivel_conocimiento"`
}

// Result is what onboarding returns to the caller.
type Result struct {
	CompanyID string
	Greeting  string
	Profile   *Profile
}

// catalogTopic is one fixed knowledge-map entry seeded at onboarding.
type catalogTopic struct {
	key        string
	category   string
	importance string
	question   string
}

// topicCatalog is the fixed knowledge map every company starts with. Topic
// keys are stable; updates later patch these rows and never add new ones.
var topicCatalog = []catalogTopic{
	{"nombre_empresa", "general", "critico", "¿Cuál es el nombre completo de la empresa?"},
	{"rubro", "general", "critico", "¿A qué rubro se dedican?"},
	{"productos_servicios", "general", "critico", "¿Qué productos o servicios ofrecen?"},
	{"cantidad_empleados", "equipo", "operativo", "¿Cuántos empleados tienen aproximadamente?"},
	{"facturacion_mensual", "finanzas", "operativo", "¿Cuál es la facturación mensual aproximada?"},
	{"clientes_principales", "clientes", "operativo", "¿Quiénes son sus clientes principales?"},
	{"tipo_clientes", "clientes", "operativo", "¿Sus clientes son empresas, consumidores finales, gobierno?"},
	{"costos_fijos", "finanzas", "operativo", "¿Cuáles son los costos fijos mensuales aproximados?"},
	{"margen_operativo", "finanzas", "estrategico", "¿Cuál es el margen operativo aproximado?"},
	{"competidores", "mercado", "estrategico", "¿Quiénes son sus principales competidores?"},
	{"estacionalidad", "ventas", "estrategico", "¿El negocio tiene estacionalidad? ¿Hay meses mejores que otros?"},
	{"planes_crecimiento", "general", "estrategico", "¿Tienen planes de crecimiento o expansión?"},
	{"dolor_principal", "general", "critico", "¿Qué es lo que más te quita el sueño del negocio?"},
}

// Researcher performs the onboarding investigation.
type Researcher struct {
	store         *store.Client
	adminIdentity string
	adminPassword string
	provider      provider.LLMProvider
	fetcher       *webfetch.Fetcher
	maxPageChars  int
}

// Options configure a Researcher.
type Options struct {
	Store         *store.Client
	AdminIdentity string
	AdminPassword string
	Provider      provider.LLMProvider
	Fetcher       *webfetch.Fetcher
	MaxPageChars  int
}

// New creates a Researcher.
func New(opts Options) *Researcher {
	if opts.Fetcher == nil {
		opts.Fetcher = webfetch.New()
	}
	if opts.MaxPageChars == 0 {
		opts.MaxPageChars = DefaultMaxPageChars
	}
	return &Researcher{
		store:         opts.Store,
		adminIdentity: opts.AdminIdentity,
		adminPassword: opts.AdminPassword,
		provider:      opts.Provider,
		fetcher:       opts.Fetcher,
		maxPageChars:  opts.MaxPageChars,
	}
}

// Onboard investigates companyName (optionally via its site) and seeds the
// store: company record, initial facts, and the topic catalog. A failed
// site fetch degrades to a no-site investigation; store seeding failures
// after the company record exists are logged and skipped.
func (r *Researcher) Onboard(ctx context.Context, companyName, siteURL string) (*Result, error) {
	sess, err := r.store.Authenticate(ctx, r.adminIdentity, r.adminPassword)
	if err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	acc := knowledge.NewAccessor(sess)

	siteContent := ""
	if siteURL != "" {
		text, err := r.fetcher.FetchText(ctx, siteURL, r.maxPageChars)
		if err != nil {
			slog.Warn("Site fetch failed, researching without it", "url", siteURL, "error", err)
		} else {
			siteContent = text
		}
	}

	profile, err := r.investigate(ctx, companyName, siteURL, siteContent)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	company := &knowledge.Company{
		Name:           profile.Name,
		Industry:       profile.Industry,
		Description:    profile.Description,
		Products:       profile.Products,
		SiteURL:        siteURL,
		OnboardingDone: false,
		LastResearchAt: now.Format(time.RFC3339),
	}
	if company.Name == "" {
		company.Name = companyName
	}
	if err := acc.CreateCompany(ctx, company); err != nil {
		return nil, fmt.Errorf("create company: %w", err)
	}

	r.seedFacts(ctx, acc, company.ID, profile, siteURL, now)
	r.seedTopics(ctx, acc, company.ID, profile)

	return &Result{CompanyID: company.ID, Greeting: profile.Greeting, Profile: profile}, nil
}

func (r *Researcher) investigate(ctx context.Context, companyName, siteURL, siteContent string) (*Profile, error) {
	resp, err := r.provider.Chat(ctx, &provider.ChatRequest{
		Messages: []provider.Message{
			{Role: "user", Content: buildResearchPrompt(companyName, siteURL, siteContent)},
		},
		MaxTokens: researchMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("research generation: %w", err)
	}

	var profile Profile
	if err := json.Unmarshal([]byte(stripJSONFences(resp.Content)), &profile); err != nil {
		return nil, fmt.Errorf("parse research profile: %w", err)
	}
	return &profile, nil
}

func buildResearchPrompt(companyName, siteURL, siteContent string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sos un CEO que acaba de ser contratado para la empresa %q.\n", companyName)
	if siteURL != "" {
		fmt.Fprintf(&b, "Su sitio web es: %s\n", siteURL)
	} else {
		b.WriteString("No tienen sitio web público.\n")
	}
	if siteContent != "" {
		fmt.Fprintf(&b, "\nContenido extraído del sitio web:\n---\n%s\n---\n", siteContent)
	}
	fmt.Fprintf(&b, `
Tu tarea: Investigar y extraer toda la información posible sobre esta empresa.

Responde SOLO con JSON válido (sin markdown):
{
  "nombre": %q,
  "rubro": "rubro detectado o null",
  "descripcion": "descripción breve de qué hacen",
  "productos_servicios": "lista de productos/servicios detectados",
  "ubicacion": "ubicación si la encontrás",
  "antiguedad": "desde cuándo operan si lo encontrás",
  "datos_interesantes": ["dato 1", "dato 2"],
  "posibles_competidores": ["competidor 1", "competidor 2"],
  "preguntas_clave": ["pregunta que necesitás hacer", "otra pregunta"],
  "saludo_personalizado": "Un saludo de 2-3 oraciones presentándote como CEO, mencionando algo específico que encontraste sobre la empresa que demuestre que investigaste. Sé cálido pero profesional.",
  "nivel_conocimiento": {
    "rubro": "conocido|parcial|desconocido",
    "productos": "conocido|parcial|desconocido",
    "clientes": "conocido|parcial|desconocido",
    "tamano": "conocido|parcial|desconocido",
    "finanzas": "desconocido"
  }
}`, companyName)
	return b.String()
}

// stripJSONFences removes markdown code fences the model sometimes wraps
// around the JSON body.
func stripJSONFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// seedFacts stores each investigation finding as a fact. Findings scraped
// from the site carry web provenance; the rest are initial research.
func (r *Researcher) seedFacts(ctx context.Context, acc *knowledge.Accessor, companyID string, profile *Profile, siteURL string, now time.Time) {
	kind := knowledge.SourceInitialResearch
	label := "investigación inicial"
	if siteURL != "" {
		kind = knowledge.SourceWeb
		label = siteURL
	}
	for _, finding := range profile.Findings {
		if finding == "" {
			continue
		}
		fact := &knowledge.Fact{
			CompanyID:   companyID,
			Category:    knowledge.DefaultFactCategory,
			Body:        finding,
			SourceKind:  kind,
			SourceLabel: label,
			SourceDate:  now.Format("2006-01-02"),
			Relevance:   knowledge.TierMedium,
			Confidence:  knowledge.TierMedium,
			Current:     true,
		}
		if err := acc.CreateFact(ctx, fact); err != nil {
			slog.Warn("Initial fact seed failed", "company", companyID, "error", err)
		}
	}
}

// seedTopics creates the fixed knowledge map. The investigated knowledge
// level keys onto the first underscore segment of each topic key.
func (r *Researcher) seedTopics(ctx context.Context, acc *knowledge.Accessor, companyID string, profile *Profile) {
	for _, t := range topicCatalog {
		state := knowledge.TopicUnknown
		segment, _, _ := strings.Cut(t.key, "_")
		switch profile.KnowledgeLevel[segment] {
		case knowledge.TopicKnown:
			state = knowledge.TopicKnown
		case knowledge.TopicPartial:
			state = knowledge.TopicPartial
		}
		topic := &knowledge.Topic{
			CompanyID:         companyID,
			Key:               t.key,
			Category:          t.category,
			Importance:        t.importance,
			State:             state,
			SuggestedQuestion: t.question,
		}
		if err := acc.CreateTopic(ctx, topic); err != nil {
			slog.Warn("Topic seed failed", "company", companyID, "topic", t.key, "error", err)
		}
	}
}
