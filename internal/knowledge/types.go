// Package knowledge defines the typed records of the company knowledge base
// and the operations that read and mutate it: the store accessor, the
// context assembler, the update extractor, and the knowledge mutator.
//
// Collection and field names match the original store deployment (Spanish);
// the Go surface is English.
package knowledge

// Store collections.
const (
	CollectionCompanies = "empresas"
	CollectionFacts     = "hechos"
	CollectionMetrics   = "metricas"
	CollectionEntities  = "entidades"
	CollectionTopics    = "conocimiento_mapa"
	CollectionMessages  = "mensajes"
)

// Source kinds recorded in provenance.
const (
	SourceConversation    = "conversation"
	SourceUpload          = "upload"
	SourceWeb             = "web"
	SourceInitialResearch = "initial-research"
)

// Confidence and relevance tiers.
const (
	TierHigh   = "alta"
	TierMedium = "media"
	TierLow    = "baja"
)

// Knowledge-map topic states.
const (
	TopicUnknown = "desconocido"
	TopicPartial = "parcial"
	TopicKnown   = "conocido"
)

// DefaultFactCategory is used when an update does not carry a category.
const DefaultFactCategory = "otro"

// Provenance records where a piece of knowledge came from.
type Provenance struct {
	Kind  string // SourceConversation, SourceUpload, SourceWeb, SourceInitialResearch
	Label string // file name, URL, or free-form origin
	Date  string // YYYY-MM-DD
}

// Company is the subject whose knowledge is accumulated. One company owns
// all other records via empresa_id.
type Company struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"nombre"`
	Industry       string `json:"rubro,omitempty"`
	Description    string `json:"descripcion,omitempty"`
	Products       string `json:"productos_servicios,omitempty"`
	TeamSize       int    `json:"tamano_equipo,omitempty"`
	SiteURL        string `json:"sitio_web,omitempty"`
	RollingSummary string `json:"resumen_conversacion,omitempty"`
	OnboardingDone bool   `json:"onboarding_completo,omitempty"`
	LastResearchAt string `json:"ultima_investigacion,omitempty"`
	Created        string `json:"created,omitempty"`
}

// Fact is a qualitative piece of knowledge. Facts are append-only; only the
// Current flag is flipped during resets.
type Fact struct {
	ID          string `json:"id,omitempty"`
	CompanyID   string `json:"empresa_id"`
	Category    string `json:"categoria,omitempty"`
	Body        string `json:"hecho"`
	SourceKind  string `json:"fuente_tipo,omitempty"`
	SourceLabel string `json:"fuente,omitempty"`
	SourceDate  string `json:"fecha_dato,omitempty"`
	Relevance   string `json:"relevancia,omitempty"`
	Confidence  string `json:"confianza,omitempty"`
	Current     bool   `json:"vigente"`
	Created     string `json:"created,omitempty"`
}

// Metric is a numeric reading. Immutable once written; new readings append.
type Metric struct {
	ID          string  `json:"id,omitempty"`
	CompanyID   string  `json:"empresa_id"`
	Name        string  `json:"nombre"`
	Value       float64 `json:"valor"`
	Unit        string  `json:"unidad,omitempty"`
	Period      string  `json:"periodo,omitempty"`
	Category    string  `json:"categoria,omitempty"`
	SourceKind  string  `json:"fuente_tipo,omitempty"`
	SourceLabel string  `json:"fuente,omitempty"`
	SourceDate  string  `json:"fecha_dato,omitempty"`
	Confidence  string  `json:"confianza,omitempty"`
	Created     string  `json:"created,omitempty"`
}

// Entity is a tracked customer, supplier, employee, product, etc.
// Append-only with soft deactivation via Active.
type Entity struct {
	ID          string         `json:"id,omitempty"`
	CompanyID   string         `json:"empresa_id"`
	Type        string         `json:"tipo"`
	Name        string         `json:"nombre"`
	Attributes  map[string]any `json:"datos,omitempty"`
	Notes       string         `json:"notas,omitempty"`
	Active      bool           `json:"activo"`
	SourceKind  string         `json:"fuente_tipo,omitempty"`
	SourceLabel string         `json:"fuente,omitempty"`
	Created     string         `json:"created,omitempty"`
}

// Topic is one entry of the knowledge map: a question-area with a
// known/partial/unknown state. Exactly one row exists per (company, Key);
// updates always patch, never insert.
type Topic struct {
	ID                string `json:"id,omitempty"`
	CompanyID         string `json:"empresa_id"`
	Key               string `json:"tema"`
	Category          string `json:"categoria,omitempty"`
	Importance        string `json:"nivel,omitempty"`
	State             string `json:"estado"`
	SuggestedQuestion string `json:"pregunta_sugerida,omitempty"`
	SummaryValue      string `json:"valor_resumen,omitempty"`
	LearnedAt         string `json:"fecha_aprendido,omitempty"`
}

// Message is one conversation turn half. Append-only; the only mutation is
// flipping Compacted during compaction.
type Message struct {
	ID        string `json:"id,omitempty"`
	CompanyID string `json:"empresa_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	FileName  string `json:"archivo_nombre,omitempty"`
	FileKind  string `json:"archivo_tipo,omitempty"`
	Compacted bool   `json:"resumido"`
	Created   string `json:"created,omitempty"`
}
