package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ceovirtual/ceovirtual/internal/knowledge"
)

const systemPromptTemplate = `Sos el CEO Virtual de "%s". Tu rol es:

1. CONOCER la empresa profundamente
2. ANALIZAR datos y dar insights útiles
3. PREGUNTAR lo que no sabés (con tacto, sin ser invasivo)
4. RECORDAR todo lo que te dicen

PERSONALIDAD:
- Profesional pero cálido
- Directo, sin rodeos innecesarios
- Curioso por entender el negocio
- Das opiniones cuando tenés datos, admitís cuando no sabés

CONTEXTO ACTUAL DE LA EMPRESA:
%s

REGLAS:
- Si te dan información nueva, agradecé brevemente y usala
- Si necesitás datos para responder, preguntá específicamente qué necesitás
- No inventes números ni datos que no tenés
- Si detectás algo preocupante en los datos, mencionalo con tacto
- Mantené las respuestas concisas (2-4 oraciones generalmente)

IMPORTANTE: Si el usuario te da información nueva (números, hechos, datos), responde con un JSON al final de tu mensaje entre tags <datos_nuevos> con este formato:
<datos_nuevos>
{
  "hechos": [{"texto": "hecho 1", "categoria": "ventas"}],
  "metricas": [{"nombre": "ventas_mensuales", "valor": 50000, "unidad": "USD", "periodo": "2024-01"}],
  "entidades": [{"tipo": "cliente", "nombre": "Acme Corp", "datos": {}}],
  "conocimiento_actualizar": [{"tema": "facturacion_mensual", "estado": "conocido", "valor_resumen": "$50,000/mes"}]
}
</datos_nuevos>

Si no hay datos nuevos, no incluyas el tag.`

const webLookupRule = `

Si necesitás información del sitio web público de la empresa para responder, incluí en tu respuesta el tag <buscar_web>qué necesitás buscar</buscar_web> y recibirás el contenido del sitio para responder de nuevo.`

// buildSystemPrompt renders the full system prompt for a turn. The web
// lookup rule is only offered when a site reference is known.
func buildSystemPrompt(snap *knowledge.Snapshot) string {
	name := "una empresa"
	if snap.Company != nil && snap.Company.Name != "" {
		name = snap.Company.Name
	}
	prompt := fmt.Sprintf(systemPromptTemplate, name, knowledge.BuildContext(snap))
	if snap.Company != nil && snap.Company.SiteURL != "" {
		prompt += webLookupRule
	}
	return prompt
}

// renderUserContent builds the user message content for a turn, embedding
// the attached file's descriptor when one was uploaded.
func renderUserContent(message string, file *FileDescriptor) string {
	if file == nil {
		return message
	}

	switch file.Kind {
	case "tabular":
		rows := file.Rows
		if len(rows) > 5 {
			rows = rows[:5]
		}
		sample, _ := json.MarshalIndent(rows, "", "  ")
		msg := message
		if strings.TrimSpace(msg) == "" {
			msg = "Analiza este archivo"
		}
		return fmt.Sprintf(`[El usuario adjuntó un archivo: %s]

Datos del archivo:
- Columnas: %s
- Total registros: %d
- Muestra (primeras 5 filas): %s

Mensaje del usuario: %s`, file.Name, strings.Join(file.Headers, ", "), file.TotalRows, sample, msg)
	case "image", "pdf":
		msg := message
		if strings.TrimSpace(msg) == "" {
			msg = "Analiza este documento"
		}
		return fmt.Sprintf("[El usuario adjuntó: %s]\n\nMensaje del usuario: %s", file.Name, msg)
	default:
		return message
	}
}
