package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"storybook-platform/internal/domain"
	"storybook-platform/internal/domain/ports/adapter"
)

const storySystemPrompt = "Eres un escritor de cuentos infantiles. Responde SOLO con JSON válido, sin markdown ni bloques de código."

// buildStoryPrompt asks for a fixed JSON shape so every provider can be
// parsed the same way.
func buildStoryPrompt(req adapter.StoryRequest) string {
	var traits []string
	if req.Attributes.PetName != "" {
		traits = append(traits, fmt.Sprintf("Incluye a su mascota: %s.", req.Attributes.PetName))
	}
	if req.Attributes.FavoriteColor != "" {
		traits = append(traits, fmt.Sprintf("Su color favorito es %s.", req.Attributes.FavoriteColor))
	}
	if req.Attributes.Dedication != "" {
		traits = append(traits, fmt.Sprintf("El cuento está dedicado a: %s.", req.Attributes.Dedication))
	}

	var b strings.Builder
	b.WriteString("Eres un escritor experto de cuentos infantiles en español latinoamericano.\n")
	fmt.Fprintf(&b, "Genera un cuento de %d páginas para un niño/a de %s años llamado/a %s.\n\n", req.PageCount, req.AgeGroup, req.ChildName)
	fmt.Fprintf(&b, "Tema: %s\nTono: %s\n", req.Theme, req.Tone)
	if len(traits) > 0 {
		b.WriteString(strings.Join(traits, "\n"))
		b.WriteString("\n")
	}
	b.WriteString(`
REGLAS ESTRICTAS:
- Cada página debe tener 2-4 oraciones claras con vocabulario adecuado a la edad.
- La última frase de cada página debe conectar naturalmente con la siguiente.
- Final feliz y mensaje positivo.
- PROHIBIDO: violencia, contenido sexual, instrucciones peligrosas, datos de contacto reales, contenido aterrador.
- Usa español latinoamericano neutro.
- Describe en "personajes" el aspecto visual fijo de cada personaje (ropa, colores, rasgos), en inglés, para que las ilustraciones sean coherentes.

RESPONDE ÚNICAMENTE con JSON válido (sin markdown, sin bloques de código), con esta estructura exacta:
{
  "titulo": "Título del cuento",
  "personajes": { "Nombre": "visual description in English" },
  "paginas": [
    { "numero": 1, "texto": "Texto de la página 1...", "descripcion_escena": "Descripción visual breve de la escena para ilustración" }
  ]
}`)
	return b.String()
}

// parseStory tolerates markdown fences and leading chatter around the JSON object.
func parseStory(raw string) (*adapter.GeneratedStory, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	var out adapter.GeneratedStory
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnparseableStory, err)
	}
	if len(out.Pages) == 0 {
		return nil, fmt.Errorf("%w: no pages", domain.ErrUnparseableStory)
	}
	return &out, nil
}
