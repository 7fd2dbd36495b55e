package draftingsrv

import (
	"fmt"
	"strings"
	"time"

	"github.com/digpatho/crm-backend/pkg/contact"
	"github.com/digpatho/crm-backend/pkg/drafting"
)

// projectContext describes one outreach campaign angle the model can write
// for.
type projectContext struct {
	Name         string
	Focus        string
	Problem      string
	Solution     string
	Intro        string
	Restrictions string
}

var projectContexts = map[string]projectContext{
	"breast_her2": {
		Name:     "Biomarcadores en Cáncer de Mama",
		Focus:    "HER2, Ki67, RE y RP en inmunohistoquímica",
		Problem:  "el tedioso proceso de conteo manual de células en casos de cáncer de mama, con alta variabilidad inter-observador",
		Solution: "automatizar el conteo de biomarcadores (HER2, Ki67, RE, RP) para reducir subjetividad y ahorrar tiempo",
		Restrictions: `RESTRICCIONES CRÍTICAS PARA ESTE PROYECTO:
- Solo hablamos de cáncer de MAMA y biomarcadores IHC (HER2, Ki67, RE, RP)
- NO realizamos diagnóstico primario sobre H&E
- NO analizamos márgenes quirúrgicos
- NO trabajamos con otros órganos (próstata, pulmón, piel, etc.)
- Si el contacto no es especialista en mama, ofrecer derivar a quien corresponda`,
	},
	"prostate_gleason": {
		Name:     "Graduación Automática de Cáncer de Próstata (Gleason/ISUP)",
		Focus:    "Score de Gleason y clasificación ISUP",
		Problem:  "la variabilidad inter-observador en la asignación del Score de Gleason, uno de los mayores retos en uropatología",
		Solution: "desarrollar una IA para graduación automática que sirva como estándar de referencia y apoyo educativo",
		Intro:    "Si bien comenzamos desarrollando herramientas para automatizar biomarcadores en mama, hoy estamos enfocados en",
		Restrictions: `CONTEXTO IMPORTANTE:
- Digpatho tiene experiencia previa en mama (HER2, Ki67) - mencionar brevemente como credencial
- El enfoque ACTUAL es próstata/Gleason
- Buscamos colaboradores para VALIDAR y CO-DESARROLLAR, no vender un producto terminado`,
	},
	"clinical_validation": {
		Name:     "Validación Clínica de Herramientas de IA",
		Focus:    "validación y feedback de modelos de IA en patología",
		Problem:  "la necesidad de validar herramientas de IA con criterio experto antes de su implementación clínica",
		Solution: "colaborar con expertos para validar nuestros modelos y asegurar que aporten valor real a la práctica diaria",
		Restrictions: `ENFOQUE DE ESTE EMAIL:
- No estamos vendiendo, estamos buscando VALIDADORES expertos
- Ofrecemos acceso temprano a herramientas a cambio de su expertise`,
	},
	"academic_collaboration": {
		Name:     "Colaboración Académica e Investigación",
		Focus:    "investigación conjunta y publicaciones en patología digital",
		Problem:  "la brecha entre el desarrollo tecnológico y la validación científica rigurosa",
		Solution: "establecer colaboraciones académicas para investigación conjunta y publicaciones",
		Restrictions: `ENFOQUE ACADÉMICO:
- Proponer investigación conjunta, no venta de productos
- Mencionar posibilidad de co-autoría en publicaciones`,
	},
	"custom": {
		Name:     "Objetivo Personalizado",
		Focus:    "definido por el usuario",
		Problem:  "definido por el usuario",
		Solution: "definido por el usuario",
		Restrictions: `INSTRUCCIONES:
- El usuario proporcionará el objetivo específico en el campo de contexto personalizado
- Adaptar el email al objetivo indicado`,
	},
}

const baseSystemPrompt = `Eres un asistente de comunicación comercial especializado para Digpatho IA, una startup de biotecnología argentina.

## CONTEXTO DE LA EMPRESA
- **Digpatho IA**: Startup argentina de biotecnología especializada en patología digital.
- **Trayectoria**: Comenzamos desarrollando herramientas para automatizar biomarcadores en cáncer de mama (HER2, Ki67, RE, RP).
- **Propuesta de valor**: Reducir la variabilidad inter-observador y ahorrar tiempo en tareas repetitivas de conteo.

## TONO Y ESTILO
1. **Científico y Preciso**: No uses hipérboles ni promesas exageradas.
2. **Empático**: Entiende la carga de trabajo del patólogo.
3. **Profesional**: "Estimado Dr./Dra." - Respetuoso pero no excesivamente formal.

## FORMATO DE RESPUESTA
Genera el email en el siguiente formato:

**Asunto:** [Línea de asunto concisa y atractiva]

**Cuerpo:**
[Contenido del email]

**Notas internas:** [Explica tu estrategia y por qué enfocaste el email así]`

var toneAdjustments = map[string]string{
	"professional": `AJUSTE DE TONO: PROFESIONAL
- Mantén un lenguaje formal y respetuoso.
- Enfócate en la eficiencia y resultados clínicos.`,
	"empathetic": `AJUSTE DE TONO: EMPÁTICO
- Usa un lenguaje cálido y comprensivo.
- Prioriza construir rapport humano antes de hablar de negocios.`,
	"direct": `AJUSTE DE TONO: DIRECTO
- Ve directo al grano.
- Usa oraciones cortas y párrafos breves.`,
}

var languageInstructions = map[string]string{
	"es": "IDIOMA: Escribe SIEMPRE en ESPAÑOL (neutro o rioplatense según contexto).",
	"en": "LANGUAGE: Write ALWAYS in ENGLISH.",
	"pt": "IDIOMA: Escreva SEMPRE em PORTUGUÊS.",
}

// buildSystemPrompt assembles the base prompt, the selected project context
// and the tone/language adjustments.
func buildSystemPrompt(req drafting.GenerateRequest) string {
	project, ok := projectContexts[req.Project]
	if !ok {
		project = projectContexts["breast_her2"]
	}

	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString("\n\n## PROYECTO/OBJETIVO ACTUAL: " + project.Name + "\n\n")
	fmt.Fprintf(&b, "**Foco del email:** %s\n", project.Focus)
	fmt.Fprintf(&b, "**Problema a resolver:** %s\n", project.Problem)
	fmt.Fprintf(&b, "**Solución que ofrecemos:** %s\n", project.Solution)
	if project.Intro != "" {
		fmt.Fprintf(&b, "\n**Introducción sugerida:** %s\n", project.Intro)
	}
	b.WriteString("\n" + project.Restrictions)

	if req.Project == "custom" && req.CustomContext != "" {
		b.WriteString("\n\n## OBJETIVO PERSONALIZADO DEL USUARIO:\n" + req.CustomContext)
	}

	lang, ok := languageInstructions[req.Language]
	if !ok {
		lang = languageInstructions["es"]
	}
	tone, ok := toneAdjustments[req.Tone]
	if !ok {
		tone = toneAdjustments["professional"]
	}
	b.WriteString("\n\n---\n" + lang + "\n\n" + tone)
	b.WriteString("\n\nIMPORTANTE: Recuerda seguir estrictamente el formato de respuesta con **Asunto**, **Cuerpo** y **Notas internas**.")

	return b.String()
}

// buildUserPrompt renders the contact snapshot and recent history into the
// generation task.
func buildUserPrompt(c *contact.Contact, history []contact.Interaction, req drafting.GenerateRequest) string {
	project, ok := projectContexts[req.Project]
	if !ok {
		project = projectContexts["breast_her2"]
	}

	interactions := "No hay interacciones previas registradas."
	if len(history) > 0 {
		lines := make([]string, 0, len(history))
		for _, i := range history {
			detail := i.Subject
			if detail == "" && i.Content != "" {
				detail = i.Content
				if len(detail) > 100 {
					detail = detail[:100]
				}
			}
			if detail == "" {
				detail = "Sin detalle"
			}
			lines = append(lines, fmt.Sprintf("- %s (%s): %s", i.Type, i.OccurredAt.Format(time.DateOnly), detail))
		}
		interactions = strings.Join(lines, "\n")
	}

	jobTitle := c.JobTitle
	if jobTitle == "" {
		jobTitle = "No especificado"
	}
	aiContext := c.AIContext
	if aiContext == "" {
		aiContext = "No hay contexto adicional."
	}

	var b strings.Builder
	b.WriteString("## CONTEXTO DEL CONTACTO\n\n")
	fmt.Fprintf(&b, "**Nombre:** %s\n", c.FullName())
	fmt.Fprintf(&b, "**Cargo:** %s\n", jobTitle)
	fmt.Fprintf(&b, "**Rol en CRM:** %s\n", c.Role)
	fmt.Fprintf(&b, "**Nivel de interés:** %s\n\n", c.InterestLevel)
	b.WriteString("**Contexto adicional (importante para personalizar):**\n" + aiContext + "\n\n")
	b.WriteString("## HISTORIAL DE INTERACCIONES\n" + interactions + "\n\n")
	fmt.Fprintf(&b, "## TAREA\nGenera un email de tipo **%s** enfocado en el proyecto: **%s**.\n\n", req.EmailType, project.Name)
	b.WriteString("Recuerda:\n- Personalizar según el contexto del contacto\n- No inventar funcionalidades que no existen")

	return b.String()
}
