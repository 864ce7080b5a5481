package generate

import (
	"fmt"
	"strings"

	"kursgenerator/internal/models"
)

// SystemPrompt legt Rolle und Ausgabeformat des Modells fest.
// Die Antwort muss ein einzelnes JSON-Objekt sein, sonst greift die
// Reparatur- und Wiederholungslogik des Orchestrators.
const SystemPrompt = `Du bist ein erfahrener Autor für Kurs- und Übungsmaterial.
Du erstellst Übungsaufgaben auf Deutsch, fachlich korrekt und eng am gelieferten Quellmaterial.

Regeln:
- Antworte AUSSCHLIESSLICH mit einem einzelnen JSON-Objekt, ohne Markdown, ohne Erklärtext.
- Erfinde keine Fakten, die das Quellmaterial nicht hergibt.
- Jedes Item bekommt genau einen der erlaubten Typen: "multiple_choice", "open", "roleplay".
- Multiple-Choice-Fragen haben genau 4 Optionen und genau eine richtige Antwort.`

const schemaExample = `{
  "module_title": "Titel des Moduls",
  "items": [
    {
      "type": "multiple_choice",
      "question": "Fragetext",
      "options": ["A", "B", "C", "D"],
      "correct_index": 0,
      "explanation": "Kurze Begründung"
    },
    {
      "type": "open",
      "prompt": "Offene Aufgabenstellung",
      "rubric": "Bewertungskriterien",
      "sample_answer": "Beispielantwort"
    },
    {
      "type": "roleplay",
      "scenario": "Ausgangssituation",
      "roles": ["Lernender", "Coach"],
      "goal": "Lernziel der Übung",
      "rubric": "Bewertungskriterien"
    }
  ]
}`

// BuildBatchPrompt baut den Nutzer-Prompt für einen Batch. corrective ist
// leer beim ersten Versuch und enthält sonst die Korrektur-Anweisung aus
// dem vorigen Fehlschlag.
func BuildBatchPrompt(courseTitle string, plan models.BatchPlan, grounding string, corrective string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Kurs: %s\n", courseTitle)
	fmt.Fprintf(&b, "Erstelle Modul %d von %d mit genau %d Übungen.\n\n", plan.Index+1, plan.BatchCount, plan.ItemCount)

	b.WriteString("Verteilung der Übungstypen in diesem Modul:\n")
	fmt.Fprintf(&b, "- multiple_choice: %d\n", plan.Quota.MCQ)
	fmt.Fprintf(&b, "- open: %d\n", plan.Quota.Open)
	fmt.Fprintf(&b, "- roleplay: %d\n\n", plan.Quota.Roleplay)

	if grounding != "" {
		b.WriteString("Quellmaterial:\n---\n")
		b.WriteString(grounding)
		b.WriteString("\n---\n\n")
	}

	b.WriteString("Antworte mit JSON in genau dieser Struktur:\n")
	b.WriteString(schemaExample)
	b.WriteString("\n")

	if corrective != "" {
		b.WriteString("\nWICHTIG, dein letzter Versuch war fehlerhaft:\n")
		b.WriteString(corrective)
		b.WriteString("\n")
	}

	return b.String()
}

// correctiveInstruction übersetzt eine Fehlerklasse in eine konkrete
// Anweisung für den Wiederholungsversuch
func correctiveInstruction(kind, detail string) string {
	switch kind {
	case ErrKindJSONParse:
		return "Deine Antwort war kein gültiges JSON (" + detail + "). Antworte mit einem einzelnen syntaktisch korrekten JSON-Objekt, ohne Markdown-Zäune und ohne Text davor oder danach."
	case ErrKindSchema:
		return "Deine Antwort hatte ein ungültiges Schema (" + detail + "). Halte dich exakt an die vorgegebene Struktur und fülle alle Pflichtfelder."
	case ErrKindCount:
		return "Die Anzahl der Items war falsch (" + detail + "). Liefere exakt die geforderte Anzahl Items, nicht mehr und nicht weniger."
	case ErrKindForbidden:
		return "Du hast einen unzulässigen Übungstyp verwendet (" + detail + "). Erlaubt sind ausschließlich \"multiple_choice\", \"open\" und \"roleplay\"."
	default:
		return detail
	}
}
