package generate

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// BatchPayload ist die erwartete Form einer LLM-Batch-Antwort
type BatchPayload struct {
	ModuleTitle string        `json:"module_title"`
	Items       []ItemPayload `json:"items"`
}

// ItemPayload ist die lose getypte Rohform eines einzelnen Items, wie sie
// vom LLM kommt. Erst nach der Validierung wird daraus die exakt getypte
// Variante in models.GeneratedItem.
type ItemPayload struct {
	Type         string   `json:"type"`
	Question     string   `json:"question,omitempty"`
	Options      []string `json:"options,omitempty"`
	CorrectIndex *int     `json:"correct_index,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
	Prompt       string   `json:"prompt,omitempty"`
	Rubric       string   `json:"rubric,omitempty"`
	SampleAnswer string   `json:"sample_answer,omitempty"`
	Scenario     string   `json:"scenario,omitempty"`
	Roles        []string `json:"roles,omitempty"`
	Goal         string   `json:"goal,omitempty"`
}

var (
	fenceRe        = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	blockCommentRe = regexp.MustCompile(`(?s)/\*.*?\*/`)
	lineCommentRe  = regexp.MustCompile(`(?m)^\s*//[^\n]*`)
	tailCommentRe  = regexp.MustCompile(`(?m)\s//[^\n"]*$`)
	singleQuoteRe  = regexp.MustCompile(`'([^'\n]*)'`)
	bareKeyRe      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
)

// RepairJSON versucht in eskalierenden Stufen, aus einem rohen Antworttext
// ein gültiges JSON-Objekt zu extrahieren:
//
//  1. Code-Fences entfernen, direkt parsen
//  2. Substring von erster '{' bis letzter '}' parsen
//  3. allgemeine JSON-Reparatur (hängende Kommas, einfache Anführungszeichen,
//     unquotierte Schlüssel, abgeschnittene Antworten)
//  4. manuelle Textkorrekturen, danach noch einmal die Reparatur
//
// Jede Stufe ist eine reine Funktion; die erste erfolgreiche gewinnt.
func RepairJSON(raw string) (string, error) {
	candidates := []func(string) (string, bool){
		passStripFences,
		passExtractBraces,
		passRepairLibrary,
		passManualFixes,
	}

	text := raw
	var lastErr error
	for _, pass := range candidates {
		candidate, ok := pass(text)
		if !ok {
			continue
		}
		if isJSONObject(candidate) {
			return candidate, nil
		}
		lastErr = json.Unmarshal([]byte(candidate), &struct{}{})
	}
	if lastErr == nil {
		lastErr = json.Unmarshal([]byte(strings.TrimSpace(raw)), &struct{}{})
	}
	return "", lastErr
}

func isJSONObject(text string) bool {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "{") {
		return false
	}
	return json.Valid([]byte(trimmed))
}

// Stufe 1: bekannte Fence-Marker entfernen
func passStripFences(text string) (string, bool) {
	if m := fenceRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return strings.TrimSpace(text), true
}

// Stufe 2: erstes '{' bis letztes '}' (Teacher-Heuristik gegen Prosa
// vor und nach dem JSON)
func passExtractBraces(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || start >= end {
		return "", false
	}
	return text[start : end+1], true
}

// Stufe 3: generische Reparatur über die jsonrepair-Bibliothek
func passRepairLibrary(text string) (string, bool) {
	candidate, ok := passExtractBraces(text)
	if !ok {
		candidate = strings.TrimSpace(text)
	}
	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", false
	}
	return repaired, true
}

// Stufe 4: manuelle Korrekturen (Kommentare raus, einfache in doppelte
// Anführungszeichen, nackte Schlüssel quotieren), dann erneut reparieren
func passManualFixes(text string) (string, bool) {
	candidate, ok := passExtractBraces(text)
	if !ok {
		candidate = text
	}

	candidate = blockCommentRe.ReplaceAllString(candidate, "")
	candidate = lineCommentRe.ReplaceAllString(candidate, "")
	candidate = tailCommentRe.ReplaceAllString(candidate, "")
	candidate = singleQuoteRe.ReplaceAllString(candidate, `"$1"`)
	candidate = bareKeyRe.ReplaceAllString(candidate, `$1"$2":`)

	repaired, err := jsonrepair.JSONRepair(candidate)
	if err != nil {
		return "", false
	}
	return repaired, true
}
