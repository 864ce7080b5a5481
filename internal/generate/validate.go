package generate

import (
	"fmt"
	"strings"

	"kursgenerator/internal/models"

	"github.com/google/uuid"
)

// Fehlerklassen. InvalidSetting ist endgültig, alle anderen sind bis zum
// Versuchslimit retry-fähig — jede Klasse bekommt ihre eigene Korrektur-
// Anweisung für den nächsten Versuch.
const (
	ErrKindAPI       = "api_error"
	ErrKindJSONParse = "json_parse"
	ErrKindSchema    = "schema_validation"
	ErrKindCount     = "count_mismatch"
	ErrKindForbidden = "forbidden_type"
	ErrKindInvalid   = "invalid_setting"
)

// ClassifiedError ist ein klassifizierter Fehlschlag eines Einzelversuchs
type ClassifiedError struct {
	Kind    string
	Message string
}

func (e *ClassifiedError) Error() string {
	return e.Kind + ": " + e.Message
}

func classified(kind, format string, args ...interface{}) *ClassifiedError {
	return &ClassifiedError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// OptionCount ist die feste Anzahl Antwortoptionen einer Multiple-Choice-Frage
const OptionCount = 4

const paddingOption = "Keine der genannten Antworten"

var defaultRoles = []string{"Lernender", "Coach"}

// ValidateBatch prüft eine geparste Batch-Antwort gegen den Plan und
// normalisiert sie bei Erfolg in persistenzfertige Items.
// Prüfreihenfolge: erlaubte Typen, dann exakte Anzahl, dann Pflichtfelder.
// Ein fehlender Modultitel ist kein Fehler, der Assembler vergibt dann
// einen Positionstitel.
func ValidateBatch(payload *BatchPayload, plan models.BatchPlan) ([]models.GeneratedItem, *ClassifiedError) {
	if payload == nil || payload.Items == nil {
		return nil, classified(ErrKindSchema, "Antwort enthält keine Item-Liste")
	}

	for i, item := range payload.Items {
		switch models.ItemKind(item.Type) {
		case models.KindMultipleChoice, models.KindOpen, models.KindRoleplay:
		default:
			return nil, classified(ErrKindForbidden, "Item %d hat unzulässigen Typ %q", i+1, item.Type)
		}
	}

	if len(payload.Items) != plan.ItemCount {
		return nil, classified(ErrKindCount, "Antwort enthält %d Items, geplant sind %d", len(payload.Items), plan.ItemCount)
	}

	items := make([]models.GeneratedItem, 0, len(payload.Items))
	for i, raw := range payload.Items {
		item, err := validateItem(i, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func validateItem(index int, raw ItemPayload) (models.GeneratedItem, *ClassifiedError) {
	item := models.GeneratedItem{
		ID:   uuid.NewString(),
		Kind: models.ItemKind(raw.Type),
	}

	switch item.Kind {
	case models.KindMultipleChoice:
		if strings.TrimSpace(raw.Question) == "" {
			return item, classified(ErrKindSchema, "Item %d (multiple_choice): question fehlt", index+1)
		}
		options := cleanStrings(raw.Options)
		if len(options) < 2 {
			return item, classified(ErrKindSchema, "Item %d (multiple_choice): mindestens zwei Optionen nötig", index+1)
		}
		if raw.CorrectIndex == nil {
			return item, classified(ErrKindSchema, "Item %d (multiple_choice): correct_index fehlt", index+1)
		}
		item.MultipleChoice = normalizeMCQ(raw, options)

	case models.KindOpen:
		if strings.TrimSpace(raw.Prompt) == "" {
			return item, classified(ErrKindSchema, "Item %d (open): prompt fehlt", index+1)
		}
		if strings.TrimSpace(raw.Rubric) == "" {
			return item, classified(ErrKindSchema, "Item %d (open): rubric fehlt", index+1)
		}
		item.Open = &models.OpenItem{
			Prompt:       strings.TrimSpace(raw.Prompt),
			Rubric:       strings.TrimSpace(raw.Rubric),
			SampleAnswer: strings.TrimSpace(raw.SampleAnswer),
		}

	case models.KindRoleplay:
		if strings.TrimSpace(raw.Scenario) == "" {
			return item, classified(ErrKindSchema, "Item %d (roleplay): scenario fehlt", index+1)
		}
		if strings.TrimSpace(raw.Goal) == "" {
			return item, classified(ErrKindSchema, "Item %d (roleplay): goal fehlt", index+1)
		}
		roles := cleanStrings(raw.Roles)
		if len(roles) == 0 {
			roles = append([]string(nil), defaultRoles...)
		}
		item.Roleplay = &models.RoleplayItem{
			Scenario: strings.TrimSpace(raw.Scenario),
			Roles:    roles,
			Goal:     strings.TrimSpace(raw.Goal),
			Rubric:   strings.TrimSpace(raw.Rubric),
		}
	}

	return item, nil
}

// normalizeMCQ bringt Optionslisten auf exakt vier Einträge und begrenzt
// den Index der richtigen Antwort auf den gültigen Bereich
func normalizeMCQ(raw ItemPayload, options []string) *models.MultipleChoiceItem {
	correct := *raw.CorrectIndex

	if len(options) > OptionCount {
		// richtige Antwort nach vorn retten, bevor abgeschnitten wird
		if correct >= OptionCount {
			options[0], options[correct] = options[correct], options[0]
			correct = 0
		}
		options = options[:OptionCount]
	}
	for len(options) < OptionCount {
		options = append(options, paddingOption)
	}

	if correct < 0 {
		correct = 0
	}
	if correct >= OptionCount {
		correct = OptionCount - 1
	}

	return &models.MultipleChoiceItem{
		Question:     strings.TrimSpace(raw.Question),
		Options:      options,
		CorrectIndex: correct,
		Explanation:  strings.TrimSpace(raw.Explanation),
	}
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
