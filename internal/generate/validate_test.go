package generate

import (
	"testing"

	"kursgenerator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func mcqPayload(question string) ItemPayload {
	return ItemPayload{
		Type:         string(models.KindMultipleChoice),
		Question:     question,
		Options:      []string{"A", "B", "C", "D"},
		CorrectIndex: intPtr(1),
		Explanation:  "B ist richtig",
	}
}

func planFor(count int) models.BatchPlan {
	return models.BatchPlan{Index: 0, BatchCount: 1, ItemCount: count, Quota: models.QuotaTriple{MCQ: count}}
}

func TestValidateBatch_Valid(t *testing.T) {
	payload := &BatchPayload{
		ModuleTitle: "Netzwerke",
		Items:       []ItemPayload{mcqPayload("Was ist ein Router?"), mcqPayload("Was ist DNS?")},
	}

	items, cerr := ValidateBatch(payload, planFor(2))
	require.Nil(t, cerr)
	require.Len(t, items, 2)

	assert.NotEmpty(t, items[0].ID)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.Equal(t, models.KindMultipleChoice, items[0].Kind)
	require.NotNil(t, items[0].MultipleChoice)
	assert.Equal(t, 1, items[0].MultipleChoice.CorrectIndex)
}

func TestValidateBatch_ForbiddenType(t *testing.T) {
	payload := &BatchPayload{
		ModuleTitle: "Netzwerke",
		Items:       []ItemPayload{mcqPayload("Frage"), {Type: "flashcard", Question: "Was ist IP?"}},
	}

	_, cerr := ValidateBatch(payload, planFor(2))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrKindForbidden, cerr.Kind)
	assert.Contains(t, cerr.Message, "flashcard")
}

func TestValidateBatch_ForbiddenBeatsCount(t *testing.T) {
	// ein unzulässiger Typ wird vor der Anzahl gemeldet, damit die
	// Korrektur-Anweisung den eigentlichen Fehler trifft
	payload := &BatchPayload{
		ModuleTitle: "Netzwerke",
		Items:       []ItemPayload{{Type: "essay", Prompt: "Schreibe"}},
	}

	_, cerr := ValidateBatch(payload, planFor(3))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrKindForbidden, cerr.Kind)
}

func TestValidateBatch_CountMismatch(t *testing.T) {
	payload := &BatchPayload{
		ModuleTitle: "Netzwerke",
		Items:       []ItemPayload{mcqPayload("Frage 1")},
	}

	_, cerr := ValidateBatch(payload, planFor(3))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrKindCount, cerr.Kind)
}

func TestValidateBatch_MissingItems(t *testing.T) {
	_, cerr := ValidateBatch(&BatchPayload{ModuleTitle: "Netzwerke"}, planFor(1))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrKindSchema, cerr.Kind)

	_, cerr = ValidateBatch(nil, planFor(1))
	require.NotNil(t, cerr)
	assert.Equal(t, ErrKindSchema, cerr.Kind)
}

func TestValidateBatch_SchemaFields(t *testing.T) {
	cases := []struct {
		name string
		item ItemPayload
	}{
		{"mcq ohne Frage", ItemPayload{Type: "multiple_choice", Options: []string{"A", "B"}, CorrectIndex: intPtr(0)}},
		{"mcq ohne Index", ItemPayload{Type: "multiple_choice", Question: "F?", Options: []string{"A", "B"}}},
		{"mcq zu wenig Optionen", ItemPayload{Type: "multiple_choice", Question: "F?", Options: []string{"A"}, CorrectIndex: intPtr(0)}},
		{"open ohne Prompt", ItemPayload{Type: "open", Rubric: "R"}},
		{"open ohne Rubric", ItemPayload{Type: "open", Prompt: "P"}},
		{"roleplay ohne Szenario", ItemPayload{Type: "roleplay", Goal: "G"}},
		{"roleplay ohne Ziel", ItemPayload{Type: "roleplay", Scenario: "S"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := &BatchPayload{ModuleTitle: "T", Items: []ItemPayload{tc.item}}
			_, cerr := ValidateBatch(payload, planFor(1))
			require.NotNil(t, cerr)
			assert.Equal(t, ErrKindSchema, cerr.Kind)
		})
	}
}

func TestValidateBatch_PadsOptions(t *testing.T) {
	item := ItemPayload{
		Type:         "multiple_choice",
		Question:     "Frage?",
		Options:      []string{"A", "  ", "B"},
		CorrectIndex: intPtr(1),
	}
	payload := &BatchPayload{ModuleTitle: "T", Items: []ItemPayload{item}}

	items, cerr := ValidateBatch(payload, planFor(1))
	require.Nil(t, cerr)

	mcq := items[0].MultipleChoice
	require.NotNil(t, mcq)
	assert.Equal(t, []string{"A", "B", paddingOption, paddingOption}, mcq.Options)
	assert.Equal(t, 1, mcq.CorrectIndex)
}

func TestValidateBatch_TruncatesOptionsKeepsCorrect(t *testing.T) {
	item := ItemPayload{
		Type:         "multiple_choice",
		Question:     "Frage?",
		Options:      []string{"A", "B", "C", "D", "E", "Richtig"},
		CorrectIndex: intPtr(5),
	}
	payload := &BatchPayload{ModuleTitle: "T", Items: []ItemPayload{item}}

	items, cerr := ValidateBatch(payload, planFor(1))
	require.Nil(t, cerr)

	mcq := items[0].MultipleChoice
	require.Len(t, mcq.Options, OptionCount)
	assert.Equal(t, "Richtig", mcq.Options[mcq.CorrectIndex])
}

func TestValidateBatch_ClampsCorrectIndex(t *testing.T) {
	item := mcqPayload("Frage?")
	item.CorrectIndex = intPtr(-2)
	payload := &BatchPayload{ModuleTitle: "T", Items: []ItemPayload{item}}

	items, cerr := ValidateBatch(payload, planFor(1))
	require.Nil(t, cerr)
	assert.Equal(t, 0, items[0].MultipleChoice.CorrectIndex)
}

func TestValidateBatch_DefaultRoles(t *testing.T) {
	item := ItemPayload{Type: "roleplay", Scenario: "Kundengespräch", Goal: "Einwände behandeln"}
	payload := &BatchPayload{ModuleTitle: "T", Items: []ItemPayload{item}}

	items, cerr := ValidateBatch(payload, planFor(1))
	require.Nil(t, cerr)
	require.NotNil(t, items[0].Roleplay)
	assert.Equal(t, defaultRoles, items[0].Roleplay.Roles)
}
