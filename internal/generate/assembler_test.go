package generate

import (
	"context"
	"encoding/json"
	"testing"

	"kursgenerator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mcqItemJSON = `{"type": "multiple_choice", "question": "Was ist ein Switch?", "options": ["A", "B", "C", "D"], "correct_index": 2, "explanation": "C"}`

func testAllocation(total, moduleCount int, quota models.QuotaTriple) models.Allocation {
	return models.Allocation{Total: total, ModuleCount: moduleCount, Quota: quota}
}

func TestAssembler_AllBatchesSucceed(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		batchJSON("Teil 1", mcqItemJSON, openItemJSON),
		batchJSON("Teil 2", mcqItemJSON, openItemJSON),
	}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{
		{Index: 0, BatchCount: 2, ItemCount: 2, Quota: models.QuotaTriple{MCQ: 1, Open: 1}},
		{Index: 1, BatchCount: 2, ItemCount: 2, Quota: models.QuotaTriple{MCQ: 1, Open: 1}},
	}
	alloc := testAllocation(4, 2, models.QuotaTriple{MCQ: 2, Open: 2})

	var events []ProgressEvent
	report := asm.Run(context.Background(), "Netzwerke", alloc, plans, nil, func(ev ProgressEvent) {
		events = append(events, ev)
	})

	require.True(t, report.Success)
	assert.Equal(t, 4, report.TotalGenerated)
	require.Len(t, report.Modules, 2)
	assert.Equal(t, "Teil 1", report.Modules[0].Title)
	assert.Equal(t, 1, report.Modules[0].Position)
	assert.Equal(t, 2, report.Modules[1].Position)
	assert.Equal(t, models.QuotaTriple{MCQ: 2, Open: 2}, report.QuotaActual)

	require.Len(t, events, 2)
	assert.True(t, events[0].Success)
	assert.Equal(t, "Teil 2", events[1].ModuleTitle)
}

func TestAssembler_FailFastKeepsEarlierModules(t *testing.T) {
	short := batchJSON("Kaputt", openItemJSON)
	provider := &fakeProvider{responses: []string{
		batchJSON("Teil 1", openItemJSON, openItemJSON),
		short, short, short,
	}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{
		{Index: 0, BatchCount: 3, ItemCount: 2, Quota: models.QuotaTriple{Open: 2}},
		{Index: 1, BatchCount: 3, ItemCount: 2, Quota: models.QuotaTriple{Open: 2}},
		{Index: 2, BatchCount: 3, ItemCount: 2, Quota: models.QuotaTriple{Open: 2}},
	}
	alloc := testAllocation(6, 3, models.QuotaTriple{Open: 6})

	report := asm.Run(context.Background(), "Netzwerke", alloc, plans, nil, nil)

	require.False(t, report.Success)
	assert.True(t, report.CanRetry)
	require.NotNil(t, report.FailedBatch)
	assert.Equal(t, 1, *report.FailedBatch)
	assert.Equal(t, ErrKindCount, report.ErrorKind)

	// Module vor dem Fehlschlag bleiben erhalten, der dritte Batch läuft nicht mehr
	require.Len(t, report.Modules, 1)
	assert.Equal(t, "Teil 1", report.Modules[0].Title)
	assert.Equal(t, 2, report.TotalGenerated)
	assert.Equal(t, 1+MaxAttempts, provider.calls)
}

func TestAssembler_FailedFirstBatchStaysInReport(t *testing.T) {
	short := batchJSON("Kaputt", openItemJSON)
	provider := &fakeProvider{responses: []string{short, short, short}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{{Index: 0, BatchCount: 1, ItemCount: 2, Quota: models.QuotaTriple{Open: 2}}}
	report := asm.Run(context.Background(), "Netzwerke", testAllocation(2, 1, models.QuotaTriple{Open: 2}), plans, nil, nil)

	require.False(t, report.Success)
	require.NotNil(t, report.FailedBatch)
	assert.Equal(t, 0, *report.FailedBatch)

	// auch Index 0 übersteht die Serialisierung
	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed_batch":0`)
}

func TestAssembler_ProgressAfterRetryCarriesNoError(t *testing.T) {
	bad := batchJSON("Teil 1", `{"type": "flashcard", "question": "Was ist IP?"}`)
	provider := &fakeProvider{responses: []string{bad, batchJSON("Teil 1", openItemJSON)}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{{Index: 0, BatchCount: 1, ItemCount: 1, Quota: models.QuotaTriple{Open: 1}}}

	var events []ProgressEvent
	report := asm.Run(context.Background(), "Netzwerke", testAllocation(1, 1, models.QuotaTriple{Open: 1}), plans, nil, func(ev ProgressEvent) {
		events = append(events, ev)
	})

	require.True(t, report.Success)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Empty(t, events[0].ErrorKind)
	assert.Empty(t, events[0].Error)
}

func TestAssembler_FallbackModuleTitle(t *testing.T) {
	provider := &fakeProvider{responses: []string{`{"module_title": "  ", "items": [` + openItemJSON + `]}`}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{{Index: 0, BatchCount: 1, ItemCount: 1, Quota: models.QuotaTriple{Open: 1}}}
	report := asm.Run(context.Background(), "Netzwerke", testAllocation(1, 1, models.QuotaTriple{Open: 1}), plans, nil, nil)

	require.True(t, report.Success)
	require.Len(t, report.Modules, 1)
	assert.Equal(t, "Modul 1", report.Modules[0].Title)
}

func TestAssembler_GroundingPerBatch(t *testing.T) {
	provider := &fakeProvider{responses: []string{
		batchJSON("Teil 1", openItemJSON),
		batchJSON("Teil 2", openItemJSON),
	}}
	asm := NewAssembler(NewOrchestrator(provider, NopRecorder{}))

	plans := []models.BatchPlan{
		{Index: 0, BatchCount: 2, ItemCount: 1, Quota: models.QuotaTriple{Open: 1}},
		{Index: 1, BatchCount: 2, ItemCount: 1, Quota: models.QuotaTriple{Open: 1}},
	}
	grounding := func(plan models.BatchPlan) string {
		if plan.Index == 0 {
			return "Abschnitt über Router"
		}
		return "Abschnitt über Switches"
	}

	report := asm.Run(context.Background(), "Netzwerke", testAllocation(2, 2, models.QuotaTriple{Open: 2}), plans, grounding, nil)

	require.True(t, report.Success)
	require.Len(t, provider.prompts, 2)
	assert.Contains(t, provider.prompts[0], "Abschnitt über Router")
	assert.Contains(t, provider.prompts[1], "Abschnitt über Switches")
}
