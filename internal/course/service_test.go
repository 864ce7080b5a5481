package course

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"kursgenerator/internal/budget"
	"kursgenerator/internal/config"
	"kursgenerator/internal/llm"
	"kursgenerator/internal/models"
	"kursgenerator/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedProvider struct {
	responses []string
	calls     int
	prompts   []string
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options *llm.GenerateOptions) (*llm.GenerateResponse, error) {
	i := p.calls
	p.calls++
	p.prompts = append(p.prompts, prompt)
	if i >= len(p.responses) {
		return nil, fmt.Errorf("keine Antwort für Aufruf %d vorbereitet", i+1)
	}
	return &llm.GenerateResponse{Content: p.responses[i], Done: true}, nil
}

func (p *scriptedProvider) GetModels(ctx context.Context) ([]llm.ModelInfo, error) { return nil, nil }
func (p *scriptedProvider) IsAvailable(ctx context.Context) bool                   { return true }
func (p *scriptedProvider) GetName() string                                        { return "scripted" }
func (p *scriptedProvider) SetModel(model string)                                  {}
func (p *scriptedProvider) GetCurrentModel() string                                { return "test" }

func newTestService(t *testing.T, provider llm.Provider) (*Service, storage.Storage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.BatchSize = 2
	return NewService(store, provider, cfg), store
}

func openItems(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf(`{"type": "open", "prompt": "Erkläre Konzept %d", "rubric": "Fachlich korrekt"}`, i+1)
	}
	return strings.Join(items, ",")
}

func openBatch(title string, n int) string {
	return fmt.Sprintf(`{"module_title": %q, "items": [%s]}`, title, openItems(n))
}

func sourceText() string {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "Router verbinden Netzwerke und leiten Pakete anhand von Routingtabellen weiter, Absatz %d. ", i)
	}
	return b.String()
}

func TestIngestPersistsSourceAndSegments(t *testing.T) {
	svc, store := newTestService(t, &scriptedProvider{})

	src := &models.Source{Name: "netzwerke.pdf", Text: sourceText()}
	result, err := svc.Ingest(src)
	require.NoError(t, err)
	require.NotEmpty(t, result.SourceID)
	assert.Greater(t, result.UniqueSegments, 1)

	segments, err := store.GetSegments(result.SourceID)
	require.NoError(t, err)
	assert.Len(t, segments, result.UniqueSegments)

	saved, err := store.GetSource(result.SourceID)
	require.NoError(t, err)
	assert.Equal(t, result.UniqueSegments, saved.SegmentCount)
}

func TestIngestTwiceDoesNotDuplicate(t *testing.T) {
	svc, store := newTestService(t, &scriptedProvider{})

	src := &models.Source{Name: "netzwerke.pdf", Text: sourceText()}
	first, err := svc.Ingest(src)
	require.NoError(t, err)

	second, err := svc.Ingest(src)
	require.NoError(t, err)
	assert.Equal(t, first.SourceID, second.SourceID)

	segments, err := store.GetSegments(src.ID)
	require.NoError(t, err)
	assert.Len(t, segments, first.UniqueSegments)
}

func TestGenerateCoursePersistsOnSuccess(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		openBatch("Routing-Grundlagen", 2),
		openBatch("Routing-Praxis", 2),
	}}
	svc, store := newTestService(t, provider)

	src := &models.Source{Name: "netzwerke.pdf", Text: sourceText()}
	ingest, err := svc.Ingest(src)
	require.NoError(t, err)

	req := GenerateRequest{
		Title:    "Router",
		SourceID: ingest.SourceID,
		Setting: models.SizeSetting{
			Preset:      models.PresetCustom,
			CustomTotal: 4,
			EnableOpen:  true,
			QuotaMode:   models.QuotaModePercent,
		},
	}

	report, err := svc.GenerateCourse(context.Background(), req, nil)
	require.NoError(t, err)
	require.True(t, report.Success)
	require.NotEmpty(t, report.CourseID)
	assert.Equal(t, 4, report.TotalGenerated)

	// Prompts tragen Quelltext-Grounding
	require.NotEmpty(t, provider.prompts)
	assert.Contains(t, provider.prompts[0], "Routingtabellen")

	course, err := store.GetCourse(report.CourseID)
	require.NoError(t, err)
	require.Len(t, course.Modules, 2)
	assert.Equal(t, "Routing-Grundlagen", course.Modules[0].Title)
	assert.Equal(t, report.CourseID, course.Modules[0].CourseID)
}

func TestGenerateCourseDoesNotPersistOnFailure(t *testing.T) {
	// zweiter Batch liefert dauerhaft die falsche Anzahl
	provider := &scriptedProvider{responses: []string{
		openBatch("Teil 1", 2),
		openBatch("Kaputt", 1),
		openBatch("Kaputt", 1),
		openBatch("Kaputt", 1),
	}}
	svc, store := newTestService(t, provider)

	src := &models.Source{Name: "netzwerke.pdf", Text: sourceText()}
	ingest, err := svc.Ingest(src)
	require.NoError(t, err)

	req := GenerateRequest{
		Title:    "Router",
		SourceID: ingest.SourceID,
		Setting: models.SizeSetting{
			Preset:      models.PresetCustom,
			CustomTotal: 4,
			EnableOpen:  true,
			QuotaMode:   models.QuotaModePercent,
		},
	}

	report, err := svc.GenerateCourse(context.Background(), req, nil)
	require.NoError(t, err)
	assert.False(t, report.Success)
	assert.True(t, report.CanRetry)
	assert.Empty(t, report.CourseID)
	assert.Len(t, report.Modules, 1)

	courses, err := store.GetAllCourses()
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func TestGenerateCourseRejectsInvalidSetting(t *testing.T) {
	svc, _ := newTestService(t, &scriptedProvider{})

	req := GenerateRequest{
		Title: "Router",
		Setting: models.SizeSetting{
			Preset:     models.PresetS,
			EnableOpen: true,
			QuotaMode:  models.QuotaModeCounts,
			Counts:     models.QuotaTriple{Open: 5}, // Summe passt nicht zu Preset S
		},
	}

	_, err := svc.GenerateCourse(context.Background(), req, nil)
	require.Error(t, err)

	var invalid *budget.InvalidSettingError
	assert.ErrorAs(t, err, &invalid)
}
