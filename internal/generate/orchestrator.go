package generate

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"kursgenerator/internal/llm"
	"kursgenerator/internal/models"
)

const (
	// MaxAttempts ist das Versuchslimit pro Batch inklusive Erstversuch
	MaxAttempts = 3

	// CallTimeout begrenzt einen einzelnen LLM-Aufruf
	CallTimeout = 90 * time.Second

	generationTemperature = 0.4
)

// AttemptRecorder protokolliert jeden fehlgeschlagenen Einzelversuch
type AttemptRecorder interface {
	RecordAttempt(batchIndex, attempt int, errKind, message string, elapsed time.Duration)
}

// LogRecorder schreibt Versuchsprotokolle ins Standard-Log
type LogRecorder struct{}

func (LogRecorder) RecordAttempt(batchIndex, attempt int, errKind, message string, elapsed time.Duration) {
	log.Printf("⚠️ [Generator] Batch %d, Versuch %d fehlgeschlagen (%s) nach %s: %s",
		batchIndex+1, attempt, errKind, elapsed.Round(time.Millisecond), message)
}

// NopRecorder verwirft alle Versuchsprotokolle
type NopRecorder struct{}

func (NopRecorder) RecordAttempt(int, int, string, string, time.Duration) {}

// BatchRequest bündelt alles, was ein einzelner Batch zur Generierung braucht
type BatchRequest struct {
	CourseTitle string
	Plan        models.BatchPlan
	Grounding   string
}

// Orchestrator führt die Generierungsschleife pro Batch aus: Prompt bauen,
// LLM aufrufen, Antwort reparieren und validieren, bei Fehlschlag mit
// Korrektur-Anweisung wiederholen.
type Orchestrator struct {
	provider    llm.Provider
	recorder    AttemptRecorder
	maxAttempts int
	callTimeout time.Duration
}

// NewOrchestrator erstellt einen Orchestrator mit den Standard-Limits
func NewOrchestrator(provider llm.Provider, recorder AttemptRecorder) *Orchestrator {
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &Orchestrator{
		provider:    provider,
		recorder:    recorder,
		maxAttempts: MaxAttempts,
		callTimeout: CallTimeout,
	}
}

// SetMaxAttempts überschreibt das Versuchslimit (mindestens 1)
func (o *Orchestrator) SetMaxAttempts(n int) {
	if n >= 1 {
		o.maxAttempts = n
	}
}

// SetCallTimeout überschreibt das Timeout pro LLM-Aufruf
func (o *Orchestrator) SetCallTimeout(d time.Duration) {
	if d > 0 {
		o.callTimeout = d
	}
}

// GenerateBatch führt die Versuchsschleife für einen Batch aus. Das Ergebnis
// ist immer non-nil; bei Erfolg trägt es Items und Modultitel, sonst die
// Fehlerklasse des letzten Versuchs und das komplette Versuchsprotokoll.
func (o *Orchestrator) GenerateBatch(ctx context.Context, req BatchRequest) *models.BatchResult {
	result := &models.BatchResult{BatchIndex: req.Plan.Index}
	start := time.Now()
	defer func() { result.Elapsed = time.Since(start) }()

	corrective := ""
	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			result.ErrorKind = ErrKindAPI
			result.Error = ctx.Err().Error()
			return result
		}
		result.Attempts = attempt

		attemptStart := time.Now()
		items, title, cerr := o.attempt(ctx, req, corrective)
		elapsed := time.Since(attemptStart)

		if cerr == nil {
			result.Success = true
			result.Items = items
			result.ModuleTitle = title
			// Fehlerstand früherer Versuche gehört nur ins AttemptLog
			result.ErrorKind = ""
			result.Error = ""
			result.AttemptLog = append(result.AttemptLog, models.AttemptRecord{
				Attempt: attempt,
				Elapsed: elapsed,
			})
			return result
		}

		o.recorder.RecordAttempt(req.Plan.Index, attempt, cerr.Kind, cerr.Message, elapsed)
		result.AttemptLog = append(result.AttemptLog, models.AttemptRecord{
			Attempt:   attempt,
			ErrorKind: cerr.Kind,
			Message:   cerr.Message,
			Elapsed:   elapsed,
		})
		result.ErrorKind = cerr.Kind
		result.Error = cerr.Message
		corrective = correctiveInstruction(cerr.Kind, cerr.Message)
	}

	return result
}

// attempt ist ein Einzeldurchlauf: Aufruf, Reparatur, Dekodierung, Validierung
func (o *Orchestrator) attempt(ctx context.Context, req BatchRequest, corrective string) ([]models.GeneratedItem, string, *ClassifiedError) {
	prompt := BuildBatchPrompt(req.CourseTitle, req.Plan, req.Grounding, corrective)

	callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	resp, err := o.provider.Generate(callCtx, prompt, &llm.GenerateOptions{
		Temperature: generationTemperature,
		System:      SystemPrompt,
		ForceJSON:   true,
	})
	if err != nil {
		return nil, "", classified(ErrKindAPI, "LLM-Aufruf fehlgeschlagen: %v", err)
	}

	repaired, err := RepairJSON(resp.Content)
	if err != nil {
		return nil, "", classified(ErrKindJSONParse, "Antwort nicht als JSON lesbar: %v", err)
	}

	var payload BatchPayload
	if err := json.Unmarshal([]byte(repaired), &payload); err != nil {
		return nil, "", classified(ErrKindSchema, "Antwort passt nicht zum Schema: %v", err)
	}

	items, cerr := ValidateBatch(&payload, req.Plan)
	if cerr != nil {
		return nil, "", cerr
	}
	return items, strings.TrimSpace(payload.ModuleTitle), nil
}
