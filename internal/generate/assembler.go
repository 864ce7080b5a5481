package generate

import (
	"context"
	"fmt"
	"log"
	"time"

	"kursgenerator/internal/models"

	"github.com/google/uuid"
)

// ProgressEvent wird nach jedem abgeschlossenen Batch gemeldet
type ProgressEvent struct {
	BatchIndex  int    `json:"batch_index"`
	BatchCount  int    `json:"batch_count"`
	Success     bool   `json:"success"`
	ModuleTitle string `json:"module_title,omitempty"`
	ErrorKind   string `json:"error_kind,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ProgressFunc empfängt Fortschrittsmeldungen während eines Laufs
type ProgressFunc func(ProgressEvent)

// GroundingFunc liefert den Quelltext-Ausschnitt für einen Batch
type GroundingFunc func(plan models.BatchPlan) string

// Assembler führt alle Batches eines Kurses sequenziell aus und setzt das
// Ergebnis zu einem Report zusammen. Beim ersten endgültig fehlgeschlagenen
// Batch bricht der Lauf ab; bereits erzeugte Module bleiben im Report
// erhalten, der Lauf gilt aber als gescheitert.
type Assembler struct {
	orchestrator *Orchestrator
}

// NewAssembler erstellt einen Assembler über dem gegebenen Orchestrator
func NewAssembler(orchestrator *Orchestrator) *Assembler {
	return &Assembler{orchestrator: orchestrator}
}

// Run generiert sämtliche Batches und baut den Kurs-Report
func (a *Assembler) Run(ctx context.Context, title string, alloc models.Allocation, plans []models.BatchPlan, grounding GroundingFunc, progress ProgressFunc) *models.GenerationReport {
	report := &models.GenerationReport{
		Title:          title,
		TotalRequested: alloc.Total,
		QuotaRequested: alloc.Quota,
	}

	start := time.Now()
	log.Printf("🏭 [Assembler] Starte Generierung: %q, %d Übungen in %d Batches", title, alloc.Total, len(plans))

	for i, plan := range plans {
		req := BatchRequest{CourseTitle: title, Plan: plan}
		if grounding != nil {
			req.Grounding = grounding(plan)
		}

		result := a.orchestrator.GenerateBatch(ctx, req)

		if progress != nil {
			progress(ProgressEvent{
				BatchIndex:  plan.Index,
				BatchCount:  plan.BatchCount,
				Success:     result.Success,
				ModuleTitle: result.ModuleTitle,
				ErrorKind:   result.ErrorKind,
				Error:       result.Error,
			})
		}

		if !result.Success {
			failed := plan.Index
			report.FailedBatch = &failed
			report.ErrorKind = result.ErrorKind
			report.Error = result.Error
			report.CanRetry = result.ErrorKind != ErrKindInvalid
			log.Printf("❌ [Assembler] Batch %d/%d endgültig fehlgeschlagen (%s), Lauf abgebrochen", plan.Index+1, len(plans), result.ErrorKind)
			return report
		}

		module := models.Module{
			ID:       uuid.NewString(),
			Title:    result.ModuleTitle,
			Position: i + 1,
			Items:    result.Items,
		}
		if module.Title == "" {
			module.Title = fmt.Sprintf("Modul %d", i+1)
		}
		report.Modules = append(report.Modules, module)
		report.TotalGenerated += len(result.Items)
		tallyQuota(&report.QuotaActual, result.Items)
	}

	report.Success = true
	log.Printf("✅ [Assembler] Generierung abgeschlossen: %d Module, %d Übungen in %s",
		len(report.Modules), report.TotalGenerated, time.Since(start).Round(time.Second))
	return report
}

func tallyQuota(q *models.QuotaTriple, items []models.GeneratedItem) {
	for _, item := range items {
		switch item.Kind {
		case models.KindMultipleChoice:
			q.MCQ++
		case models.KindOpen:
			q.Open++
		case models.KindRoleplay:
			q.Roleplay++
		}
	}
}
