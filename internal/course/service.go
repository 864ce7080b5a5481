package course

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"kursgenerator/internal/budget"
	"kursgenerator/internal/config"
	"kursgenerator/internal/generate"
	"kursgenerator/internal/llm"
	"kursgenerator/internal/models"
	"kursgenerator/internal/segment"
	"kursgenerator/internal/storage"

	"github.com/google/uuid"
)

// maxGroundingChars begrenzt den Quelltext-Ausschnitt pro Prompt
const maxGroundingChars = 6000

// Service verbindet Aufnahme, Budgetierung und Generierung zu den beiden
// Kernoperationen: Dokument aufnehmen und Kurs generieren
type Service struct {
	store    storage.Storage
	provider llm.Provider
	cfg      *config.Config
}

// NewService erstellt einen neuen Kurs-Service
func NewService(store storage.Storage, provider llm.Provider, cfg *config.Config) *Service {
	return &Service{store: store, provider: provider, cfg: cfg}
}

// Ingest normalisiert und segmentiert einen Quelltext und persistiert
// Quelle und Segmente. Eine wiederholte Aufnahme derselben Quelle ersetzt
// den alten Segmentbestand vollständig.
func (s *Service) Ingest(src *models.Source) (*models.IngestResult, error) {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	if src.IngestedAt.IsZero() {
		src.IngestedAt = time.Now()
	}

	normalized := segment.Normalize(src.Text)
	segments, stats := segment.Split(normalized)

	src.Text = normalized
	src.CharCount = len([]rune(normalized))
	src.SegmentCount = len(segments)

	if err := s.store.SaveSource(src); err != nil {
		return nil, fmt.Errorf("quelle speichern: %w", err)
	}
	if err := s.store.ReplaceSegments(src.ID, segments); err != nil {
		return nil, fmt.Errorf("segmente speichern: %w", err)
	}

	log.Printf("📄 [Kurs] Quelle %q aufgenommen: %d Segmente (%d Kandidaten, %d Duplikate)",
		src.Name, len(segments), stats.Candidates, stats.Duplicates)

	return &models.IngestResult{
		SourceID:       src.ID,
		TotalSegments:  stats.Candidates,
		UniqueSegments: len(segments),
	}, nil
}

// GenerateRequest beschreibt einen Kurs-Generierungsauftrag
type GenerateRequest struct {
	Title    string             `json:"title"`
	SourceID string             `json:"source_id"`
	Setting  models.SizeSetting `json:"setting"`
}

// GenerateCourse führt einen kompletten Generierungslauf aus: Budget
// auflösen, Batches planen, pro Batch Grounding aus den Segmenten holen,
// generieren und bei Erfolg den Kurs persistieren.
func (s *Service) GenerateCourse(ctx context.Context, req GenerateRequest, progress generate.ProgressFunc) (*models.GenerationReport, error) {
	alloc, err := budget.ComputeAllocation(req.Setting)
	if err != nil {
		return nil, err
	}

	plans := budget.Plan(alloc, s.cfg.BatchSize)
	if err := budget.VerifyPlan(alloc, plans); err != nil {
		return nil, fmt.Errorf("batch-plan inkonsistent: %w", err)
	}

	segments, err := s.store.GetSegments(req.SourceID)
	if err != nil {
		return nil, fmt.Errorf("segmente laden: %w", err)
	}

	orch := generate.NewOrchestrator(s.provider, generate.LogRecorder{})
	orch.SetMaxAttempts(s.cfg.MaxAttempts)
	orch.SetCallTimeout(time.Duration(s.cfg.CallTimeoutSeconds) * time.Second)
	asm := generate.NewAssembler(orch)

	var raw string
	if len(segments) == 0 && req.SourceID != "" {
		if src, err := s.store.GetSource(req.SourceID); err == nil {
			raw = src.Text
		}
	}
	grounding := s.groundingFunc(req.Title, segments, raw)
	report := asm.Run(ctx, req.Title, *alloc, plans, grounding, progress)

	if report.Success {
		course := &models.Course{
			ID:        uuid.NewString(),
			Title:     req.Title,
			SourceID:  req.SourceID,
			CreatedAt: time.Now(),
			Modules:   report.Modules,
		}
		for i := range course.Modules {
			course.Modules[i].CourseID = course.ID
		}
		if err := s.store.SaveCourse(course); err != nil {
			return nil, fmt.Errorf("kurs speichern: %w", err)
		}
		report.CourseID = course.ID
	}

	return report, nil
}

// groundingFunc liefert pro Batch den relevantesten Quelltext-Ausschnitt.
// Gesucht wird mit dem Kurstitel; Batches rotieren durch die Treffer,
// damit nicht jedes Modul aus demselben Abschnitt entsteht. Ohne Segmente
// dient der rohe Quelltext als Rückfalloption.
func (s *Service) groundingFunc(title string, segments []models.Segment, raw string) generate.GroundingFunc {
	topK := s.cfg.TopKSegments
	if topK <= 0 {
		topK = 5
	}
	scored := segment.Retrieve(title, segments, topK)

	return func(plan models.BatchPlan) string {
		if len(scored) == 0 {
			runes := []rune(raw)
			if len(runes) > maxGroundingChars {
				return string(runes[:maxGroundingChars])
			}
			return raw
		}

		var b strings.Builder
		// Startpunkt pro Batch verschieben
		for i := 0; i < len(scored); i++ {
			seg := scored[(plan.Index+i)%len(scored)].Segment
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(seg.Text)
			if b.Len() >= maxGroundingChars {
				break
			}
		}

		text := b.String()
		runes := []rune(text)
		if len(runes) > maxGroundingChars {
			text = string(runes[:maxGroundingChars])
		}
		return text
	}
}
