package models

import "time"

// Segment repräsentiert einen zusammenhängenden Ausschnitt des normalisierten
// Quelltexts — die Einheit für Retrieval und Grounding
type Segment struct {
	Index       int    `json:"index"`
	Text        string `json:"text"`
	Heading     string `json:"heading,omitempty"`
	Fingerprint string `json:"fingerprint"`
	CharCount   int    `json:"char_count"`
	WordCount   int    `json:"word_count"`
	StartOffset int    `json:"start_offset"`
	EndOffset   int    `json:"end_offset"`
}

// Source repräsentiert ein aufgenommenes Quelldokument
type Source struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Text         string    `json:"text,omitempty"`
	CharCount    int       `json:"char_count"`
	SegmentCount int       `json:"segment_count"`
	PageCount    int       `json:"page_count,omitempty"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// IngestResult fasst das Ergebnis einer Dokumentaufnahme zusammen
type IngestResult struct {
	SourceID       string `json:"source_id"`
	TotalSegments  int    `json:"total_segments"`
	UniqueSegments int    `json:"unique_segments"`
}

// Preset-Kennungen für SizeSetting
const (
	PresetS      = "S"
	PresetM      = "M"
	PresetL      = "L"
	PresetXL     = "XL"
	PresetCustom = "custom"
)

// Quota-Modi für SizeSetting
const (
	QuotaModePercent = "percent"
	QuotaModeCounts  = "counts"
)

// QuotaTriple enthält je einen Zielwert pro Aufgabentyp
type QuotaTriple struct {
	MCQ      int `json:"mcq"`
	Open     int `json:"open"`
	Roleplay int `json:"roleplay"`
}

// Sum gibt die Summe aller drei Werte zurück
func (q QuotaTriple) Sum() int {
	return q.MCQ + q.Open + q.Roleplay
}

// SizeSetting ist der vom Aufrufer gewählte Generierungsumfang
type SizeSetting struct {
	Preset         string      `json:"preset"`
	CustomTotal    int         `json:"custom_total,omitempty"`
	EnableMCQ      bool        `json:"enable_mcq"`
	EnableOpen     bool        `json:"enable_open"`
	EnableRoleplay bool        `json:"enable_roleplay"`
	QuotaMode      string      `json:"quota_mode"`
	Percent        QuotaTriple `json:"percent,omitempty"`
	Counts         QuotaTriple `json:"counts,omitempty"`
}

// Allocation ist der aufgelöste, exakte globale Generierungsplan
type Allocation struct {
	Total        int         `json:"total"`
	ModuleCount  int         `json:"module_count"`
	PerModule    []int       `json:"per_module"`
	Quota        QuotaTriple `json:"quota"`
	QuotaPercent QuotaTriple `json:"quota_percent"`
}

// BatchPlan ist eine Einheit Generierungsarbeit für einen einzelnen LLM-Aufruf
type BatchPlan struct {
	Index      int         `json:"index"`
	BatchCount int         `json:"batch_count"`
	ItemCount  int         `json:"item_count"`
	Quota      QuotaTriple `json:"quota"`
}

// ItemKind kennzeichnet den Aufgabentyp einer generierten Übung
type ItemKind string

const (
	KindMultipleChoice ItemKind = "multiple_choice"
	KindOpen           ItemKind = "open"
	KindRoleplay       ItemKind = "roleplay"
)

// MultipleChoiceItem ist eine Auswahlfrage mit genau vier Optionen
type MultipleChoiceItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	Explanation  string   `json:"explanation,omitempty"`
}

// OpenItem ist eine offene Frage mit Bewertungsraster
type OpenItem struct {
	Prompt       string `json:"prompt"`
	Rubric       string `json:"rubric"`
	SampleAnswer string `json:"sample_answer,omitempty"`
}

// RoleplayItem ist eine Rollenspielübung
type RoleplayItem struct {
	Scenario string   `json:"scenario"`
	Roles    []string `json:"roles"`
	Goal     string   `json:"goal"`
	Rubric   string   `json:"rubric,omitempty"`
}

// GeneratedItem ist eine generierte Übung. Genau das zum Kind passende
// Variantenfeld ist gesetzt, alle anderen sind nil.
type GeneratedItem struct {
	ID             string              `json:"id"`
	Kind           ItemKind            `json:"kind"`
	MultipleChoice *MultipleChoiceItem `json:"multiple_choice,omitempty"`
	Open           *OpenItem           `json:"open,omitempty"`
	Roleplay       *RoleplayItem       `json:"roleplay,omitempty"`
}

// Module ist eine geordnete Gruppe generierter Übungen
type Module struct {
	ID       string          `json:"id"`
	CourseID string          `json:"course_id,omitempty"`
	Title    string          `json:"title"`
	Position int             `json:"position"`
	Items    []GeneratedItem `json:"items"`
}

// Course ist das persistenzfertige Endergebnis einer Generierung
type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	SourceID  string    `json:"source_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Modules   []Module  `json:"modules"`
}

// AttemptRecord protokolliert einen einzelnen Generierungsversuch eines Batches
type AttemptRecord struct {
	Attempt   int           `json:"attempt"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Message   string        `json:"message,omitempty"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// BatchResult ist das finale Ergebnis eines Batches nach allen Versuchen
type BatchResult struct {
	BatchIndex  int             `json:"batch_index"`
	Attempts    int             `json:"attempts"`
	AttemptLog  []AttemptRecord `json:"attempt_log,omitempty"`
	Success     bool            `json:"success"`
	ModuleTitle string          `json:"module_title,omitempty"`
	Items       []GeneratedItem `json:"items,omitempty"`
	ErrorKind   string          `json:"error_kind,omitempty"`
	Error       string          `json:"error,omitempty"`
	Elapsed     time.Duration   `json:"elapsed_ns"`
}

// GenerationReport ist das Gesamtergebnis eines GenerateCourse-Aufrufs.
// Schlägt ein Batch endgültig fehl, bleiben die Module aller vorher
// erfolgreichen Batches erhalten — ein Fehlschlag wird nie zu einem
// verkürzten Erfolg herabgestuft.
type GenerationReport struct {
	Success        bool        `json:"success"`
	CourseID       string      `json:"course_id,omitempty"`
	Title          string      `json:"title"`
	TotalRequested int         `json:"total_requested"`
	TotalGenerated int         `json:"total_generated"`
	Modules        []Module    `json:"modules"`
	QuotaRequested QuotaTriple `json:"quota_requested"`
	QuotaActual    QuotaTriple `json:"quota_actual"`
	FailedBatch    *int        `json:"failed_batch,omitempty"`
	ErrorKind      string      `json:"error_kind,omitempty"`
	Error          string      `json:"error,omitempty"`
	CanRetry       bool        `json:"can_retry,omitempty"`
}
