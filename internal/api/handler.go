package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"kursgenerator/internal/budget"
	"kursgenerator/internal/config"
	"kursgenerator/internal/course"
	"kursgenerator/internal/generate"
	"kursgenerator/internal/llm"
	"kursgenerator/internal/models"
	"kursgenerator/internal/pdf"
	"kursgenerator/internal/storage"
)

// Handler verwaltet alle API-Endpunkte
type Handler struct {
	store     storage.Storage
	llm       llm.Provider
	service   *course.Service
	pdfParser *pdf.Parser
	config    *config.Config
	upgrader  websocket.Upgrader
}

// NewHandler erstellt einen neuen API-Handler
func NewHandler(store storage.Storage, llmProvider llm.Provider, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		llm:       llmProvider,
		service:   course.NewService(store, llmProvider, cfg),
		pdfParser: pdf.NewParser(),
		config:    cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Response-Helper
func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

// === System Endpoints ===

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	llmAvailable := h.llm.IsAvailable(ctx)

	jsonResponse(w, map[string]interface{}{
		"status":        "ok",
		"llm_available": llmAvailable,
		"llm_provider":  h.llm.GetName(),
		"timestamp":     time.Now(),
	}, http.StatusOK)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sources, _ := h.store.GetAllSources()
	courses, _ := h.store.GetAllCourses()
	llmAvailable := h.llm.IsAvailable(ctx)

	jsonResponse(w, map[string]interface{}{
		"sources_count":  len(sources),
		"courses_count":  len(courses),
		"llm_available":  llmAvailable,
		"llm_provider":   h.llm.GetName(),
		"current_model":  h.llm.GetCurrentModel(),
		"documents_path": h.config.DocumentsPath,
	}, http.StatusOK)
}

func (h *Handler) GetModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	models, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Konnte Modelle nicht abrufen: %v", err), http.StatusServiceUnavailable)
		return
	}

	jsonResponse(w, map[string]interface{}{
		"models":        models,
		"current_model": h.llm.GetCurrentModel(),
	}, http.StatusOK)
}

// SetModel ändert das aktive LLM-Modell
func (h *Handler) SetModel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Model string `json:"model"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}

	if req.Model == "" {
		errorResponse(w, "Kein Modell angegeben", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	models, err := h.llm.GetModels(ctx)
	if err != nil {
		errorResponse(w, "Konnte Modelle nicht abrufen", http.StatusServiceUnavailable)
		return
	}

	found := false
	for _, m := range models {
		if m.Name == req.Model {
			found = true
			break
		}
	}

	if !found {
		errorResponse(w, fmt.Sprintf("Modell '%s' nicht gefunden", req.Model), http.StatusBadRequest)
		return
	}

	h.llm.SetModel(req.Model)
	h.config.DefaultModel = req.Model

	jsonResponse(w, map[string]interface{}{
		"message":       "Modell geändert",
		"current_model": req.Model,
	}, http.StatusOK)
}

// === Quelldokument Endpoints ===

func (h *Handler) GetSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.GetAllSources()
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, sources, http.StatusOK)
}

// UploadSource nimmt ein PDF entgegen, extrahiert den Text und segmentiert ihn
func (h *Handler) UploadSource(w http.ResponseWriter, r *http.Request) {
	// Max 50MB
	r.ParseMultipartForm(50 << 20)

	file, header, err := r.FormFile("file")
	if err != nil {
		errorResponse(w, "Keine Datei gefunden", http.StatusBadRequest)
		return
	}
	defer file.Close()

	src, err := h.pdfParser.ParseFromReader(file, header.Filename)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Fehler beim Parsen: %v", err), http.StatusBadRequest)
		return
	}

	result, err := h.service.Ingest(src)
	if err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, result, http.StatusCreated)
}

// IngestText nimmt rohen Text entgegen (für Quellen ohne PDF)
func (h *Handler) IngestText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		errorResponse(w, "Kein Text angegeben", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		req.Name = "Unbenannte Quelle"
	}

	result, err := h.service.Ingest(&models.Source{Name: req.Name, Text: req.Text})
	if err != nil {
		errorResponse(w, "Fehler beim Speichern", http.StatusInternalServerError)
		return
	}

	jsonResponse(w, result, http.StatusCreated)
}

// ScanSourcesFolder nimmt alle PDFs aus dem Dokumentenordner auf
func (h *Handler) ScanSourcesFolder(w http.ResponseWriter, r *http.Request) {
	sources, err := h.pdfParser.ParseDirectory(h.config.DocumentsPath)
	if err != nil {
		errorResponse(w, fmt.Sprintf("Fehler beim Scannen: %v", err), http.StatusInternalServerError)
		return
	}

	var results []models.IngestResult
	for i := range sources {
		result, err := h.service.Ingest(&sources[i])
		if err != nil {
			continue
		}
		results = append(results, *result)
	}

	jsonResponse(w, map[string]interface{}{
		"ingested": len(results),
		"results":  results,
	}, http.StatusOK)
}

func (h *Handler) GetSource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	src, err := h.store.GetSource(vars["id"])
	if err != nil {
		errorResponse(w, "Quelle nicht gefunden", http.StatusNotFound)
		return
	}
	jsonResponse(w, src, http.StatusOK)
}

func (h *Handler) DeleteSource(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.store.DeleteSource(vars["id"]); err != nil {
		errorResponse(w, "Fehler beim Löschen", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"message": "Quelle gelöscht"}, http.StatusOK)
}

func (h *Handler) GetSegments(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	segments, err := h.store.GetSegments(vars["id"])
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, segments, http.StatusOK)
}

// === Generierung Endpoints ===

// GenerateCourse führt einen kompletten Generierungslauf synchron aus
func (h *Handler) GenerateCourse(w http.ResponseWriter, r *http.Request) {
	var req course.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "Ungültige Anfrage", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		errorResponse(w, "Kein Titel angegeben", http.StatusBadRequest)
		return
	}

	report, err := h.service.GenerateCourse(r.Context(), req, nil)
	if err != nil {
		var invalid *budget.InvalidSettingError
		if errors.As(err, &invalid) {
			errorResponse(w, invalid.Error(), http.StatusBadRequest)
			return
		}
		errorResponse(w, fmt.Sprintf("Generierung fehlgeschlagen: %v", err), http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if !report.Success {
		status = http.StatusUnprocessableEntity
	}
	jsonResponse(w, report, status)
}

// GenerateCourseStream führt die Generierung über WebSocket aus und meldet
// nach jedem Batch den Fortschritt
func (h *Handler) GenerateCourseStream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	var req course.GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		return
	}

	progress := func(ev generate.ProgressEvent) {
		conn.WriteJSON(map[string]interface{}{
			"type":  "progress",
			"event": ev,
		})
	}

	report, err := h.service.GenerateCourse(r.Context(), req, progress)
	if err != nil {
		conn.WriteJSON(map[string]string{"type": "error", "error": err.Error()})
		return
	}

	conn.WriteJSON(map[string]interface{}{
		"type":   "report",
		"report": report,
	})
}

// === Kurs Endpoints ===

func (h *Handler) GetCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.store.GetAllCourses()
	if err != nil {
		errorResponse(w, "Fehler beim Laden", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, courses, http.StatusOK)
}

func (h *Handler) GetCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c, err := h.store.GetCourse(vars["id"])
	if err != nil {
		errorResponse(w, "Kurs nicht gefunden", http.StatusNotFound)
		return
	}
	jsonResponse(w, c, http.StatusOK)
}

func (h *Handler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.store.DeleteCourse(vars["id"]); err != nil {
		errorResponse(w, "Fehler beim Löschen", http.StatusInternalServerError)
		return
	}
	jsonResponse(w, map[string]string{"message": "Kurs gelöscht"}, http.StatusOK)
}
