package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter erstellt den HTTP-Router mit allen Endpoints
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	// API-Version
	api := r.PathPrefix("/api/v1").Subrouter()

	// System
	api.HandleFunc("/health", h.HealthCheck).Methods("GET")
	api.HandleFunc("/status", h.GetStatus).Methods("GET")
	api.HandleFunc("/models", h.GetModels).Methods("GET")
	api.HandleFunc("/models", h.SetModel).Methods("POST")

	// Quelldokumente
	api.HandleFunc("/sources", h.GetSources).Methods("GET")
	api.HandleFunc("/sources", h.UploadSource).Methods("POST")
	api.HandleFunc("/sources/text", h.IngestText).Methods("POST")
	api.HandleFunc("/sources/scan", h.ScanSourcesFolder).Methods("POST")
	api.HandleFunc("/sources/{id}", h.GetSource).Methods("GET")
	api.HandleFunc("/sources/{id}", h.DeleteSource).Methods("DELETE")
	api.HandleFunc("/sources/{id}/segments", h.GetSegments).Methods("GET")

	// Generierung
	api.HandleFunc("/generate", h.GenerateCourse).Methods("POST")
	api.HandleFunc("/generate/stream", h.GenerateCourseStream).Methods("GET")

	// Kurse
	api.HandleFunc("/courses", h.GetCourses).Methods("GET")
	api.HandleFunc("/courses/{id}", h.GetCourse).Methods("GET")
	api.HandleFunc("/courses/{id}", h.DeleteCourse).Methods("DELETE")

	// CORS für lokale Entwicklung
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return c.Handler(r)
}
