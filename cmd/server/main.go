package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kursgenerator/internal/api"
	"kursgenerator/internal/config"
	"kursgenerator/internal/llm"
	"kursgenerator/internal/storage"
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)
	log.SetPrefix("")

	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("🎓 KURSGENERATOR - Start")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	// Kommandozeilen-Flags
	configPath := flag.String("config", "config.json", "Pfad zur Konfigurationsdatei")
	port := flag.String("port", "", "Server-Port (überschreibt Konfiguration)")
	flag.Parse()

	// Konfiguration laden
	log.Println("📋 Lade Konfiguration...")
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("⚠️  Konnte Konfiguration nicht laden, verwende Standardwerte: %v", err)
	}
	if *port != "" {
		cfg.ServerPort = *port
	}
	log.Printf("   ✓ Konfiguration geladen")

	// Storage initialisieren
	log.Println("💾 Initialisiere Datenbank...")
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("❌ Fehler beim Initialisieren der Datenbank: %v", err)
	}
	defer store.Close()
	log.Printf("   ✓ Datenbank: %s", cfg.DatabasePath)

	// LLM-Provider initialisieren
	log.Println("🤖 Initialisiere LLM-Provider...")
	llmProvider, err := buildProvider(cfg)
	if err != nil {
		log.Fatalf("❌ Fehler beim Initialisieren des Providers: %v", err)
	}

	// Prüfe LLM-Verbindung
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if llmProvider.IsAvailable(ctx) {
		log.Printf("   ✓ Provider %s erreichbar", llmProvider.GetName())
		models, err := llmProvider.GetModels(ctx)
		if err == nil {
			log.Printf("   ✓ Verfügbare Modelle: %d", len(models))
			for _, m := range models {
				log.Printf("      - %s", m.Name)
			}
		}
	} else {
		log.Printf("   ⚠️  Provider %s NICHT erreichbar", llmProvider.GetName())
		if cfg.Provider == "ollama" {
			log.Println("      Starte Ollama mit: ollama serve")
		}
	}
	cancel()
	log.Printf("   ✓ Standard-Modell: %s", llmProvider.GetCurrentModel())

	// API-Handler erstellen
	handler := api.NewHandler(store, llmProvider, cfg)

	// Router erstellen
	router := api.NewRouter(handler)

	// Server starten
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	// Graceful Shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("")
		log.Println("⏹️  Server wird heruntergefahren...")
		server.Close()
	}()

	log.Println("")
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Printf("✅ Server läuft auf: http://localhost:%s", cfg.ServerPort)
	log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Println("📚 Dokumente-Ordner:", cfg.DocumentsPath)
	log.Println("💡 Drücke Strg+C zum Beenden")
	log.Println("")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server-Fehler: %v", err)
	}
}

// buildProvider wählt das LLM-Backend anhand der Konfiguration
func buildProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Provider {
	case "gemini":
		return llm.NewGeminiProvider(context.Background(), cfg.GeminiAPIKey, cfg.DefaultModel)
	default:
		return llm.NewOllamaProvider(cfg.OllamaURL, cfg.DefaultModel), nil
	}
}
