package pdf

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ledongthuc/pdf"
	"kursgenerator/internal/models"
)

// Parser extrahiert Text aus PDF-Dokumenten. Das Ergebnis ist ein roher
// Source — Normalisierung und Segmentierung übernimmt der Aufrufer.
type Parser struct{}

// NewParser erstellt einen neuen PDF-Parser
func NewParser() *Parser {
	return &Parser{}
}

// ParseFile parst eine einzelne PDF-Datei
func (p *Parser) ParseFile(filePath string) (*models.Source, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("fehler beim Öffnen der PDF: %w", err)
	}
	defer f.Close()

	text, pages := extractText(r)
	return newSource(filepath.Base(filePath), text, pages), nil
}

// ParseFromReader parst PDF aus einem io.Reader (für Uploads)
func (p *Parser) ParseFromReader(reader io.Reader, filename string) (*models.Source, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("fehler beim Lesen der PDF: %w", err)
	}

	text, pages := extractText(r)
	return newSource(filename, text, pages), nil
}

// ParseDirectory parst alle PDF-Dateien in einem Verzeichnis
func (p *Parser) ParseDirectory(dirPath string) ([]models.Source, error) {
	var sources []models.Source

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() || !strings.HasSuffix(strings.ToLower(info.Name()), ".pdf") {
			return nil
		}

		src, err := p.ParseFile(path)
		if err != nil {
			// Fehler loggen, aber fortfahren
			fmt.Printf("Warnung: Konnte %s nicht parsen: %v\n", path, err)
			return nil
		}

		sources = append(sources, *src)
		return nil
	})

	if err != nil {
		return nil, err
	}

	return sources, nil
}

func extractText(r *pdf.Reader) (string, int) {
	var content strings.Builder
	totalPages := r.NumPage()

	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		content.WriteString(text)
		content.WriteString("\n\n")
	}

	return content.String(), totalPages
}

func newSource(name, text string, pages int) *models.Source {
	return &models.Source{
		ID:         uuid.NewString(),
		Name:       name,
		Text:       text,
		CharCount:  len([]rune(text)),
		PageCount:  pages,
		IngestedAt: time.Now(),
	}
}
