package segment

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"

	"kursgenerator/internal/models"
)

// Fenstergrößen in Zeichen (Runen). Das letzte Segment darf kürzer als
// MinSize sein, aber nie kürzer als AbsoluteFloor.
const (
	TargetSize    = 950
	MaxSize       = 1200
	Overlap       = 200
	MinSize       = 400
	AbsoluteFloor = 50
)

// Stats zählt, wie viele Kandidaten-Slices erzeugt und wie viele davon
// als Duplikate verworfen wurden
type Stats struct {
	Candidates int
	Duplicates int
}

var (
	numberedHeadingRe = regexp.MustCompile(`^\d+(\.\d+)*[.)]?\s+\S`)
	labeledHeadingRe  = regexp.MustCompile(`^(Kapitel|Abschnitt|Teil|Lektion|Modul|Chapter|Section|Part|Unit)\b`)
	multiSpaceRe      = regexp.MustCompile(`[ \t]+`)
	multiNewlineRe    = regexp.MustCompile(`\n{3,}`)
)

// Normalize vereinheitlicht Zeilenenden und Whitespace. Alle Offsets der
// Segmente beziehen sich auf diesen normalisierten Text.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiSpaceRe.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	text = strings.Join(lines, "\n")
	text = multiNewlineRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Split zerlegt den Quelltext in überlappende, deduplizierte Segmente.
// Zweimaliges Aufrufen mit identischem Text liefert identische Segmente.
func Split(text string) ([]models.Segment, Stats) {
	var stats Stats

	norm := Normalize(text)
	if norm == "" {
		return nil, stats
	}

	runes := []rune(norm)
	length := len(runes)

	// Kurzdokument: genau ein Segment, Mindestgröße greift nicht
	if length < MinSize {
		stats.Candidates = 1
		seg := buildSegment(0, runes, 0, length)
		return []models.Segment{seg}, stats
	}

	seen := make(map[string]bool)
	var segments []models.Segment
	index := 0

	step := TargetSize - Overlap
	for start := 0; start < length; start += step {
		end := start + TargetSize
		if end >= length {
			end = length
		} else {
			end = extendToBoundary(runes, start, end)
		}

		final := end >= length
		size := end - start
		if size < MinSize && !final {
			continue
		}
		if final && size < AbsoluteFloor && len(segments) > 0 {
			// Restschnipsel ist praktisch nur Überlappung des Vorgängers
			break
		}

		stats.Candidates++
		fp := Fingerprint(string(runes[start:end]))
		if seen[fp] {
			stats.Duplicates++
			if final {
				break
			}
			continue
		}
		seen[fp] = true

		seg := buildSegment(index, runes, start, end)
		segments = append(segments, seg)
		index++

		if final {
			break
		}
	}

	return segments, stats
}

func buildSegment(index int, runes []rune, start, end int) models.Segment {
	text := string(runes[start:end])
	return models.Segment{
		Index:       index,
		Text:        text,
		Heading:     detectHeading(runes, start),
		Fingerprint: Fingerprint(text),
		CharCount:   end - start,
		WordCount:   len(strings.Fields(text)),
		StartOffset: start,
		EndOffset:   end,
	}
}

// extendToBoundary verschiebt das natürliche Fensterende auf das nächste
// Satzende innerhalb von MaxSize; gibt es keins, auf die nächste Wortgrenze
func extendToBoundary(runes []rune, start, end int) int {
	bound := start + MaxSize
	if bound > len(runes) {
		bound = len(runes)
	}

	for i := end; i < bound; i++ {
		if isSentenceEnd(runes, i) {
			return i + 1
		}
	}

	// Rückwärtssuche: vielleicht liegt ein Satzende kurz vor dem Fensterende
	for i := end - 1; i > start+MinSize; i-- {
		if isSentenceEnd(runes, i) {
			return i + 1
		}
	}

	// Wortgrenze als letzter Ausweg
	for i := end; i < bound; i++ {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}
	for i := end - 1; i > start+MinSize; i-- {
		if runes[i] == ' ' || runes[i] == '\n' {
			return i
		}
	}

	return end
}

func isSentenceEnd(runes []rune, i int) bool {
	r := runes[i]
	if r != '.' && r != '!' && r != '?' {
		return false
	}
	if i+1 >= len(runes) {
		return true
	}
	next := runes[i+1]
	return next == ' ' || next == '\n'
}

// detectHeading sucht in einem kleinen Fenster um den Segmentanfang nach
// einer Überschrift: Großbuchstabenzeile mit ≥3 Wörtern, nummerierter
// Abschnitt oder bekanntes Schlüsselwort-Präfix
func detectHeading(runes []rune, start int) string {
	from := start - 120
	if from < 0 {
		from = 0
	}
	to := start + 200
	if to > len(runes) {
		to = len(runes)
	}

	window := string(runes[from:to])
	for _, line := range strings.Split(window, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 80 {
			continue
		}
		if isAllCapsHeading(line) || numberedHeadingRe.MatchString(line) || labeledHeadingRe.MatchString(line) {
			return line
		}
	}
	return ""
}

func isAllCapsHeading(line string) bool {
	words := strings.Fields(line)
	if len(words) < 3 {
		return false
	}
	hasLetter := false
	for _, r := range line {
		switch {
		case r >= 'a' && r <= 'z', r == 'ä', r == 'ö', r == 'ü', r == 'ß':
			return false
		case (r >= 'A' && r <= 'Z') || r == 'Ä' || r == 'Ö' || r == 'Ü':
			hasLetter = true
		}
	}
	return hasLetter
}

// Fingerprint berechnet einen Dedup-Hash über den inhaltlich normalisierten
// Text (kleingeschrieben, Whitespace zusammengefasst)
func Fingerprint(text string) string {
	canon := strings.ToLower(text)
	canon = strings.Join(strings.Fields(canon), " ")

	h := fnv.New64a()
	h.Write([]byte(canon))
	return fmt.Sprintf("%016x", h.Sum64())
}

// ComplexityFactor skaliert Fragenzahlen in nicht-deterministischen
// Größenmodi: je dichter die erkannten Überschriften, desto höher der Faktor
func ComplexityFactor(segments []models.Segment) float64 {
	if len(segments) == 0 {
		return 1.0
	}
	headings := 0
	for _, seg := range segments {
		if seg.Heading != "" {
			headings++
		}
	}
	density := float64(headings) / (float64(len(segments)) * 0.15)
	if density > 1 {
		density = 1
	}
	return 1 + 0.3*density
}
