package segment

import (
	"regexp"
	"sort"
	"strings"

	"kursgenerator/internal/models"
)

// MaxKeywords begrenzt die Anzahl der Suchbegriffe pro Anfrage
const MaxKeywords = 10

// ScoredSegment ist ein Segment mit seinem lexikalischen Relevanzwert
type ScoredSegment struct {
	Segment models.Segment `json:"segment"`
	Score   int            `json:"score"`
}

// Stoppwörter (deutsch + englisch), tragen keine Relevanzinformation
var stopWords = map[string]bool{
	"der": true, "die": true, "das": true, "und": true, "oder": true,
	"ein": true, "eine": true, "einer": true, "eines": true, "einem": true,
	"einen": true, "mit": true, "von": true, "für": true, "auf": true,
	"aus": true, "bei": true, "nach": true, "über": true, "unter": true,
	"sind": true, "ist": true, "war": true, "wird": true, "werden": true,
	"nicht": true, "auch": true, "als": true, "wie": true, "was": true,
	"dass": true, "dem": true, "den": true, "des": true, "sich": true,
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"this": true, "that": true, "are": true, "were": true, "will": true,
	"have": true, "has": true, "not": true, "but": true, "its": true,
	"can": true, "all": true, "any": true, "about": true, "into": true,
}

var nonWordRe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// ExtractKeywords normalisiert die Anfrage zu maximal MaxKeywords
// Suchbegriffen: kleingeschrieben, ohne Satzzeichen, ohne Kurztoken
// (≤2 Zeichen) und ohne Stoppwörter
func ExtractKeywords(query string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(query), " ")

	var keywords []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) <= 2 || stopWords[tok] {
			continue
		}
		keywords = append(keywords, tok)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// Retrieve bewertet alle Segmente gegen die Anfrage und liefert die topK
// relevantesten. Substring-Treffer zählen doppelt, Ganzwort-Treffer dreifach.
// Bei Gleichstand bleibt die ursprüngliche Reihenfolge erhalten. Ohne
// verwertbare Suchbegriffe kommen die ersten topK Segmente mit Score 0 zurück.
func Retrieve(query string, segments []models.Segment, topK int) []ScoredSegment {
	if topK <= 0 || len(segments) == 0 {
		return nil
	}

	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		n := topK
		if n > len(segments) {
			n = len(segments)
		}
		scored := make([]ScoredSegment, 0, n)
		for _, seg := range segments[:n] {
			scored = append(scored, ScoredSegment{Segment: seg})
		}
		return scored
	}

	wordRes := make([]*regexp.Regexp, len(keywords))
	for i, kw := range keywords {
		wordRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`)
	}

	scored := make([]ScoredSegment, 0, len(segments))
	for _, seg := range segments {
		lower := strings.ToLower(seg.Text)
		score := 0
		for i, kw := range keywords {
			score += 2 * strings.Count(lower, kw)
			score += 3 * len(wordRes[i].FindAllStringIndex(lower, -1))
		}
		scored = append(scored, ScoredSegment{Segment: seg, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
