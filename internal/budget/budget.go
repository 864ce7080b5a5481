package budget

import (
	"fmt"
	"math"

	"kursgenerator/internal/models"
)

// InvalidSettingError meldet widersprüchliche Budget-Eingaben. Der Fehler
// ist endgültig — es gibt keinen Retry auf dieser Ebene.
type InvalidSettingError struct {
	Reason string
}

func (e *InvalidSettingError) Error() string {
	return "ungültige Größeneinstellung: " + e.Reason
}

// preset definiert Gesamtzahl und Modulanzahl eines festen Umfangs
type preset struct {
	Total       int
	ModuleCount int
}

var presets = map[string]preset{
	models.PresetS:  {Total: 12, ModuleCount: 2},
	models.PresetM:  {Total: 24, ModuleCount: 4},
	models.PresetL:  {Total: 36, ModuleCount: 6},
	models.PresetXL: {Total: 48, ModuleCount: 8},
}

// Heuristik für benutzerdefinierte Gesamtzahlen
const (
	itemsPerModule = 6
	maxModules     = 12
)

// Kompensationsreihenfolge für Rundungsdifferenzen und Minimum-Bumps.
// Bewusst fix (MCQ zuerst), damit identische Eingaben immer identische
// Allokationen ergeben.
var typePriority = [3]models.ItemKind{
	models.KindMultipleChoice,
	models.KindOpen,
	models.KindRoleplay,
}

// ComputeAllocation löst eine SizeSetting in einen exakten Generierungsplan
// auf. Invarianten des Ergebnisses:
//
//	Quota.Sum() == Total
//	sum(PerModule) == Total
//	Quota.Roleplay <= ModuleCount (höchstens ein Rollenspiel pro Modul)
func ComputeAllocation(setting models.SizeSetting) (*models.Allocation, error) {
	total, moduleCount, err := resolveScope(setting)
	if err != nil {
		return nil, err
	}

	enabled := enabledKinds(setting)
	if len(enabled) == 0 {
		return nil, &InvalidSettingError{Reason: "kein Aufgabentyp aktiviert"}
	}

	var counts models.QuotaTriple
	switch setting.QuotaMode {
	case models.QuotaModeCounts:
		counts, err = resolveExplicitCounts(setting, total)
		if err != nil {
			return nil, err
		}
	case models.QuotaModePercent, "":
		counts = resolvePercentCounts(setting, total, enabled)
	default:
		return nil, &InvalidSettingError{Reason: fmt.Sprintf("unbekannter Quota-Modus %q", setting.QuotaMode)}
	}

	// Rollenspiel-Deckel: höchstens eins pro Modul, Überschuss geht immer
	// in Multiple-Choice (fixe Regel, für reproduzierbare Ergebnisse)
	if counts.Roleplay > moduleCount {
		counts.MCQ += counts.Roleplay - moduleCount
		counts.Roleplay = moduleCount
	}

	// Typ-Minimum: jeder aktivierte Typ bekommt mindestens ein Item,
	// danach wird die Kompensation erneut angewendet
	if total >= len(enabled) {
		bumped := false
		for _, kind := range enabled {
			if *countFor(&counts, kind) == 0 {
				*countFor(&counts, kind) = 1
				bumped = true
			}
		}
		if bumped {
			compensate(&counts, enabled, total)
		}
	}

	alloc := &models.Allocation{
		Total:        total,
		ModuleCount:  moduleCount,
		PerModule:    distribute(total, moduleCount),
		Quota:        counts,
		QuotaPercent: toPercent(counts, total),
	}
	return alloc, nil
}

func resolveScope(setting models.SizeSetting) (total, moduleCount int, err error) {
	if setting.Preset == models.PresetCustom {
		if setting.CustomTotal <= 0 {
			return 0, 0, &InvalidSettingError{Reason: "benutzerdefinierte Gesamtzahl muss positiv sein"}
		}
		total = setting.CustomTotal
		moduleCount = int(math.Round(float64(total) / itemsPerModule))
		if moduleCount < 1 {
			moduleCount = 1
		}
		if moduleCount > maxModules {
			moduleCount = maxModules
		}
		return total, moduleCount, nil
	}

	p, ok := presets[setting.Preset]
	if !ok {
		return 0, 0, &InvalidSettingError{Reason: fmt.Sprintf("unbekanntes Preset %q", setting.Preset)}
	}
	return p.Total, p.ModuleCount, nil
}

func enabledKinds(setting models.SizeSetting) []models.ItemKind {
	var kinds []models.ItemKind
	for _, kind := range typePriority {
		if kindEnabled(setting, kind) {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}

func kindEnabled(setting models.SizeSetting, kind models.ItemKind) bool {
	switch kind {
	case models.KindMultipleChoice:
		return setting.EnableMCQ
	case models.KindOpen:
		return setting.EnableOpen
	default:
		return setting.EnableRoleplay
	}
}

func resolveExplicitCounts(setting models.SizeSetting, total int) (models.QuotaTriple, error) {
	c := setting.Counts
	if c.MCQ < 0 || c.Open < 0 || c.Roleplay < 0 {
		return c, &InvalidSettingError{Reason: "negative Anzahl angegeben"}
	}
	if (!setting.EnableMCQ && c.MCQ > 0) ||
		(!setting.EnableOpen && c.Open > 0) ||
		(!setting.EnableRoleplay && c.Roleplay > 0) {
		return c, &InvalidSettingError{Reason: "Anzahl für deaktivierten Aufgabentyp angegeben"}
	}
	if c.Sum() != total {
		return c, &InvalidSettingError{
			Reason: fmt.Sprintf("Anzahlen summieren sich auf %d, erwartet %d", c.Sum(), total),
		}
	}
	return c, nil
}

func resolvePercentCounts(setting models.SizeSetting, total int, enabled []models.ItemKind) models.QuotaTriple {
	// Prozente deaktivierter Typen auf null setzen, Rest auf 100 renormieren
	pcts := map[models.ItemKind]float64{
		models.KindMultipleChoice: float64(setting.Percent.MCQ),
		models.KindOpen:           float64(setting.Percent.Open),
		models.KindRoleplay:       float64(setting.Percent.Roleplay),
	}
	sum := 0.0
	for _, kind := range typePriority {
		if !kindEnabled(setting, kind) {
			pcts[kind] = 0
		} else {
			sum += pcts[kind]
		}
	}
	if sum == 0 {
		// Keine verwertbaren Prozente: gleichmäßig auf aktivierte Typen
		for _, kind := range enabled {
			pcts[kind] = 100.0 / float64(len(enabled))
		}
	} else {
		for _, kind := range enabled {
			pcts[kind] = pcts[kind] * 100.0 / sum
		}
	}

	var counts models.QuotaTriple
	for _, kind := range typePriority {
		*countFor(&counts, kind) = int(math.Round(float64(total) * pcts[kind] / 100.0))
	}

	compensate(&counts, enabled, total)
	return counts
}

// compensate stellt sum(counts)==total wieder her. Die Differenz geht an den
// ersten aktivierten Typ in Prioritätsreihenfolge, der sie aufnehmen kann,
// ohne unter ein Item zu fallen — der einzige Ort, an dem Anzahlen nach dem
// Runden korrigiert werden.
func compensate(counts *models.QuotaTriple, enabled []models.ItemKind, total int) {
	diff := total - counts.Sum()
	if diff == 0 {
		return
	}
	for _, kind := range enabled {
		c := countFor(counts, kind)
		if *c+diff >= 1 || (diff > 0) {
			*c += diff
			return
		}
	}
	// Kleinstbudgets: Rest verteilt abziehen, nie unter null
	for _, kind := range enabled {
		c := countFor(counts, kind)
		take := -diff
		if take > *c {
			take = *c
		}
		*c -= take
		diff += take
		if diff == 0 {
			return
		}
	}
}

func countFor(counts *models.QuotaTriple, kind models.ItemKind) *int {
	switch kind {
	case models.KindMultipleChoice:
		return &counts.MCQ
	case models.KindOpen:
		return &counts.Open
	default:
		return &counts.Roleplay
	}
}

// distribute verteilt total möglichst gleichmäßig auf moduleCount Module;
// die ersten Module erhalten den Rest
func distribute(total, moduleCount int) []int {
	base := total / moduleCount
	remainder := total % moduleCount

	dist := make([]int, moduleCount)
	for i := range dist {
		dist[i] = base
		if i < remainder {
			dist[i]++
		}
	}
	return dist
}

func toPercent(counts models.QuotaTriple, total int) models.QuotaTriple {
	if total == 0 {
		return models.QuotaTriple{}
	}
	return models.QuotaTriple{
		MCQ:      int(math.Round(100 * float64(counts.MCQ) / float64(total))),
		Open:     int(math.Round(100 * float64(counts.Open) / float64(total))),
		Roleplay: int(math.Round(100 * float64(counts.Roleplay) / float64(total))),
	}
}
