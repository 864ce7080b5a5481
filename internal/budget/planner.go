package budget

import (
	"fmt"
	"math"

	"kursgenerator/internal/models"
)

// DefaultBatchSize ist die Obergrenze an Items pro LLM-Aufruf
const DefaultBatchSize = 6

// Plan zerlegt eine Allocation in eine geordnete Batch-Folge. Jeder Batch
// außer dem letzten erhält höchstens batchSize Items, anteilig nach dem
// verbleibenden Typ-Pool. Der letzte Batch übernimmt den kompletten Rest
// wortwörtlich — so rekonstruiert die Summe aller Batches die Allocation
// exakt, ohne dass Rundungen über viele Batches aufgehen müssen.
func Plan(alloc *models.Allocation, batchSize int) []models.BatchPlan {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if alloc.Total <= 0 {
		return nil
	}

	batchCount := (alloc.Total + batchSize - 1) / batchSize
	remaining := alloc.Quota
	remainingTotal := alloc.Total

	plans := make([]models.BatchPlan, 0, batchCount)
	for i := 0; i < batchCount; i++ {
		plan := models.BatchPlan{
			Index:      i,
			BatchCount: batchCount,
		}

		if i == batchCount-1 {
			plan.ItemCount = remainingTotal
			plan.Quota = remaining
		} else {
			plan.ItemCount = batchSize
			if remainingTotal < batchSize {
				plan.ItemCount = remainingTotal
			}
			plan.Quota = proportionalShare(remaining, remainingTotal, plan.ItemCount)
		}

		remaining.MCQ -= plan.Quota.MCQ
		remaining.Open -= plan.Quota.Open
		remaining.Roleplay -= plan.Quota.Roleplay
		remainingTotal -= plan.ItemCount

		plans = append(plans, plan)
	}

	return plans
}

// proportionalShare verteilt itemCount anteilig nach dem Restpool pro Typ,
// gerundet und auf den Restbestand gedeckelt. Rundungsdifferenzen werden in
// fester Reihenfolge (MCQ, offen, Rollenspiel) bei Typen mit Spielraum
// ausgeglichen.
func proportionalShare(remaining models.QuotaTriple, remainingTotal, itemCount int) models.QuotaTriple {
	rem := [3]int{remaining.MCQ, remaining.Open, remaining.Roleplay}
	var share [3]int

	for t := 0; t < 3; t++ {
		share[t] = int(math.Round(float64(itemCount) * float64(rem[t]) / float64(remainingTotal)))
		if share[t] > rem[t] {
			share[t] = rem[t]
		}
	}

	diff := itemCount - (share[0] + share[1] + share[2])
	for t := 0; t < 3 && diff != 0; t++ {
		if diff > 0 {
			slack := rem[t] - share[t]
			if slack > diff {
				slack = diff
			}
			share[t] += slack
			diff -= slack
		} else {
			take := -diff
			if take > share[t] {
				take = share[t]
			}
			share[t] -= take
			diff += take
		}
	}

	return models.QuotaTriple{MCQ: share[0], Open: share[1], Roleplay: share[2]}
}

// VerifyPlan prüft die Rekonstruktions-Invariante: die Summen über alle
// Batches müssen die Allocation feldweise exakt reproduzieren
func VerifyPlan(alloc *models.Allocation, plans []models.BatchPlan) error {
	var total int
	var quota models.QuotaTriple
	for _, p := range plans {
		total += p.ItemCount
		quota.MCQ += p.Quota.MCQ
		quota.Open += p.Quota.Open
		quota.Roleplay += p.Quota.Roleplay
	}
	if total != alloc.Total || quota != alloc.Quota {
		return fmt.Errorf("batch-plan rekonstruiert die Allocation nicht: total %d/%d, quota %+v/%+v",
			total, alloc.Total, quota, alloc.Quota)
	}
	return nil
}
