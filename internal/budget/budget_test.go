package budget

import (
	"testing"

	"kursgenerator/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allTypes(preset string) models.SizeSetting {
	return models.SizeSetting{
		Preset:         preset,
		EnableMCQ:      true,
		EnableOpen:     true,
		EnableRoleplay: true,
		QuotaMode:      models.QuotaModePercent,
		Percent:        models.QuotaTriple{MCQ: 60, Open: 30, Roleplay: 10},
	}
}

func TestComputeAllocation_PresetS(t *testing.T) {
	alloc, err := ComputeAllocation(allTypes(models.PresetS))
	require.NoError(t, err)

	assert.Equal(t, 12, alloc.Total)
	assert.Equal(t, 2, alloc.ModuleCount)
	assert.Equal(t, models.QuotaTriple{MCQ: 7, Open: 4, Roleplay: 1}, alloc.Quota)
	assert.Equal(t, 12, alloc.Quota.Sum())
	assert.LessOrEqual(t, alloc.Quota.Roleplay, alloc.ModuleCount)
	assert.Equal(t, []int{6, 6}, alloc.PerModule)
}

func TestComputeAllocation_PresetM_OnlyMCQ(t *testing.T) {
	setting := models.SizeSetting{
		Preset:    models.PresetM,
		EnableMCQ: true,
		QuotaMode: models.QuotaModePercent,
		Percent:   models.QuotaTriple{MCQ: 60, Open: 30, Roleplay: 10},
	}

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)

	assert.Equal(t, models.QuotaTriple{MCQ: 24, Open: 0, Roleplay: 0}, alloc.Quota)
	assert.Equal(t, 4, alloc.ModuleCount)
}

func TestComputeAllocation_SumInvariantAcrossSettings(t *testing.T) {
	percents := []models.QuotaTriple{
		{MCQ: 60, Open: 30, Roleplay: 10},
		{MCQ: 33, Open: 33, Roleplay: 34},
		{MCQ: 100, Open: 0, Roleplay: 0},
		{MCQ: 1, Open: 1, Roleplay: 98},
		{MCQ: 0, Open: 0, Roleplay: 0},
	}
	presets := []string{models.PresetS, models.PresetM, models.PresetL, models.PresetXL}

	for _, p := range presets {
		for _, pct := range percents {
			setting := allTypes(p)
			setting.Percent = pct

			alloc, err := ComputeAllocation(setting)
			require.NoError(t, err, "preset %s percent %+v", p, pct)

			assert.Equal(t, alloc.Total, alloc.Quota.Sum(), "preset %s percent %+v", p, pct)
			assert.LessOrEqual(t, alloc.Quota.Roleplay, alloc.ModuleCount, "preset %s percent %+v", p, pct)

			sum := 0
			for _, m := range alloc.PerModule {
				sum += m
			}
			assert.Equal(t, alloc.Total, sum)
		}
	}
}

func TestComputeAllocation_RoleplayCapOverflowGoesToMCQ(t *testing.T) {
	setting := allTypes(models.PresetS)
	setting.Percent = models.QuotaTriple{MCQ: 10, Open: 10, Roleplay: 80}

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)

	// 80% von 12 wären 10 Rollenspiele; Deckel ist die Modulanzahl 2,
	// der Überschuss landet vollständig bei Multiple-Choice
	assert.Equal(t, 2, alloc.Quota.Roleplay)
	assert.Equal(t, 12, alloc.Quota.Sum())
	assert.GreaterOrEqual(t, alloc.Quota.MCQ, 8)
}

func TestComputeAllocation_MinimumPerEnabledType(t *testing.T) {
	setting := allTypes(models.PresetM)
	setting.Percent = models.QuotaTriple{MCQ: 98, Open: 1, Roleplay: 1}

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, alloc.Quota.MCQ, 1)
	assert.GreaterOrEqual(t, alloc.Quota.Open, 1)
	assert.GreaterOrEqual(t, alloc.Quota.Roleplay, 1)
	assert.Equal(t, 24, alloc.Quota.Sum())
}

func TestComputeAllocation_ExplicitCounts(t *testing.T) {
	setting := models.SizeSetting{
		Preset:         models.PresetS,
		EnableMCQ:      true,
		EnableOpen:     true,
		EnableRoleplay: true,
		QuotaMode:      models.QuotaModeCounts,
		Counts:         models.QuotaTriple{MCQ: 8, Open: 3, Roleplay: 1},
	}

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)
	assert.Equal(t, models.QuotaTriple{MCQ: 8, Open: 3, Roleplay: 1}, alloc.Quota)
}

func TestComputeAllocation_InvalidSettings(t *testing.T) {
	base := models.SizeSetting{
		Preset:         models.PresetS,
		EnableMCQ:      true,
		EnableOpen:     true,
		EnableRoleplay: true,
		QuotaMode:      models.QuotaModeCounts,
	}

	t.Run("Summe passt nicht zum Total", func(t *testing.T) {
		s := base
		s.Counts = models.QuotaTriple{MCQ: 5, Open: 5, Roleplay: 5}
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("Anzahl für deaktivierten Typ", func(t *testing.T) {
		s := base
		s.EnableRoleplay = false
		s.Counts = models.QuotaTriple{MCQ: 8, Open: 3, Roleplay: 1}
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("negative Anzahl", func(t *testing.T) {
		s := base
		s.Counts = models.QuotaTriple{MCQ: 14, Open: -1, Roleplay: -1}
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("kein Typ aktiviert", func(t *testing.T) {
		s := models.SizeSetting{Preset: models.PresetS, QuotaMode: models.QuotaModePercent}
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("unbekanntes Preset", func(t *testing.T) {
		s := allTypes("XXL")
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("custom ohne Gesamtzahl", func(t *testing.T) {
		s := allTypes(models.PresetCustom)
		_, err := ComputeAllocation(s)
		var invalid *InvalidSettingError
		require.ErrorAs(t, err, &invalid)
	})
}

func TestComputeAllocation_CustomTotal(t *testing.T) {
	setting := allTypes(models.PresetCustom)
	setting.CustomTotal = 30

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)

	assert.Equal(t, 30, alloc.Total)
	assert.Equal(t, 5, alloc.ModuleCount)
	assert.Equal(t, 30, alloc.Quota.Sum())
	assert.Equal(t, []int{6, 6, 6, 6, 6}, alloc.PerModule)
}

func TestComputeAllocation_Deterministic(t *testing.T) {
	setting := allTypes(models.PresetL)
	setting.Percent = models.QuotaTriple{MCQ: 47, Open: 31, Roleplay: 22}

	first, err := ComputeAllocation(setting)
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		again, err := ComputeAllocation(setting)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeAllocation_UnevenModuleDistribution(t *testing.T) {
	setting := allTypes(models.PresetCustom)
	setting.CustomTotal = 20

	alloc, err := ComputeAllocation(setting)
	require.NoError(t, err)

	// 20 Items auf 3 Module: die ersten Module bekommen den Rest
	assert.Equal(t, 3, alloc.ModuleCount)
	assert.Equal(t, []int{7, 7, 6}, alloc.PerModule)
}
