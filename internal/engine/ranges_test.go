package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/municipal/procurement-backend/internal/models"
)

func goodsRanges() []models.AmountRange {
	return []models.AmountRange{
		amountRange("goods", "INFIMA_CUANTIA", 0, money(7212.60), 1),
		amountRange("goods", "MENOR_CUANTIA", 7212.61, money(72126.04), 1),
		amountRange("goods", "COTIZACION", 72126.05, money(540945.29), 1),
		amountRange("goods", "LICITACION", 540945.30, nil, 1),
		amountRange("works", "MENOR_CUANTIA_OBRAS", 0, money(252441.13), 1),
	}
}

func TestResolveTypesForAmount_Scenario(t *testing.T) {
	resolver := NewAmountRangeResolver(goodsRanges())

	assert.Equal(t, []string{"INFIMA_CUANTIA"}, resolver.ResolveTypesForAmount("goods", 5000))
	assert.Equal(t, []string{"MENOR_CUANTIA"}, resolver.ResolveTypesForAmount("goods", 7212.61))
	assert.Equal(t, []string{"LICITACION"}, resolver.ResolveTypesForAmount("goods", 10_000_000))
}

func TestResolveTypesForAmount_InclusiveBounds(t *testing.T) {
	resolver := NewAmountRangeResolver(goodsRanges())

	tests := []struct {
		amount float64
		want   string
	}{
		{0, "INFIMA_CUANTIA"},
		{7212.60, "INFIMA_CUANTIA"},
		{72126.04, "MENOR_CUANTIA"},
		{72126.05, "COTIZACION"},
		{540945.29, "COTIZACION"},
		{540945.30, "LICITACION"},
	}
	for _, tt := range tests {
		assert.Equal(t, []string{tt.want}, resolver.ResolveTypesForAmount("goods", tt.amount), "amount %.2f", tt.amount)
	}
}

func TestResolveTypesForAmount_NoMatch(t *testing.T) {
	resolver := NewAmountRangeResolver(goodsRanges())

	assert.Empty(t, resolver.ResolveTypesForAmount("consulting", 100))
	assert.Empty(t, resolver.ResolveTypesForAmount("works", 300000))
	assert.Empty(t, resolver.ResolveTypesForAmount("goods", -1))
}

func TestResolveTypesForAmount_IgnoresInactiveAndRanksByPriority(t *testing.T) {
	inactive := amountRange("services", "OLD", 0, nil, 0)
	inactive.IsActive = false
	resolver := NewAmountRangeResolver([]models.AmountRange{
		inactive,
		amountRange("services", "SECOND", 0, money(1000), 5),
		amountRange("services", "FIRST", 0, money(1000), 1),
		amountRange("services", "FIRST", 500, money(2000), 9),
	})

	assert.Equal(t, []string{"FIRST", "SECOND"}, resolver.ResolveTypesForAmount("services", 600))
}

func TestDetectOverlaps(t *testing.T) {
	existing := amountRange("goods", "A", 0, money(100), 1)
	resolver := NewAmountRangeResolver([]models.AmountRange{existing})

	t.Run("overlapping different type", func(t *testing.T) {
		conflicts := resolver.DetectOverlaps("goods", "B", 50, money(200), nil)
		require.Len(t, conflicts, 1)
		assert.Equal(t, "A", conflicts[0].ContractTypeCode)
	})

	t.Run("adjacent intervals", func(t *testing.T) {
		assert.Empty(t, resolver.DetectOverlaps("goods", "B", 100.01, money(200), nil))
	})

	t.Run("shared boundary point", func(t *testing.T) {
		assert.NotEmpty(t, resolver.DetectOverlaps("goods", "B", 100, money(200), nil))
	})

	t.Run("same type is allowed", func(t *testing.T) {
		assert.Empty(t, resolver.DetectOverlaps("goods", "A", 50, money(200), nil))
	})

	t.Run("other category", func(t *testing.T) {
		assert.Empty(t, resolver.DetectOverlaps("works", "B", 50, money(200), nil))
	})

	t.Run("unbounded candidate", func(t *testing.T) {
		assert.NotEmpty(t, resolver.DetectOverlaps("goods", "B", 99, nil, nil))
		assert.Empty(t, resolver.DetectOverlaps("goods", "B", 101, nil, nil))
	})

	t.Run("excluded id", func(t *testing.T) {
		assert.Empty(t, resolver.DetectOverlaps("goods", "B", 50, money(200), &existing.ID))
	})
}

func TestRangesOverlap_BothUnbounded(t *testing.T) {
	assert.True(t, RangesOverlap(0, nil, 1_000_000, nil))
}

func TestCheckRange(t *testing.T) {
	resolver := NewAmountRangeResolver([]models.AmountRange{amountRange("goods", "TA", 0, money(100), 1)})

	candidate := amountRange("goods", "TB", 50, money(200), 1)
	err := resolver.CheckRange(&candidate)
	require.Error(t, err)
	assert.Equal(t, KindConfiguration, KindOf(err))
	var cerr *ConfigError
	require.True(t, errors.As(err, &cerr))
	assert.True(t, cerr.Has(IssueConfigConflict))

	inverted := amountRange("goods", "TB", 500, money(200), 1)
	err = resolver.CheckRange(&inverted)
	assert.Equal(t, KindValidation, KindOf(err))

	badCode := amountRange("goods", "lower", 500, nil, 1)
	assert.Equal(t, KindValidation, KindOf(resolver.CheckRange(&badCode)))

	inactive := amountRange("goods", "TB", 50, money(200), 1)
	inactive.IsActive = false
	assert.NoError(t, resolver.CheckRange(&inactive))
}

func TestResolveContractType(t *testing.T) {
	menor := contractType("MENOR_CUANTIA")
	menor.ObjectCategories = []string{"goods", "services"}
	retired := contractType("INFIMA_CUANTIA")
	retired.IsActive = false
	fallback := contractType("REGIMEN_ESPECIAL")
	types := NewContractTypeCatalog([]models.ContractType{menor, retired, fallback})
	resolver := NewAmountRangeResolver(goodsRanges())

	code, ok := ResolveContractType(resolver, types, "goods", 8000, "")
	assert.True(t, ok)
	assert.Equal(t, "MENOR_CUANTIA", code)

	code, ok = ResolveContractType(resolver, types, "goods", 100, "REGIMEN_ESPECIAL")
	assert.True(t, ok)
	assert.Equal(t, "REGIMEN_ESPECIAL", code, "inactive match falls back")

	_, ok = ResolveContractType(resolver, types, "consulting", 100, "")
	assert.False(t, ok)

	_, ok = ResolveContractType(resolver, types, "consulting", 100, "UNKNOWN")
	assert.False(t, ok)
}
