package engine

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/municipal/procurement-backend/internal/models"
)

func issueCodes(issues []Issue) []IssueCode {
	codes := make([]IssueCode, 0, len(issues))
	for _, issue := range issues {
		codes = append(codes, issue.Code)
	}
	return codes
}

func TestValidateCatalogIntegrity_Clean(t *testing.T) {
	snapshot := CatalogSnapshot{
		Types: []models.ContractType{
			contractType("INFIMA_CUANTIA"),
			contractType("MENOR_CUANTIA"),
			contractType("COTIZACION"),
			contractType("LICITACION"),
			contractType("MENOR_CUANTIA_OBRAS"),
		},
		Ranges: goodsRanges(),
		Phases: menorCuantiaPhases(),
	}

	assert.Empty(t, ValidateCatalogIntegrity(snapshot))
}

func TestValidateCatalogIntegrity_ReportsEveryProblem(t *testing.T) {
	retired := contractType("RETIRED")
	retired.IsActive = false
	snapshot := CatalogSnapshot{
		Types: []models.ContractType{contractType("A1"), contractType("B1"), retired},
		Ranges: []models.AmountRange{
			amountRange("goods", "A1", 0, money(100), 1),
			amountRange("goods", "B1", 50, money(200), 1),
			amountRange("goods", "RETIRED", 500, nil, 1),
		},
		Phases: []models.ContractPhase{
			newPhase("P1", 1, models.PhaseCategoryPlanning, requires("P2", models.DependencyStatusCompleted), forTypes("A1")),
			newPhase("P2", 1, models.PhaseCategoryPlanning, requires("P1", models.DependencyStatusCompleted), forTypes("A1", "GHOST")),
			newPhase("P3", 2, models.PhaseCategoryCall, blockedBy("MISSING"), withDocs(doc("X", true), doc("X", true)), forTypes("B1")),
		},
	}

	codes := issueCodes(ValidateCatalogIntegrity(snapshot))

	for _, want := range []IssueCode{
		IssueConfigConflict,
		IssueUnknownContractType,
		IssueDuplicateOrder,
		IssueDuplicateDocumentCode,
		IssueOrphanedDependency,
		IssueCyclicDependency,
		IssueDependencyOrder,
	} {
		assert.Contains(t, codes, want)
	}
	assert.True(t, sort.SliceIsSorted(codes, func(i, j int) bool { return codes[i] < codes[j] }), "issues are sorted by code")
}
