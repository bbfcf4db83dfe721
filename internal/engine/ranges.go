// internal/engine/ranges.go
package engine

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/models"
)

// AmountRangeResolver maps (object category, amount) to contract types over
// a snapshot of the configured ranges.
type AmountRangeResolver struct {
	ranges []models.AmountRange
}

func NewAmountRangeResolver(ranges []models.AmountRange) *AmountRangeResolver {
	return &AmountRangeResolver{ranges: ranges}
}

// RangeContains reports whether amount lies in [min, max]; a nil max is unbounded.
func RangeContains(r models.AmountRange, amount float64) bool {
	if amount < r.MinAmount {
		return false
	}
	return r.MaxAmount == nil || amount <= *r.MaxAmount
}

// RangesOverlap reports whether two inclusive intervals share at least one
// point. Nil upper bounds are +Inf.
func RangesOverlap(aMin float64, aMax *float64, bMin float64, bMax *float64) bool {
	aBeforeB := aMax != nil && *aMax < bMin
	aAfterB := bMax != nil && aMin > *bMax
	return !aBeforeB && !aAfterB
}

// ResolveTypesForAmount returns the codes of the active ranges covering
// amount, ranked by ascending priority. An empty result is not an error.
func (r *AmountRangeResolver) ResolveTypesForAmount(objectCategory string, amount float64) []string {
	matches := make([]models.AmountRange, 0)
	for _, rng := range r.ranges {
		if !rng.IsActive || rng.ObjectCategory != objectCategory {
			continue
		}
		if RangeContains(rng, amount) {
			matches = append(matches, rng)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority < matches[j].Priority
		}
		return matches[i].ContractTypeCode < matches[j].ContractTypeCode
	})

	codes := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		if seen[m.ContractTypeCode] {
			continue
		}
		seen[m.ContractTypeCode] = true
		codes = append(codes, m.ContractTypeCode)
	}
	return codes
}

// DetectOverlaps returns the active ranges of objectCategory that overlap
// [minAmount, maxAmount] and map to a different contract type. Overlaps with
// the same type are redundant but allowed, so they are not returned.
func (r *AmountRangeResolver) DetectOverlaps(objectCategory, contractTypeCode string, minAmount float64, maxAmount *float64, excludeID *uuid.UUID) []models.AmountRange {
	var conflicts []models.AmountRange
	for _, rng := range r.ranges {
		if !rng.IsActive || rng.ObjectCategory != objectCategory {
			continue
		}
		if excludeID != nil && rng.ID == *excludeID {
			continue
		}
		if rng.ContractTypeCode == contractTypeCode {
			continue
		}
		if RangesOverlap(minAmount, maxAmount, rng.MinAmount, rng.MaxAmount) {
			conflicts = append(conflicts, rng)
		}
	}
	return conflicts
}

// CheckRange validates a candidate range and rejects it when it conflicts
// with ranges of another type.
func (r *AmountRangeResolver) CheckRange(candidate *models.AmountRange) error {
	if err := ValidateRange(candidate); err != nil {
		return err
	}
	if !candidate.IsActive {
		return nil
	}

	var exclude *uuid.UUID
	if candidate.ID != uuid.Nil {
		exclude = &candidate.ID
	}
	conflicts := r.DetectOverlaps(candidate.ObjectCategory, candidate.ContractTypeCode, candidate.MinAmount, candidate.MaxAmount, exclude)
	if len(conflicts) == 0 {
		return nil
	}

	issues := make([]Issue, 0, len(conflicts))
	for _, c := range conflicts {
		issues = append(issues, overlapIssue(*candidate, c))
	}
	return newConfigError(issues...)
}

// ValidateRange checks a range in isolation.
func ValidateRange(rng *models.AmountRange) error {
	verr := &ValidationError{}
	if rng.ObjectCategory == "" {
		verr.add("object_category", "is required")
	}
	if !IsValidTypeCode(rng.ContractTypeCode) {
		verr.add("contract_type_code", "must be 2-20 uppercase letters, digits or underscores")
	}
	if rng.MinAmount < 0 {
		verr.add("min_amount", "must not be negative")
	}
	if rng.MaxAmount != nil && *rng.MaxAmount < rng.MinAmount {
		verr.add("max_amount", "must be greater than or equal to min_amount")
	}
	return verr.orNil()
}

func overlapIssue(a, b models.AmountRange) Issue {
	return Issue{
		Code: IssueConfigConflict,
		Message: fmt.Sprintf("%s range %s for %s overlaps %s range %s",
			a.ObjectCategory, formatInterval(a), a.ContractTypeCode, b.ContractTypeCode, formatInterval(b)),
		Refs: []string{a.ContractTypeCode, b.ContractTypeCode},
	}
}

func formatInterval(r models.AmountRange) string {
	if r.MaxAmount == nil {
		return fmt.Sprintf("[%.2f, +inf)", r.MinAmount)
	}
	return fmt.Sprintf("[%.2f, %.2f]", r.MinAmount, *r.MaxAmount)
}
