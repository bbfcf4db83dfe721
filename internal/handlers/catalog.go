// internal/handlers/catalog.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

// CatalogHandler serves contract types, amount ranges and phases.
type CatalogHandler struct {
	contractTypes *services.ContractTypeService
	amountRanges  *services.AmountRangeService
	phases        *services.PhaseService
}

func NewCatalogHandler(contractTypes *services.ContractTypeService, amountRanges *services.AmountRangeService, phases *services.PhaseService) *CatalogHandler {
	return &CatalogHandler{
		contractTypes: contractTypes,
		amountRanges:  amountRanges,
		phases:        phases,
	}
}

// GET /contract-types
func (h *CatalogHandler) ListContractTypes(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))

	types, err := h.contractTypes.ListContractTypes(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"contract_types": types,
	})
}

// GET /contract-types/:code
func (h *CatalogHandler) GetContractType(c *gin.Context) {
	contractType, err := h.contractTypes.GetContractType(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, contractType)
}

// POST /contract-types
func (h *CatalogHandler) CreateContractType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ContractTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	contractType, err := h.contractTypes.CreateContractType(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyContractTypeCreated),
		"contract_type": contractType,
	})
}

// PUT /contract-types/:code
func (h *CatalogHandler) UpdateContractType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ContractTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	contractType, err := h.contractTypes.UpdateContractType(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyContractTypeUpdated),
		"contract_type": contractType,
	})
}

// DELETE /contract-types/:code
func (h *CatalogHandler) DeactivateContractType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	contractType, err := h.contractTypes.DeactivateContractType(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":       i18n.T(lang, i18n.KeyContractTypeDeactivated),
		"contract_type": contractType,
	})
}

// GET /contract-types/resolve?object_category=&amount=
func (h *CatalogHandler) ResolveContractType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	objectCategory := c.Query("object_category")
	amount, err := strconv.ParseFloat(c.Query("amount"), 64)
	if objectCategory == "" || err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "object_category/amount"), nil)
		return
	}

	resolution, err := h.contractTypes.ResolveContractType(c.Request.Context(), objectCategory, amount)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, resolution)
}

// GET /contract-types/:code/phases
func (h *CatalogHandler) GetPhaseSequence(c *gin.Context) {
	code := c.Param("code")

	sequence, err := h.phases.GetPhaseSequence(c.Request.Context(), code)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"contract_type": code,
		"phases":        sequence,
	})
}

// GET /amount-ranges
func (h *CatalogHandler) ListAmountRanges(c *gin.Context) {
	ranges, err := h.amountRanges.ListRanges(c.Request.Context(), c.Query("object_category"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"amount_ranges": ranges,
	})
}

// POST /amount-ranges
func (h *CatalogHandler) CreateAmountRange(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.AmountRangeRequest
	if !bindJSON(c, &req) {
		return
	}

	rng, err := h.amountRanges.CreateRange(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyAmountRangeCreated),
		"amount_range": rng,
	})
}

// PUT /amount-ranges/:id
func (h *CatalogHandler) UpdateAmountRange(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	rangeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.AmountRangeRequest
	if !bindJSON(c, &req) {
		return
	}

	rng, err := h.amountRanges.UpdateRange(c.Request.Context(), rangeID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyAmountRangeUpdated),
		"amount_range": rng,
	})
}

// DELETE /amount-ranges/:id
func (h *CatalogHandler) DeactivateAmountRange(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	rangeID, ok := parseID(c, "id")
	if !ok {
		return
	}

	rng, err := h.amountRanges.DeactivateRange(c.Request.Context(), rangeID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyAmountRangeDeleted),
		"amount_range": rng,
	})
}

// GET /phases
func (h *CatalogHandler) ListPhases(c *gin.Context) {
	includeInactive, _ := strconv.ParseBool(c.Query("include_inactive"))

	phases, err := h.phases.ListPhases(c.Request.Context(), includeInactive)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"phases": phases,
	})
}

// GET /phases/:code
func (h *CatalogHandler) GetPhase(c *gin.Context) {
	phase, err := h.phases.GetPhase(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, phase)
}

// POST /phases
func (h *CatalogHandler) CreatePhase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.PhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	phase, err := h.phases.CreatePhase(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPhaseCreated),
		"phase":   phase,
	})
}

// PUT /phases/:code
func (h *CatalogHandler) UpdatePhase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.PhaseRequest
	if !bindJSON(c, &req) {
		return
	}

	phase, err := h.phases.UpdatePhase(c.Request.Context(), c.Param("code"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPhaseUpdated),
		"phase":   phase,
	})
}

// DELETE /phases/:code
func (h *CatalogHandler) DeactivatePhase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	phase, err := h.phases.DeactivatePhase(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPhaseDeactivated),
		"phase":   phase,
	})
}

// PUT /phases/:code/overrides/:type
func (h *CatalogHandler) UpsertOverride(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.OverrideRequest
	if !bindJSON(c, &req) {
		return
	}

	override, err := h.phases.UpsertOverride(c.Request.Context(), c.Param("code"), c.Param("type"), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPhaseOverrideSaved),
		"override": override,
	})
}

// DELETE /phases/:code/overrides/:type
func (h *CatalogHandler) DeleteOverride(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	if err := h.phases.DeleteOverride(c.Request.Context(), c.Param("code"), c.Param("type")); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyPhaseOverrideRemoved),
	})
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, param), nil)
		return uuid.Nil, false
	}
	return id, true
}
