// internal/handlers/contract.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/models"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

type ContractHandler struct {
	contractService *services.ContractService
}

func NewContractHandler(contractService *services.ContractService) *ContractHandler {
	return &ContractHandler{
		contractService: contractService,
	}
}

// POST /contracts
func (h *ContractHandler) CreateContract(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}

	var req services.CreateContractRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.CreateContract(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyContractCreated),
		"contract": contract,
	})
}

// GET /contracts
func (h *ContractHandler) ListContracts(c *gin.Context) {
	actor, ok := actor(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	filter := repository.ContractFilter{
		ContractTypeCode: c.Query("contract_type"),
		GeneralStatus:    models.GeneralStatus(c.Query("status")),
		Search:           params.Search,
	}
	if departmentIDStr := c.Query("department_id"); departmentIDStr != "" {
		if departmentID, err := uuid.Parse(departmentIDStr); err == nil {
			filter.DepartmentID = &departmentID
		}
	}

	contracts, total, err := h.contractService.ListContracts(c.Request.Context(), actor, filter, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(contracts, total, params)
	utils.PaginatedResponse(c, result)
}

// GET /contracts/:id
func (h *ContractHandler) GetContract(c *gin.Context) {
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	contract, err := h.contractService.GetContract(c.Request.Context(), actor, contractID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, contract)
}

// GET /contracts/:id/progress
func (h *ContractHandler) GetProgress(c *gin.Context) {
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	report, err := h.contractService.GetProgress(c.Request.Context(), actor, contractID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, report)
}

// PUT /contracts/:id/status
func (h *ContractHandler) UpdateStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.UpdateGeneralStatus(c.Request.Context(), actor, contractID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyStatusUpdated),
		"contract": contract,
	})
}

// POST /contracts/:id/phases/:phase/start
func (h *ContractHandler) StartPhase(c *gin.Context) {
	h.transition(c, i18n.KeyPhaseStarted, func(actor services.Actor, contractID uuid.UUID) (*services.PhaseTransitionResult, error) {
		return h.contractService.StartPhase(c.Request.Context(), actor, contractID, c.Param("phase"))
	})
}

// POST /contracts/:id/phases/:phase/complete
func (h *ContractHandler) CompletePhase(c *gin.Context) {
	h.transition(c, i18n.KeyPhaseCompleted, func(actor services.Actor, contractID uuid.UUID) (*services.PhaseTransitionResult, error) {
		return h.contractService.CompletePhase(c.Request.Context(), actor, contractID, c.Param("phase"))
	})
}

// POST /contracts/:id/phases/:phase/cancel
func (h *ContractHandler) CancelPhase(c *gin.Context) {
	var req struct {
		Reason string `json:"reason,omitempty"`
	}
	// The body is optional.
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}

	h.transition(c, i18n.KeyPhaseCancelled, func(actor services.Actor, contractID uuid.UUID) (*services.PhaseTransitionResult, error) {
		return h.contractService.CancelPhase(c.Request.Context(), actor, contractID, c.Param("phase"), req.Reason)
	})
}

// POST /contracts/:id/advance
func (h *ContractHandler) AdvancePhase(c *gin.Context) {
	h.transition(c, i18n.KeyPhaseAdvanced, func(actor services.Actor, contractID uuid.UUID) (*services.PhaseTransitionResult, error) {
		return h.contractService.AdvanceToNextPhase(c.Request.Context(), actor, contractID)
	})
}

// PUT /contracts/:id/phases/:phase/progress
func (h *ContractHandler) UpdateProgress(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req struct {
		CompletionPercentage float64 `json:"completion_percentage"`
	}
	if !bindJSON(c, &req) {
		return
	}

	contract, err := h.contractService.UpdatePhaseProgress(c.Request.Context(), actor, contractID, c.Param("phase"), req.CompletionPercentage)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeySuccess),
		"contract": contract,
	})
}

func (h *ContractHandler) transition(c *gin.Context, messageKey string, fn func(services.Actor, uuid.UUID) (*services.PhaseTransitionResult, error)) {
	lang := utils.GetLangFromContext(c)
	actor, ok := actor(c)
	if !ok {
		return
	}
	contractID, ok := parseID(c, "id")
	if !ok {
		return
	}

	result, err := fn(actor, contractID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":    i18n.T(lang, messageKey),
		"contract":   result.Contract,
		"completion": result.Completion,
	})
}
