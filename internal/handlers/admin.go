// internal/handlers/admin.go
package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

type AdminHandler struct {
	integrityService    *services.IntegrityService
	notificationService *services.NotificationService
	permissionService   *services.PermissionService
	now                 func() time.Time
}

func NewAdminHandler(integrityService *services.IntegrityService, notificationService *services.NotificationService, permissionService *services.PermissionService) *AdminHandler {
	return &AdminHandler{
		integrityService:    integrityService,
		notificationService: notificationService,
		permissionService:   permissionService,
		now:                 time.Now,
	}
}

// GET /admin/catalog/integrity
func (h *AdminHandler) CatalogIntegrity(c *gin.Context) {
	issues, err := h.integrityService.ValidateCatalogIntegrity(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"valid":  len(issues) == 0,
		"issues": issues,
	})
}

// POST /admin/notifications/scan
func (h *AdminHandler) ScanNotifications(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	result, err := h.notificationService.ScanDueNotifications(c.Request.Context(), h.now())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyNotificationsScanned),
		"result":  result,
	})
}

// GET /admin/notifications
func (h *AdminHandler) ListPendingNotifications(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	notifications, err := h.notificationService.ListPending(c.Request.Context(), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"notifications": notifications,
	})
}

// GET /admin/departments
func (h *AdminHandler) ListDepartments(c *gin.Context) {
	departments, err := h.permissionService.ListDepartments(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"departments": departments,
	})
}

// POST /admin/departments/:id/permissions
func (h *AdminHandler) GrantPermission(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	departmentID, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req services.GrantPermissionRequest
	if !bindJSON(c, &req) {
		return
	}

	perm, err := h.permissionService.GrantPermission(c.Request.Context(), departmentID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":    i18n.T(lang, i18n.KeySuccess),
		"permission": perm,
	})
}
