// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/municipal/procurement-backend/internal/engine"
	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

var notFoundKeys = map[string]string{
	engine.ResourceContractType: i18n.KeyContractTypeNotFound,
	engine.ResourcePhase:        i18n.KeyPhaseNotFound,
	engine.ResourceContract:     i18n.KeyContractNotFound,
	engine.ResourceAmountRange:  i18n.KeyAmountRangeNotFound,
	engine.ResourceDocument:     i18n.KeyDocumentNotFound,
	engine.ResourceDepartment:   i18n.KeyDepartmentNotFound,
}

// respondError writes the error envelope for a service error. Engine errors
// carry their own code and payload; the service errors map to 403 and 409.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var (
		permErr    *services.PermissionError
		roleErr    *services.RoleError
		unresolved *services.UnresolvedError
		statusErr  *services.StatusTransitionError
	)
	switch {
	case errors.Is(err, repository.ErrStaleWrite):
		utils.ConflictResponse(c, "STALE_WRITE", i18n.T(lang, i18n.KeyContractStaleWrite), nil)
		return
	case errors.Is(err, services.ErrApprovalLimitExceeded):
		utils.ErrorResponse(c, http.StatusForbidden, "APPROVAL_LIMIT_EXCEEDED", i18n.T(lang, i18n.KeyContractLimitExceeded), err.Error())
		return
	case errors.As(err, &roleErr):
		utils.ErrorResponse(c, http.StatusForbidden, "ROLE_NOT_ALLOWED", i18n.T(lang, i18n.KeyPhaseRoleDenied, roleErr.Phase), roleErr)
		return
	case errors.As(err, &permErr):
		utils.ErrorResponse(c, http.StatusForbidden, "PERMISSION_DENIED", i18n.T(lang, i18n.KeyAccessDenied, permErr.Action, permErr.Category), permErr)
		return
	case errors.As(err, &unresolved):
		utils.ConflictResponse(c, "CONTRACT_TYPE_UNRESOLVED", i18n.T(lang, i18n.KeyContractTypeUnresolved, unresolved.ObjectCategory, unresolved.Amount), unresolved)
		return
	case errors.As(err, &statusErr):
		utils.ConflictResponse(c, statusErr.Code(), i18n.T(lang, i18n.KeyStatusTransition, statusErr.From, statusErr.To), statusErr)
		return
	}

	code := engine.CodeOf(err)
	switch engine.KindOf(err) {
	case engine.KindValidation:
		var verr *engine.ValidationError
		errors.As(err, &verr)
		utils.ErrorResponse(c, http.StatusBadRequest, code, i18n.T(lang, i18n.KeyValidationInvalid, "input"), verr.Fields)
	case engine.KindNotFound:
		var nerr *engine.NotFoundError
		errors.As(err, &nerr)
		key, ok := notFoundKeys[nerr.Resource]
		if !ok {
			key = i18n.KeyNotFound
		}
		utils.NotFoundResponse(c, code, key, nerr)
	case engine.KindConfiguration:
		utils.ConflictResponse(c, code, i18n.T(lang, i18n.KeyConfigurationError), details(err))
	case engine.KindState:
		utils.ConflictResponse(c, code, i18n.T(lang, i18n.KeyStateError), details(err))
	default:
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// details unwraps to the typed engine error so its payload is serialized
// instead of the wrapping error.
func details(err error) interface{} {
	var target engine.Error
	if errors.As(err, &target) {
		return target
	}
	return nil
}

// bindJSON decodes the body, answering 400 itself on malformed input.
func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// actor builds the caller from the identity AuthRequired stored.
func actor(c *gin.Context) (services.Actor, bool) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return services.Actor{}, false
	}
	departmentID, _ := utils.GetDepartmentIDFromContext(c)
	role, _ := utils.GetRoleFromContext(c)
	return services.Actor{UserID: userID, DepartmentID: departmentID, Role: role}, true
}
