// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess  = "success"
	KeyNotFound = "not_found"

	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAuthTokenExpired  = "auth.token_expired"
	KeyAccessDenied      = "auth.access_denied"
	KeyAdminAccessDenied = "admin.access_denied"

	// Contract types and amount ranges
	KeyContractTypeCreated     = "contract_type.created"
	KeyContractTypeUpdated     = "contract_type.updated"
	KeyContractTypeDeactivated = "contract_type.deactivated"
	KeyContractTypeNotFound    = "contract_type.not_found"
	KeyContractTypeUnresolved  = "contract_type.unresolved"
	KeyAmountRangeCreated      = "amount_range.created"
	KeyAmountRangeUpdated      = "amount_range.updated"
	KeyAmountRangeDeleted      = "amount_range.deleted"
	KeyAmountRangeNotFound     = "amount_range.not_found"

	// Phases
	KeyPhaseCreated         = "phase.created"
	KeyPhaseUpdated         = "phase.updated"
	KeyPhaseDeactivated     = "phase.deactivated"
	KeyPhaseNotFound        = "phase.not_found"
	KeyPhaseOverrideSaved   = "phase.override_saved"
	KeyPhaseOverrideRemoved = "phase.override_removed"

	// Contracts
	KeyContractCreated       = "contract.created"
	KeyContractNotFound      = "contract.not_found"
	KeyContractStaleWrite    = "contract.stale_write"
	KeyContractLimitExceeded = "contract.approval_limit_exceeded"
	KeyPhaseStarted          = "contract.phase_started"
	KeyPhaseCompleted        = "contract.phase_completed"
	KeyPhaseCancelled        = "contract.phase_cancelled"
	KeyPhaseAdvanced         = "contract.phase_advanced"
	KeyPhaseRoleDenied       = "contract.phase_role_denied"
	KeyStatusUpdated         = "contract.status_updated"
	KeyStatusTransition      = "contract.invalid_status_transition"

	// Engine error families
	KeyConfigurationError = "engine.configuration_error"
	KeyStateError         = "engine.state_error"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Documents
	KeyDocumentUploaded = "document.uploaded"
	KeyDocumentDeleted  = "document.deleted"
	KeyDocumentNotFound = "document.not_found"
	KeyFileUploadFailed = "file.upload_failed"
	KeyFileTooLarge     = "file.too_large"

	// Departments
	KeyDepartmentNotFound = "department.not_found"

	// Notifications
	KeyNotificationsScanned = "notification.scanned"

	// Rate limiting
	KeyRateLimitExceeded = "rate_limit.exceeded"
)
