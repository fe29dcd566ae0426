// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Authentication
	KeyAuthRequired      = "auth.required"
	KeyAuthInvalidToken  = "auth.invalid_token"
	KeyAdminAccessDenied = "admin.access_denied"
	KeyAccessDenied      = "access.denied"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Resources
	KeyApplicationNotFound = "application.not_found"
	KeyPaymentNotFound     = "payment.not_found"
	KeyStatusNotFound      = "status.not_found"

	// Workflow
	KeyInvalidTransition  = "workflow.invalid_transition"
	KeyPaymentIncomplete  = "workflow.payment_incomplete"
	KeyMissingMemo        = "workflow.missing_memo"
	KeyUnmappedStage      = "workflow.unmapped_stage"
	KeyUnsupportedStatus  = "workflow.unsupported_status"
	KeyConcurrentUpdate   = "workflow.concurrent_update"
	KeyTransitionApplied  = "workflow.transition_applied"
	KeyApplicationCreated = "application.created"

	// Payments
	KeyPaymentNotQuoted   = "payment.not_quoted"
	KeyPaymentSettled     = "payment.settled"
	KeyPaymentOverpaid    = "payment.overpaid"
	KeyPaymentInvalid     = "payment.invalid_amount"
	KeyPaymentStageExists = "payment.stage_exists"
	KeyGatewayDisabled    = "payment.gateway_disabled"
	KeyWebhookInvalid     = "payment.webhook_invalid"

	// Notifications
	KeyDispatchFailed = "notification.dispatch_failed"

	// System
	KeyRateLimited   = "system.rate_limited"
	KeyInternalError = "system.internal_error"
)
