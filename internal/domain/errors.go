package domain

import "errors"

// Sentinel errors shared across the application and transport layers.
// The HTTP layer maps these to status codes in one place.
var (
	// ErrInvalidInput covers malformed bodies, bad month strings and
	// missing required headers.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthenticated means no configured credential matched.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrForbidden means the caller is authenticated but not allowed.
	ErrForbidden = errors.New("forbidden")

	ErrTenantNotFound = errors.New("tenant not found")
	ErrPlanNotFound   = errors.New("plan not found")
	ErrJobNotFound    = errors.New("provisioning job not found")
	ErrAgentNotFound  = errors.New("agent not found for tenant")

	// ErrTenantNotActive is returned while provisioning has not finished.
	// Clients may retry.
	ErrTenantNotActive = errors.New("tenant is not active yet")

	// ErrPlanNotUsable is returned when a tenant references a missing or
	// deactivated plan.
	ErrPlanNotUsable = errors.New("tenant plan is invalid or inactive")

	// ErrRateLimited is the per-minute fixed-window rejection.
	ErrRateLimited = errors.New("tenant rate limit exceeded")

	// ErrQuotaExceeded is the per-month quota rejection.
	ErrQuotaExceeded = errors.New("tenant monthly quota exceeded")

	// ErrMisconfigured means the deployment cannot serve the request
	// safely, for example production with no admin authentication
	// configured.
	ErrMisconfigured = errors.New("service is misconfigured")
)
