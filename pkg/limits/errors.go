package limits

import "errors"

// Domain errors for limit operations. A limit being exceeded is not an
// error; these cover configuration and lookup failures only. Callers must
// treat them as server-side conditions and fail closed.
var (
	ErrPlanNotFound             = errors.New("limits: plan not found")
	ErrInvalidResource          = errors.New("limits: invalid resource")
	ErrInvalidPlanConfiguration = errors.New("limits: invalid plan configuration")
	ErrNoCounterRegistered      = errors.New("limits: no usage counter registered for resource")
	ErrNoCampaignCounter        = errors.New("limits: no per-campaign testimonial counter registered")
	ErrFailedToLoadPlans        = errors.New("limits: failed to load plans")
	ErrFailedToCountUsage       = errors.New("limits: failed to count resource usage")
	ErrDowngradeNotPossible     = errors.New("limits: downgrade not possible with current usage")
)

// DenialError carries a denial Result through an error return, for
// service layers whose signatures have no room for a Result value.
// Handlers unwrap it with errors.As and render the embedded Result.
type DenialError struct {
	Result Result
}

func (e *DenialError) Error() string {
	return e.Result.Message
}

// Denied wraps a non-allowed Result into a DenialError. Returns nil for
// allowed results so callers can return it unconditionally.
func Denied(res Result) error {
	if res.Allowed {
		return nil
	}
	return &DenialError{Result: res}
}
