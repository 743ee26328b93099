package billing

import "errors"

var (
	ErrInvalidPlan               = errors.New("invalid plan")
	ErrSubscriptionNotFound      = errors.New("subscription not found")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrUnknownPriceID            = errors.New("unknown price ID")
	ErrNoPortalForFreePlan       = errors.New("no customer portal available for free plans")
	ErrWebhookVerification       = errors.New("webhook signature verification failed")
	ErrInvalidWebhookPayload     = errors.New("invalid webhook payload")
	ErrFailedToSaveSubscription  = errors.New("failed to save subscription")
)
