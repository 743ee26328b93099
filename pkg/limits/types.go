package limits

// PlanID identifies a subscription tier.
type PlanID string

// Available plan tiers, ordered from smallest to largest.
const (
	PlanStarter  PlanID = "starter"
	PlanPro      PlanID = "pro"
	PlanBusiness PlanID = "business"
)

// PlanOrder lists the tiers from smallest to largest. Limit monotonicity
// is validated against this order at service construction.
var PlanOrder = []PlanID{PlanStarter, PlanPro, PlanBusiness}

// Resource represents a countable tenant resource type.
type Resource string

// Resources gated by the usage guard.
const (
	ResourceCampaigns               Resource = "campaigns"
	ResourceTestimonialsPerCampaign Resource = "testimonials_per_campaign"
	ResourceQRCodes                 Resource = "qr_codes"
	ResourceWidgetRequestsPerDay    Resource = "widget_requests_per_day"
	ResourceQRScansPerDay           Resource = "qr_scans_per_day"
)

// Unlimited represents a resource with no ceiling (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Feature is a plan-specific capability flag. Features are consumed by
// handlers (CSV export, widget theming), not by the usage guard.
type Feature string

const (
	FeatureCSVExport           Feature = "csv_export"
	FeatureWidgetCustomization Feature = "widget_customization"
	FeatureAPIAccess           Feature = "api_access"
	FeatureWhiteLabel          Feature = "white_label"
	FeaturePrioritySupport     Feature = "priority_support"
)

// Result is the decision record returned by every guard check.
// Limit exceeded is a normal Allowed=false outcome, never an error.
type Result struct {
	Allowed bool   `json:"allowed"`
	Current int64  `json:"current"`
	Limit   int64  `json:"limit"`
	PlanID  PlanID `json:"planId"`
	Message string `json:"message,omitempty"` // set only when Allowed is false
}

// UsageInfo contains the live count and limit for a persistent resource.
type UsageInfo struct {
	Current int64 `json:"current"`
	Limit   int64 `json:"limit"`
}

// RateUsageInfo contains today's bucket count and limit for a rate resource.
type RateUsageInfo struct {
	Today int64 `json:"today"`
	Limit int64 `json:"limit"`
}

// UsageStats is the consolidated dashboard read model: one read, five
// resource kinds. It reports usage only and never denies anything.
type UsageStats struct {
	Campaigns      UsageInfo     `json:"campaigns"`
	Testimonials   UsageInfo     `json:"testimonials"`
	QRCodes        UsageInfo     `json:"qrCodes"`
	WidgetRequests RateUsageInfo `json:"widgetRequests"`
	QRScans        RateUsageInfo `json:"qrScans"`
}
