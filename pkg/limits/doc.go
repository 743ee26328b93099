// Package limits enforces per-plan resource quotas for tenants.
//
// Two resource families are covered. Persistent resources (campaigns, QR
// codes, testimonials) are measured as live counts of existing rows via
// registered CounterFunc callbacks. Rate resources (widget requests, QR
// scans) are measured per tenant per UTC calendar day in usage.Store
// buckets and reset naturally at midnight.
//
// The plan table is immutable, process-wide configuration loaded once at
// startup from a Source. Construction validates that limits are
// monotonically non-decreasing across starter -> pro -> business and
// fails fast otherwise.
//
// Admission decisions are returned as Result values: Allowed=false is a
// normal outcome with the current/limit pair and a human-readable message
// for upgrade prompts, never an error. Errors are reserved for plan
// lookup and counter failures, which callers must surface as server
// errors with the mutation blocked (fail closed).
//
// Basic usage:
//
//	svc, err := limits.NewService(ctx, limits.NewDefaultSource(), buckets, resolver,
//	    limits.WithCounter(limits.ResourceCampaigns, campaignRepo.CountByTenant),
//	    limits.WithCounter(limits.ResourceQRCodes, qrRepo.CountByTenant),
//	    limits.WithCampaignCounter(testimonialRepo.CountByCampaign),
//	)
//
//	guard := svc.Guard(tenantID)
//	res, err := guard.CanCreateCampaign(ctx)
//	if err != nil {
//	    // 5xx: plan lookup or counting failed, block the mutation
//	}
//	if !res.Allowed {
//	    // 403 with res.Current, res.Limit, res.PlanID, res.Message
//	}
package limits
