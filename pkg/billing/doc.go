// Package billing manages subscription lifecycle against a payment
// provider: hosted checkout links, customer portal sessions and webhook
// processing. Plan definitions come from the limits package, so the
// price a customer pays for and the limits they get are always the same
// record. Plan changes are pushed onto the tenant record through a
// PlanAssigner callback wired at startup.
package billing
