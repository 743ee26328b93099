// Package email sends transactional email through Postmark, with a
// filesystem-backed dev sender for local development.
package email
