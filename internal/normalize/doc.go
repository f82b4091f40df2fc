// Package normalize maps arbitrary export headers onto logical fields and
// cleans scalar cell values (text, currency amounts, dates, account numbers).
//
// Column resolution is pure: Resolve returns a Mapping value for one dataset
// and nothing in this package keeps state between calls.
package normalize
