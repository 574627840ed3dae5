// Package tenancy carries the clinic a request is scoped to.
package tenancy

import (
	"context"
	"regexp"
)

type ctxKey string

const clinicKey ctxKey = "clinicops.clinic_id"

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]{0,63}$`)

// ValidID reports whether id is usable as a clinic or professional
// identifier: 1-64 characters of letters, digits, '-' and '_', not starting
// with a separator.
func ValidID(id string) bool {
	return idPattern.MatchString(id)
}

// WithClinicID stores the clinic id in context.
func WithClinicID(ctx context.Context, clinicID string) context.Context {
	return context.WithValue(ctx, clinicKey, clinicID)
}

// ClinicIDFromContext extracts the clinic id if present.
func ClinicIDFromContext(ctx context.Context) (string, bool) {
	clinicID, ok := ctx.Value(clinicKey).(string)
	return clinicID, ok && clinicID != ""
}
