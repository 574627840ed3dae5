package tenancy

import (
	"context"
	"strings"
	"testing"
)

func TestWithClinicIDAndClinicIDFromContext(t *testing.T) {
	ctx := WithClinicID(context.Background(), "clinic-123")

	got, ok := ClinicIDFromContext(ctx)
	if !ok {
		t.Fatalf("expected clinic id to be present")
	}
	if got != "clinic-123" {
		t.Fatalf("expected clinic-123, got %s", got)
	}
}

func TestClinicIDFromContext_EmptyOrMissing(t *testing.T) {
	ctx := context.Background()
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatalf("expected missing clinic id to return false")
	}

	ctx = context.WithValue(ctx, clinicKey, 42)
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatalf("expected non-string clinic id to return false")
	}

	ctx = WithClinicID(context.Background(), "")
	if _, ok := ClinicIDFromContext(ctx); ok {
		t.Fatalf("expected empty clinic id to return false")
	}
}

func TestValidID(t *testing.T) {
	valid := []string{"c1", "clinic_sao-paulo", "8f14e45f-ceea-467f-a0e6-1f5c3b0e2d11", strings.Repeat("a", 64)}
	for _, id := range valid {
		if !ValidID(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}
	invalid := []string{"", "-c1", "c 1", "c/1", "ç1", strings.Repeat("a", 65)}
	for _, id := range invalid {
		if ValidID(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}
