package services_test

import (
	"errors"
	"testing"

	"wsideid/internal/services"
)

func TestWrapPreservesMarker(t *testing.T) {
	base := errors.New("row 4: bad token")
	err := services.Wrap(services.ErrValidation, "ingest", "validate row", "manifest row rejected", base)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "export", "copy", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
}

func TestFatal(t *testing.T) {
	if services.Fatal(services.Wrap(services.ErrValidation, "", "", "bad row", nil)) {
		t.Fatal("validation errors must not abort a batch run")
	}
	if !services.Fatal(services.Wrap(services.ErrConfiguration, "ingest", "open import path", "", nil)) {
		t.Fatal("configuration errors abort the run")
	}
}
