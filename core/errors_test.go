package core

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestUserErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := userErrorMapper(stderrors.New("core: identity is required"))
	if mapped.TextCode != UserErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad input, got %d", mapped.Code)
	}

	mapped = userErrorMapper(stderrors.New("core: session not found for endpoint"))
	if mapped.TextCode != UserErrorNotFound {
		t.Fatalf("expected not found text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on not found, got %d", mapped.Code)
	}

	mapped = userErrorMapper(stderrors.New("core: metadata store rejected the write"))
	if mapped.TextCode != UserErrorMetadataFailed {
		t.Fatalf("expected metadata text code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryOperation {
		t.Fatalf("expected operation category, got %q", mapped.Category)
	}
}

func TestUserErrorMapper_PreservesDuplicateSentinel(t *testing.T) {
	source := fmt.Errorf("core: register session for %q: %w",
		"https://sync.example.com", ErrDuplicateRegistration)

	mapped := userErrorMapper(source)
	if mapped.TextCode != UserErrorDuplicateRegistration {
		t.Fatalf("expected duplicate text code, got %q", mapped.TextCode)
	}
	if mapped.Category != goerrors.CategoryConflict {
		t.Fatalf("expected conflict category, got %q", mapped.Category)
	}
	if mapped.Code != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", mapped.Code)
	}
	if !stderrors.Is(mapped, ErrDuplicateRegistration) {
		t.Fatalf("expected mapped error to keep the sentinel in its chain")
	}
}

func TestUserErrorMapper_KeepsExistingEnvelope(t *testing.T) {
	source := goerrors.New("already mapped", goerrors.CategoryNotFound)

	mapped := userErrorMapper(fmt.Errorf("outer wrap: %w", source))
	if mapped.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected existing category preserved, got %q", mapped.Category)
	}
	if mapped.TextCode != UserErrorNotFound {
		t.Fatalf("expected default text code filled in, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected status filled from category, got %d", mapped.Code)
	}
}

func TestUserErrorMapper_FallsBackToInternal(t *testing.T) {
	mapped := userErrorMapper(stderrors.New("disk exploded"))
	if mapped == nil {
		t.Fatalf("expected mapped error")
	}
	if mapped.TextCode == "" {
		t.Fatalf("expected a text code on fallback mapping")
	}
	if mapped.Code == 0 {
		t.Fatalf("expected http status on fallback mapping")
	}

	if userErrorMapper(nil) != nil {
		t.Fatalf("expected nil error to map to nil")
	}
}
