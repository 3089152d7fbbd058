package command

import (
	"context"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-syncauth/core"
)

func TestUpdateRefreshTokenMessage_ValidateReturnsRichError(t *testing.T) {
	err := (UpdateRefreshTokenMessage{}).Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryValidation {
		t.Fatalf("expected validation category, got %q", rich.Category)
	}
	if rich.TextCode != core.UserErrorBadInput {
		t.Fatalf("expected %q text code, got %q", core.UserErrorBadInput, rich.TextCode)
	}
	if rich.Code != http.StatusBadRequest {
		t.Fatalf("expected %d code, got %d", http.StatusBadRequest, rich.Code)
	}
	validation := rich.AllValidationErrors()
	if len(validation) == 0 {
		t.Fatalf("expected validation errors in envelope")
	}
	if validation[0].Field != "token" {
		t.Fatalf("expected token validation field, got %q", validation[0].Field)
	}
}

func TestRegisterSessionMessage_ValidateNamesOffendingField(t *testing.T) {
	missing := (RegisterSessionMessage{}).Validate()
	var rich *goerrors.Error
	if !goerrors.As(missing, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", missing)
	}
	if fields := rich.AllValidationErrors(); len(fields) == 0 || fields[0].Field != "session" {
		t.Fatalf("expected session validation field, got %+v", fields)
	}

	blank := (RegisterSessionMessage{Session: &commandSession{url: " "}}).Validate()
	if !goerrors.As(blank, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", blank)
	}
	if fields := rich.AllValidationErrors(); len(fields) == 0 || fields[0].Field != "endpoint_url" {
		t.Fatalf("expected endpoint_url validation field, got %+v", fields)
	}
}

func TestUpdateRefreshTokenCommand_NilServiceReturnsRichError(t *testing.T) {
	var cmd *UpdateRefreshTokenCommand
	err := cmd.Execute(context.Background(), UpdateRefreshTokenMessage{Token: "token"})
	if err == nil {
		t.Fatalf("expected command dependency error")
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.Category != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %q", rich.Category)
	}
	if rich.TextCode != core.UserErrorInternal {
		t.Fatalf("expected %q text code, got %q", core.UserErrorInternal, rich.TextCode)
	}
	if rich.Code != http.StatusInternalServerError {
		t.Fatalf("expected %d code, got %d", http.StatusInternalServerError, rich.Code)
	}
}
