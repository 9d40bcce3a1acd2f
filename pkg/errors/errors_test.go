package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("connection refused")
	err := Wrap(CodeDependency, cause, "submit vendor order")

	if !stdErrors.Is(err, cause) {
		t.Fatalf("expected cause to unwrap")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("expected dependency code, got %s", err.Code())
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := New(CodeUnauthorized, "user not authenticated")
	outer := fmt.Errorf("submission aborted: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error through fmt wrapping")
	}
	if typed.Code() != CodeUnauthorized {
		t.Fatalf("expected unauthorized, got %s", typed.Code())
	}
}

func TestIsCode(t *testing.T) {
	err := New(CodeValidation, "customer name is required")
	if !IsCode(err, CodeValidation) {
		t.Fatal("expected validation code match")
	}
	if IsCode(err, CodeDependency) {
		t.Fatal("unexpected dependency code match")
	}
	if IsCode(nil, CodeValidation) {
		t.Fatal("nil error should match nothing")
	}
}

func TestMetadataFallback(t *testing.T) {
	meta := MetadataFor(Code("UNKNOWN"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal, got %d", meta.HTTPStatus)
	}
	if !MetadataFor(CodeUnavailable).Retryable {
		t.Fatal("stock unavailable should be retryable")
	}
}
