package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	meta := MetadataFor(CodeStockExceeded)
	if meta.HTTPStatus != http.StatusConflict {
		t.Fatalf("stock exceeded should map to 409, got %d", meta.HTTPStatus)
	}
	if !meta.DetailsAllowed {
		t.Fatal("stock exceeded should allow details")
	}

	meta = MetadataFor(CodeWriteFailure)
	if !meta.Retryable {
		t.Fatal("write failure should be retryable")
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("BOGUS"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown code should map to 500, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := stdErrors.New("disk full")
	err := Wrap(CodeWriteFailure, cause, "persist order")

	if !stdErrors.Is(err, cause) {
		t.Fatal("wrapped cause should satisfy errors.Is")
	}
	if err.Error() != "WRITE_FAILURE: persist order" {
		t.Fatalf("unexpected error string %q", err.Error())
	}
}

func TestAsAndHasCode(t *testing.T) {
	err := New(CodeEmptyCart, "no lines")
	wrapped := Wrap(CodeDependency, err, "checkout")

	typed := As(wrapped)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("expected outermost typed error, got %v", typed)
	}
	if !HasCode(wrapped, CodeDependency) {
		t.Fatal("HasCode should match outer code")
	}
	if HasCode(nil, CodeEmptyCart) {
		t.Fatal("nil error should never match")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeValidation, stdErrors.New("bad field"), "decode")
	dump := Dump(err)
	if dump.Code != CodeValidation {
		t.Fatalf("expected validation code, got %s", dump.Code)
	}
	if len(dump.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", dump.Chain)
	}
}
