package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found", detailsOK: true},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", detailsOK: true},
		{code: CodeInvalidDiscount, status: http.StatusUnprocessableEntity, publicMsg: "invalid discount", detailsOK: true},
		{code: CodeOverpayment, status: http.StatusUnprocessableEntity, publicMsg: "payment exceeds outstanding amount", detailsOK: true},
		{code: CodeConcurrentModification, status: http.StatusConflict, publicMsg: "resource modified concurrently, retry the operation", retryable: true, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestDomainConstructorsCarryIdentifiers(t *testing.T) {
	nf := NotFound("product", "p-1")
	details, ok := nf.Details().(map[string]any)
	if !ok || details["entity"] != "product" || details["id"] != "p-1" {
		t.Fatalf("unexpected not found details %#v", nf.Details())
	}

	stock := InsufficientStock("p-2", "3", "5")
	details, ok = stock.Details().(map[string]any)
	if !ok || details["product_id"] != "p-2" {
		t.Fatalf("unexpected insufficient stock details %#v", stock.Details())
	}

	if !MetadataFor(ConcurrentModification("sale", "s-1").Code()).Retryable {
		t.Fatalf("concurrent modification should be retryable")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	err := fmt.Errorf("commit sale: %w", InvalidDiscount("percent must be below 100"))
	if !IsCode(err, CodeInvalidDiscount) {
		t.Fatalf("expected wrapped invalid discount to match")
	}
	if IsCode(err, CodeNotFound) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil should never match")
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeStateConflict, "sale voided")
	if got := As(err); got == nil || got.Code() != CodeStateConflict {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestDumpRecordsChain(t *testing.T) {
	err := fmt.Errorf("outer: %w", Wrap(CodeInternal, stdErrors.New("disk"), "write stock"))
	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", d.Code)
	}
	if len(d.Chain) != 3 {
		t.Fatalf("expected 3 chain entries, got %d", len(d.Chain))
	}
}

func TestDumpDecodesDriverErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23514", ConstraintName: "products_stock_non_negative", TableName: "products", Message: "check violation"}
	d := Dump(Wrap(CodeDependency, pgErr, "write stock"))
	if d.DBDriver != "postgres" || d.DBCode != "23514" || d.DBConstraint != "products_stock_non_negative" {
		t.Fatalf("unexpected postgres dump: %+v", d)
	}
	fields := d.Fields()
	if fields["db_constraint"] != "products_stock_non_negative" || fields["error_code"] != CodeDependency {
		t.Fatalf("unexpected fields: %v", fields)
	}

	d = Dump(fmt.Errorf("insert sale: %w", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}))
	if d.DBDriver != "mysql" || d.DBCode != "1062" {
		t.Fatalf("unexpected mysql dump: %+v", d)
	}
	if _, ok := d.Fields()["error_code"]; ok {
		t.Fatalf("untyped error should not carry error_code")
	}
}
