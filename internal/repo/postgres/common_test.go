package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/repo"
)

func TestHandleNotFound(t *testing.T) {
	if got := handleNotFound(sql.ErrNoRows); !errors.Is(got, repo.ErrNotFound) {
		t.Fatalf("got %v want ErrNotFound", got)
	}
	other := errors.New("boom")
	if got := handleNotFound(other); got != other {
		t.Fatalf("got %v want original error", got)
	}
}

func TestHandleDuplicate(t *testing.T) {
	unique := &pgconn.PgError{Code: "23505"}
	if got := handleDuplicate(unique); !errors.Is(got, repo.ErrDuplicate) {
		t.Fatalf("got %v want ErrDuplicate", got)
	}
	fk := &pgconn.PgError{Code: "23503"}
	if got := handleDuplicate(fk); got != error(fk) {
		t.Fatalf("got %v want original error", got)
	}
}

func TestEncodeDecodeInputsPreservesOrder(t *testing.T) {
	details := domain.InputDetails{
		{Question: "Type of vehicle?", Value: "Truck"},
		{Question: "Distance travelled (km)?", Value: "120"},
	}
	raw, err := encodeInputs(details)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decodeInputs(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("decoded %d pairs", len(decoded))
	}
	if decoded[0].Question != "Type of vehicle?" || decoded[1].Value != "120" {
		t.Fatalf("decoded=%+v", decoded)
	}
}

func TestNilStoresRejectCalls(t *testing.T) {
	ctx := context.Background()
	if err := (*UserStore)(nil).Create(ctx, domain.User{}); err == nil {
		t.Fatalf("expected error from nil user store")
	}
	if _, err := (*FactorStore)(nil).Get(ctx, "DG_CONS_EM"); err == nil {
		t.Fatalf("expected error from nil factor store")
	}
	if _, err := (*EmissionStore)(nil).TotalEmission(ctx, "owner"); err == nil {
		t.Fatalf("expected error from nil emission store")
	}
	if NewUserStore(nil) != nil || NewFactorStore(nil) != nil || NewEmissionStore(nil) != nil {
		t.Fatalf("constructors must return nil for nil db")
	}
}
