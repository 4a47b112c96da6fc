package repo

import (
	"context"
	"errors"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
)

// ErrNotFound is returned by stores when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert collides with a uniqueness
// constraint, such as an already-registered username.
var ErrDuplicate = errors.New("duplicate")

type RecordFilter struct {
	OwnerKey    string
	ProcessCode string
	Limit       int
}

// ScopeTotal is one dashboard aggregation bucket.
type ScopeTotal struct {
	Scope    string
	Emission float64
}

// ProcessTotal is one process-level aggregation bucket.
type ProcessTotal struct {
	ProcessDesc string
	Emission    float64
}

// UserRepository manages registered accounts.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByKey(ctx context.Context, userKey string) (domain.User, error)
}

// FactorRepository manages the emission-factor catalog. Upsert keys on
// process code: an existing row is overwritten in place, the code itself
// never changes.
type FactorRepository interface {
	Upsert(ctx context.Context, entry domain.FactorEntry) error
	Get(ctx context.Context, processCode string) (domain.FactorEntry, error)
	List(ctx context.Context) ([]domain.FactorEntry, error)
}

// EmissionRepository manages the append-only emission records. There is
// deliberately no update or delete: records are immutable once written.
type EmissionRepository interface {
	Insert(ctx context.Context, record domain.EmissionRecord) error
	List(ctx context.Context, filter RecordFilter) ([]domain.EmissionRecord, error)
	TotalEmission(ctx context.Context, ownerKey string) (float64, error)
	TotalsByScope(ctx context.Context, ownerKey string) ([]ScopeTotal, error)
	TopProcesses(ctx context.Context, ownerKey string, limit int) ([]ProcessTotal, error)
}
