package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
)

type FactorStore struct {
	db DB
}

func NewFactorStore(db DB) *FactorStore {
	if db == nil {
		return nil
	}
	return &FactorStore{db: db}
}

// Upsert keys on process_code. A rebuild overwrites every column except
// the code, so repeated catalog loads converge on the workbook contents.
func (s *FactorStore) Upsert(ctx context.Context, entry domain.FactorEntry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("factor store not initialized")
	}
	if err := entry.Validate(); err != nil {
		return err
	}
	lastUpdated := normalizeTime(entry.LastUpdated)
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO emission_factors (
			process_code,
			process_desc,
			scope,
			unit,
			factor,
			last_updated
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (process_code) DO UPDATE SET
			process_desc = EXCLUDED.process_desc,
			scope = EXCLUDED.scope,
			unit = EXCLUDED.unit,
			factor = EXCLUDED.factor,
			last_updated = EXCLUDED.last_updated`,
		strings.TrimSpace(entry.ProcessCode),
		strings.TrimSpace(entry.ProcessDesc),
		strings.TrimSpace(entry.Scope),
		strings.TrimSpace(entry.Unit),
		entry.Factor,
		lastUpdated,
	)
	if err != nil {
		return fmt.Errorf("upsert factor: %w", err)
	}
	return nil
}

func (s *FactorStore) Get(ctx context.Context, processCode string) (domain.FactorEntry, error) {
	if s == nil || s.db == nil {
		return domain.FactorEntry{}, fmt.Errorf("factor store not initialized")
	}
	processCode = strings.TrimSpace(processCode)
	if processCode == "" {
		return domain.FactorEntry{}, fmt.Errorf("process code is required")
	}
	var entry domain.FactorEntry
	row := s.db.QueryRowContext(
		ctx,
		`SELECT process_code, process_desc, scope, unit, factor, last_updated
		 FROM emission_factors
		 WHERE process_code = $1`,
		processCode,
	)
	if err := row.Scan(&entry.ProcessCode, &entry.ProcessDesc, &entry.Scope, &entry.Unit, &entry.Factor, &entry.LastUpdated); err != nil {
		return domain.FactorEntry{}, handleNotFound(err)
	}
	return entry, nil
}

func (s *FactorStore) List(ctx context.Context) ([]domain.FactorEntry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("factor store not initialized")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT process_code, process_desc, scope, unit, factor, last_updated
		 FROM emission_factors
		 ORDER BY process_code`,
	)
	if err != nil {
		return nil, fmt.Errorf("list factors: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.FactorEntry, 0)
	for rows.Next() {
		var entry domain.FactorEntry
		if err := rows.Scan(&entry.ProcessCode, &entry.ProcessDesc, &entry.Scope, &entry.Unit, &entry.Factor, &entry.LastUpdated); err != nil {
			return nil, fmt.Errorf("scan factor: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list factors: %w", err)
	}
	return entries, nil
}
