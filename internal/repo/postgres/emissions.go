package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/repo"
)

type EmissionStore struct {
	db DB
}

func NewEmissionStore(db DB) *EmissionStore {
	if db == nil {
		return nil
	}
	return &EmissionStore{db: db}
}

func (s *EmissionStore) Insert(ctx context.Context, record domain.EmissionRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("emission store not initialized")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	inputsJSON, err := encodeInputs(record.InputDetails)
	if err != nil {
		return fmt.Errorf("encode input details: %w", err)
	}
	createdAt := normalizeTime(record.CreatedAt)
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO emissions (
			record_id,
			owner_key,
			process_code,
			process_desc,
			scope,
			unit,
			input_details,
			factor_used,
			emission,
			created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		strings.TrimSpace(record.ID),
		strings.TrimSpace(record.OwnerKey),
		strings.TrimSpace(record.ProcessCode),
		strings.TrimSpace(record.ProcessDesc),
		strings.TrimSpace(record.Scope),
		strings.TrimSpace(record.Unit),
		inputsJSON,
		record.FactorUsed,
		record.Emission,
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert emission record: %w", err)
	}
	return nil
}

func (s *EmissionStore) List(ctx context.Context, filter repo.RecordFilter) ([]domain.EmissionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("emission store not initialized")
	}
	clauses := make([]string, 0, 2)
	args := make([]any, 0, 2)

	if strings.TrimSpace(filter.OwnerKey) != "" {
		args = append(args, strings.TrimSpace(filter.OwnerKey))
		clauses = append(clauses, fmt.Sprintf("owner_key = $%d", len(args)))
	}
	if strings.TrimSpace(filter.ProcessCode) != "" {
		args = append(args, strings.TrimSpace(filter.ProcessCode))
		clauses = append(clauses, fmt.Sprintf("process_code = $%d", len(args)))
	}

	query := `SELECT record_id, owner_key, process_code, process_desc, scope, unit, input_details, factor_used, emission, created_at FROM emissions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list emission records: %w", err)
	}
	defer rows.Close()

	records := make([]domain.EmissionRecord, 0)
	for rows.Next() {
		var record domain.EmissionRecord
		var inputsJSON []byte
		if err := rows.Scan(&record.ID, &record.OwnerKey, &record.ProcessCode, &record.ProcessDesc, &record.Scope, &record.Unit, &inputsJSON, &record.FactorUsed, &record.Emission, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan emission record: %w", err)
		}
		inputs, err := decodeInputs(inputsJSON)
		if err != nil {
			return nil, fmt.Errorf("decode input details: %w", err)
		}
		record.InputDetails = inputs
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list emission records: %w", err)
	}
	return records, nil
}

func (s *EmissionStore) TotalEmission(ctx context.Context, ownerKey string) (float64, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("emission store not initialized")
	}
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return 0, fmt.Errorf("owner key is required")
	}
	var total float64
	err := s.db.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(emission), 0) FROM emissions WHERE owner_key = $1`,
		ownerKey,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("total emission: %w", err)
	}
	return total, nil
}

func (s *EmissionStore) TotalsByScope(ctx context.Context, ownerKey string) ([]repo.ScopeTotal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("emission store not initialized")
	}
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT scope, SUM(emission)
		 FROM emissions
		 WHERE owner_key = $1
		 GROUP BY scope
		 ORDER BY scope`,
		ownerKey,
	)
	if err != nil {
		return nil, fmt.Errorf("totals by scope: %w", err)
	}
	defer rows.Close()

	totals := make([]repo.ScopeTotal, 0)
	for rows.Next() {
		var total repo.ScopeTotal
		if err := rows.Scan(&total.Scope, &total.Emission); err != nil {
			return nil, fmt.Errorf("scan scope total: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("totals by scope: %w", err)
	}
	return totals, nil
}

func (s *EmissionStore) TopProcesses(ctx context.Context, ownerKey string, limit int) ([]repo.ProcessTotal, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("emission store not initialized")
	}
	ownerKey = strings.TrimSpace(ownerKey)
	if ownerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if limit <= 0 {
		limit = 5
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT process_desc, SUM(emission) AS total
		 FROM emissions
		 WHERE owner_key = $1
		 GROUP BY process_desc
		 ORDER BY total DESC
		 LIMIT $2`,
		ownerKey,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("top processes: %w", err)
	}
	defer rows.Close()

	totals := make([]repo.ProcessTotal, 0)
	for rows.Next() {
		var total repo.ProcessTotal
		if err := rows.Scan(&total.ProcessDesc, &total.Emission); err != nil {
			return nil, fmt.Errorf("scan process total: %w", err)
		}
		totals = append(totals, total)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("top processes: %w", err)
	}
	return totals, nil
}
