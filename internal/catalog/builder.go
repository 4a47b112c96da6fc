// Package catalog builds the emission-factor catalog from the master
// workbook and, optionally, backfills historical emission records from
// its data sheets. It is a one-shot batch pipeline: a single writer run
// to completion before the tracker starts serving submissions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/engine"
	"github.com/carbonledger-labs/carbonledger-go/internal/repo"
)

// FactorSheetName is the authoritative factor sheet. Without it no
// factors can be derived and the run fails outright.
const FactorSheetName = "Emission_factor"

// ErrFactorSheetMissing is the fatal condition of a builder run.
var ErrFactorSheetMissing = errors.New("factor sheet not found in workbook")

// descriptive sheets carry no activity rows and are never backfilled.
// "Processess" is spelled the way the workbook spells it.
var descriptiveSheets = map[string]struct{}{
	FactorSheetName: {},
	"Description":   {},
	"Processess":    {},
}

// DefaultBackfillOwner is the placeholder identity historical records
// are filed under.
const DefaultBackfillOwner = "COMPANY001"

// Report is the operator-facing outcome of a builder run. NotConfigured
// lists codes whose resolved factor was zero: they are deliberately
// surfaced rather than silently dropped, since a zero factor may mean
// either "not yet configured" or "genuinely zero-impact".
type Report struct {
	FactorsUpserted     int      `json:"factors_upserted"`
	FactorsFromSheet    int      `json:"factors_from_sheet"`
	FactorsFromFallback int      `json:"factors_from_fallback"`
	NotConfigured       []string `json:"not_configured,omitempty"`
	RecordsInserted     int      `json:"records_inserted"`
	RowsSkipped         int      `json:"rows_skipped"`
}

type sheetFactor struct {
	Factor float64
	Unit   string
	Desc   string
	Scope  string
}

// Builder ingests a workbook into the factor catalog and the emission
// record store.
type Builder struct {
	factors  repo.FactorRepository
	records  repo.EmissionRepository
	fallback map[string]float64
	formulas map[string]Formula
	ownerKey string
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

func NewBuilder(factors repo.FactorRepository, records repo.EmissionRepository, logger *slog.Logger) *Builder {
	return &Builder{
		factors:  factors,
		records:  records,
		fallback: DefaultFallbackFactors(),
		formulas: DefaultFormulas(),
		ownerKey: DefaultBackfillOwner,
		logger:   logger,
		now:      time.Now,
		newID:    newRecordID,
	}
}

// WithOwner changes the identity backfilled records are filed under.
func (b *Builder) WithOwner(ownerKey string) *Builder {
	if strings.TrimSpace(ownerKey) != "" {
		b.ownerKey = strings.TrimSpace(ownerKey)
	}
	return b
}

// WithClock injects the timestamp source.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	if now != nil {
		b.now = now
	}
	return b
}

// BuildFactors runs the factor pipeline only: parse the authoritative
// sheet, merge with the fallback table, upsert the catalog.
func (b *Builder) BuildFactors(ctx context.Context, wb Workbook) (Report, error) {
	report := Report{}
	mapping, err := b.parseFactorSheet(wb)
	if err != nil {
		return report, err
	}
	if err := b.upsertFactors(ctx, mapping, &report); err != nil {
		return report, err
	}
	return report, nil
}

// Run executes the full pipeline: factors, then (optionally) the
// historical-emission backfill over the workbook's data sheets.
func (b *Builder) Run(ctx context.Context, wb Workbook, withBackfill bool) (Report, error) {
	report := Report{}
	mapping, err := b.parseFactorSheet(wb)
	if err != nil {
		return report, err
	}
	if err := b.upsertFactors(ctx, mapping, &report); err != nil {
		return report, err
	}
	if withBackfill {
		if err := b.backfill(ctx, wb, mapping, &report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// parseFactorSheet reads the authoritative sheet, resolving its columns
// by case-insensitive substring. Rows without a process code are
// skipped; codes are trimmed and upper-cased.
func (b *Builder) parseFactorSheet(wb Workbook) (map[string]sheetFactor, error) {
	names := wb.SheetNames()
	found := false
	for _, name := range names {
		if name == FactorSheetName {
			found = true
			break
		}
	}
	if !found {
		return nil, ErrFactorSheetMissing
	}

	sheet, err := wb.Sheet(FactorSheetName)
	if err != nil {
		return nil, fmt.Errorf("parse factor sheet: %w", err)
	}

	procCol := sheet.FindColumn("process")
	factorCol := sheet.FindColumn("ef")
	if factorCol == "" {
		factorCol = sheet.FindColumn("factor")
	}
	unitCol := sheet.FindColumn("unit")
	descCol := sheet.FindColumn("desc")
	scopeCol := sheet.FindColumn("scope")

	mapping := make(map[string]sheetFactor, len(sheet.Rows))
	for _, row := range sheet.Rows {
		code := strings.ToUpper(strings.TrimSpace(row[procCol]))
		if code == "" {
			continue
		}
		factor, _ := engine.ParseNumber(row[factorCol])
		mapping[code] = sheetFactor{
			Factor: factor,
			Unit:   strings.TrimSpace(row[unitCol]),
			Desc:   strings.TrimSpace(row[descCol]),
			Scope:  strings.TrimSpace(row[scopeCol]),
		}
	}
	return mapping, nil
}

// upsertFactors resolves the final factor for every code in the union of
// sheet and fallback sources: the sheet factor wins unless zero, then
// the fallback, and codes still at zero are reported as not configured
// and left out of the catalog.
func (b *Builder) upsertFactors(ctx context.Context, mapping map[string]sheetFactor, report *Report) error {
	codes := make(map[string]struct{}, len(mapping)+len(b.fallback))
	for code := range mapping {
		codes[code] = struct{}{}
	}
	for code := range b.fallback {
		codes[code] = struct{}{}
	}

	now := b.now().UTC()
	for code := range codes {
		entry := mapping[code]
		factor := entry.Factor
		fromSheet := factor != 0
		if factor == 0 {
			factor = b.fallback[code]
		}
		if factor == 0 {
			report.NotConfigured = append(report.NotConfigured, code)
			continue
		}

		desc := entry.Desc
		if desc == "" {
			desc = "Emission from " + code
		}
		scope := entry.Scope
		if scope == "" {
			scope = domain.DefaultScope(code)
		}

		err := b.factors.Upsert(ctx, domain.FactorEntry{
			ProcessCode: code,
			ProcessDesc: desc,
			Scope:       scope,
			Unit:        entry.Unit,
			Factor:      factor,
			LastUpdated: now,
		})
		if err != nil {
			return fmt.Errorf("upsert factor %s: %w", code, err)
		}
		report.FactorsUpserted++
		if fromSheet {
			report.FactorsFromSheet++
		} else {
			report.FactorsFromFallback++
		}
	}
	if b.logger != nil {
		b.logger.Info("factor catalog built",
			"upserted", report.FactorsUpserted,
			"from_sheet", report.FactorsFromSheet,
			"from_fallback", report.FactorsFromFallback,
			"not_configured", len(report.NotConfigured))
	}
	return nil
}
