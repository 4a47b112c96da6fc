package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"github.com/carbonledger-labs/carbonledger-go/internal/engine"
	"github.com/google/uuid"
)

// auditTimeLayout is the fixed textual format date cells are normalized
// to inside record audit payloads.
const auditTimeLayout = "2006-01-02 15:04:05"

var cellTimeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01-02-06",
	"1/2/06 15:04",
	"1/2/2006 15:04",
	"1/2/06",
	"1/2/2006",
	"02-Jan-06",
	"2-Jan-2006",
}

// backfill derives one emission record per row of every data sheet. A
// row that resolves no factor is counted and skipped, never fatal; a
// sheet that fails to parse is logged and skipped the same way.
func (b *Builder) backfill(ctx context.Context, wb Workbook, mapping map[string]sheetFactor, report *Report) error {
	now := b.now().UTC()
	for _, name := range wb.SheetNames() {
		if _, skip := descriptiveSheets[name]; skip {
			continue
		}
		sheet, err := wb.Sheet(name)
		if err != nil {
			if b.logger != nil {
				b.logger.Warn("skipping unreadable sheet", "sheet", name, "error", err)
			}
			continue
		}
		if len(sheet.Rows) == 0 {
			continue
		}

		procCol := sheet.FindColumn("process")
		totalCol := sheet.FindColumn("total")
		formula := b.formulas[name]

		for _, row := range sheet.Rows {
			code := strings.ToUpper(strings.TrimSpace(row[procCol]))
			if code == "" {
				code = strings.ToUpper(strings.TrimSpace(name))
			}

			entry, inSheet := mapping[code]
			factor := entry.Factor
			if factor == 0 {
				factor = b.fallback[code]
			}
			if factor == 0 {
				report.RowsSkipped++
				continue
			}

			var activity float64
			switch {
			case formula != nil:
				activity = formula(parseRowValues(row))
			case totalCol != "":
				activity, _ = engine.ParseNumber(row[totalCol])
			}

			scope := entry.Scope
			unit := entry.Unit
			desc := entry.Desc
			if !inSheet || scope == "" {
				scope = domain.ScopeDirect
			}
			if unit == "" {
				unit = "varies"
			}
			if desc == "" {
				desc = "Emission from " + code
			}

			record := domain.EmissionRecord{
				ID:           b.newID(),
				OwnerKey:     b.ownerKey,
				ProcessCode:  code,
				ProcessDesc:  desc,
				Scope:        scope,
				Unit:         unit,
				InputDetails: auditPayload(sheet, row),
				FactorUsed:   factor,
				Emission:     engine.Emission(activity, factor),
				CreatedAt:    now,
			}
			if err := b.records.Insert(ctx, record); err != nil {
				return fmt.Errorf("insert backfill record (sheet %s): %w", name, err)
			}
			report.RecordsInserted++
		}
	}
	if b.logger != nil {
		b.logger.Info("historical backfill complete",
			"inserted", report.RecordsInserted,
			"skipped", report.RowsSkipped)
	}
	return nil
}

// parseRowValues parses every cell numerically, under both the original
// and the lowercased header, for formula evaluation.
func parseRowValues(row Row) RowValues {
	values := make(RowValues, len(row)*2)
	for col, cell := range row {
		v, _ := engine.ParseNumber(cell)
		values[col] = v
		values[strings.ToLower(col)] = v
	}
	return values
}

// auditPayload serializes a row's original values in column order, with
// date cells normalized to a fixed textual format.
func auditPayload(sheet Sheet, row Row) domain.InputDetails {
	out := make(domain.InputDetails, 0, len(sheet.Columns))
	for _, col := range sheet.Columns {
		if col == "" {
			continue
		}
		out = append(out, domain.InputPair{Question: col, Value: normalizeCell(row[col])})
	}
	return out
}

func normalizeCell(cell string) string {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return trimmed
	}
	for _, layout := range cellTimeLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format(auditTimeLayout)
		}
	}
	return trimmed
}

func newRecordID() string {
	return uuid.NewString()
}
