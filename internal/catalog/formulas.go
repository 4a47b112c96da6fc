package catalog

// RowValues holds the numerically parsed cells of one data-sheet row,
// keyed by column header (and lowercased header). Cells that did not
// parse read as zero.
type RowValues map[string]float64

// First returns the first non-zero value among the given keys, matching
// the "a or b" fallback chains of the sheet formulas.
func (r RowValues) First(keys ...string) float64 {
	for _, key := range keys {
		if v := r[key]; v != 0 {
			return v
		}
	}
	return 0
}

// Formula derives the total activity value of one row for a sheet that
// needs more than a plain "total" column.
type Formula func(row RowValues) float64

// DefaultFormulas are the per-sheet activity derivations used by the
// historical backfill. Sheets without an entry fall back to a generically
// detected "total" column.
func DefaultFormulas() map[string]Formula {
	return map[string]Formula{
		"LPG_CONS_EM": func(row RowValues) float64 {
			return row["LPG_no"] * row["Weight_LPG"]
		},
		"DG_CONS_EM": func(row RowValues) float64 {
			return row["Fuel_cons"]
		},
		"COMP_EM": func(row RowValues) float64 {
			return row["Compost_gen"]
		},
		"HEMV_FUEL_EM": func(row RowValues) float64 {
			return row.First("Fuel_Con", "Fuel_Cons")
		},
		"OVER_B_EM": func(row RowValues) float64 {
			return row.First("T", "t", "m3")
		},
	}
}
