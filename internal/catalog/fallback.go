package catalog

// DefaultFallbackFactors are the IPCC-derived per-unit defaults used
// when the authoritative sheet has no usable factor for a code. A sheet
// factor of zero counts as "no usable factor" and falls back here.
func DefaultFallbackFactors() map[string]float64 {
	return map[string]float64{
		"DG_CONS_EM":        2.68,
		"LPG_CONS_EM":       2.94,
		"COMP_EM":           0.03,
		"BLAST_EM":          1.20,
		"OVER_B_EM":         0.05,
		"HEMV_FUEL_EM":      2.68,
		"LMV_EM_D":          2.68,
		"LMV_EM_G":          2.31,
		"PUMP_DEW_EM":       2.68,
		"PORT_DG_EM":        2.68,
		"AC_EM":             1430.0,
		"OXY_ACE_EM":        25.0,
		"DIESEL_DRILL_EM":   2.68,
		"LUBE_USE_EM":       3.10,
		"MIN_QC_TRANS_EM":   2.68,
		"ELECT_EM":          0.82,
		"CORE_QC_TRANS_EM":  2.68,
		"DRILL_BIL_PROD_EM": 15.0,
		"LUBE_PROD_EM":      4.5,
		"PVC_BOX_PROD_EM":   1.5,
		"HEMV_TYRE_PROD_EM": 150.0,
		"LMV_TYRE_PROD_EM":  12.0,
		"BATT_PROD_EM":      12.0,
		"BLAST_PROD_EM":     1.2,
		"OXY_ACE_PROD_EM":   0.5,
		"ELECT_ARC_PROD_EM": 25.0,
		"HDPE5_PROD_EM":     2.5,
		"HDPE4.5_PROD_EM":   2.2,
		"LPG_PROD_EM":       1.0,
		"FE_CHROM_PROD_EM":  3.0,
		"STEEL_PROD_EM":     2.0,
		"WTP_ELECT_EM":      0.82,
		"QC_CHEM_PROD_EM":   5.0,
		"CHEM_ETP_PROD_EM":  5.0,
		"DISP_TYRE_EM":      150.0,
		"DISP_LUBE_EM":      3.1,
		"TRANS_2WHS_EM":     0.06,
		"TRANS_4WHS_EM":     0.19,
		"TRANS_BUS_EM":      0.03,
		"TRANS_PLANE_EM":    0.25,
		"TRANS_LMV_EM":      0.19,
		"TRANS_6WHS_EM":     2.68,
		"TRANS_12_14WHS_EM": 2.68,
		"GEN_ITEM_PROD_EM":  5.0,
		"CORE_TRANS_BB_EM":  2.68,
	}
}
