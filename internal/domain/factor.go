package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// ScopeDirect tags direct fuel or process use.
	ScopeDirect = "Scope_1"
	// ScopeLifecycle tags transport and upstream-production processes.
	ScopeLifecycle = "Scope_3"
)

// FactorEntry is one row of the emission-factor catalog: the per-unit
// multiplier converting an activity quantity into kg CO2e. Written only
// by the catalog builder; read-only to the computation path.
type FactorEntry struct {
	ProcessCode string
	ProcessDesc string
	Scope       string
	Unit        string
	Factor      float64
	LastUpdated time.Time
}

func (e FactorEntry) Validate() error {
	if strings.TrimSpace(e.ProcessCode) == "" {
		return errors.New("process code is required")
	}
	if e.Factor < 0 {
		return fmt.Errorf("factor for %s must be non-negative", e.ProcessCode)
	}
	return nil
}

// DefaultScope applies the fallback scope heuristic for codes whose
// authoritative sheet row carries no scope: transport and
// upstream-production codes are lifecycle, everything else direct use.
func DefaultScope(processCode string) string {
	code := strings.ToUpper(strings.TrimSpace(processCode))
	if strings.Contains(code, "TRANS") || strings.HasSuffix(code, "PROD_EM") {
		return ScopeLifecycle
	}
	return ScopeDirect
}
