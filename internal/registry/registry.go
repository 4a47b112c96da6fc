// Package registry holds the static process question table: the mapping
// from process code to the input-field schema and aggregation operation
// used by the activity computation engine. The table is declarative data
// embedded at build time and loaded once at startup; lookups never fail
// the caller, a miss just means "no known schema".
package registry

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
	"gopkg.in/yaml.v3"
)

//go:embed table.yaml
var tableYAML []byte

type table struct {
	Processes []domain.ProcessDefinition `yaml:"processes"`
}

// Registry is the loaded, read-only process question table.
type Registry struct {
	defs  map[string]domain.ProcessDefinition
	order []string
}

// Load parses and validates the embedded table. A malformed table is a
// startup error; there is no partial load.
func Load() (*Registry, error) {
	return Parse(tableYAML)
}

// Parse builds a Registry from raw YAML.
func Parse(raw []byte) (*Registry, error) {
	var t table
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode process table: %w", err)
	}
	if len(t.Processes) == 0 {
		return nil, fmt.Errorf("process table is empty")
	}

	defs := make(map[string]domain.ProcessDefinition, len(t.Processes))
	order := make([]string, 0, len(t.Processes))
	for i, def := range t.Processes {
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("process table entry %d: %w", i, err)
		}
		op, err := domain.ParseOperation(string(def.Operation))
		if err != nil {
			return nil, fmt.Errorf("process table entry %d: %w", i, err)
		}
		def.Operation = op

		code := normalizeCode(def.ProcessCode)
		if _, ok := defs[code]; ok {
			return nil, fmt.Errorf("process table: duplicate process code %q", code)
		}
		def.ProcessCode = code
		defs[code] = def
		order = append(order, code)
	}
	return &Registry{defs: defs, order: order}, nil
}

// Lookup resolves the schema for a process code. A miss is not an error:
// callers fall back to a single generic numeric quantity field.
func (r *Registry) Lookup(processCode string) (domain.ProcessDefinition, bool) {
	if r == nil {
		return domain.ProcessDefinition{}, false
	}
	def, ok := r.defs[normalizeCode(processCode)]
	return def, ok
}

// Codes returns every registered process code in table order.
func (r *Registry) Codes() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
