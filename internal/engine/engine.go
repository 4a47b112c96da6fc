// Package engine derives a single numeric activity value from the raw
// answers a user submitted for one process, and turns it into an
// emission given a factor. It is a pure function of its inputs: no
// clocks, no storage, no ambient identity.
package engine

import (
	"errors"

	"github.com/carbonledger-labs/carbonledger-go/internal/domain"
)

// ErrQuantityRequired is returned when a process has no known schema and
// the generic quantity field is missing or not numeric. It is the only
// user-input failure the engine raises; every other soft condition
// degrades to a computed value.
var ErrQuantityRequired = errors.New("numeric quantity is required")

// quantityKey is the generic fallback field read when no schema exists.
const quantityKey = "quantity"

// Submission is one raw form submission: field key to raw string value.
// Missing fields read as empty strings.
type Submission map[string]string

// SchemaSource resolves a process code to its question schema. A miss
// means "use the generic quantity fallback".
type SchemaSource interface {
	Lookup(processCode string) (domain.ProcessDefinition, bool)
}

// Override adjusts the resolved activity value for one specific process
// code. Overrides are deliberate hardcoded business exceptions; new ones
// are added to the table, not inlined into the resolution logic.
type Override func(numeric map[string]float64, resolved float64) float64

// DefaultPriorityKeys is the ordered list of well-known field names
// consulted by single-operation resolution: the first key with a parsed
// numeric answer wins.
func DefaultPriorityKeys() []string {
	return []string{
		"Fuel_Con",
		"Fuel_cons",
		"Total_Consumption",
		"Annual_cons",
		"Tot_Fuel_cons",
		"quantity",
		"Distance",
		"Distance_km",
		"Total_Consumption_kWh",
		"Total_Consumption(kWh)",
	}
}

// DefaultOverrides returns the per-process special cases. TRANS_LMV_EM
// collects a one-way distance; the trip is treated as a round trip.
func DefaultOverrides() map[string]Override {
	return map[string]Override{
		"TRANS_LMV_EM": func(numeric map[string]float64, resolved float64) float64 {
			if distance, ok := numeric["Distance"]; ok {
				return distance * 2
			}
			return resolved
		},
	}
}

// Engine computes activity values against an injected schema source,
// priority list and override table.
type Engine struct {
	schemas   SchemaSource
	priority  []string
	overrides map[string]Override
}

func New(schemas SchemaSource) *Engine {
	return &Engine{
		schemas:   schemas,
		priority:  DefaultPriorityKeys(),
		overrides: DefaultOverrides(),
	}
}

// WithPriorityKeys replaces the single-operation priority list.
func (e *Engine) WithPriorityKeys(keys []string) *Engine {
	e.priority = append([]string(nil), keys...)
	return e
}

// WithOverride registers (or replaces) a per-process override.
func (e *Engine) WithOverride(processCode string, fn Override) *Engine {
	if e.overrides == nil {
		e.overrides = make(map[string]Override)
	}
	e.overrides[processCode] = fn
	return e
}

// ComputeActivity resolves the schema for processCode and combines the
// submitted answers into one activity value, returning alongside it the
// question/answer audit pairs in field-declaration order.
//
// Fields missing from the submission read as empty; answers that do not
// parse numerically are kept in the audit pairs but excluded from the
// arithmetic. The only failure is ErrQuantityRequired on the no-schema
// fallback path.
func (e *Engine) ComputeActivity(processCode string, submission Submission) (float64, domain.InputDetails, error) {
	def, ok := e.lookup(processCode)
	if !ok || len(def.Fields) == 0 {
		value, parsed := ParseNumber(submission[quantityKey])
		if !parsed {
			return 0, nil, ErrQuantityRequired
		}
		inputs := domain.InputDetails{{Question: quantityKey, Value: submission[quantityKey]}}
		return value, inputs, nil
	}

	inputs := make(domain.InputDetails, 0, len(def.Fields))
	numeric := make(map[string]float64, len(def.Fields))
	numericOrder := make([]string, 0, len(def.Fields))
	for _, field := range def.Fields {
		raw := submission[field.Key]
		inputs = append(inputs, domain.InputPair{Question: field.Question, Value: raw})
		if v, parsed := ParseNumber(raw); parsed {
			numeric[field.Key] = v
			numericOrder = append(numericOrder, field.Key)
		}
	}

	var activity float64
	switch def.Operation {
	case domain.OperationMultiply:
		if len(numericOrder) > 0 {
			activity = 1
			for _, key := range numericOrder {
				activity *= numeric[key]
			}
		}
	case domain.OperationSum:
		for _, key := range numericOrder {
			activity += numeric[key]
		}
	default:
		activity = e.resolveSingle(numeric, numericOrder)
	}

	if override, ok := e.overrides[def.ProcessCode]; ok {
		activity = override(numeric, activity)
	}
	return activity, inputs, nil
}

// resolveSingle picks the one number that matters: the first priority
// key with a parsed answer, else the first numeric answer in
// field-declaration order, else zero.
func (e *Engine) resolveSingle(numeric map[string]float64, numericOrder []string) float64 {
	for _, key := range e.priority {
		if v, ok := numeric[key]; ok {
			return v
		}
	}
	if len(numericOrder) > 0 {
		return numeric[numericOrder[0]]
	}
	return 0
}

func (e *Engine) lookup(processCode string) (domain.ProcessDefinition, bool) {
	if e.schemas == nil {
		return domain.ProcessDefinition{}, false
	}
	return e.schemas.Lookup(processCode)
}

// Emission is the final conversion: activity times factor, stored
// unrounded. Rounding is a display concern.
func Emission(activityValue, factor float64) float64 {
	return activityValue * factor
}
