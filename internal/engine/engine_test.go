package engine

import (
	"errors"
	"testing"

	"github.com/carbonledger-labs/carbonledger-go/internal/registry"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	reg, err := registry.Load()
	if err != nil {
		t.Fatalf("registry.Load() err=%v", err)
	}
	return New(reg)
}

func TestComputeActivityMultiply(t *testing.T) {
	e := testEngine(t)
	activity, inputs, err := e.ComputeActivity("LPG_CONS_EM", Submission{
		"LPG_no":     "10",
		"Weight_LPG": "14.2",
	})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 142.0 {
		t.Fatalf("activity=%v want 142.0", activity)
	}
	if len(inputs) != 2 {
		t.Fatalf("inputs=%d want 2", len(inputs))
	}
	if inputs[0].Question != "How many LPG cylinders were used?" || inputs[0].Value != "10" {
		t.Fatalf("inputs[0]=%+v", inputs[0])
	}
}

func TestComputeActivityMultiplyAbsentFieldExcluded(t *testing.T) {
	e := testEngine(t)
	// Weight_LPG missing: excluded from the product, not treated as zero.
	activity, _, err := e.ComputeActivity("LPG_CONS_EM", Submission{"LPG_no": "10"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 10 {
		t.Fatalf("activity=%v want 10", activity)
	}
}

func TestComputeActivityMultiplyNoNumericIsZero(t *testing.T) {
	e := testEngine(t)
	activity, _, err := e.ComputeActivity("LPG_CONS_EM", Submission{})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 0 {
		t.Fatalf("activity=%v want 0", activity)
	}
}

func TestComputeActivitySum(t *testing.T) {
	e := testEngine(t)
	activity, _, err := e.ComputeActivity("OVER_B_EM", Submission{"m3": "5"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 5.0 {
		t.Fatalf("activity=%v want 5.0", activity)
	}
}

func TestComputeActivitySinglePriority(t *testing.T) {
	e := testEngine(t)
	// Pax is numeric but not a priority key; Distance is.
	activity, _, err := e.ComputeActivity("TRANS_PLANE_EM", Submission{
		"Pax":      "4",
		"Distance": "12",
	})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 12.0 {
		t.Fatalf("activity=%v want 12.0", activity)
	}
}

func TestComputeActivitySingleFirstNumericFallback(t *testing.T) {
	e := testEngine(t)
	// No priority key answered: first numeric in declaration order wins.
	activity, _, err := e.ComputeActivity("TRANS_PLANE_EM", Submission{"Pax": "4"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 4 {
		t.Fatalf("activity=%v want 4", activity)
	}
}

func TestComputeActivitySingleZeroPriorityValueWins(t *testing.T) {
	e := testEngine(t)
	// An explicit 0-distance answer is a value, not an absence.
	activity, _, err := e.ComputeActivity("TRANS_PLANE_EM", Submission{
		"Distance": "0",
		"Pax":      "4",
	})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 0 {
		t.Fatalf("activity=%v want 0", activity)
	}
}

func TestComputeActivityRoundTripOverride(t *testing.T) {
	e := testEngine(t)
	activity, _, err := e.ComputeActivity("TRANS_LMV_EM", Submission{"Distance": "20"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 40.0 {
		t.Fatalf("activity=%v want 40.0 (one-way distance doubled)", activity)
	}
}

func TestComputeActivityOverrideOnlyThatProcess(t *testing.T) {
	e := testEngine(t)
	activity, _, err := e.ComputeActivity("TRANS_6WHS_EM", Submission{"Distance": "20"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 20.0 {
		t.Fatalf("activity=%v want 20.0 (no doubling outside TRANS_LMV_EM)", activity)
	}
}

func TestComputeActivityTextFieldsExcluded(t *testing.T) {
	e := testEngine(t)
	activity, inputs, err := e.ComputeActivity("HEMV_FUEL_EM", Submission{
		"Type":     "Excavator",
		"Model":    "EX200",
		"Fuel_Con": "350",
	})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 350 {
		t.Fatalf("activity=%v want 350", activity)
	}
	// Text answers stay in the audit payload.
	if inputs[0].Value != "Excavator" {
		t.Fatalf("inputs[0]=%+v", inputs[0])
	}
	// Absent fields are recorded as empty strings.
	if inputs[2].Question != "Total run hours?" || inputs[2].Value != "" {
		t.Fatalf("inputs[2]=%+v", inputs[2])
	}
}

func TestComputeActivityNoSchemaQuantityFallback(t *testing.T) {
	e := testEngine(t)
	activity, inputs, err := e.ComputeActivity("UNMAPPED_EM", Submission{"quantity": "7.5"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 7.5 {
		t.Fatalf("activity=%v want 7.5", activity)
	}
	if len(inputs) != 1 || inputs[0].Question != "quantity" {
		t.Fatalf("inputs=%+v", inputs)
	}
}

func TestComputeActivityNoSchemaUnparsableQuantity(t *testing.T) {
	e := testEngine(t)
	_, _, err := e.ComputeActivity("UNMAPPED_EM", Submission{"quantity": "lots"})
	if !errors.Is(err, ErrQuantityRequired) {
		t.Fatalf("err=%v want ErrQuantityRequired", err)
	}
	_, _, err = e.ComputeActivity("UNMAPPED_EM", Submission{})
	if !errors.Is(err, ErrQuantityRequired) {
		t.Fatalf("err=%v want ErrQuantityRequired", err)
	}
}

func TestEmission(t *testing.T) {
	if got := Emission(500.0, 2.68); got != 1340.0 {
		t.Fatalf("Emission=%v want 1340.0", got)
	}
	if got := Emission(0, 2.68); got != 0 {
		t.Fatalf("Emission=%v want 0", got)
	}
}

func TestDGConsEndToEndActivity(t *testing.T) {
	e := testEngine(t)
	activity, inputs, err := e.ComputeActivity("DG_CONS_EM", Submission{"Fuel_cons": "500"})
	if err != nil {
		t.Fatalf("ComputeActivity err=%v", err)
	}
	if activity != 500.0 {
		t.Fatalf("activity=%v want 500.0", activity)
	}
	if len(inputs) != 1 || inputs[0].Question != "Total DG fuel consumed (litres)?" || inputs[0].Value != "500" {
		t.Fatalf("inputs=%+v", inputs)
	}
	if got := Emission(activity, 2.68); got != 1340.0 {
		t.Fatalf("emission=%v want 1340.0", got)
	}
}
