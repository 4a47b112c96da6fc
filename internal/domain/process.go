package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Operation decides how the numeric answers of a process are combined
// into a single activity value.
type Operation string

const (
	// OperationSingle picks one numeric answer (priority-list resolution).
	OperationSingle Operation = "single"
	// OperationSum adds all numeric answers.
	OperationSum Operation = "sum"
	// OperationMultiply multiplies all numeric answers.
	OperationMultiply Operation = "multiply"
)

func ParseOperation(raw string) (Operation, error) {
	switch Operation(strings.ToLower(strings.TrimSpace(raw))) {
	case OperationSingle, "":
		return OperationSingle, nil
	case OperationSum:
		return OperationSum, nil
	case OperationMultiply:
		return OperationMultiply, nil
	default:
		return "", fmt.Errorf("unsupported operation: %q", raw)
	}
}

// Field is one question asked for a process. Key is the submission form
// key, Question the human-readable prompt shown to (and stored for) the
// user, Unit a display hint. Fields may be free text; non-numeric answers
// are kept for audit but excluded from activity arithmetic.
type Field struct {
	Key      string `yaml:"key"`
	Question string `yaml:"question"`
	Unit     string `yaml:"unit"`
}

// ProcessDefinition is the immutable input-field schema of one process
// code, loaded once at startup.
type ProcessDefinition struct {
	ProcessCode string    `yaml:"process_code"`
	Fields      []Field   `yaml:"fields"`
	Operation   Operation `yaml:"operation"`
}

func (d ProcessDefinition) Validate() error {
	if strings.TrimSpace(d.ProcessCode) == "" {
		return errors.New("process code is required")
	}
	if _, err := ParseOperation(string(d.Operation)); err != nil {
		return fmt.Errorf("process %s: %w", d.ProcessCode, err)
	}
	seen := make(map[string]struct{}, len(d.Fields))
	for i, f := range d.Fields {
		key := strings.TrimSpace(f.Key)
		if key == "" {
			return fmt.Errorf("process %s: fields[%d].key is required", d.ProcessCode, i)
		}
		if strings.TrimSpace(f.Question) == "" {
			return fmt.Errorf("process %s: fields[%d].question is required", d.ProcessCode, i)
		}
		if _, ok := seen[key]; ok {
			return fmt.Errorf("process %s: duplicate field key %q", d.ProcessCode, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
