package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// InputPair is one answered question, question text mapped to the raw
// value exactly as submitted.
type InputPair struct {
	Question string
	Value    string
}

// InputDetails is the audit payload of a record: every question/answer
// pair in field-declaration order. It serializes as a JSON object whose
// key order follows the slice.
type InputDetails []InputPair

func (d InputDetails) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pair := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pair.Question)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(pair.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *InputDetails) UnmarshalJSON(raw []byte) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("input details must be a JSON object")
	}
	out := make(InputDetails, 0)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("input details key must be a string")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return err
		}
		out = append(out, InputPair{Question: key, Value: stringifyValue(value)})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

func stringifyValue(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%f", typed), "0"), ".")
	case bool:
		if typed {
			return "true"
		}
		return "false"
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return ""
		}
		return string(raw)
	}
}

// EmissionRecord is the persisted result of one computation. Append-only:
// once written it is never mutated, and FactorUsed stays the factor that
// was active at submission time even if the catalog changes later.
type EmissionRecord struct {
	ID           string
	OwnerKey     string
	ProcessCode  string
	ProcessDesc  string
	Scope        string
	Unit         string
	InputDetails InputDetails
	FactorUsed   float64
	Emission     float64
	CreatedAt    time.Time
}

func (r EmissionRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("record id is required")
	}
	if strings.TrimSpace(r.OwnerKey) == "" {
		return errors.New("owner key is required")
	}
	if strings.TrimSpace(r.ProcessCode) == "" {
		return errors.New("process code is required")
	}
	if r.FactorUsed < 0 {
		return errors.New("factor used must be non-negative")
	}
	return nil
}
