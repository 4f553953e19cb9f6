package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// CriteriaAssessment is the ordered set of assessments, one per code. It is
// encoded as a JSON object keyed by code, preserving evaluation order.
type CriteriaAssessment []CriterionAssessment

// Get returns the assessment for code.
func (c CriteriaAssessment) Get(code string) (CriterionAssessment, bool) {
	for _, a := range c {
		if a.Code == code {
			return a, true
		}
	}
	return CriterionAssessment{}, false
}

// Codes returns the codes in order.
func (c CriteriaAssessment) Codes() []string {
	codes := make([]string, len(c))
	for i, a := range c {
		codes[i] = a.Code
	}
	return codes
}

// MarshalJSON encodes the assessments as an ordered object.
func (c CriteriaAssessment) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(a.Code)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(a)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by code, keeping document order.
func (c *CriteriaAssessment) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("schema: criteria_assessment must be an object")
	}
	var out CriteriaAssessment
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		code, ok := tok.(string)
		if !ok {
			return fmt.Errorf("schema: criteria_assessment key %v is not a string", tok)
		}
		var a CriterionAssessment
		if err := dec.Decode(&a); err != nil {
			return fmt.Errorf("schema: criteria_assessment[%s]: %w", code, err)
		}
		if a.Code == "" {
			a.Code = code
		}
		out = append(out, a)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = out
	return nil
}
