package schema

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		in   float64
		want ConfidenceLevel
	}{
		{1.0, ConfidenceVeryHigh},
		{0.90, ConfidenceVeryHigh},
		{0.89, ConfidenceHigh},
		{0.75, ConfidenceHigh},
		{0.74, ConfidenceMedium},
		{0.50, ConfidenceMedium},
		{0.2, ConfidenceLow},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.in); got != tt.want {
			t.Errorf("LevelFor(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCriteriaAssessment_MarshalKeepsOrder(t *testing.T) {
	c := CriteriaAssessment{
		{Code: "9.1", Status: StatusPass, Confidence: ConfidenceHigh, Evidence: "ok"},
		{Code: "7.1", Status: StatusViolation, Confidence: ConfidenceHigh, Evidence: "no greeting"},
		{Code: "10.2", Status: StatusPass, Confidence: ConfidenceHigh},
	}
	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(data)
	i91 := strings.Index(s, `"9.1":`)
	i71 := strings.Index(s, `"7.1":`)
	i102 := strings.Index(s, `"10.2":`)
	if i91 < 0 || i71 < 0 || i102 < 0 {
		t.Fatalf("missing keys in %s", s)
	}
	if !(i91 < i71 && i71 < i102) {
		t.Errorf("key order not preserved: %s", s)
	}
}

func TestCriteriaAssessment_RoundTrip(t *testing.T) {
	in := CriteriaAssessment{
		{Code: "7.3", Status: StatusPass, Confidence: ConfidenceVeryHigh},
		{Code: "9.1", Status: StatusFlag, Confidence: ConfidenceHigh, Note: StringPtr("coaching")},
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var out CriteriaAssessment
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got := out.Codes(); len(got) != 2 || got[0] != "7.3" || got[1] != "9.1" {
		t.Fatalf("Codes() = %v, want [7.3 9.1]", got)
	}
	a, ok := out.Get("9.1")
	if !ok {
		t.Fatal("Get(9.1) not found")
	}
	if a.Status != StatusFlag || a.Note == nil || *a.Note != "coaching" {
		t.Errorf("Get(9.1) = %+v", a)
	}
}

func TestCriteriaAssessment_UnmarshalFillsCodeFromKey(t *testing.T) {
	var c CriteriaAssessment
	if err := json.Unmarshal([]byte(`{"9.3":{"status":"VIOLATION"}}`), &c); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	a, ok := c.Get("9.3")
	if !ok || a.Code != "9.3" || a.Status != StatusViolation {
		t.Errorf("Get(9.3) = %+v, %v", a, ok)
	}
}

func TestCriteriaAssessment_UnmarshalRejectsArray(t *testing.T) {
	var c CriteriaAssessment
	if err := json.Unmarshal([]byte(`[1,2]`), &c); err == nil {
		t.Error("expected error for array input")
	}
}

func TestGradingResult_NullsArePresent(t *testing.T) {
	var r GradingResult
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for _, key := range []string{`"primary_violation":null`, `"intro_time_sec":null`, `"search_duration_sec":null`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("output missing %s", key)
		}
	}
}
