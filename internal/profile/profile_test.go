package profile

import (
	"strings"
	"testing"
)

func TestLoad_Builtins(t *testing.T) {
	for _, name := range Names() {
		p, err := Load(name)
		if err != nil {
			t.Errorf("Load(%q) error: %v", name, err)
			continue
		}
		if p.Name != name {
			t.Errorf("Load(%q).Name = %q", name, p.Name)
		}
		if err := Validate(p); err != nil {
			t.Errorf("Validate(%q): %v", name, err)
		}
	}
}

func TestLoad_DefaultIsStandard(t *testing.T) {
	p, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}
	if p.Name != "standard" {
		t.Errorf("Load(\"\").Name = %q, want standard", p.Name)
	}
	if p.Gratitude.AlwaysRequired {
		t.Error("standard profile requires gratitude always, want threshold policy")
	}
	if p.Gratitude.Threshold != 10 {
		t.Errorf("gratitude threshold = %v, want 10", p.Gratitude.Threshold)
	}
}

func TestLoad_StrictGratitude(t *testing.T) {
	p, err := Load("strict-gratitude")
	if err != nil {
		t.Fatal(err)
	}
	if !p.Gratitude.AlwaysRequired {
		t.Error("strict-gratitude AlwaysRequired = false, want true")
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("nope")
	if err == nil {
		t.Fatal("expected error for unknown profile")
	}
	if !strings.Contains(err.Error(), "standard") {
		t.Errorf("error %q should list available profiles", err)
	}
}

func TestLoadFromReader_OverridesDefaults(t *testing.T) {
	p, err := LoadFromReader(strings.NewReader(`
name: call-center-b
search:
  pass_max: 30
  violation_above: 35
gratitude:
  always_required: true
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if p.Name != "call-center-b" {
		t.Errorf("Name = %q", p.Name)
	}
	if p.Search.PassMax != 30 || p.Search.ViolationAbove != 35 {
		t.Errorf("search = %+v, want 30/35", p.Search)
	}
	if p.Search.MergeWindow != 30 {
		t.Errorf("merge window = %v, want standard 30", p.Search.MergeWindow)
	}
	if !p.Gratitude.AlwaysRequired || p.Gratitude.LookaheadTurns != 4 {
		t.Errorf("gratitude = %+v", p.Gratitude)
	}
}

func TestLoadFromReader_Invalid(t *testing.T) {
	cases := map[string]string{
		"unknown field":  "serach:\n  pass_max: 10\n",
		"inverted range": "search:\n  pass_max: 50\n  violation_above: 45\n",
		"similarity":     "echo:\n  similarity: 1.5\n",
	}
	for name, in := range cases {
		if _, err := LoadFromReader(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestLoadFromReader_Empty(t *testing.T) {
	p, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader(empty): %v", err)
	}
	if p.Search.PassMax != 40 {
		t.Errorf("PassMax = %v, want 40", p.Search.PassMax)
	}
}
