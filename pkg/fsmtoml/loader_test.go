package fsmtoml

import (
	"errors"
	"testing"

	"clifsm/pkg/fsm"
)

func TestLoadStatesForm(t *testing.T) {
	doc := []byte(`
version = 1

[fields.Vlan]
pattern = '\d+'

[fields.Status]
pattern = '\w+'

[[states.Start]]
regex = 'VLAN ${Vlan}'
[states.Start.action]
line = "continue"
record = "none"

[[states.Start]]
regex = 'is ${Status}'
[states.Start.action]
line = "next"
record = "record"
`)
	tmpl, err := Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	compiled, err := fsm.Compile(tmpl)
	if err != nil {
		t.Fatalf("unexpected compile error: %v", err)
	}
	records, err := fsm.Parse(compiled, "VLAN 10 is up")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0]["Vlan"] != int64(10) || records[0]["Status"] != "up" {
		t.Fatalf("unexpected record: %v", records[0])
	}
}

func TestLoadPatternsForm(t *testing.T) {
	doc := []byte(`
version = 1

[fields.X]
pattern = '\w+'

[[patterns]]
regex = 'X ${X}'
record = true
`)
	tmpl, err := Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tmpl.States["Start"]; !ok {
		t.Fatal("expected patterns form to sugar into a Start state")
	}
}

func TestLoadRejectsBothStatesAndPatterns(t *testing.T) {
	doc := []byte(`
version = 1

[[states.Start]]
regex = 'X'

[[patterns]]
regex = 'X'
`)
	if _, err := Load(doc); err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema, got %v", err)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	doc := []byte(`
version = 1
bogus = true

[[patterns]]
regex = 'X'
`)
	_, err := Load(doc)
	if err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema for unknown key, got %v", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	doc := []byte(`
version = 2

[[patterns]]
regex = 'X'
`)
	_, err := Load(doc)
	if err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema for bad version, got %v", err)
	}
}
