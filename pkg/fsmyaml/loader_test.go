package fsmyaml

import (
	"errors"
	"reflect"
	"testing"

	"clifsm/pkg/fsm"
	"clifsm/pkg/fsmtext"
)

func TestLoadStatesForm(t *testing.T) {
	doc := []byte(`
version: 1
fields:
  Vlan:
    pattern: '\d+'
  Status:
    pattern: '\w+'
states:
  Start:
    - regex: 'VLAN ${Vlan}'
      action: { line: continue, record: none }
    - regex: 'is ${Status}'
      action: { line: next, record: record }
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
version: 1
fields:
  X:
    pattern: '\w+'
patterns:
  - regex: 'X ${X}'
    record: true
`)
	tmpl, err := Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := tmpl.States["Start"]; !ok {
		t.Fatal("expected patterns form to sugar into a Start state")
	}
	if len(tmpl.States["Start"].Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(tmpl.States["Start"].Rules))
	}
}

func TestLoadRejectsBothStatesAndPatterns(t *testing.T) {
	doc := []byte(`
version: 1
fields:
  X: { pattern: '\w+' }
states:
  Start:
    - regex: 'X ${X}'
patterns:
  - regex: 'X ${X}'
`)
	if _, err := Load(doc); err == nil {
		t.Fatal("expected an error when both states and patterns are present")
	} else if !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema, got %v", err)
	}
}

func TestLoadRejectsNeitherStatesNorPatterns(t *testing.T) {
	doc := []byte(`
version: 1
fields:
  X: { pattern: '\w+' }
`)
	if _, err := Load(doc); err == nil {
		t.Fatal("expected an error when neither states nor patterns is present")
	}
}

func TestLoadRejectsUnknownTopLevelKey(t *testing.T) {
	doc := []byte(`
version: 1
bogus: true
patterns:
  - regex: 'X'
`)
	_, err := Load(doc)
	if err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema for unknown key, got %v", err)
	}
}

func TestLoadRejectsUnknownFieldKey(t *testing.T) {
	doc := []byte(`
version: 1
fields:
  X:
    pattern: '\w+'
    bogus: 1
patterns:
  - regex: 'X ${X}'
`)
	_, err := Load(doc)
	if err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema for unknown field key, got %v", err)
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	doc := []byte(`
version: 2
patterns:
  - regex: 'X'
`)
	_, err := Load(doc)
	if err == nil || !errors.Is(err, fsm.ErrTemplateSchema) {
		t.Fatalf("expected ErrTemplateSchema for bad version, got %v", err)
	}
}

// The same template expressed in the legacy and structured dialects must
// parse the same input to identical record sequences.
func TestLegacyAndStructuredDialectParity(t *testing.T) {
	legacy := "Value Filldown CHASSIS (\\S+)\n" +
		"Value SLOT (\\d+)\n" +
		"\n" +
		"Start\n" +
		"  ^Chassis ${CHASSIS} -> NoRecord\n" +
		"  ^Slot ${SLOT} -> Record\n"
	structured := []byte(`
version: 1
fields:
  CHASSIS:
    pattern: '\S+'
    filldown: true
  SLOT:
    pattern: '\d+'
states:
  Start:
    - regex: '^Chassis ${CHASSIS}'
      action: { line: next, record: none }
    - regex: '^Slot ${SLOT}'
      action: { line: next, record: record }
`)
	input := "Chassis Router1\nSlot 1\nSlot 2\n"

	legacyTmpl, _, err := fsmtext.Load(legacy)
	if err != nil {
		t.Fatalf("legacy load: %v", err)
	}
	structuredTmpl, err := Load(structured)
	if err != nil {
		t.Fatalf("structured load: %v", err)
	}

	var got [][]fsm.Record
	for _, tmpl := range []fsm.Template{legacyTmpl, structuredTmpl} {
		compiled, err := fsm.Compile(tmpl)
		if err != nil {
			t.Fatalf("compile: %v", err)
		}
		records, err := fsm.Parse(compiled, input)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		got = append(got, records)
	}
	if !reflect.DeepEqual(got[0], got[1]) {
		t.Fatalf("dialects disagree:\nlegacy:     %v\nstructured: %v", got[0], got[1])
	}
	if len(got[0]) != 2 || got[0][1]["CHASSIS"] != "Router1" {
		t.Fatalf("unexpected records: %v", got[0])
	}
}

func TestLoadMacrosAndMetadata(t *testing.T) {
	doc := []byte(`
version: 1
macros:
  octet: '\d{1,3}'
fields:
  IP:
    pattern: '{{octet}}\.{{octet}}\.{{octet}}\.{{octet}}'
patterns:
  - regex: 'IP ${IP}'
    record: true
metadata:
  description: sample
  author: tester
`)
	tmpl, err := Load(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tmpl.Macros["octet"] != `\d{1,3}` {
		t.Fatalf("macro not carried through: %v", tmpl.Macros)
	}
	if tmpl.Metadata.Description != "sample" || tmpl.Metadata.Author != "tester" {
		t.Fatalf("metadata not carried through: %+v", tmpl.Metadata)
	}
}
