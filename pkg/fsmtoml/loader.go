// Package fsmtoml loads the structured, document-form template dialect from
// TOML text, using the same schema as pkg/fsmyaml.
package fsmtoml

import (
	"fmt"

	"clifsm/pkg/fsm"

	"github.com/BurntSushi/toml"
)

type rawDoc struct {
	Version  int                  `toml:"version"`
	Macros   map[string]string    `toml:"macros"`
	Fields   map[string]rawField  `toml:"fields"`
	States   map[string][]rawRule `toml:"states"`
	Patterns []rawPattern         `toml:"patterns"`
	Metadata rawMetadata          `toml:"metadata"`
}

type rawField struct {
	Type     string `toml:"type"`
	Pattern  string `toml:"pattern"`
	Filldown bool   `toml:"filldown"`
	Required bool   `toml:"required"`
	List     bool   `toml:"list"`
}

type rawRule struct {
	Regex  string    `toml:"regex"`
	Action rawAction `toml:"action"`
}

type rawAction struct {
	Line   string `toml:"line"`
	Record string `toml:"record"`
	Next   string `toml:"next"`
}

type rawPattern struct {
	Regex  string `toml:"regex"`
	Record bool   `toml:"record"`
}

type rawMetadata struct {
	Description   string `toml:"description"`
	Compatibility string `toml:"compatibility"`
	Version       string `toml:"version"`
	Author        string `toml:"author"`
	Maintainer    string `toml:"maintainer"`
}

// Load parses structured-dialect template text, TOML-encoded, into an
// intermediate fsm.Template. Unknown keys at any level are rejected via
// toml.MetaData's undecoded-key report.
func Load(input []byte) (fsm.Template, error) {
	var raw rawDoc
	meta, err := toml.Decode(string(input), &raw)
	if err != nil {
		return fsm.Template{}, fmt.Errorf("phase=parse path=<doc>: %w: %v", fsm.ErrTemplateSyntax, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fsm.Template{}, fmt.Errorf("phase=validate path=%s: %w: unknown key %q", undecoded[0].String(), fsm.ErrTemplateSchema, undecoded[0].String())
	}

	if raw.Version != 1 {
		return fsm.Template{}, fmt.Errorf("phase=validate path=version: %w: unsupported version %d (only 1 is accepted)", fsm.ErrTemplateSchema, raw.Version)
	}

	hasStates := len(raw.States) > 0
	hasPatterns := len(raw.Patterns) > 0
	switch {
	case hasStates && hasPatterns:
		return fsm.Template{}, fmt.Errorf("phase=validate path=<doc>: %w: a document must declare exactly one of 'states' or 'patterns', not both", fsm.ErrTemplateSchema)
	case !hasStates && !hasPatterns:
		return fsm.Template{}, fmt.Errorf("phase=validate path=<doc>: %w: a document must declare one of 'states' or 'patterns'", fsm.ErrTemplateSchema)
	}

	return lower(raw, stateKeyOrder(meta)), nil
}

// stateKeyOrder recovers state declaration order from the decoder's key
// log, since the map decode itself does not preserve it.
func stateKeyOrder(meta toml.MetaData) []string {
	var order []string
	seen := make(map[string]bool)
	for _, key := range meta.Keys() {
		if len(key) < 2 || key[0] != "states" || seen[key[1]] {
			continue
		}
		seen[key[1]] = true
		order = append(order, key[1])
	}
	return order
}

func lower(raw rawDoc, stateOrder []string) fsm.Template {
	tmpl := fsm.Template{
		Fields: make(map[string]fsm.Field, len(raw.Fields)),
		States: make(map[string]fsm.State),
		Macros: raw.Macros,
		Metadata: fsm.Metadata{
			Description:   raw.Metadata.Description,
			Compatibility: raw.Metadata.Compatibility,
			Version:       raw.Metadata.Version,
			Author:        raw.Metadata.Author,
			Maintainer:    raw.Metadata.Maintainer,
		},
	}
	if tmpl.Macros == nil {
		tmpl.Macros = make(map[string]string)
	}

	for name, f := range raw.Fields {
		hint := fsm.FieldTypeNone
		switch f.Type {
		case "int":
			hint = fsm.FieldTypeInt
		case "string":
			hint = fsm.FieldTypeString
		}
		tmpl.Fields[name] = fsm.Field{
			Name:     name,
			Pattern:  f.Pattern,
			Filldown: f.Filldown,
			Required: f.Required,
			List:     f.List,
			TypeHint: hint,
		}
	}

	if len(raw.States) > 0 {
		for _, name := range stateOrder {
			st := fsm.State{Name: name}
			for _, r := range raw.States[name] {
				st.Rules = append(st.Rules, lowerRule(r))
			}
			tmpl.States[name] = st
			tmpl.StateOrder = append(tmpl.StateOrder, name)
		}
		return tmpl
	}

	start := fsm.State{Name: "Start"}
	for _, p := range raw.Patterns {
		ra := fsm.RecordNone
		if p.Record {
			ra = fsm.RecordEmit
		}
		start.Rules = append(start.Rules, fsm.Rule{
			Regex:        p.Regex,
			LineAction:   fsm.LineNext,
			RecordAction: ra,
		})
	}
	tmpl.States["Start"] = start
	tmpl.StateOrder = []string{"Start"}
	return tmpl
}

func lowerRule(r rawRule) fsm.Rule {
	rule := fsm.Rule{Regex: r.Regex, NextState: r.Action.Next}
	switch r.Action.Line {
	case "continue":
		rule.LineAction = fsm.LineContinue
	default:
		rule.LineAction = fsm.LineNext
	}
	switch r.Action.Record {
	case "record":
		rule.RecordAction = fsm.RecordEmit
	case "clear":
		rule.RecordAction = fsm.RecordClear
	case "clearall":
		rule.RecordAction = fsm.RecordClearAll
	case "error":
		rule.RecordAction = fsm.RecordError
	default:
		rule.RecordAction = fsm.RecordNone
	}
	return rule
}
