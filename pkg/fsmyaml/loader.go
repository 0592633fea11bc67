// Package fsmyaml loads the structured, document-form template dialect
// (version: 1, fields/states-or-patterns/macros/metadata) from YAML text
// into an intermediate fsm.Template.
package fsmyaml

import (
	"fmt"

	"clifsm/pkg/fsm"

	"gopkg.in/yaml.v3"
)

var topLevelKeys = map[string]bool{
	"version": true, "macros": true, "fields": true,
	"states": true, "patterns": true, "metadata": true,
}

var fieldKeys = map[string]bool{
	"type": true, "pattern": true, "filldown": true, "required": true, "list": true,
}

var ruleKeys = map[string]bool{"regex": true, "action": true}

var actionKeys = map[string]bool{"line": true, "record": true, "next": true}

var patternKeys = map[string]bool{"regex": true, "record": true}

var metadataKeys = map[string]bool{
	"description": true, "compatibility": true, "version": true,
	"author": true, "maintainer": true,
}

// Load parses structured-dialect template text into an intermediate
// fsm.Template. Unlike pkg/fsmtext, every unrecognized key at any level is a
// fatal schema error rather than a warning, reported with a path locating
// the offending key.
func Load(input []byte) (fsm.Template, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(input, &root); err != nil {
		return fsm.Template{}, fmt.Errorf("phase=parse path=<doc>: %w: %v", fsm.ErrTemplateSyntax, err)
	}
	if len(root.Content) == 0 {
		return fsm.Template{}, fmt.Errorf("phase=parse path=<doc>: %w: empty document", fsm.ErrTemplateSyntax)
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return fsm.Template{}, fmt.Errorf("phase=parse path=<doc>: %w: expected a mapping at the document root", fsm.ErrTemplateSchema)
	}

	if err := checkUnknownKeys(doc, topLevelKeys, "<doc>"); err != nil {
		return fsm.Template{}, err
	}

	var raw rawDoc
	if err := doc.Decode(&raw); err != nil {
		return fsm.Template{}, fmt.Errorf("phase=parse path=<doc>: %w: %v", fsm.ErrTemplateSchema, err)
	}

	if raw.Version != 1 {
		return fsm.Template{}, fmt.Errorf("phase=validate path=version: %w: unsupported version %d (only 1 is accepted)", fsm.ErrTemplateSchema, raw.Version)
	}

	if err := validateFieldsNode(findKey(doc, "fields")); err != nil {
		return fsm.Template{}, err
	}
	statesNode := findKey(doc, "states")
	patternsNode := findKey(doc, "patterns")
	hasStates := statesNode != nil && len(statesNode.Content) > 0
	hasPatterns := patternsNode != nil && len(patternsNode.Content) > 0
	switch {
	case hasStates && hasPatterns:
		return fsm.Template{}, fmt.Errorf("phase=validate path=<doc>: %w: a document must declare exactly one of 'states' or 'patterns', not both", fsm.ErrTemplateSchema)
	case !hasStates && !hasPatterns:
		return fsm.Template{}, fmt.Errorf("phase=validate path=<doc>: %w: a document must declare one of 'states' or 'patterns'", fsm.ErrTemplateSchema)
	}
	if err := validateStatesNode(statesNode); err != nil {
		return fsm.Template{}, err
	}
	if err := validatePatternsNode(patternsNode); err != nil {
		return fsm.Template{}, err
	}
	if err := checkUnknownKeys(findKey(doc, "metadata"), metadataKeys, "metadata"); err != nil {
		return fsm.Template{}, err
	}

	return lower(raw, mappingKeyOrder(statesNode)), nil
}

// mappingKeyOrder returns a mapping node's keys in document order, so state
// declaration order survives the map decode.
func mappingKeyOrder(node *yaml.Node) []string {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

// rawDoc is the typed decode target once unknown-key checking has already
// passed; yaml.v3 tags drive the actual value extraction.
type rawDoc struct {
	Version  int                  `yaml:"version"`
	Macros   map[string]string    `yaml:"macros"`
	Fields   map[string]rawField  `yaml:"fields"`
	States   map[string][]rawRule `yaml:"states"`
	Patterns []rawPattern         `yaml:"patterns"`
	Metadata rawMetadata          `yaml:"metadata"`
}

type rawField struct {
	Type     string `yaml:"type"`
	Pattern  string `yaml:"pattern"`
	Filldown bool   `yaml:"filldown"`
	Required bool   `yaml:"required"`
	List     bool   `yaml:"list"`
}

type rawRule struct {
	Regex  string    `yaml:"regex"`
	Action rawAction `yaml:"action"`
}

type rawAction struct {
	Line   string `yaml:"line"`
	Record string `yaml:"record"`
	Next   string `yaml:"next"`
}

type rawPattern struct {
	Regex  string `yaml:"regex"`
	Record bool   `yaml:"record"`
}

type rawMetadata struct {
	Description   string `yaml:"description"`
	Compatibility string `yaml:"compatibility"`
	Version       string `yaml:"version"`
	Author        string `yaml:"author"`
	Maintainer    string `yaml:"maintainer"`
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

// findKey returns the value node for key in a YAML mapping node, or nil if
// absent.
func findKey(mapping *yaml.Node, key string) *yaml.Node {
	if mapping == nil || mapping.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

// checkUnknownKeys rejects any mapping key not present in allowed,
// reporting a path-locating error. yaml.v3 has no deny-unknown-fields
// decode mode, so the allow-list is walked by hand.
func checkUnknownKeys(node *yaml.Node, allowed map[string]bool, path string) error {
	if node == nil {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		if !allowed[key] {
			return fmt.Errorf("phase=validate path=%s.%s: %w: unknown key %q", path, key, fsm.ErrTemplateSchema, key)
		}
	}
	return nil
}

func validateFieldsNode(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		if err := checkUnknownKeys(node.Content[i+1], fieldKeys, "fields."+name); err != nil {
			return err
		}
	}
	return nil
}

func validateStatesNode(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		stateName := node.Content[i].Value
		rulesNode := node.Content[i+1]
		if rulesNode.Kind != yaml.SequenceNode {
			continue
		}
		for ri, ruleNode := range rulesNode.Content {
			path := fmt.Sprintf("states.%s[%d]", stateName, ri)
			if err := checkUnknownKeys(ruleNode, ruleKeys, path); err != nil {
				return err
			}
			if err := checkUnknownKeys(findKey(ruleNode, "action"), actionKeys, path+".action"); err != nil {
				return err
			}
		}
	}
	return nil
}

func validatePatternsNode(node *yaml.Node) error {
	if node == nil {
		return nil
	}
	for i, item := range node.Content {
		if err := checkUnknownKeys(item, patternKeys, fmt.Sprintf("patterns[%d]", i)); err != nil {
			return err
		}
	}
	return nil
}
