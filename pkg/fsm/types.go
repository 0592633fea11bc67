// Package fsm implements a declarative text-to-records parsing engine: a
// finite state machine whose transitions are regular expressions with named
// capture groups, compiled from a template and driven one input line at a
// time to produce typed records.
package fsm

import "regexp"

// FieldType is the declared type hint for a field's captured value.
type FieldType int

const (
	// FieldTypeNone lets the converter apply its int-or-string heuristic.
	FieldTypeNone FieldType = iota
	// FieldTypeInt forces conversion to int64, falling back to the raw
	// string when the capture is not a valid integer under the heuristic.
	FieldTypeInt
	// FieldTypeString forces the raw captured string, no conversion.
	FieldTypeString
)

func (t FieldType) String() string {
	switch t {
	case FieldTypeInt:
		return "int"
	case FieldTypeString:
		return "string"
	default:
		return "none"
	}
}

// Field describes one named capture a template declares.
type Field struct {
	Name     string
	Pattern  string
	Filldown bool
	Required bool
	List     bool
	TypeHint FieldType
}

// LineAction controls whether the engine consumes the current line after a
// rule fires.
type LineAction int

const (
	// LineNext consumes the current line; matching resumes at the first
	// rule of the (possibly new) state against the next input line.
	LineNext LineAction = iota
	// LineContinue does not consume the current line; the same line is
	// retried against rules of the (possibly new) state.
	LineContinue
)

func (a LineAction) String() string {
	if a == LineContinue {
		return "continue"
	}
	return "next"
}

// RecordAction controls what happens to the record buffer when a rule fires.
type RecordAction int

const (
	// RecordNone leaves the buffer untouched.
	RecordNone RecordAction = iota
	// RecordEmit emits the buffer as a record (subject to the dirty-bit
	// and required-field gates) and resets non-filldown fields.
	RecordEmit
	// RecordClear resets non-filldown fields without emitting.
	RecordClear
	// RecordClearAll resets all fields, including filldown ones, without
	// emitting.
	RecordClearAll
	// RecordError aborts the parse immediately, discarding all records
	// produced so far.
	RecordError
)

func (a RecordAction) String() string {
	switch a {
	case RecordEmit:
		return "record"
	case RecordClear:
		return "clear"
	case RecordClearAll:
		return "clearall"
	case RecordError:
		return "error"
	default:
		return "none"
	}
}

// Rule is one regex-guarded transition within a state.
type Rule struct {
	Regex        string
	LineAction   LineAction
	RecordAction RecordAction
	NextState    string
}

// State is an ordered list of rules tried in order against the current line.
type State struct {
	Name  string
	Rules []Rule
}

// Template is the intermediate, uncompiled representation produced by a
// loader (pkg/fsmtext or pkg/fsmyaml). It still contains unexpanded macro
// references and ${field} placeholders in rule regexes and field patterns.
type Template struct {
	Fields     map[string]Field
	States     map[string]State
	StateOrder []string
	Macros     map[string]string
	Metadata   Metadata
}

// Metadata carries the optional descriptive header a template may declare.
type Metadata struct {
	Description   string
	Compatibility string
	Version       string
	Author        string
	Maintainer    string
}

// CompiledRule is a Rule whose regex has been compiled and whose field
// cross-references have been validated.
type CompiledRule struct {
	Regex        *regexp.Regexp
	LineAction   LineAction
	RecordAction RecordAction
	NextState    string
}

// CompiledTemplate is ready to drive Parse and ParseDebug. It holds no mutable state and may
// be shared across concurrent parses.
type CompiledTemplate struct {
	Fields     map[string]Field
	States     map[string][]CompiledRule
	StateOrder []string
	HasEOF     bool
	Metadata   Metadata
}

// Record is one emitted result: field name to string, int64, []string, or
// []int64.
type Record map[string]any
