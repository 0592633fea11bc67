package fsmtext

import (
	"strings"

	"clifsm/pkg/fsm"

	"github.com/hucsmn/peg"
)

// actionClause is the small linear grammar for the right-hand side of a
// rule's "->" arrow: an optional "Continue." line-action prefix, an
// optional record-action keyword, and an optional next-state name.
//
//	[Continue.] [RecordAction] [NextState]
//
var actionClause = peg.Seq(
	peg.Q01(peg.Seq(peg.NG("line", peg.TI("Continue")), peg.T("."))),
	peg.Q01(peg.Seq(
		peg.NG("record", peg.Alt(
			peg.TI("Clearall"),
			peg.TI("Clear"),
			peg.TI("NoRecord"),
			peg.TI("Record"),
			peg.TI("Error"),
		)),
		peg.Or(peg.EOF, peg.Test(peg.S(" \t"))),
	)),
	peg.Q01(peg.Seq(peg.Q0(peg.S(" \t")), peg.NG("next", peg.Q1(peg.NS(" \t"))))),
)

// parsedAction is the decoded result of matching actionClause against a
// rule's action text.
type parsedAction struct {
	LineAction   fsm.LineAction
	RecordAction fsm.RecordAction
	NextState    string
	// Unrecognized holds the action keyword text when it didn't match any
	// of the known record-action keywords, for warning purposes.
	Unrecognized string
}

// parseAction parses the action clause following a rule's "->" arrow.
// Leading and trailing whitespace is tolerated, and a bare next-state with
// no action keyword at all ("regex -> SomeState") is valid. ok=false means
// the clause is unrecognized and the rule should be skipped with a warning.
func parseAction(text string) (parsedAction, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return parsedAction{}, true
	}

	r, err := peg.Match(actionClause, trimmed)
	if err != nil || !r.Ok || r.N != len(trimmed) {
		return parsedAction{}, false
	}

	pa := parsedAction{RecordAction: fsm.RecordNone}
	if line, ok := r.NamedGroups["line"]; ok && strings.EqualFold(line, "Continue") {
		// "Continue." must be followed by a record-action keyword; a bare
		// next-state after the dot is an unrecognized action.
		if _, ok := r.NamedGroups["record"]; !ok {
			return parsedAction{}, false
		}
		pa.LineAction = fsm.LineContinue
	}
	if record, ok := r.NamedGroups["record"]; ok {
		switch strings.ToLower(record) {
		case "record":
			pa.RecordAction = fsm.RecordEmit
		case "clear":
			pa.RecordAction = fsm.RecordClear
		case "clearall":
			pa.RecordAction = fsm.RecordClearAll
		case "error":
			pa.RecordAction = fsm.RecordError
		case "norecord":
			pa.RecordAction = fsm.RecordNone
		}
	}
	if next, ok := r.NamedGroups["next"]; ok {
		pa.NextState = next
	}
	return pa, true
}
