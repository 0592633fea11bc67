package fsm

import (
	"regexp"
	"strings"
)

// Parse drives compiled over input, returning the records emitted in order.
// A fired RecordError rule aborts the parse and discards every record
// produced so far.
func Parse(compiled *CompiledTemplate, input string) ([]Record, error) {
	records, _, err := run(compiled, input, false)
	return records, err
}

// ParseDebug drives compiled over input exactly like Parse, additionally
// recording a full replay trace: every rule firing against every line, and
// the line index that produced each emitted record.
func ParseDebug(compiled *CompiledTemplate, input string) ([]Record, *DebugReport, error) {
	records, report, err := run(compiled, input, true)
	return records, report, err
}

func run(compiled *CompiledTemplate, input string, debug bool) ([]Record, *DebugReport, error) {
	lines := splitLines(input)

	var buffer recordBuffer
	var records []Record
	var report *DebugReport
	if debug {
		report = &DebugReport{Lines: append([]string(nil), lines...)}
	}

	state := "Start"
	lineIdx := 0
	ruleIdx := 0
	terminated := false

	for lineIdx < len(lines) && !terminated {
		line := lines[lineIdx]
		rules := compiled.States[state]
		matched := false

		for ruleIdx < len(rules) {
			rule := rules[ruleIdx]
			loc := rule.Regex.FindStringSubmatchIndex(line)
			if loc == nil {
				ruleIdx++
				continue
			}
			matched = true

			spans := applyCaptures(&buffer, rule.Regex, compiled.Fields, line, loc, debug)

			prevState := state
			switch rule.RecordAction {
			case RecordEmit:
				if rec, ok := buffer.emit(compiled.Fields); ok {
					records = append(records, rec)
					if debug {
						report.Records = append(report.Records, EmittedRecord{LineIdx: lineIdx, Record: rec})
					}
				}
			case RecordClear:
				buffer.clearNonFilldown(compiled.Fields)
			case RecordClearAll:
				buffer.clearAll()
			case RecordError:
				if debug {
					report.Matches = append(report.Matches, LineMatch{
						LineIdx: lineIdx, StateBefore: prevState, StateAfter: prevState,
						RuleIdx: ruleIdx, LineAction: rule.LineAction, RecordAction: rule.RecordAction,
						NextState: rule.NextState, Captures: spans,
					})
				}
				return nil, report, ErrErrorActionTriggered
			}

			isEnd := rule.NextState == "End"
			if !isEnd && rule.NextState != "" {
				state = rule.NextState
			}
			stateChanged := state != prevState

			if debug {
				report.Matches = append(report.Matches, LineMatch{
					LineIdx: lineIdx, StateBefore: prevState, StateAfter: state,
					RuleIdx: ruleIdx, LineAction: rule.LineAction, RecordAction: rule.RecordAction,
					NextState: rule.NextState, Captures: spans,
				})
			}

			if isEnd {
				terminated = true
				break
			}

			if rule.LineAction == LineNext {
				lineIdx++
				ruleIdx = 0
			} else if stateChanged {
				ruleIdx = 0
			} else {
				ruleIdx++
			}
			break
		}

		if !matched {
			lineIdx++
			ruleIdx = 0
		}
	}

	// Terminal handling is the same whether input ran out or a rule
	// transitioned to End: run the explicit EOF state once if the template
	// defines one, otherwise attempt one implicit emission.
	if compiled.HasEOF {
		eofRecords, eofMatches, aborted := runEOF(compiled, &buffer, debug)
		if aborted {
			if debug {
				report.Matches = append(report.Matches, eofMatches...)
			}
			return nil, report, ErrErrorActionTriggered
		}
		records = append(records, eofRecords...)
		if debug {
			report.Matches = append(report.Matches, eofMatches...)
			for _, r := range eofRecords {
				report.Records = append(report.Records, EmittedRecord{LineIdx: len(lines), Record: r})
			}
		}
		return records, report, nil
	}

	if rec, ok := buffer.emit(compiled.Fields); ok {
		records = append(records, rec)
		if debug {
			report.Records = append(report.Records, EmittedRecord{LineIdx: len(lines), Record: rec})
		}
	}
	return records, report, nil
}

// runEOF runs the template's explicit EOF state once against a synthetic
// empty line. Only the first matching rule fires. aborted reports that the
// fired rule was a RecordError rule.
func runEOF(compiled *CompiledTemplate, buffer *recordBuffer, debug bool) (records []Record, matches []LineMatch, aborted bool) {
	rules := compiled.States["EOF"]

	ruleIdx := 0
	for ruleIdx < len(rules) {
		rule := rules[ruleIdx]
		loc := rule.Regex.FindStringSubmatchIndex("")
		if loc == nil {
			ruleIdx++
			continue
		}

		spans := applyCaptures(buffer, rule.Regex, compiled.Fields, "", loc, debug)

		switch rule.RecordAction {
		case RecordEmit:
			if rec, ok := buffer.emit(compiled.Fields); ok {
				records = append(records, rec)
			}
		case RecordClear:
			buffer.clearNonFilldown(compiled.Fields)
		case RecordClearAll:
			buffer.clearAll()
		case RecordError:
			aborted = true
		}

		if debug {
			matches = append(matches, LineMatch{
				LineIdx: -1, StateBefore: "EOF", StateAfter: "EOF",
				RuleIdx: ruleIdx, LineAction: rule.LineAction, RecordAction: rule.RecordAction,
				NextState: rule.NextState, Captures: spans,
			})
		}
		break
	}
	return records, matches, aborted
}

func applyCaptures(buffer *recordBuffer, re *regexp.Regexp, fields map[string]Field, line string, loc []int, debug bool) []CaptureSpan {
	names := re.SubexpNames()
	var spans []CaptureSpan
	for i, name := range names {
		if i == 0 || name == "" {
			continue
		}
		start, end := loc[2*i], loc[2*i+1]
		if start == -1 {
			continue
		}
		raw := line[start:end]
		f := fields[name]
		buffer.insert(name, raw, f.List)
		if debug {
			spans = append(spans, CaptureSpan{
				Name:      name,
				StartByte: start,
				EndByte:   end,
				Raw:       raw,
				Typed:     convertScalar(raw, f.TypeHint),
				IsList:    f.List,
				ValidSpan: isValidByteSpan(line, start, end),
			})
		}
	}
	return spans
}

func splitLines(input string) []string {
	if input == "" {
		return nil
	}
	normalized := strings.ReplaceAll(input, "\r\n", "\n")
	normalized = strings.ReplaceAll(normalized, "\r", "\n")
	normalized = strings.TrimSuffix(normalized, "\n")
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, "\n")
}
