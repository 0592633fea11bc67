// Package fsmtext loads the legacy, line-oriented template dialect: Value
// definitions, blank-separated state blocks, and "regex -> action" rules.
package fsmtext

import (
	"fmt"
	"regexp"
	"strings"

	"clifsm/pkg/fsm"
)

var valuePrefixRe = regexp.MustCompile(`^Value\s+(?:([A-Za-z0-9,]+)\s+)?(\w+)\s*\(`)

// Load parses legacy-dialect template text into an intermediate
// fsm.Template. Unknown flags and unrecognized rule actions are collected
// as non-fatal warnings rather than aborting the load.
func Load(input string) (fsm.Template, []fsm.LoadWarning, error) {
	var warnings []fsm.LoadWarning
	lines := strings.Split(strings.ReplaceAll(input, "\r\n", "\n"), "\n")

	idx := 0
	meta := parseMetadataHeader(lines, &idx)

	tmpl := fsm.Template{
		Fields:   make(map[string]fsm.Field),
		States:   make(map[string]fsm.State),
		Macros:   make(map[string]string),
		Metadata: meta,
	}

	for idx < len(lines) {
		line := lines[idx]
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			idx++

		case strings.HasPrefix(trimmed, "#"):
			// file-scope comment
			idx++

		case strings.HasPrefix(trimmed, "Value"):
			f, w, err := parseValueLine(lines, &idx)
			if err != nil {
				return fsm.Template{}, warnings, fmt.Errorf("phase=parse path=line:%d: %w", idx+1, err)
			}
			warnings = append(warnings, w...)
			tmpl.Fields[f.Name] = f

		case !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t"):
			state, w := parseStateBlock(lines, &idx)
			warnings = append(warnings, w...)
			tmpl.States[state.Name] = state
			tmpl.StateOrder = append(tmpl.StateOrder, state.Name)

		default:
			warnings = append(warnings, fsm.LoadWarning{Detail: fmt.Sprintf("line %d: unexpected indented line outside a state block, ignored", idx+1)})
			idx++
		}
	}

	return tmpl, warnings, nil
}

// parseMetadataHeader consumes a leading run of "#"-prefixed comment lines,
// decoding recognized "Key: Value" headers, and stops at the first blank or
// non-comment line.
func parseMetadataHeader(lines []string, idx *int) fsm.Metadata {
	var meta fsm.Metadata
	for *idx < len(lines) {
		line := lines[*idx]
		if !strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			return meta
		}
		content := strings.TrimSpace(strings.TrimPrefix(strings.TrimLeft(line, " \t"), "#"))
		key, value, ok := strings.Cut(content, ":")
		if ok {
			switch strings.TrimSpace(key) {
			case "Description":
				meta.Description = strings.TrimSpace(value)
			case "Compatibility":
				meta.Compatibility = strings.TrimSpace(value)
			case "Version":
				meta.Version = strings.TrimSpace(value)
			case "Author":
				meta.Author = strings.TrimSpace(value)
			case "Maintainer":
				meta.Maintainer = strings.TrimSpace(value)
			}
		}
		*idx++
	}
	return meta
}

var knownFlags = map[string]bool{"Filldown": true, "Required": true, "List": true}

// parseValueLine parses one "Value [flags] NAME (REGEX)" definition,
// including its lines(s) — the regex body may itself span balanced
// parentheses, which is why this scans bytes rather than applying a single
// regex across the whole line.
func parseValueLine(lines []string, idx *int) (fsm.Field, []fsm.LoadWarning, error) {
	line := lines[*idx]
	m := valuePrefixRe.FindStringSubmatchIndex(line)
	if m == nil {
		return fsm.Field{}, nil, fmt.Errorf("%w: malformed Value line: %q", fsm.ErrTemplateSyntax, line)
	}

	var flagsStr string
	if m[2] != -1 {
		flagsStr = line[m[2]:m[3]]
	}
	name := line[m[4]:m[5]]
	openParen := m[1] - 1 // index of the "(" that the prefix regex ends on

	body, consumed := extractBalancedParen(lines, *idx, openParen)
	*idx += consumed

	var warnings []fsm.LoadWarning
	f := fsm.Field{Name: name, Pattern: body}
	if flagsStr != "" {
		for _, flag := range strings.Split(flagsStr, ",") {
			flag = strings.TrimSpace(flag)
			if flag == "" {
				continue
			}
			switch flag {
			case "Filldown":
				f.Filldown = true
			case "Required":
				f.Required = true
			case "List":
				f.List = true
			default:
				warnings = append(warnings, fsm.LoadWarning{
					Detail: fmt.Sprintf("Value %s: unknown flag %q ignored", name, flag),
				})
			}
		}
	}
	return f, warnings, nil
}

// extractBalancedParen reads the parenthesized regex body starting at
// lines[startLine][openParen] (the opening '('), across as many physical
// lines as needed to find the matching close, and returns the body text
// (exclusive of the outer parens) plus how many lines were consumed.
func extractBalancedParen(lines []string, startLine, openParen int) (string, int) {
	var b strings.Builder
	depth := 0
	lineIdx := startLine
	col := openParen

	for lineIdx < len(lines) {
		line := lines[lineIdx]
		for col < len(line) {
			c := line[col]
			switch c {
			case '\\':
				// an escaped character never opens or closes a group
				if depth > 0 {
					b.WriteByte(c)
					if col+1 < len(line) {
						b.WriteByte(line[col+1])
					}
				}
				col += 2
				continue
			case '(':
				depth++
				if depth > 1 {
					b.WriteByte(c)
				}
			case ')':
				depth--
				if depth == 0 {
					return b.String(), lineIdx - startLine + 1
				}
				b.WriteByte(c)
			default:
				if depth > 0 {
					b.WriteByte(c)
				}
			}
			col++
		}
		if depth > 0 {
			b.WriteByte('\n')
		}
		lineIdx++
		col = 0
	}
	return b.String(), lineIdx - startLine
}

// parseStateBlock parses one state's rule lines: the unindented name line at
// *idx, followed by indented rule lines up to the next blank or unindented
// line.
func parseStateBlock(lines []string, idx *int) (fsm.State, []fsm.LoadWarning) {
	name := strings.TrimSpace(lines[*idx])
	*idx++

	var warnings []fsm.LoadWarning
	state := fsm.State{Name: name}

	for *idx < len(lines) {
		line := lines[*idx]
		if strings.TrimSpace(line) == "" {
			*idx++
			break
		}
		if !strings.HasPrefix(line, " ") && !strings.HasPrefix(line, "\t") {
			break
		}

		rule, w, ok := parseRuleLine(line)
		if !ok {
			if len(w) > 0 {
				warnings = append(warnings, w...)
			} else {
				warnings = append(warnings, fsm.LoadWarning{
					Detail: fmt.Sprintf("state %s: skipped unparseable rule: %q", name, strings.TrimSpace(line)),
				})
			}
			*idx++
			continue
		}
		warnings = append(warnings, w...)
		state.Rules = append(state.Rules, rule)
		*idx++
	}
	return state, warnings
}

func parseRuleLine(line string) (fsm.Rule, []fsm.LoadWarning, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return fsm.Rule{}, nil, false
	}

	regexPart := trimmed
	actionPart := ""
	if i := strings.Index(trimmed, " -> "); i != -1 {
		regexPart = strings.TrimSpace(trimmed[:i])
		actionPart = trimmed[i+len(" -> "):]
	}
	if regexPart == "" {
		return fsm.Rule{}, nil, false
	}

	rule := fsm.Rule{Regex: regexPart}
	var warnings []fsm.LoadWarning
	pa, ok := parseAction(actionPart)
	if !ok {
		warnings = append(warnings, fsm.LoadWarning{
			Detail: fmt.Sprintf("rule %q: unrecognized action clause %q, rule skipped", regexPart, actionPart),
		})
		return fsm.Rule{}, warnings, false
	}
	rule.LineAction = pa.LineAction
	rule.RecordAction = pa.RecordAction
	rule.NextState = pa.NextState
	return rule, warnings, true
}
