package fsm

import (
	"fmt"
	"regexp"
	"strings"
)

// maxMacroDepth bounds recursive macro expansion so a deeply (but
// non-cyclically) nested macro chain fails predictably rather than
// consuming unbounded time.
const maxMacroDepth = 32

// builtinMacros are always available unless shadowed by a template's own
// local macro of the same name. Values are regex fragments.
var builtinMacros = map[string]string{
	"ipv4":        `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`,
	"mac_address": `[0-9a-fA-F]{2}(?:[:.-][0-9a-fA-F]{2,4}){2,5}`,
	"interface":   `[A-Za-z][A-Za-z0-9/.\-]*\d`,
	"word":        `\S+`,
	"eol":         `$`,
}

var macroRefRe = regexp.MustCompile(`\{\{(\w+)\}\}`)

// expandMacros recursively substitutes {{name}} references in s, preferring
// locals over builtins, until no references remain or maxMacroDepth is
// exceeded. A macro referencing itself, directly or transitively, is an
// error rather than an infinite expansion.
func expandMacros(s string, locals map[string]string) (string, error) {
	return expandMacrosDepth(s, locals, nil, 0)
}

func expandMacrosDepth(s string, locals map[string]string, visiting []string, depth int) (string, error) {
	if depth > maxMacroDepth {
		return "", fmt.Errorf("%w: exceeded depth %d expanding %q", ErrMacroTooDeep, maxMacroDepth, s)
	}
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var outerErr error
	out := macroRefRe.ReplaceAllStringFunc(s, func(m string) string {
		if outerErr != nil {
			return m
		}
		name := macroRefRe.FindStringSubmatch(m)[1]
		for _, v := range visiting {
			if v == name {
				outerErr = fmt.Errorf("%w: %q", ErrMacroCycle, name)
				return m
			}
		}
		value, ok := locals[name]
		if !ok {
			value, ok = builtinMacros[name]
		}
		if !ok {
			outerErr = fmt.Errorf("%w: %q", ErrMacroUnknown, name)
			return m
		}
		expanded, err := expandMacrosDepth(value, locals, append(visiting, name), depth+1)
		if err != nil {
			outerErr = err
			return m
		}
		return expanded
	})
	if outerErr != nil {
		return "", outerErr
	}
	return out, nil
}
