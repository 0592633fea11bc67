package fsm

import (
	"fmt"
	"regexp"
)

var placeholderRe = regexp.MustCompile(`\$\{(\w+)\}`)

// Compile turns an intermediate Template into a CompiledTemplate, running
// the four compile steps in order: macro expansion, placeholder
// substitution, regex compilation, and cross-reference validation. It
// returns on the first error; callers that want every error at once should
// loop their own templates through Compile separately.
func Compile(tmpl Template) (*CompiledTemplate, error) {
	if _, ok := tmpl.States["Start"]; !ok {
		return nil, fmt.Errorf("%w: template has no Start state", ErrStateMissingStart)
	}

	expandedFields, err := expandFieldPatterns(tmpl.Fields, tmpl.Macros)
	if err != nil {
		return nil, err
	}

	compiled := &CompiledTemplate{
		Fields:     expandedFields,
		States:     make(map[string][]CompiledRule, len(tmpl.States)),
		StateOrder: tmpl.StateOrder,
		Metadata:   tmpl.Metadata,
	}

	for name, st := range tmpl.States {
		if name == "EOF" {
			compiled.HasEOF = true
		}
		rules := make([]CompiledRule, 0, len(st.Rules))
		for i, rule := range st.Rules {
			cr, err := compileRule(rule, expandedFields, tmpl.Macros, tmpl.States)
			if err != nil {
				return nil, fmt.Errorf("phase=compile path=%s[%d]: %w", name, i, err)
			}
			rules = append(rules, cr)
		}
		compiled.States[name] = rules
	}

	return compiled, nil
}

func expandFieldPatterns(fields map[string]Field, macros map[string]string) (map[string]Field, error) {
	out := make(map[string]Field, len(fields))
	for name, f := range fields {
		if f.Pattern != "" {
			expanded, err := expandMacros(f.Pattern, macros)
			if err != nil {
				return nil, fmt.Errorf("phase=expand path=field.%s: %w", name, err)
			}
			f.Pattern = expanded
		}
		out[name] = f
	}
	return out, nil
}

func compileRule(rule Rule, fields map[string]Field, macros map[string]string, states map[string]State) (CompiledRule, error) {
	expanded, err := expandMacros(rule.Regex, macros)
	if err != nil {
		return CompiledRule{}, fmt.Errorf("phase=expand: %w", err)
	}

	var substErr error
	substituted := placeholderRe.ReplaceAllStringFunc(expanded, func(m string) string {
		if substErr != nil {
			return m
		}
		name := placeholderRe.FindStringSubmatch(m)[1]
		f, ok := fields[name]
		if !ok || f.Pattern == "" {
			substErr = fmt.Errorf("%w: ${%s}", ErrPlaceholderUndefined, name)
			return m
		}
		return fmt.Sprintf("(?P<%s>%s)", name, f.Pattern)
	})
	if substErr != nil {
		return CompiledRule{}, substErr
	}

	re, err := regexp.Compile(substituted)
	if err != nil {
		return CompiledRule{}, fmt.Errorf("%w: %v", ErrRegexCompile, err)
	}

	for _, name := range re.SubexpNames() {
		if name == "" {
			continue
		}
		if _, ok := fields[name]; !ok {
			return CompiledRule{}, fmt.Errorf("%w: %q", ErrNamedGroupWithoutField, name)
		}
	}

	if rule.NextState != "" && rule.NextState != "End" {
		if _, ok := states[rule.NextState]; !ok {
			return CompiledRule{}, fmt.Errorf("%w: %q", ErrStateTransitionUnknown, rule.NextState)
		}
	}

	return CompiledRule{
		Regex:        re,
		LineAction:   rule.LineAction,
		RecordAction: rule.RecordAction,
		NextState:    rule.NextState,
	}, nil
}
