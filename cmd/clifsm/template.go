package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"clifsm/pkg/fsm"
	"clifsm/pkg/fsmtext"
	"clifsm/pkg/fsmtoml"
	"clifsm/pkg/fsmyaml"
)

// loadCompiledTemplate reads templatePath, loads it with the dialect named
// by format (or inferred from the file extension when format is "auto"),
// and compiles it. Non-fatal load warnings are printed to stderr; compile
// errors are returned to the caller.
func loadCompiledTemplate(templatePath, format string) (*fsm.CompiledTemplate, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", templatePath, err)
	}

	resolved := format
	if resolved == "" || resolved == "auto" {
		resolved = inferFormat(templatePath)
	}

	var tmpl fsm.Template
	switch resolved {
	case "legacy":
		var warnings []fsm.LoadWarning
		tmpl, warnings, err = fsmtext.Load(string(content))
		for _, w := range warnings {
			fmt.Fprintln(os.Stderr, "warning:", w.Error())
		}
	case "yaml":
		tmpl, err = fsmyaml.Load(content)
	case "toml":
		tmpl, err = fsmtoml.Load(content)
	default:
		return nil, fmt.Errorf("unknown template format %q (want legacy, yaml, toml, or auto)", format)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s as %s: %w", templatePath, resolved, err)
	}

	return fsm.Compile(tmpl)
}

func inferFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	case ".toml":
		return "toml"
	default:
		return "legacy"
	}
}
