package main

import (
	"fmt"
	"os"

	"clifsm/pkg/fsm"
	"clifsm/pkg/transcript"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newDebugCommand() *cobra.Command {
	var (
		templatePath string
		inputPath    string
		format       string
		preprocess   bool
	)

	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Parse an input file and print the full per-line debug report",
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := loadCompiledTemplate(templatePath, format)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading %s: %w", inputPath, err)
			}

			input := string(content)
			if preprocess {
				blocks, warning := transcript.Segment(input)
				if warning != "" {
					fmt.Fprintln(os.Stderr, "warning:", warning)
				}
				if len(blocks) > 0 {
					input = blocks[0]
				}
			}

			_, report, err := fsm.ParseDebug(compiled, input)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", inputPath, err)
			}

			out, err := yaml.Marshal(report)
			if err != nil {
				return fmt.Errorf("marshaling debug report: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "path to the template file (required)")
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the input file (required)")
	cmd.Flags().StringVar(&format, "format", "auto", "template dialect: legacy, yaml, toml, or auto (infer from extension)")
	cmd.Flags().BoolVar(&preprocess, "preprocess", false, "segment the input into per-command blocks before parsing (debug runs only the first block)")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("input")

	return cmd
}
