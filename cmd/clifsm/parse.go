package main

import (
	"fmt"
	"os"

	"clifsm/pkg/fsm"
	"clifsm/pkg/transcript"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newParseCommand() *cobra.Command {
	var (
		templatePath string
		inputPath    string
		format       string
		preprocess   bool
	)

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse an input file against a template and print the resulting records",
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled, err := loadCompiledTemplate(templatePath, format)
			if err != nil {
				return err
			}

			content, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading %s: %w", inputPath, err)
			}

			blocks := []string{string(content)}
			if preprocess {
				segmented, warning := transcript.Segment(string(content))
				if warning != "" {
					fmt.Fprintln(os.Stderr, "warning:", warning)
				}
				blocks = segmented
			}

			var records []fsm.Record
			for _, block := range blocks {
				blockRecords, err := fsm.Parse(compiled, block)
				if err != nil {
					return fmt.Errorf("parsing %s: %w", inputPath, err)
				}
				records = append(records, blockRecords...)
			}

			out, err := yaml.Marshal(records)
			if err != nil {
				return fmt.Errorf("marshaling records: %w", err)
			}
			fmt.Print(string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "path to the template file (required)")
	cmd.Flags().StringVar(&inputPath, "input", "", "path to the input file (required)")
	cmd.Flags().StringVar(&format, "format", "auto", "template dialect: legacy, yaml, toml, or auto (infer from extension)")
	cmd.Flags().BoolVar(&preprocess, "preprocess", false, "segment the input into per-command blocks before parsing")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("input")

	return cmd
}
