package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/docatlas/internal/config"
	"github.com/dgallion1/docatlas/internal/extraction"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func extractCmd() *cobra.Command {
	var out string
	var fileID string
	var clean bool
	var keywords bool

	cmd := &cobra.Command{
		Use:   "extract <pdf>",
		Short: "Extract a PDF and print the document and sections as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			opts := cfg.ExtractionOptions()
			if cmd.Flags().Changed("clean") {
				opts.ApplyBlockCleaning = clean
			}
			if cmd.Flags().Changed("keywords") {
				opts.IncludeKeywords = keywords
			}
			if fileID == "" {
				fileID = uuid.NewString()
			}

			p := extraction.New(newLogger(cmd), cfg.PipelineOptions()...)
			payload, err := extractFile(p, args[0], fileID, opts)
			if err != nil {
				return err
			}
			if out == "" {
				fmt.Fprintln(cmd.OutOrStdout(), string(payload))
				return nil
			}
			return os.WriteFile(out, payload, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the JSON here instead of stdout")
	cmd.Flags().StringVar(&fileID, "file-id", "", "file id to stamp on the document (default: random UUID)")
	cmd.Flags().BoolVar(&clean, "clean", false, "drop headers, footers and noise blocks before segmentation")
	cmd.Flags().BoolVar(&keywords, "keywords", true, "attach keywords to each section")
	return cmd
}

// extractFile runs the pipeline over the PDF at path and returns the
// persisted JSON form of the result.
func extractFile(p *extraction.Pipeline, path, fileID string, opts extraction.Options) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, sections, err := p.Extract(data, filepath.Base(path), "", fileID, opts)
	if err != nil {
		return nil, err
	}
	return extraction.Marshal(doc, sections)
}
