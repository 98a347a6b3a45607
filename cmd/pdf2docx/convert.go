package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
	"go.yaml.in/yaml/v3"
)

// summary is what convert prints once the file is written.
type summary struct {
	Output         string `json:"output" yaml:"output"`
	convert.Result `yaml:",inline"`
}

func printSummary(w io.Writer, format string, s summary) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	case "json", "":
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
}

func convertCmd() *cobra.Command {
	var out string
	var mode string
	var start int
	var end int
	var images bool
	var format string

	cmd := &cobra.Command{
		Use:   "convert <pdf>",
		Short: "Convert a PDF into a DOCX file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]

			m, err := convert.ParseMode(mode)
			if err != nil {
				return err
			}
			rng, err := convert.NewPageRange(start, end)
			if err != nil {
				return err
			}
			if format != "json" && format != "yaml" {
				return fmt.Errorf("unsupported output format %q (want json or yaml)", format)
			}
			conv, err := newConverter(cmd.Context(), images)
			if err != nil {
				return err
			}

			res, err := conv.Run(cmd.Context(), convert.Request{
				PDFPath:  pdfPath,
				Filename: filepath.Base(pdfPath),
				Mode:     m,
				Range:    rng,
			})
			if err != nil {
				return fmt.Errorf("conversion failed: %w", err)
			}

			if out == "" {
				out = filepath.Join(filepath.Dir(pdfPath), res.Filename)
			}
			if err := os.WriteFile(out, res.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			return printSummary(cmd.OutOrStdout(), format, summary{Output: out, Result: res})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: <pdf name>.docx next to the input)")
	cmd.Flags().StringVar(&mode, "mode", "text", "conversion mode: text|images")
	cmd.Flags().IntVar(&start, "start", 1, "first page to convert, 1-based (text mode)")
	cmd.Flags().IntVar(&end, "end", 0, "last page to convert, 0 for the last page (text mode)")
	cmd.Flags().BoolVar(&images, "images", true, "embed images found on text-mode pages")
	cmd.Flags().StringVar(&format, "format", "json", "summary format: json|yaml")
	return cmd
}
