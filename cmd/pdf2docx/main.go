package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/thywilljoshua/pdf-to-docx/internal/ai"
	"github.com/thywilljoshua/pdf-to-docx/internal/config"
	"github.com/thywilljoshua/pdf-to-docx/internal/convert"
)

var (
	v   = viper.New()
	cfg config.Config
	log = logrus.New()
)

func main() {
	root := &cobra.Command{
		Use:           "pdf2docx",
		Short:         "Convert PDF files into Word documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, _ := cmd.Flags().GetString("config")
			return setup(cfgFile)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default: ./pdf2docx.yaml or ~/.config/pdf2docx/pdf2docx.yaml)")
	root.PersistentFlags().String("log-level", "info", "log level: debug|info|warn|error")
	_ = v.BindPFlag("log.level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(serveCmd())
	root.AddCommand(convertCmd())
	root.AddCommand(pagesCmd())

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cfgFile string) error {
	if err := config.Init(v, cfgFile); err != nil {
		return err
	}
	c, err := config.Load(v)
	if err != nil {
		return err
	}
	l, err := config.NewLogger(c.Log, os.Stderr)
	if err != nil {
		return err
	}
	cfg, log = c, l
	if f := v.ConfigFileUsed(); f != "" {
		log.WithField("file", f).Debug("using config file")
	}
	return nil
}

// newConverter wires the converter from config. A Gemini transcriber is
// attached only when ai.provider asks for it.
func newConverter(ctx context.Context, extractImages bool) (*convert.Converter, error) {
	var tr ai.Transcriber
	if cfg.AI.Enabled() {
		g, err := ai.NewGemini(ctx, cfg.AI.APIKey, cfg.AI.Model, log)
		if err != nil {
			return nil, err
		}
		log.WithField("model", cfg.AI.Model).Info("transcription of scanned pages enabled")
		tr = g
	}
	return convert.New(convert.Config{
		TempDir:       cfg.TempDir,
		ExtractImages: extractImages,
		Transcriber:   tr,
		Log:           log,
	}), nil
}
