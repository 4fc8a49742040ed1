package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"semantic-plagiarism/internal/app"
	"semantic-plagiarism/internal/bootstrap"
	"semantic-plagiarism/internal/config"
	"semantic-plagiarism/internal/pkg/textextract"
)

var (
	analyzeSource    string
	analyzeCorpus    []string
	analyzeThreshold float64
	analyzeCompact   bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze --source FILE --corpus FILE [--corpus FILE...]",
	Short: "Compare a source document against corpus documents",
	Long: `Chunks, embeds and compares the source document with every corpus document
and prints the JSON report. Supported inputs are .txt, .md and .pdf files.`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeSource, "source", "s", "", "source document")
	analyzeCmd.Flags().StringSliceVarP(&analyzeCorpus, "corpus", "c", nil, "corpus documents (repeatable or comma separated)")
	analyzeCmd.Flags().Float64VarP(&analyzeThreshold, "threshold", "t", -1, "similarity threshold in [0,1] (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeCompact, "compact", false, "print the report on one line")
	_ = analyzeCmd.MarkFlagRequired("source")
	_ = analyzeCmd.MarkFlagRequired("corpus")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	embedder, err := bootstrap.NewEmbedder(ctx, cfg, nil)
	if err != nil {
		return err
	}
	svc, err := bootstrap.NewAnalysisService(cfg, embedder)
	if err != nil {
		return err
	}

	source, err := readDocument(analyzeSource)
	if err != nil {
		return err
	}
	in := app.AnalyzeInput{Source: source}
	for _, path := range analyzeCorpus {
		doc, err := readDocument(path)
		if err != nil {
			return err
		}
		in.Corpus = append(in.Corpus, doc)
	}
	if cmd.Flags().Changed("threshold") {
		in.Threshold = &analyzeThreshold
	}

	resp, err := svc.Analyze(ctx, in)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	var data []byte
	if analyzeCompact {
		data, err = json.Marshal(resp)
	} else {
		data, err = json.MarshalIndent(resp, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			return nil, fmt.Errorf("config file: %w", err)
		}
		return config.LoadFile(configPath)
	}
	return config.Load()
}

func readDocument(path string) (app.DocumentInput, error) {
	if path == "" {
		return app.DocumentInput{}, errors.New("empty file path")
	}
	f, err := os.Open(path)
	if err != nil {
		return app.DocumentInput{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	text, err := textextract.Extract(filepath.Base(path), f)
	if err != nil {
		return app.DocumentInput{}, err
	}
	return app.DocumentInput{Filename: filepath.Base(path), Text: text}, nil
}
