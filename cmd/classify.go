package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/biorecs/occuncertainty/internal/classify"
	"github.com/biorecs/occuncertainty/internal/loader"
	"github.com/biorecs/occuncertainty/internal/model"
	"github.com/biorecs/occuncertainty/internal/pipeline"
	"github.com/biorecs/occuncertainty/internal/store"
)

var (
	classifyInput       string
	classifyOutput      string
	classifyDelimiter   string
	classifyCharset     string
	classifySheet       string
	classifyWorkers     int
	classifyLimit       int
	classifySave        bool
	classifyProfile     string
	classifyProfileName string
	classifyVerbose     bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Classify occurrence records from a CSV or XLSX file",
	Long: `Reads occurrence records, classifies each against the configured
boundary source, and writes one result row per input row.

Examples:
  # Classify a Darwin Core CSV against configured shapefile layers
  occuncertainty classify --input occurrences.csv --output results.csv

  # Latin-1 encoded, semicolon-delimited export
  occuncertainty classify --input gbif.csv --delimiter ";" --charset latin1

  # Apply the "herbarium" threshold profile and persist the run
  occuncertainty classify --input specimens.xlsx --profile profiles.yaml --profile-name herbarium --save`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		records, err := readRecords(classifyInput, classifyDelimiter, classifyCharset, classifySheet)
		if err != nil {
			return eris.Wrap(err, "classify: read records")
		}
		if classifyLimit > 0 && classifyLimit < len(records) {
			records = records[:classifyLimit]
		}
		zap.L().Info("classify: records loaded",
			zap.String("input", classifyInput),
			zap.Int("records", len(records)),
		)

		th, err := buildThresholds(classifyProfile, classifyProfileName)
		if err != nil {
			return err
		}

		src, closeSource, err := buildSource(ctx)
		if err != nil {
			return err
		}
		defer closeSource()

		p, err := pipeline.New(src, th)
		if err != nil {
			return err
		}

		workers := classifyWorkers
		if workers == 0 {
			workers = cfg.Pipeline.Workers
		}
		results, err := p.Run(ctx, records, pipeline.Options{Workers: workers, Verbose: classifyVerbose})
		if err != nil {
			return err
		}

		if err := writeResults(classifyOutput, results); err != nil {
			return err
		}

		if classifySave {
			if err := saveRun(ctx, classifyInput, th, results); err != nil {
				return err
			}
		}

		printSummary(results)
		return nil
	},
}

func writeResults(path string, results []model.Result) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "classify: create output %s", path)
		}
		defer f.Close()
		out = f
	}
	return loader.WriteCSV(out, results)
}

func saveRun(ctx context.Context, input string, th classify.Thresholds, results []model.Result) error {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	run, err := st.CreateRun(ctx, input, th)
	if err != nil {
		return err
	}
	if err := st.SaveResults(ctx, run.ID, results); err != nil {
		return err
	}

	zap.L().Info("classify: run saved", zap.String("run_id", run.ID))
	return nil
}

func printSummary(results []model.Result) {
	counts := make(map[model.UncerType]int)
	usable := 0
	for _, res := range results {
		counts[res.UncerType]++
		if res.Usable {
			usable++
		}
	}

	fmt.Printf("\nClassified %d records (%d usable):\n", len(results), usable)
	for _, ut := range []model.UncerType{
		model.UncerPrecise, model.UncerImprecise, model.UncerCounty, model.UncerState, model.UncerUnusable,
	} {
		if counts[ut] > 0 {
			fmt.Printf("  %-10s %d\n", ut, counts[ut])
		}
	}
}

func init() {
	classifyCmd.Flags().StringVar(&classifyInput, "input", "", "input CSV or XLSX file (required)")
	classifyCmd.Flags().StringVar(&classifyOutput, "output", "", "output CSV file (default stdout)")
	classifyCmd.Flags().StringVar(&classifyDelimiter, "delimiter", "", "CSV field delimiter (default comma)")
	classifyCmd.Flags().StringVar(&classifyCharset, "charset", "", "CSV character set, e.g. latin1 (default UTF-8)")
	classifyCmd.Flags().StringVar(&classifySheet, "sheet", "", "XLSX sheet name (default first sheet)")
	classifyCmd.Flags().IntVar(&classifyWorkers, "workers", 0, "concurrent classification workers (default from config)")
	classifyCmd.Flags().IntVar(&classifyLimit, "limit", 0, "classify only the first N records")
	classifyCmd.Flags().BoolVar(&classifySave, "save", false, "persist the run to the classification store")
	classifyCmd.Flags().StringVar(&classifyProfile, "profile", "", "threshold profile YAML file")
	classifyCmd.Flags().StringVar(&classifyProfileName, "profile-name", "default", "profile name within the profile file")
	classifyCmd.Flags().BoolVar(&classifyVerbose, "verbose", false, "log classification progress")
	_ = classifyCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(classifyCmd)
}
