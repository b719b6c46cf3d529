package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mind-engage/savings-forecast/internal/logging"
	"github.com/mind-engage/savings-forecast/internal/model"
	"github.com/mind-engage/savings-forecast/internal/storage"
	"github.com/mind-engage/savings-forecast/internal/training"
)

var (
	logger *zap.Logger

	flagLogLevel string
	flagOutDir   string
	flagJSON     bool

	trainOpts = training.DefaultOptions()

	flagSynthRows int
	flagSynthSeed int64
	flagSynthOut  string
)

var rootCmd = &cobra.Command{
	Use:   "trainer",
	Short: "Train and inspect the savings prediction model",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = logging.New(flagLogLevel)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Fit preprocessor and ElasticNet model from a labelled CSV",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewFSStore(flagOutDir)
		if err != nil {
			return err
		}
		opts := trainOpts
		opts.Store = store

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		rep, err := training.Run(ctx, opts, logger)
		if rep != nil {
			printReport(cmd.OutOrStdout(), rep)
		}
		return err
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the schema of saved artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewFSStore(flagOutDir)
		if err != nil {
			return err
		}
		b, err := model.LoadBundle(store)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if flagJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{
				"trained_at":   b.TrainedAt,
				"features":     b.Preprocessor.FeatureNames(),
				"output_width": b.Preprocessor.OutputWidth(),
				"targets":      b.Regressor.Targets,
				"params":       b.Regressor.Params,
			})
		}
		fmt.Fprintf(out, "Trained at: %s\n", b.TrainedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(out, "Features (%d): %v\n", len(b.Preprocessor.InputColumns), b.Preprocessor.InputColumns)
		for _, e := range b.Preprocessor.Encoded {
			fmt.Fprintf(out, "  %s categories: %v\n", e.Name, e.Categories)
		}
		fmt.Fprintf(out, "Transformed width: %d\n", b.Preprocessor.OutputWidth())
		for i, t := range b.Regressor.Targets {
			est := b.Regressor.Estimators[i]
			fmt.Fprintf(out, "  %-36s intercept=%.4f iters=%d converged=%v\n", t, est.Intercept, est.Iters, est.Converged)
		}
		return nil
	},
}

var synthCmd = &cobra.Command{
	Use:   "synth",
	Short: "Write a synthetic dataset with the production column layout",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := training.Synthetic(flagSynthRows, flagSynthSeed)
		if err := os.MkdirAll(filepath.Dir(flagSynthOut), 0o755); err != nil {
			return err
		}
		f, err := os.Create(flagSynthOut)
		if err != nil {
			return err
		}
		if err := training.WriteCSV(f, ds); err != nil {
			f.Close()
			return err
		}
		logger.Info("synthetic dataset written", zap.String("path", flagSynthOut), zap.Int("rows", ds.Rows))
		return f.Close()
	},
}

func printReport(w io.Writer, rep *training.Report) {
	if flagJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
		return
	}
	fmt.Fprintf(w, "Rows: %d (train %d, test %d)\n", rep.Rows, rep.TrainRows, rep.TestRows)
	fmt.Fprintf(w, "Categorical features: %v\n", rep.Categorical)
	fmt.Fprintf(w, "Numerical features: %v\n", rep.Numeric)
	fmt.Fprintln(w, "Per-category performance:")
	for _, s := range rep.Scores {
		fmt.Fprintf(w, "  %s: MAE=%.2f, R2=%.4f\n", s.Target, s.MAE, s.R2)
	}
	fmt.Fprintf(w, "Overall Total Potential Savings: MAE=%.2f, R2=%.4f\n", rep.Total.MAE, rep.Total.R2)
	for _, b := range rep.BackedUp {
		fmt.Fprintf(w, "Backed up: %s\n", b)
	}
	if len(rep.Sample.Values) > 0 {
		fmt.Fprintln(w, "Sample prediction test:")
		for _, v := range rep.Sample.Values {
			fmt.Fprintf(w, "  %s: %.2f\n", v.Name, v.Value)
		}
		fmt.Fprintf(w, "  Total: %.2f\n", rep.Sample.Total)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&flagOutDir, "out", "o", "Finance_model", "Artifact directory")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Print machine-readable output")

	trainCmd.Flags().StringVarP(&trainOpts.DataPath, "data", "d", trainOpts.DataPath, "Labelled CSV")
	trainCmd.Flags().Float64Var(&trainOpts.Params.Alpha, "alpha", trainOpts.Params.Alpha, "Regularisation strength")
	trainCmd.Flags().Float64Var(&trainOpts.Params.L1Ratio, "l1-ratio", trainOpts.Params.L1Ratio, "L1 share of the penalty")
	trainCmd.Flags().IntVar(&trainOpts.Params.MaxIter, "max-iter", trainOpts.Params.MaxIter, "Coordinate descent passes")
	trainCmd.Flags().Float64Var(&trainOpts.Params.Tol, "tol", trainOpts.Params.Tol, "Duality gap tolerance")
	trainCmd.Flags().Float64Var(&trainOpts.TestSize, "test-size", trainOpts.TestSize, "Held-out fraction")
	trainCmd.Flags().Int64Var(&trainOpts.Seed, "seed", trainOpts.Seed, "Split seed")
	trainCmd.Flags().BoolVar(&trainOpts.Backup, "backup", trainOpts.Backup, "Rename existing artifacts to .backup first")

	synthCmd.Flags().IntVar(&flagSynthRows, "rows", 2000, "Rows to generate")
	synthCmd.Flags().Int64Var(&flagSynthSeed, "seed", 42, "Generator seed")
	synthCmd.Flags().StringVar(&flagSynthOut, "file", "Finance_model/data.csv", "Output CSV")

	rootCmd.AddCommand(trainCmd, inspectCmd, synthCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
