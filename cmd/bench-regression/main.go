// Command bench-regression compares two `go test -bench` outputs and fails
// when a tracked client benchmark slows down past the allowed ratio.
//
//	go test -run '^$' -bench . -count 5 ./ > new.txt
//	go run ./cmd/bench-regression --baseline old.txt --candidate new.txt
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)

	cmd := &cobra.Command{
		Use:           "bench-regression",
		Short:         "Fail when tracked session benchmarks regress",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold < 0 {
				return fmt.Errorf("--threshold must be >= 0")
			}

			baseline, err := parseFile(baselinePath)
			if err != nil {
				return fmt.Errorf("parse baseline: %w", err)
			}
			candidate, err := parseFile(candidatePath)
			if err != nil {
				return fmt.Errorf("parse candidate: %w", err)
			}

			report := compare(baseline, candidate, threshold)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "benchmark metric baseline candidate delta")
			for _, row := range report.Rows {
				fmt.Fprintf(out, "%s %s %.3f %.3f %+0.2f%%\n", row.Benchmark, row.Unit, row.Baseline, row.Candidate, row.Delta*100)
			}

			if len(report.Failures) > 0 {
				errOut := cmd.ErrOrStderr()
				fmt.Fprintln(errOut, "performance regression threshold exceeded:")
				for _, f := range report.Failures {
					fmt.Fprintf(errOut, "  - %s\n", f)
				}
				return fmt.Errorf("%d regression(s)", len(report.Failures))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	cmd.Flags().StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	cmd.Flags().Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	_ = cmd.MarkFlagRequired("baseline")
	_ = cmd.MarkFlagRequired("candidate")
	return cmd
}

func parseFile(path string) (samples, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parse(f)
}
