package cmd

import (
	"context"
	"os"
	"time"

	"github.com/crytic/movedusa/cmd/exitcodes"
	"github.com/crytic/movedusa/fuzzing"
	"github.com/crytic/movedusa/logging"
	"github.com/crytic/movedusa/utils"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	flagModulePath string
	flagABIPath    string
	flagTimeout    time.Duration
	flagSeed       int64
	flagAbortCodes []uint
)

// rootCmd is movedusa's single entry point: publish the module at --module-path, seed a corpus from the ABIs at
// --abi-path, and fuzz until --timeout elapses or the process receives SIGINT.
var rootCmd = &cobra.Command{
	Use:           "movedusa",
	Short:         "movedusa is a coverage-guided fuzzer for Move smart contract modules",
	Long:          "movedusa executes a single published Move-style module against synthesized and mutated transaction payloads, evolving a corpus toward unseen control-flow edges and reporting inputs that trigger aborts, arithmetic truncation, or VM invariant violations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          cmdRunFuzz,
}

func init() {
	rootCmd.Flags().StringVar(&flagModulePath, "module-path", "", "path to the compiled module to fuzz (required)")
	rootCmd.Flags().StringVar(&flagABIPath, "abi-path", "", "path to a directory or file of entry-function ABI JSON descriptors (required)")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "stop fuzzing after this duration elapses (0 disables the deadline, relying on SIGINT)")
	rootCmd.Flags().Int64Var(&flagSeed, "seed", 1, "PRNG seed driving the mutator, for deterministic replay")
	rootCmd.Flags().UintSliceVar(&flagAbortCodes, "target-abort-code", nil, "restrict abort-code solutions to these codes (repeatable; default: any code)")

	_ = rootCmd.MarkFlagRequired("module-path")
	_ = rootCmd.MarkFlagRequired("abi-path")
}

// Execute runs the root command, returning an *exitcodes.ErrorWithExitCode for failures during a fuzz run. Flag
// parsing errors reported by cobra are returned as plain errors.
func Execute() error {
	return rootCmd.Execute()
}

func cmdRunFuzz(cmd *cobra.Command, args []string) error {
	logger := logging.NewLogger(zerolog.InfoLevel, true).NewSubLogger("module", logging.CLI_SERVICE)

	// history retains the most recent log lines so the end-of-run summary can report how much log activity
	// preceded it, without the CLI holding its own separate ring buffer.
	history := logging.NewLogBufferWriter(1000)
	logger.AddWriter(history, logging.UNSTRUCTURED)

	if _, err := os.Stat(flagModulePath); err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeModuleUnreadable)
	}
	if _, err := os.Stat(flagABIPath); err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeAbiPathUnreadable)
	}

	targetCodes := make(map[uint64]struct{}, len(flagAbortCodes))
	for _, c := range flagAbortCodes {
		targetCodes[uint64(c)] = struct{}{}
	}

	config := fuzzing.Config{
		ModulePath:       flagModulePath,
		ABIPath:          flagABIPath,
		Timeout:          flagTimeout,
		Seed:             flagSeed,
		TargetAbortCodes: targetCodes,
	}

	fuzzer, err := fuzzing.New(config, logger)
	if err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeModulePublishRejected)
	}

	fuzzer.Events.SolutionFound.Subscribe(func(e fuzzing.SolutionFoundEvent) {
		logger.Warn("solution found", logging.StructuredLogInfo{
			"objective":  e.Solution.Objective,
			"abort_code": e.Solution.AbortCode,
			"has_abort":  e.Solution.HasAbort,
		}, e.Solution.Log().String())
	})

	if err := fuzzer.SeedFromABIs(); err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeAbiPathUnreadable)
	}

	if err := fuzzer.Run(context.Background()); err != nil {
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeGeneralError)
	}

	crashes := utils.SliceWhere(fuzzer.Solutions(), func(s fuzzing.Solution) bool { return s.Objective == "crash" })
	objectives := utils.SliceSelect(fuzzer.Solutions(), func(s fuzzing.Solution) string { return s.Objective })

	logger.Info("fuzzing stopped", logging.StructuredLogInfo{
		"executions":         fuzzer.Executions(),
		"solutions":          len(fuzzer.Solutions()),
		"crashes":            len(crashes),
		"objectives":         objectives,
		"coverage":           fuzzer.CoverageCount(),
		"log_lines_buffered": history.Count(),
	})

	return nil
}
