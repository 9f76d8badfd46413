package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/winstow/pkg/config"
	"github.com/arthur-debert/winstow/pkg/core"
	"github.com/arthur-debert/winstow/pkg/errors"
	"github.com/arthur-debert/winstow/pkg/filesystem"
	"github.com/arthur-debert/winstow/pkg/logging"
	"github.com/arthur-debert/winstow/pkg/types"
)

var (
	flagStow     bool
	flagDelete   bool
	flagRestow   bool
	flagDir      string
	flagTarget   string
	verbosity    int
	flagDryRun   bool
	flagAdopt    bool
	flagOverride bool
	flagIgnore   []string
	flagDefer    []string

	rootCmd = &cobra.Command{
		Use:           "winstow [flags] PACKAGE...",
		Short:         MsgShort,
		Long:          MsgLong,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRoot,
	}
)

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.Flags().BoolVarP(&flagStow, "stow", "S", false, "Stow packages (default action)")
	rootCmd.Flags().BoolVarP(&flagDelete, "delete", "D", false, "Unstow (delete) packages")
	rootCmd.Flags().BoolVarP(&flagRestow, "restow", "R", false, "Restow packages (unstow then stow)")

	rootCmd.Flags().StringVarP(&flagDir, "dir", "d", "", "Stow directory containing packages (default: current directory)")
	rootCmd.Flags().StringVarP(&flagTarget, "target", "t", "", "Target directory where symlinks are created (default: home directory)")

	rootCmd.Flags().CountVarP(&verbosity, "verbose", "v", "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.Flags().BoolVarP(&flagDryRun, "dry-run", "n", false, "Preview actions without making changes")
	rootCmd.Flags().BoolVar(&flagAdopt, "adopt", false, "Move conflicting files into the package, then link")
	rootCmd.Flags().BoolVar(&flagOverride, "override", false, "Remove conflicting files, then link (destructive)")
	rootCmd.Flags().StringArrayVar(&flagIgnore, "ignore", nil, "Skip entries matching PATTERN (repeatable)")
	rootCmd.Flags().StringArrayVar(&flagDefer, "defer", nil, "Skip files matching PATTERN when the target already exists (repeatable)")
}

func runRoot(cmd *cobra.Command, args []string) error {
	op, err := selectOperation()
	if err != nil {
		return err
	}
	if err := validateFlags(op); err != nil {
		return err
	}

	logging.SetupLogger(verbosity)

	fileCfg, err := config.Load()
	if err != nil {
		return err
	}
	merged := fileCfg.Merge(config.CLIValues{
		StowDir:   flagDir,
		TargetDir: flagTarget,
		Ignore:    flagIgnore,
		Defer:     flagDefer,
		Verbosity: verbosity,
	})
	if merged.Verbosity != verbosity {
		logging.SetupLogger(merged.Verbosity)
	}

	if flagDryRun {
		printInfo(MsgDryRun)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	req := core.Request{
		Operation: op,
		Packages:  args,
		Options: types.Options{
			StowDir:   merged.StowDir,
			TargetDir: merged.TargetDir,
			Ignore:    merged.Ignore,
			Defer:     merged.Defer,
			DryRun:    flagDryRun,
			Adopt:     flagAdopt,
			Override:  flagOverride,
		},
	}

	res, err := core.Run(ctx, filesystem.NewOS(), req)
	if err != nil {
		return err
	}

	failed := 0
	for _, pr := range res.Packages {
		if pr.Err != nil {
			failed++
			printError(fmt.Sprintf("%s %s: %v", op, pr.Package, pr.Err))
			continue
		}
		printPackageResult(op, pr, flagDryRun)
	}

	if failed > 0 {
		return errors.Wrapf(res.FirstErr(), errors.GetErrorCode(res.FirstErr()),
			"%d of %d package(s) failed", failed, len(res.Packages))
	}

	if flagDryRun {
		printInfo(fmt.Sprintf(MsgWouldComplete, op, len(res.Packages)))
	} else {
		printSuccess(fmt.Sprintf(MsgCompleted, op, len(res.Packages)))
	}
	return nil
}

func selectOperation() (core.Operation, error) {
	count := 0
	for _, set := range []bool{flagStow, flagDelete, flagRestow} {
		if set {
			count++
		}
	}
	if count > 1 {
		return core.OpStow, errors.New(errors.ErrInvalidInput, MsgErrMultipleActions)
	}
	switch {
	case flagDelete:
		return core.OpUnstow, nil
	case flagRestow:
		return core.OpRestow, nil
	default:
		return core.OpStow, nil
	}
}

func validateFlags(op core.Operation) error {
	if flagAdopt && flagOverride {
		return errors.New(errors.ErrInvalidInput, MsgErrAdoptOverride)
	}
	if op == core.OpUnstow && (flagAdopt || flagOverride) {
		return errors.New(errors.ErrInvalidInput, MsgErrDeleteModifiers)
	}
	return nil
}
