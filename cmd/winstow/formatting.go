package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"

	"github.com/arthur-debert/winstow/pkg/core"
)

// isTerminal reports whether stdout is attached to a terminal; styled
// output is only used interactively.
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printSuccess(msg string) {
	if isTerminal() {
		pterm.Success.Println(msg)
		return
	}
	fmt.Println(msg)
}

func printInfo(msg string) {
	if isTerminal() {
		pterm.Info.Println(msg)
		return
	}
	fmt.Println(msg)
}

func printError(msg string) {
	if isTerminal() {
		pterm.Error.Println(msg)
		return
	}
	fmt.Fprintln(os.Stderr, msg)
}

func printPackageResult(op core.Operation, pr core.PackageResult, dryRun bool) {
	if pr.Planned == 0 {
		printInfo(fmt.Sprintf(MsgPackageNothing, op, pr.Package))
		return
	}
	count := pr.Committed
	if dryRun {
		count = pr.Planned
	}
	printInfo(fmt.Sprintf(MsgPackageLine, op, pr.Package, count))
}
