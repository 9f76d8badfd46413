package main

import (
	"context"
	stderrors "errors"
	"os"

	"github.com/arthur-debert/winstow/pkg/errors"
)

func main() {
	if err := Execute(); err != nil {
		printError(err.Error())
		os.Exit(exitCode(err))
	}
}

// exitCode maps failures onto the documented exit statuses: 2 for usage
// errors, 1 for operational failures.
func exitCode(err error) int {
	if errors.IsErrorCode(err, errors.ErrInvalidInput) {
		return 2
	}
	if stderrors.Is(err, context.Canceled) {
		return 1
	}
	if errors.GetErrorCode(err) == errors.ErrUnknown {
		// flag parsing and other cobra-level failures
		return 2
	}
	return 1
}
