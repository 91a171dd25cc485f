// Package main provides the entry point for the cognito CLI.
package main

import (
	"fmt"
	"os"

	"github.com/3-ark/Cognito-AI-Sidekick-sub000/cmd/cognito/cmd"
	cerrors "github.com/3-ark/Cognito-AI-Sidekick-sub000/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprint(os.Stderr, cerrors.FormatForCLI(err))
		os.Exit(1)
	}
}
