package main

import (
	"context"
	"errors"
	"io"

	"github.com/ZebulonRouseFrantzich/prebuilt/internal/report"
)

// runMatrix handles the `prebuilt matrix` subcommand. It prints the targets
// fetch would process and touches neither the network nor the filesystem.
func runMatrix(ctx context.Context, args []string, stdout, stderr io.Writer) (int, error) {
	inv, err := parseCommand("matrix", args, stdout, stderr)
	if errors.Is(err, errHelp) {
		return 0, nil
	}
	if err != nil {
		return 1, err
	}

	matrices, _, err := inv.plan(ctx)
	if err != nil {
		return 1, err
	}

	if err := report.WriteMatrices(stdout, matrices, inv.settings.Format); err != nil {
		return 1, err
	}
	return 0, nil
}
