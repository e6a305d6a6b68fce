package scanner

import (
	"context"

	"sdm-scanner/internal/tasks"
)

// Options re-exposes the tasks.Options type for external callers.
type Options = tasks.Options

// Run starts the scanner with the given options using the internal tasks implementation.
func Run(ctx context.Context, opts Options) error {
	return tasks.InitAndRunScanner(ctx, opts)
}
