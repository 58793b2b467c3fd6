package preflight

import (
	"context"
	"time"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Lister lists image names in a store directory.
type Lister interface {
	List(ctx context.Context, dir string, extensions []string) ([]string, error)
}

// DirectoryStore creates and removes store directories.
type DirectoryStore interface {
	CreateDirectory(ctx context.Context, dir string) error
	Delete(ctx context.Context, path string) error
}

// HealthChecker pings the vision model.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Notifier sends a test message.
type Notifier interface {
	TestNotification(ctx context.Context) error
}

// Checks names the collaborators to probe. Nil or empty fields skip the
// corresponding check.
type Checks struct {
	TempDir string

	Source     Lister
	SourceDir  string
	Extensions []string

	Destination DirectoryStore
	DestDir     string

	InputDir  string
	OutputDir string

	Model     HealthChecker
	ModelName string

	Notifier Notifier

	// Timeout bounds each network check. Zero means 30 seconds.
	Timeout time.Duration
}

// Run executes every applicable check in a fixed order.
func Run(ctx context.Context, c Checks) []Result {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var results []Result
	if c.TempDir != "" {
		results = append(results, CheckDirectoryAccess("Temp directory", c.TempDir))
	}
	if c.InputDir != "" {
		results = append(results, CheckReadableDirectory("Input directory", c.InputDir))
	}
	if c.OutputDir != "" {
		results = append(results, CheckOutputDirectory("Output directory", c.OutputDir))
	}
	if c.Source != nil {
		results = append(results, withTimeout(ctx, timeout, func(ctx context.Context) Result {
			return CheckSourceListing(ctx, c.Source, c.SourceDir, c.Extensions)
		}))
	}
	if c.Destination != nil {
		results = append(results, withTimeout(ctx, timeout, func(ctx context.Context) Result {
			return CheckDestinationWrite(ctx, c.Destination, c.DestDir)
		}))
	}
	if c.Model != nil {
		results = append(results, withTimeout(ctx, timeout, func(ctx context.Context) Result {
			return CheckModel(ctx, c.Model, c.ModelName)
		}))
	}
	if c.Notifier != nil {
		results = append(results, withTimeout(ctx, timeout, func(ctx context.Context) Result {
			return CheckNotifications(ctx, c.Notifier)
		}))
	}
	return results
}

// AllPassed reports whether every result passed. An empty slice passes.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Passed {
			return false
		}
	}
	return true
}

func withTimeout(ctx context.Context, timeout time.Duration, fn func(context.Context) Result) Result {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(checkCtx)
}
