package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, dir string) Result {
	return checkDirectory(name, dir, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, dir string) Result {
	return checkDirectory(name, dir, unix.R_OK|unix.X_OK, "readable")
}

// CheckOutputDirectory passes for a writable directory, or for a missing one
// whose nearest existing parent is writable.
func CheckOutputDirectory(name, dir string) Result {
	if _, err := os.Stat(dir); err == nil {
		return CheckDirectoryAccess(name, dir)
	}
	parent := dir
	for {
		next := filepath.Dir(parent)
		if next == parent {
			break
		}
		parent = next
		if info, err := os.Stat(parent); err == nil && info.IsDir() {
			if err := unix.Access(parent, unix.W_OK|unix.X_OK); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("%s (error: parent %s not writable: %v)", dir, parent, err)}
			}
			return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (will be created)", dir)}
		}
	}
	return Result{Name: name, Detail: fmt.Sprintf("%s (error: no existing parent)", dir)}
}

func checkDirectory(name, dir string, mode uint32, okDetail string) Result {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", dir)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", dir, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
	}
	if err := unix.Access(dir, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", dir, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", dir, okDetail)}
}

// CheckSourceListing lists the source directory.
func CheckSourceListing(ctx context.Context, source Lister, dir string, extensions []string) Result {
	const name = "Source store"
	names, err := source.List(ctx, dir, extensions)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("list %s failed (%s)", dir, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d images)", dir, len(names))}
}

// CheckDestinationWrite creates and removes a probe directory under dir.
func CheckDestinationWrite(ctx context.Context, dest DirectoryStore, dir string) Result {
	const name = "Destination store"
	probe := path.Join("/", dir, ".scantocookbook-probe-"+uuid.NewString())
	if err := dest.CreateDirectory(ctx, probe); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("create %s failed (%s)", probe, summarizeError(err))}
	}
	if err := dest.Delete(ctx, probe); err != nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s writable (probe not removed: %s)", dir, summarizeError(err))}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (writable)", dir)}
}

// CheckModel verifies that the vision API is reachable and the key is valid.
func CheckModel(ctx context.Context, model HealthChecker, modelName string) Result {
	const name = "Vision model"
	if err := model.HealthCheck(ctx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	detail := "API reachable"
	if modelName != "" {
		detail = fmt.Sprintf("%s (API reachable)", modelName)
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckNotifications sends a low-priority test message.
func CheckNotifications(ctx context.Context, notifier Notifier) Result {
	const name = "Notifications"
	if err := notifier.TestNotification(ctx); err != nil {
		return Result{Name: name, Detail: summarizeError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "test message delivered"}
}

func summarizeError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out (unreachable)"
	}
	return err.Error()
}
