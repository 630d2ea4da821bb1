// Package runtime resolves which low-level execution runtime (runc, runsc,
// kata, ...) a new container should be started with.
package runtime

import (
	"log/slog"
	"sort"
)

// Resolve picks the runtime for a new container.
//
// An empty requested name yields the daemon default. A requested name that the
// daemon advertises is honored as-is. A requested name the daemon does not
// know degrades to the default with a warning enumerating what is available.
// Resolution cannot fail.
func Resolve(requested, defaultRuntime string, available []string) string {
	if requested == "" {
		slog.Info("using default runtime", "runtime", defaultRuntime)
		return defaultRuntime
	}
	for _, name := range available {
		if name == requested {
			slog.Info("using runtime", "runtime", requested)
			return requested
		}
	}
	sorted := append([]string(nil), available...)
	sort.Strings(sorted)
	slog.Warn("requested runtime not found, reverting to default",
		"requested", requested,
		"default", defaultRuntime,
		"available", sorted,
	)
	return defaultRuntime
}
