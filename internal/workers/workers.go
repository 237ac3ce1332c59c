package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that overrides every
// computed worker count.
const EnvOverride = "MEDIAJSON_WORKERS"

// Count returns the number of workers for a task type.
// It respects container CPU limits via GOMAXPROCS (Go 1.19+).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
func Count(multiplier float64, limit int) int {
	if count, ok := override(); ok {
		if limit > 0 && count > limit {
			return limit
		}
		return count
	}

	// GOMAXPROCS is automatically set to container CPU limit in Go 1.19+
	available := runtime.GOMAXPROCS(0)

	workers := int(float64(available) * multiplier)

	if workers < 1 {
		workers = 1
	}
	if limit > 0 && workers > limit {
		workers = limit
	}

	return workers
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
// Decoding image headers is mostly file reads with a little parsing.
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// Resolve turns a configured worker count into the effective one. Positive
// values are used as given, unless the environment overrides them; zero or
// negative selects ForMixed capped at limit.
func Resolve(requested, limit int) int {
	if count, ok := override(); ok {
		return count
	}
	if requested > 0 {
		return requested
	}
	return ForMixed(limit)
}

func override() (int, bool) {
	v := os.Getenv(EnvOverride)
	if v == "" {
		return 0, false
	}
	count, err := strconv.Atoi(v)
	if err != nil || count < 1 {
		return 0, false
	}
	return count, true
}
