/*
Package workers sizes the image decode pool.

# Overview

When running in a container, the number of usable CPUs may be limited by
cgroup constraints. Go 1.19+ sets GOMAXPROCS from those limits, while
runtime.NumCPU() still returns the host's count. Every function here starts
from GOMAXPROCS.

	// Wrong: Returns 64 (host CPUs), ignores container limit
	workers := runtime.NumCPU()

	// Correct: Returns 2 (respects container limit in Go 1.19+)
	workers := runtime.GOMAXPROCS(0)

# Usage

The engine's worker count comes from configuration through Resolve:

	// workers: 4 in media-json.yaml
	n := workers.Resolve(4, 16) // 4

	// workers: 0 means "pick for me"
	n := workers.Resolve(0, 16) // 1.5 per CPU, at most 16

Count takes the per-CPU multiplier directly; ForMixed is the 1.5 per CPU
used for header decoding.

# Environment Variable Override

MEDIAJSON_WORKERS overrides every computed value, including an explicit
configuration:

	MEDIAJSON_WORKERS=1 media-json build

Invalid or non-positive values are ignored.
*/
package workers
