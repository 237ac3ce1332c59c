// Package memory keeps image decoding inside the container's memory limit.
//
// GOMAXPROCS follows cgroup CPU limits automatically; GOMEMLIMIT does not.
// [ConfigureFromEnv] sets it from MEMORY_LIMIT (typically passed with the
// Kubernetes Downward API) scaled by MEMORY_RATIO, unless GOMEMLIMIT is
// already set:
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//	- name: MEMORY_RATIO
//	  value: "0.75"  # leave more room for libvips
//
// GOMEMLIMIT only covers the Go heap. libvips allocates in C, so the ratio
// should be lower when the vips decoder is used.
//
// # Backpressure
//
// A [Monitor] samples heap usage and pauses decoding once it crosses the
// critical water mark, resuming below the high water mark. It satisfies the
// engine's Backpressure interface:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//	opts.Backpressure = monitor
package memory
