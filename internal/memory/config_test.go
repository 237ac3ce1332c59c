package memory

import (
	"runtime/debug"
	"testing"
)

// restoreLimit resets the runtime memory limit when the test ends.
func restoreLimit(t *testing.T) {
	t.Helper()
	old := debug.SetMemoryLimit(-1)
	t.Cleanup(func() { debug.SetMemoryLimit(old) })
}

func TestConfigureFromEnvNone(t *testing.T) {
	t.Setenv("GOMEMLIMIT", "")
	t.Setenv("MEMORY_LIMIT", "")
	t.Setenv("MEMORY_RATIO", "")

	result := ConfigureFromEnv()
	if result.Configured {
		t.Error("Expected Configured to be false when no env vars set")
	}
	if result.Source != "none" {
		t.Errorf("Expected Source to be 'none', got %q", result.Source)
	}
}

func TestConfigureFromEnvGOMEMLIMITWins(t *testing.T) {
	restoreLimit(t)
	debug.SetMemoryLimit(500 << 20)
	t.Setenv("GOMEMLIMIT", "500MiB")
	t.Setenv("MEMORY_LIMIT", "1073741824")

	result := ConfigureFromEnv()
	if result.Source != "GOMEMLIMIT" {
		t.Errorf("Expected Source GOMEMLIMIT, got %q", result.Source)
	}
	if !result.Configured || result.GoMemLimit != 500<<20 {
		t.Errorf("Expected configured 500MiB limit, got %+v", result)
	}
	if got := debug.SetMemoryLimit(-1); got != 500<<20 {
		t.Errorf("GOMEMLIMIT must not be changed, got %d", got)
	}
}

func TestConfigureFromEnvMemoryLimit(t *testing.T) {
	tests := []struct {
		name      string
		ratio     string
		wantRatio float64
	}{
		{"default ratio", "", DefaultMemoryRatio},
		{"custom ratio", "0.5", 0.5},
		{"ratio out of range", "1.5", DefaultMemoryRatio},
		{"ratio not a number", "most", DefaultMemoryRatio},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", "1073741824")
			t.Setenv("MEMORY_RATIO", tt.ratio)

			result := ConfigureFromEnv()
			if !result.Configured || result.Source != "MEMORY_LIMIT" {
				t.Fatalf("unexpected result %+v", result)
			}
			if result.Ratio != tt.wantRatio {
				t.Errorf("Ratio = %v, want %v", result.Ratio, tt.wantRatio)
			}
			want := int64(float64(1073741824) * tt.wantRatio)
			if result.GoMemLimit != want {
				t.Errorf("GoMemLimit = %d, want %d", result.GoMemLimit, want)
			}
			if got := debug.SetMemoryLimit(-1); got != want {
				t.Errorf("runtime limit = %d, want %d", got, want)
			}
		})
	}
}

func TestConfigureFromEnvInvalidLimit(t *testing.T) {
	for _, value := range []string{"lots", "-5", "0"} {
		t.Run(value, func(t *testing.T) {
			restoreLimit(t)
			t.Setenv("GOMEMLIMIT", "")
			t.Setenv("MEMORY_LIMIT", value)
			before := debug.SetMemoryLimit(-1)

			result := ConfigureFromEnv()
			if result.Configured || result.Source != "none" {
				t.Errorf("MEMORY_LIMIT=%q: unexpected result %+v", value, result)
			}
			if got := debug.SetMemoryLimit(-1); got != before {
				t.Errorf("limit changed from %d to %d", before, got)
			}
		})
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
		{5 << 30, "5.0 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
