package kernel

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/xid"
)

// BootConfig is the process-start configuration named by spec.md §6: a
// single policy id "chosen at process start" layered on top of the
// compile-time PageSize/NumPhysFrames/UserStackSize constants.
type BootConfig struct {
	Policy        PolicyID
	NumPhysFrames int
}

// DefaultBootConfig returns the configuration a process gets with no
// overrides: policy 0 (none) and the compiled-in frame count.
func DefaultBootConfig() BootConfig {
	return BootConfig{Policy: PolicyNone, NumPhysFrames: NumPhysFrames}
}

// LoadBootConfig reads boot-time overrides from a .env file (if present)
// and from the process environment, the way a real kernel would let an
// operator pick a replacement policy without recompiling. envPath may be
// empty, in which case only the ambient environment is consulted.
//
// Recognized variables: NACHOSVM_POLICY (0-4) and NACHOSVM_NUM_FRAMES.
// Anything unset or unparsable falls back to DefaultBootConfig's value.
func LoadBootConfig(envPath string) BootConfig {
	cfg := DefaultBootConfig()

	if envPath != "" {
		// Best-effort: a missing .env file is not an error, it just
		// means there are no file-based overrides.
		_ = godotenv.Load(envPath)
	}

	if raw, ok := os.LookupEnv("NACHOSVM_POLICY"); ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= int(PolicyNone) && n <= int(PolicyLRUClock) {
			cfg.Policy = PolicyID(n)
		}
	}

	if raw, ok := os.LookupEnv("NACHOSVM_NUM_FRAMES"); ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.NumPhysFrames = n
		}
	}

	return cfg
}

// NewSpaceID generates a unique address-space identifier. Nachos
// identifies address spaces implicitly by pid; we additionally hand out
// an opaque id (grounded in sim/idgenerator.go's parallelIDGenerator use
// of rs/xid) so telemetry and the debug HTTP server can name a space
// without leaking raw pids.
func NewSpaceID() string {
	return xid.New().String()
}
