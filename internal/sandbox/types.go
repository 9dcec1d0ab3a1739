package sandbox

import (
	"context"
	"time"

	"github.com/GriffinCanCode/nodeshim/internal/globals"
)

// Config defines sandbox configuration
type Config struct {
	Timeout          time.Duration  // Execution timeout
	MaxCallStackSize int            // Maximum JS call depth
	EnableConsole    bool           // Capture console.log/warn/error
	InstallGlobals   bool           // Define window/Buffer/process as globals for unbundled scripts
	Window           globals.Window // Environment stub served to bundles
	AcquireTimeout   time.Duration  // Pool acquisition timeout
}

// Result holds execution result
type Result struct {
	Value    interface{}   // Return value
	Console  []LogEntry    // Console output
	Duration time.Duration // Execution time
	Error    error         // Execution error
}

// LogEntry represents console output
type LogEntry struct {
	Level   string    // log, warn, error, info
	Message string    // Log message
	Time    time.Time // Timestamp
}

// Sandbox defines the JavaScript execution interface
type Sandbox interface {
	Execute(ctx context.Context, script string) (*Result, error)
	Reset() error
	Close() error
}

// Default configuration
func DefaultConfig() Config {
	return Config{
		Timeout:          5 * time.Second,
		MaxCallStackSize: 1024,
		EnableConsole:    true,
		InstallGlobals:   false,
		Window:           globals.Default(),
		AcquireTimeout:   5 * time.Second,
	}
}
