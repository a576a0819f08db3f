package events

import (
	"fmt"
	"io"
	"os"
)

// LogConfig configures LogHandler's output.
type LogConfig struct {
	// Writer is where events are logged (default: os.Stderr).
	Writer io.Writer
}

// LogHandler returns a Handler that writes e.String() lines to
// cfg.Writer, one per event.
func LogHandler(cfg LogConfig) Handler {
	if cfg.Writer == nil {
		cfg.Writer = os.Stderr
	}
	return func(e Event) {
		fmt.Fprintln(cfg.Writer, e.String())
	}
}
