package hooks

import (
	"runtime/debug"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Stack frames are trimmed to the path below this module directory.
const modulePathMarker = "netcheck/"

type contextHook struct{}

// NewContextHook returns a logrus hook that tags every entry with the
// file:line of the code that logged it.
func NewContextHook() log.Hook {
	return contextHook{}
}

func (hook contextHook) Levels() []log.Level {
	return log.AllLevels
}

func (hook contextHook) Fire(entry *log.Entry) error {
	if loc := callerLocation(string(debug.Stack())); loc != "" {
		entry.Data["file:line"] = loc
	}
	return nil
}

// callerLocation walks a goroutine stack dump and returns the location of the
// first frame below this hook that is outside logrus, which is the frame that
// logged.
func callerLocation(stack string) string {
	lines := strings.Split(stack, "\n")
	foundHook := false
	for i := 0; i < len(lines); i++ {
		if strings.Contains(lines[i], "context_hook.go:") {
			foundHook = true
			continue
		}
		if !foundHook || !strings.HasPrefix(lines[i], "\t") || strings.Contains(lines[i], "sirupsen/logrus") {
			continue
		}
		frame := strings.TrimSpace(lines[i])
		if idx := strings.Index(frame, " +0x"); idx >= 0 {
			frame = frame[:idx]
		}
		parts := strings.Split(frame, modulePathMarker)
		return parts[len(parts)-1]
	}
	return ""
}
