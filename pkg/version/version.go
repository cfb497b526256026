package version

import (
	"fmt"
	"runtime/debug"
)

// Version is resolved from the build info of the running binary.
var Version = func() string {
	commit, built := "unknown", "unknown"
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				commit = setting.Value
			case "vcs.time":
				built = setting.Value
			}
		}
	}
	return fmt.Sprintf("%s (%s)", commit, built)
}()
