package version

import (
	"fmt"
	"runtime"
)

// Version is set at build time with -ldflags "-X .../internal/version.Version=v1.2.3".
var Version = "dev"

// UserAgent identifies chatctl to the chat server.
func UserAgent() string {
	return fmt.Sprintf("chatctl/%s (%s/%s)", Version, runtime.GOOS, runtime.GOARCH)
}
