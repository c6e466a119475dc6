package instance

import (
	"os"

	"github.com/lavish-fashion/lavish-backend/pkg/env"
)

const EnvInstanceID = "LAVISH_INSTANCE_ID"

// ID names the running process in logs: the configured id, then the
// platform dyno name, then the hostname.
func ID() string {
	if id := env.Get(EnvInstanceID, env.Get("DYNO", "")); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
