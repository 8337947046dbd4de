package embedhttp

import (
	"fmt"
	"log/slog"
	"strings"
)

// LogCategory selects groups of diagnostic log messages.
type LogCategory uint32

const (
	LogConnections      LogCategory = 0x01
	LogStaticRequests   LogCategory = 0x02
	LogStaticResponses  LogCategory = 0x04
	LogDynamicRequests  LogCategory = 0x08
	LogDynamicResponses LogCategory = 0x10
	LogEverything       LogCategory = 0x1f
)

var categoryNames = []struct {
	name string
	cat  LogCategory
}{
	{"connections", LogConnections},
	{"static_requests", LogStaticRequests},
	{"static_responses", LogStaticResponses},
	{"dynamic_requests", LogDynamicRequests},
	{"dynamic_responses", LogDynamicResponses},
}

// String lists the selected categories, comma separated.
func (c LogCategory) String() string {
	if c&LogEverything == LogEverything {
		return "all"
	}
	if c&LogEverything == 0 {
		return "none"
	}
	var names []string
	for _, cn := range categoryNames {
		if c&cn.cat != 0 {
			names = append(names, cn.name)
		}
	}
	return strings.Join(names, ",")
}

// ParseLogCategories parses a comma separated list of category names.
// "all" selects every category, "none" or an empty string selects none;
// "static" and "dynamic" select both request and response categories.
func ParseLogCategories(s string) (LogCategory, error) {
	var mask LogCategory
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		switch name {
		case "", "none":
			continue
		case "all", "everything":
			mask |= LogEverything
			continue
		case "static":
			mask |= LogStaticRequests | LogStaticResponses
			continue
		case "dynamic":
			mask |= LogDynamicRequests | LogDynamicResponses
			continue
		}

		found := false
		for _, cn := range categoryNames {
			if cn.name == name {
				mask |= cn.cat
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("embedhttp: unknown log category %q", part)
		}
	}
	return mask, nil
}

// Options configures a Server. They are read once by New.
type Options struct {
	// Port is the TCP port to listen on, on all interfaces.
	Port int
	// SocketPath, when set, makes the server listen on a Unix domain socket
	// at that path instead of Port.
	SocketPath string
	// Backlog is the listen backlog (default sockets.DefaultBacklog).
	Backlog int
	// BaseDir is the directory static files are served from.
	BaseDir string
	// Logger receives diagnostic messages. Nil disables logging.
	Logger *slog.Logger
	// LogMask selects which categories reach Logger. Zero with a non-nil
	// Logger means LogEverything.
	LogMask LogCategory
	// Observer receives connection and request measurements. Optional.
	Observer Observer
}
