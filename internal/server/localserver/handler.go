package localserver

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/yndnr/embedhttp/internal/infra/buildinfo"
	"github.com/yndnr/embedhttp/internal/telemetry/logger"
	"github.com/yndnr/embedhttp/pkg/embedhttp"
)

// EndOfReply terminates every reply.
const EndOfReply = "."

// ErrUnknownCommand is returned by Execute for commands it does not know.
var ErrUnknownCommand = errors.New("unknown command")

// Controller is the part of the running server the commands act on.
type Controller interface {
	Stats() embedhttp.Stats
	Routes() []embedhttp.Route
	LogMask() embedhttp.LogCategory
	SetLogMask(mask embedhttp.LogCategory)
	Reload() error
	Shutdown(reason string)
}

// Handler handles local management commands.
type Handler struct {
	ctl Controller
}

// NewHandler creates a new Handler.
func NewHandler(ctl Controller) *Handler {
	return &Handler{ctl: ctl}
}

// Execute runs one command and writes its reply, without the terminator.
func (h *Handler) Execute(w io.Writer, cmd string, args []string) error {
	switch strings.ToLower(cmd) {
	case "status":
		return h.handleStatus(w)
	case "routes":
		return h.handleRoutes(w)
	case "loglevel":
		return h.handleLogLevel(w, args)
	case "logmask":
		return h.handleLogMask(w, args)
	case "reload":
		return h.handleReload(w)
	case "shutdown":
		return h.handleShutdown(w)
	case "help":
		_, err := io.WriteString(w, "commands: status routes loglevel logmask reload shutdown\n")
		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func (h *Handler) handleStatus(w io.Writer) error {
	st := h.ctl.Stats()
	info := buildinfo.Get()
	_, err := fmt.Fprintf(w,
		"running: %t\nuptime: %s\nconnections_active: %d\nconnections_total: %d\nroutes: %d\n"+
			"log_level: %s\nlog_categories: %s\nversion: %s\ncommit: %s\n",
		st.Running, st.Uptime.Truncate(time.Second), st.ActiveConnections, st.TotalConnections, st.Routes,
		logger.GetLevel(), h.ctl.LogMask(), info.Version, info.Commit)
	return err
}

func (h *Handler) handleRoutes(w io.Writer) error {
	for _, r := range h.ctl.Routes() {
		mime := r.MIME
		if mime == embedhttp.MIMEGeneric {
			mime = "generic"
		}
		if _, err := fmt.Fprintf(w, "%s %s %s\n", r.Method, r.Path, mime); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handleLogLevel(w io.Writer, args []string) error {
	if len(args) > 0 {
		if err := logger.SetLevel(args[0]); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "log_level: %s\n", logger.GetLevel())
	return err
}

func (h *Handler) handleLogMask(w io.Writer, args []string) error {
	if len(args) > 0 {
		mask, err := embedhttp.ParseLogCategories(strings.Join(args, ","))
		if err != nil {
			return err
		}
		h.ctl.SetLogMask(mask)
	}
	_, err := fmt.Fprintf(w, "log_categories: %s\n", h.ctl.LogMask())
	return err
}

func (h *Handler) handleReload(w io.Writer) error {
	if err := h.ctl.Reload(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "configuration reloaded\n")
	return err
}

func (h *Handler) handleShutdown(w io.Writer) error {
	if _, err := io.WriteString(w, "shutting down\n"); err != nil {
		return err
	}
	h.ctl.Shutdown("admin socket")
	return nil
}
