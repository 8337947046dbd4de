package embedhttp

import (
	"context"
	"log/slog"
)

// logState pairs a logger with its category mask so both are swapped together.
type logState struct {
	logger *slog.Logger
	mask   LogCategory
}

// SetLogger replaces the logger and category mask. It is safe to call while
// the server is running. A nil logger disables logging; a zero mask with a
// non-nil logger selects every category.
func (s *Server) SetLogger(l *slog.Logger, mask LogCategory) {
	if l != nil && mask == 0 {
		mask = LogEverything
	}
	s.log.Store(&logState{logger: l, mask: mask})
}

// SetLogMask changes only the category mask.
func (s *Server) SetLogMask(mask LogCategory) {
	cur := s.log.Load()
	s.log.Store(&logState{logger: cur.logger, mask: mask})
}

// LogMask returns the active category mask.
func (s *Server) LogMask() LogCategory {
	return s.log.Load().mask
}

func (s *Server) logEnabled(cat LogCategory) (*slog.Logger, bool) {
	st := s.log.Load()
	if st.logger == nil || st.mask&cat == 0 {
		return nil, false
	}
	return st.logger, true
}

func (s *Server) logAt(cat LogCategory, level slog.Level, msg string, args ...any) {
	if l, ok := s.logEnabled(cat); ok {
		l.Log(context.Background(), level, msg, args...)
	}
}

func (s *Server) logInfo(cat LogCategory, msg string, args ...any) {
	s.logAt(cat, slog.LevelInfo, msg, args...)
}

func (s *Server) logError(cat LogCategory, msg string, args ...any) {
	s.logAt(cat, slog.LevelError, msg, args...)
}
