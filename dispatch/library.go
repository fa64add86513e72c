package dispatch

import "log/slog"

// LogLibrary is the default processing hook. It only logs its invocations.
type LogLibrary struct {
	Logger *slog.Logger
	Calls  int
}

func (l *LogLibrary) Function() error {
	l.Calls++
	if l.Logger != nil {
		l.Logger.Debug("library function invoked", "calls", l.Calls)
	}
	return nil
}
