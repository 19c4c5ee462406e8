package core

import (
	"io"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path"

	"github.com/encodeous/dvr/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

// NewLogger logs to the console, and to logPath as well if it is set. The returned closer releases the log file.
func NewLogger(prefix string, level slog.Level, logPath string) (*slog.Logger, io.Closer, error) {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:        level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))

	var closer io.Closer = io.NopCloser(nil)
	if logPath != "" {
		err := os.MkdirAll(path.Dir(logPath), 0700)
		if err != nil {
			return nil, nil, err
		}
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0600)
		if err != nil {
			return nil, nil, err
		}
		closer = f
		handlers = append(handlers, slog.NewTextHandler(f, &slog.HandlerOptions{Level: level}))
	}

	logger := slog.New(
		slogmulti.Fanout(handlers...))
	return logger, closer, nil
}

// SetupDebugging serves pprof, expvar and the packet metrics when debugging is enabled
func SetupDebugging() {
	if state.DBG_debug {
		go func() {
			log.Println(http.ListenAndServe(state.DBG_debug_addr, nil))
		}()
	}
}
