package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/aretw0/easyyaml/internal/config"
	"github.com/aretw0/easyyaml/internal/logging"
	"github.com/aretw0/easyyaml/pkg/domain"
	"golang.org/x/term"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// CreateLogger configures the application logger from the config.
// It always writes to Stderr so that command output stays clean; debug
// forces the debug level.
func CreateLogger(cfg config.Config, debug bool) (*slog.Logger, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if debug {
		level = slog.LevelDebug
	}
	return logging.NewWriter(os.Stderr, level, cfg.LogFormat), nil
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.SyncHooks {
	return domain.SyncHooks{
		OnSwitch: func(from, to domain.View, err error) {
			if err != nil {
				logger.Debug("View Switch (Refused)", "from", from, "to", to, "err", err)
			} else {
				logger.Debug("View Switch", "from", from, "to", to)
			}
		},
		OnPropagate: func(source domain.View) {
			logger.Debug("Propagate", "source", source)
		},
		OnDropped: func(source domain.View) {
			logger.Debug("Propagation Dropped", "source", source)
		},
		OnSerialize: func(elapsed time.Duration, err error) {
			logger.Debug("Serialize", "elapsed", elapsed, "err", err)
		},
	}
}
