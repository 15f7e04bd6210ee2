// Package logging provides the router's pluggable notification
// interface. It follows the same shape as the bgp package's Log
// interface in this codebase's lineage: a small method set plus a Nil
// implementation for tests and library embedding, with the default,
// concrete implementation backed by a real structured logger rather than
// bare fmt.Println calls.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Notifier receives observability events from the router's main loop. It
// deliberately says nothing about state snapshots or histograms — this
// router has no metrics story, only a running narration of what the
// dispatcher did with each frame.
type Notifier interface {
	Dropped(neighbor, reason string)
	NoRoute(neighbor, dest string)
	Forwarded(prefixStr, neighbor string)
	Terminated(neighbor, reason string)
	ConfigError(err error)
}

// Nil discards every event. It is the zero value a caller gets for free
// by simply not providing a Notifier.
type Nil struct{}

func (Nil) Dropped(string, string)    {}
func (Nil) NoRoute(string, string)    {}
func (Nil) Forwarded(string, string)  {}
func (Nil) Terminated(string, string) {}
func (Nil) ConfigError(error)         {}

// Zap adapts a *zap.Logger to the Notifier interface.
type Zap struct {
	L *zap.Logger
}

// NewZap builds a console-oriented zap logger, debug level if verbose is
// set, info level otherwise.
func NewZap(verbose bool) (*Zap, error) {
	cfg := zap.NewDevelopmentConfig()
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	return &Zap{L: l}, nil
}

func (z *Zap) Dropped(neighbor, reason string) {
	z.L.Debug("dropped frame", zap.String("neighbor", neighbor), zap.String("reason", reason))
}

func (z *Zap) NoRoute(neighbor, dest string) {
	z.L.Debug("no route", zap.String("neighbor", neighbor), zap.String("dest", dest))
}

func (z *Zap) Forwarded(prefixStr, neighbor string) {
	z.L.Debug("forwarded", zap.String("prefix", prefixStr), zap.String("neighbor", neighbor))
}

func (z *Zap) Terminated(neighbor, reason string) {
	z.L.Warn("neighbor loop terminated", zap.String("neighbor", neighbor), zap.String("reason", reason))
}

func (z *Zap) ConfigError(err error) {
	z.L.Fatal("configuration error", zap.Error(err))
}
