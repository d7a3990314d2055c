// Package logging holds the process-wide zap logger of the hybrid packages.
// The library is silent until a host application installs its logger.
package logging

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var current atomic.Pointer[zap.Logger]

func init() {
	current.Store(zap.NewNop())
}

// L returns the installed logger.
func L() *zap.Logger {
	return current.Load()
}

// SetLogger installs l and returns a function restoring the previous logger.
func SetLogger(l *zap.Logger) (restore func()) {
	if l == nil {
		l = zap.NewNop()
	}
	prev := current.Swap(l)
	return func() {
		current.Store(prev)
	}
}

// Named returns a child of the installed logger.
func Named(name string) *zap.Logger {
	return L().Named(name)
}
