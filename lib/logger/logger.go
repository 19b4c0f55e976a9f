package logger

import (
	"go.uber.org/zap"
)

// New returns a named sugared logger. Every service holds one as a
// package-level var so call sites stay short.
func New(name string) (*zap.SugaredLogger, error) {
	l, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return l.Named(name).Sugar(), nil
}
