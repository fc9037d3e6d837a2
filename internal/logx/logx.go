// Package logx holds the module's logging conventions: library code stays
// silent unless the caller hands it a *slog.Logger, and a nil logger is
// always safe to call through Or.
package logx

import (
	"io"
	"log/slog"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// Or returns l, or a logger that drops everything when l is nil, so call
// sites never nil-check.
func Or(l *slog.Logger) *slog.Logger {
	if l == nil {
		return discard
	}
	return l
}
