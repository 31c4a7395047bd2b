package transfer

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"

	"github.com/NoaS100/NetworkSpeedTest/pkg/protocol"
)

// ErrorCategory represents the category of an error for handling purposes
type ErrorCategory int

const (
	// CategoryNone is the category of a nil error
	CategoryNone ErrorCategory = iota
	// CategoryForeign marks bytes that were not protocol traffic; dropped silently
	CategoryForeign
	// CategoryProtocol marks valid traffic of the wrong kind on a connection
	CategoryProtocol
	// CategoryTransport marks resets, refused connections and other socket failures
	CategoryTransport
	// CategoryTimeout marks expired deadlines
	CategoryTimeout
	// CategoryCancelled marks work stopped by shutdown
	CategoryCancelled
)

// String returns a string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case CategoryNone:
		return "none"
	case CategoryForeign:
		return "foreign"
	case CategoryProtocol:
		return "protocol"
	case CategoryTransport:
		return "transport"
	case CategoryTimeout:
		return "timeout"
	case CategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Categorize determines the category of an error
func Categorize(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}

	switch {
	case protocol.IsForeign(err):
		return CategoryForeign
	case errors.Is(err, protocol.ErrUnexpectedType), errors.Is(err, protocol.ErrUnknownType):
		return CategoryProtocol
	case errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return CategoryTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CategoryTimeout
	}

	// Resets, refusals, broken pipes and early EOF all land here.
	return CategoryTransport
}

// LogError logs a connection-level error with appropriate context. Foreign
// traffic is only logged at debug level.
func LogError(msg string, err error, attrs ...any) {
	category := Categorize(err)
	fields := append([]any{"error", err, "category", category.String()}, attrs...)

	switch category {
	case CategoryNone:
		return
	case CategoryForeign:
		slog.Debug(msg, fields...)
	case CategoryCancelled:
		slog.Info(msg, fields...)
	case CategoryTimeout, CategoryProtocol:
		slog.Warn(msg, fields...)
	default:
		slog.Error(msg, fields...)
	}
}
