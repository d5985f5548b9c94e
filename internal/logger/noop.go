package logger

// NoopLogger is a logger that discards all messages. Used in tests.
type NoopLogger struct{}

// NewNoop creates a new no-op logger.
func NewNoop() Interface {
	return &NoopLogger{}
}

// Debug does nothing.
func (n *NoopLogger) Debug(msg string, fields ...any) {}

// Info does nothing.
func (n *NoopLogger) Info(msg string, fields ...any) {}

// Warn does nothing.
func (n *NoopLogger) Warn(msg string, fields ...any) {}

// Error does nothing.
func (n *NoopLogger) Error(msg string, fields ...any) {}

// With returns the same no-op logger.
func (n *NoopLogger) With(fields ...any) Interface { return n }
