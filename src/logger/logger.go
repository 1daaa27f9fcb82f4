// Package logger provides the logging abstraction shared by every easlog component.
//
// Messages are printf style and start with the component in brackets, e.g.
// "[Aggregator] fragment %s failed: %v". The CLI backs the interface with
// logrus; library code falls back to SilentLogger when given nil.
package logger

// Logger is what components log through.
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// SilentLogger discards everything. Used by the terminal views and the MCP
// server, where stdout belongs to the UI or the protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (SilentLogger) Info(string, ...interface{})  {}
func (SilentLogger) Error(string, ...interface{}) {}
func (SilentLogger) Debug(string, ...interface{}) {}
