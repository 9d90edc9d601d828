package core

// Logger logs messages to one or more destinations.
// Implementations may inspect args for k/v maps, errors or the current user
// to enrich error reports.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
