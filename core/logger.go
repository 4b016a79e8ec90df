package core

// Logger is the application logger.
// expected args: error, map[string]interface{}, LogUser
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// LogUser identifies the authenticated user a log entry relates to.
type LogUser struct {
	ID    string
	Email string
	Role  string
}
