// Package logging builds the slog loggers used by pcc.
//
// Logs go to stderr so command output on stdout stays machine-readable. The
// console handler renders compact key=value lines; the json handler emits
// one object per line for log shippers. Context helpers attach the request
// ID and organization to every line emitted while a command runs.
package logging
