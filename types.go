package emailchange

import (
	"context"
	"fmt"
)

// Logger is the minimal logging surface the package depends on. The server
// wires an slog-backed implementation; handlers fall back to defLogger.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Directory is the capability surface against the external identity
// directory. It is constructed at startup and injected into handlers; there
// is no package-level client handle.
//
// The directory is eventually consistent: an accepted SetEmail may not be
// observable through GetEmail for a short, unbounded window.
type Directory interface {
	// GetEmail is a best-effort read used only for diagnostic before/after
	// comparison. It reports ok=false instead of propagating errors and must
	// never drive a correctness decision.
	GetEmail(ctx context.Context, memberID string) (email string, ok bool)

	// SetEmail asks the directory to change the member's login email. It uses
	// one canonical request shape; a rejection is an integration error to fix
	// at deploy time, not a runtime branch to guess around. Setting the email
	// to a value it already holds is a no-op observable as success.
	SetEmail(ctx context.Context, memberID, newEmail string) error
}

// Notifier delivers the confirmation link for a pending request.
type Notifier interface {
	SendConfirmation(ctx context.Context, req *EmailChangeRequest) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, req *EmailChangeRequest) error

// SendConfirmation implements Notifier.
func (f NotifierFunc) SendConfirmation(ctx context.Context, req *EmailChangeRequest) error {
	if f == nil {
		return nil
	}
	return f(ctx, req)
}

type noopNotifier struct{}

func (noopNotifier) SendConfirmation(context.Context, *EmailChangeRequest) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] EMAILCHANGE "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] EMAILCHANGE "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] EMAILCHANGE "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
