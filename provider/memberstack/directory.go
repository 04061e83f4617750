package memberstack

import (
	"context"

	emailchange "github.com/kazu0702/vs-fund-api"
)

// Directory adapts the Admin API client to the emailchange.Directory
// capability. It is constructed once at startup and injected into handlers.
type Directory struct {
	client *Client
	logger emailchange.Logger
}

var _ emailchange.Directory = (*Directory)(nil)

type DirectoryOption func(*Directory) *Directory

func WithLogger(logger emailchange.Logger) DirectoryOption {
	return func(d *Directory) *Directory {
		if logger != nil {
			d.logger = logger
		}
		return d
	}
}

func NewDirectory(client *Client, opts ...DirectoryOption) *Directory {
	d := &Directory{
		client: client,
		logger: noopLogger{},
	}
	for _, opt := range opts {
		d = opt(d)
	}
	return d
}

// GetEmail reads the member's current login email. Best-effort: any failure
// is reported as unknown rather than propagated, because the read only feeds
// diagnostic before/after comparison.
func (d *Directory) GetEmail(ctx context.Context, memberID string) (string, bool) {
	member, err := d.client.GetMember(ctx, memberID)
	if err != nil {
		d.logger.Debug("memberstack read failed for %s: %v", memberID, err)
		return "", false
	}
	if member.Auth.Email == "" {
		return "", false
	}
	return member.Auth.Email, true
}

// SetEmail requests the email change. The directory may apply it
// asynchronously; callers must not expect an immediate read-your-write.
func (d *Directory) SetEmail(ctx context.Context, memberID, newEmail string) error {
	_, err := d.client.UpdateMemberEmail(ctx, memberID, newEmail)
	return err
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
