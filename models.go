package emailchange

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	// StatusPending is the only persisted status; confirmed requests are
	// deleted rather than flagged, so presence in the table means pending.
	StatusPending = "pending"
)

// EmailChangeRequest is one in-flight email change, keyed by an opaque
// single-use token mailed to the new address.
type EmailChangeRequest struct {
	bun.BaseModel `bun:"table:email_change,alias:ecr"`
	ID            int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	MemberID      string     `bun:"member_id,notnull" json:"member_id,omitempty"`
	OldEmail      string     `bun:"old_email" json:"old_email,omitempty"`
	NewEmail      string     `bun:"new_email,notnull" json:"new_email,omitempty"`
	Token         string     `bun:"token,notnull,unique" json:"token,omitempty"`
	Status        string     `bun:"status,notnull,default:'pending'" json:"status,omitempty"`
	ExpiresAt     time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Expired reports whether the request is past its deadline at the given time.
func (r *EmailChangeRequest) Expired(now time.Time) bool {
	if r == nil {
		return true
	}
	return !r.ExpiresAt.After(now)
}

// AuditLog is an append-only audit record fed by the activity sink.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:adt"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	ActorType     string         `bun:"actor_type,notnull" json:"actor_type,omitempty"`
	ActorID       string         `bun:"actor_id" json:"actor_id,omitempty"`
	Action        string         `bun:"action,notnull" json:"action,omitempty"`
	Meta          map[string]any `bun:"meta" json:"meta,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}
