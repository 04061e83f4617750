package emailchange

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type ConfirmEmailChangeMessage struct {
	Token string `json:"token" example:"350399bc-c095-4bdc-a59c-3352d44848e4" doc:"Email change confirmation token"`
}

// ConfirmDiagnostics carries before/after directory reads and raw error text.
// It is only rendered to callers when the debug flag is set.
type ConfirmDiagnostics struct {
	EmailBefore string `json:"email_before,omitempty"`
	EmailAfter  string `json:"email_after,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ConfirmOutcome is the result of one confirmation attempt. Reason is one of
// the Reason* codes; Verified reports whether the post-update read-back
// already showed the new address, which is advisory only.
type ConfirmOutcome struct {
	OK          bool                `json:"ok"`
	Reason      string              `json:"reason,omitempty"`
	Verified    bool                `json:"verified,omitempty"`
	MemberID    string              `json:"member_id,omitempty"`
	Diagnostics *ConfirmDiagnostics `json:"diagnostics,omitempty"`
}

// ConfirmEmailChangeHandler drives a confirmation attempt: validate the token,
// update the external directory, read back for diagnostics, then consume the
// token. The external write always precedes the local delete; if the process
// dies in between, the link stays replayable and re-sending the same target
// email to the directory is a no-op observable as success.
type ConfirmEmailChangeHandler struct {
	store        TokenStore
	directory    Directory
	activity     ActivitySink
	logger       Logger
	timeout      time.Duration
	consumeFirst bool
}

// NewConfirmEmailChangeHandler creates a handler with sane defaults.
func NewConfirmEmailChangeHandler(store TokenStore, directory Directory) *ConfirmEmailChangeHandler {
	return &ConfirmEmailChangeHandler{
		store:     store,
		directory: directory,
		activity:  noopActivitySink{},
		logger:    defLogger{},
		timeout:   time.Second * 10,
	}
}

// WithActivitySink sets the sink used to emit confirmation events.
func (h *ConfirmEmailChangeHandler) WithActivitySink(sink ActivitySink) *ConfirmEmailChangeHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *ConfirmEmailChangeHandler) WithLogger(logger Logger) *ConfirmEmailChangeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

// WithTimeout bounds one attempt, directory round trips included.
func (h *ConfirmEmailChangeHandler) WithTimeout(d time.Duration) *ConfirmEmailChangeHandler {
	if d > 0 {
		h.timeout = d
	}
	return h
}

// WithConsumeFirst switches to the legacy one-shot mode that spends the token
// before calling the directory. A directory failure then costs the user a
// re-request instead of a link replay. Retained for compatibility only.
func (h *ConfirmEmailChangeHandler) WithConsumeFirst() *ConfirmEmailChangeHandler {
	h.consumeFirst = true
	return h
}

func (h *ConfirmEmailChangeHandler) Execute(ctx context.Context, msg ConfirmEmailChangeMessage) ConfirmOutcome {
	select {
	case <-ctx.Done():
		err := goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email change confirmation")
		return h.rejected(ctx, "", ReasonServerError, err)
	default:
		return h.execute(ctx, msg)
	}
}

func (h *ConfirmEmailChangeHandler) execute(ctx context.Context, msg ConfirmEmailChangeMessage) ConfirmOutcome {
	token := strings.TrimSpace(msg.Token)
	if token == "" {
		return ConfirmOutcome{OK: false, Reason: ReasonMissingToken}
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if h.consumeFirst {
		return h.executeConsumeFirst(ctx, token)
	}

	// Validate without mutating: an invalid or expired link must not spend
	// the token, and triggers no directory call.
	req, err := h.store.Peek(ctx, token)
	if err != nil {
		if IsTokenNotFound(err) {
			return ConfirmOutcome{OK: false, Reason: ReasonInvalidOrExpired}
		}
		return h.rejected(ctx, "", ReasonServerError, err)
	}

	before, _ := h.directory.GetEmail(ctx, req.MemberID)

	if err := h.directory.SetEmail(ctx, req.MemberID, req.NewEmail); err != nil {
		// Token retained: the user retries the same link once the directory
		// is healthy again.
		return h.rejected(ctx, req.MemberID, ReasonDirectoryError,
			goerrors.Wrap(err, goerrors.CategoryOperation, "directory rejected email update").
				WithTextCode(TextCodeDirectoryError))
	}

	verified, after := h.verifyPropagation(ctx, req)
	if !verified {
		h.logger.Debug("directory read-back for member %s does not show %s yet; propagation lag, not a failure", req.MemberID, req.NewEmail)
	}

	// Commit. The directory accepted the update, so the token is spent now.
	if _, err := h.store.Consume(ctx, token); err != nil {
		if IsTokenNotFound(err) {
			// Lost the consume race to a concurrent confirm or the janitor
			// after the directory accepted the update. The update stands.
			h.logger.Info("email change token for member %s already consumed after directory update", req.MemberID)
		} else {
			// Token stays pending; replaying the link re-sends the same
			// value, which the directory treats as a no-op success.
			h.logger.Error("directory updated for member %s but token consume failed: %v", req.MemberID, err)
		}
	}

	h.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventChangeConfirmed,
		Actor:     ActorRef{ID: req.MemberID, Type: "member"},
		MemberID:  req.MemberID,
		Metadata: map[string]any{
			"new_email": req.NewEmail,
			"verified":  verified,
		},
		OccurredAt: time.Now(),
	})

	return ConfirmOutcome{
		OK:       true,
		Verified: verified,
		MemberID: req.MemberID,
		Diagnostics: &ConfirmDiagnostics{
			EmailBefore: before,
			EmailAfter:  after,
		},
	}
}

// executeConsumeFirst spends the token up front and then updates the
// directory, without a re-check. Weaker than the canonical flow.
func (h *ConfirmEmailChangeHandler) executeConsumeFirst(ctx context.Context, token string) ConfirmOutcome {
	req, err := h.store.Consume(ctx, token)
	if err != nil {
		if IsTokenNotFound(err) {
			return ConfirmOutcome{OK: false, Reason: ReasonInvalidOrExpired}
		}
		return h.rejected(ctx, "", ReasonServerError, err)
	}

	if err := h.directory.SetEmail(ctx, req.MemberID, req.NewEmail); err != nil {
		return h.rejected(ctx, req.MemberID, ReasonDirectoryError,
			goerrors.Wrap(err, goerrors.CategoryOperation, "directory rejected email update").
				WithTextCode(TextCodeDirectoryError))
	}

	verified, after := h.verifyPropagation(ctx, req)

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventChangeConfirmed,
		Actor:      ActorRef{ID: req.MemberID, Type: "member"},
		MemberID:   req.MemberID,
		Metadata:   map[string]any{"new_email": req.NewEmail, "verified": verified},
		OccurredAt: time.Now(),
	})

	return ConfirmOutcome{
		OK:          true,
		Verified:    verified,
		MemberID:    req.MemberID,
		Diagnostics: &ConfirmDiagnostics{EmailAfter: after},
	}
}

// verifyPropagation reads the directory back once. Propagation lag is
// expected, so a stale or unknown read never fails the attempt.
func (h *ConfirmEmailChangeHandler) verifyPropagation(ctx context.Context, req *EmailChangeRequest) (bool, string) {
	after, ok := h.directory.GetEmail(ctx, req.MemberID)
	if !ok {
		return false, ""
	}
	return equalEmail(after, req.NewEmail), after
}

func (h *ConfirmEmailChangeHandler) rejected(ctx context.Context, memberID, reason string, err error) ConfirmOutcome {
	h.logger.Error("email change confirmation rejected (%s): %v", reason, err)

	h.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventChangeFailed,
		Actor:      ActorRef{ID: memberID, Type: "member"},
		MemberID:   memberID,
		Metadata:   map[string]any{"reason": reason},
		OccurredAt: time.Now(),
	})

	out := ConfirmOutcome{OK: false, Reason: reason, MemberID: memberID}
	if err != nil {
		out.Diagnostics = &ConfirmDiagnostics{Error: err.Error()}
	}
	return out
}

func (h *ConfirmEmailChangeHandler) recordActivity(ctx context.Context, event ActivityEvent) {
	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.getLogger().Error("activity sink error during email change: %v", err)
	}
}

func (h *ConfirmEmailChangeHandler) getLogger() Logger {
	if h.logger != nil {
		return h.logger
	}
	return defLogger{}
}

func equalEmail(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
