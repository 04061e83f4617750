package emailchange

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// DefaultRequestTTL is how long a confirmation link stays valid.
const DefaultRequestTTL = time.Hour

type RequestEmailChangeMessage struct {
	MemberID   string `json:"memberId" example:"mem_ckz8a1" doc:"Member id in the external identity directory"`
	NewEmail   string `json:"newEmail" example:"pepe.rone@example.com" doc:"Target email address"`
	OnResponse func(resp *RequestEmailChangeResponse)
}

func (m RequestEmailChangeMessage) Type() string { return "member.email_change_request" }

type RequestEmailChangeResponse struct {
	Request *EmailChangeRequest
	Success bool
}

// RequestEmailChangeHandler creates a pending token and hands it to the
// notifier. Notification failure never rolls the token back; the member can
// simply re-request, each request yielding an independent token.
type RequestEmailChangeHandler struct {
	store     TokenStore
	directory Directory
	notifier  Notifier
	activity  ActivitySink
	logger    Logger
	ttl       time.Duration
}

// NewRequestEmailChangeHandler creates a handler with sane defaults.
func NewRequestEmailChangeHandler(store TokenStore, directory Directory) *RequestEmailChangeHandler {
	return &RequestEmailChangeHandler{
		store:     store,
		directory: directory,
		notifier:  noopNotifier{},
		activity:  noopActivitySink{},
		logger:    defLogger{},
		ttl:       DefaultRequestTTL,
	}
}

// WithNotifier sets the confirmation link sender.
func (h *RequestEmailChangeHandler) WithNotifier(n Notifier) *RequestEmailChangeHandler {
	h.notifier = normalizeNotifier(n)
	return h
}

// WithTTL overrides the confirmation link lifetime.
func (h *RequestEmailChangeHandler) WithTTL(ttl time.Duration) *RequestEmailChangeHandler {
	if ttl > 0 {
		h.ttl = ttl
	}
	return h
}

// WithActivitySink sets the sink used to emit request events.
func (h *RequestEmailChangeHandler) WithActivitySink(sink ActivitySink) *RequestEmailChangeHandler {
	h.activity = normalizeActivitySink(sink)
	return h
}

// WithLogger overrides the logger used by the handler.
func (h *RequestEmailChangeHandler) WithLogger(logger Logger) *RequestEmailChangeHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *RequestEmailChangeHandler) Execute(ctx context.Context, event RequestEmailChangeMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during email change request",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RequestEmailChangeHandler) execute(ctx context.Context, event RequestEmailChangeMessage) error {
	if event.MemberID == "" || event.NewEmail == "" {
		return goerrors.New("member id and new email are required", goerrors.CategoryBadInput).
			WithCode(goerrors.CodeBadRequest)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	// Best-effort audit capture of the address being replaced. The directory
	// read never gates token creation.
	oldEmail, _ := h.directory.GetEmail(ctx, event.MemberID)

	req, err := h.store.Create(ctx, event.MemberID, oldEmail, event.NewEmail, h.ttl)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create email change request")
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
		defer cancel()
		if err := h.notifier.SendConfirmation(ctx, req); err != nil {
			h.logger.Error("email change confirmation send failed for member %s: %v", req.MemberID, err)
		}
	}()

	h.recordActivity(ctx, req)

	if event.OnResponse != nil {
		event.OnResponse(&RequestEmailChangeResponse{Request: req, Success: true})
	}

	return nil
}

func (h *RequestEmailChangeHandler) recordActivity(ctx context.Context, req *EmailChangeRequest) {
	event := ActivityEvent{
		EventType: ActivityEventChangeRequested,
		Actor: ActorRef{
			ID:   req.MemberID,
			Type: "member",
		},
		MemberID: req.MemberID,
		Metadata: map[string]any{
			"new_email":  req.NewEmail,
			"expires_at": req.ExpiresAt,
		},
		OccurredAt: time.Now(),
	}

	if err := normalizeActivitySink(h.activity).Record(ctx, event); err != nil {
		h.logger.Error("activity sink error during email change request: %v", err)
	}
}
