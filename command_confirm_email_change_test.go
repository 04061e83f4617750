package emailchange_test

import (
	"context"
	"errors"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	emailchange "github.com/kazu0702/vs-fund-api"
)

func pendingRequest(token string) *emailchange.EmailChangeRequest {
	now := time.Now()
	return &emailchange.EmailChangeRequest{
		ID:        1,
		MemberID:  "mem_123",
		OldEmail:  "old@example.com",
		NewEmail:  "a@b.com",
		Token:     token,
		Status:    emailchange.StatusPending,
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: &now,
	}
}

func notFoundErr() error {
	return goerrors.New("email change token not found or expired", goerrors.CategoryNotFound).
		WithCode(goerrors.CodeNotFound)
}

func TestConfirmMissingToken(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "  "})

	require.False(t, out.OK)
	require.Equal(t, emailchange.ReasonMissingToken, out.Reason)
	store.AssertNotCalled(t, "Peek", mock.Anything, mock.Anything)
	directory.AssertNotCalled(t, "SetEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmUnknownTokenMakesNoDirectoryCall(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	store.On("Peek", mock.Anything, "bogus").Return(nil, notFoundErr()).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "bogus"})

	require.False(t, out.OK)
	require.Equal(t, emailchange.ReasonInvalidOrExpired, out.Reason)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
	directory.AssertNotCalled(t, "GetEmail", mock.Anything, mock.Anything)
	directory.AssertNotCalled(t, "SetEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmSuccessConsumesToken(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	sink := &MockActivitySink{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).
		WithActivitySink(sink).
		WithLogger(testLogger{})

	req := pendingRequest("tok-1")

	store.On("Peek", mock.Anything, "tok-1").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("old@example.com", true).Once()
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("a@b.com", true).Once()
	store.On("Consume", mock.Anything, "tok-1").Return(req, nil).Once()

	sink.On("Record", mock.Anything, mock.MatchedBy(func(evt emailchange.ActivityEvent) bool {
		return evt.EventType == emailchange.ActivityEventChangeConfirmed &&
			evt.MemberID == "mem_123"
	})).Return(nil).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-1"})

	require.True(t, out.OK)
	require.Empty(t, out.Reason)
	require.True(t, out.Verified)
	require.Equal(t, "mem_123", out.MemberID)
	store.AssertExpectations(t)
	directory.AssertExpectations(t)
	sink.AssertExpectations(t)
}

func TestConfirmDirectoryErrorRetainsToken(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-2")

	store.On("Peek", mock.Anything, "tok-2").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("old@example.com", true).Once()
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").
		Return(errors.New("503 service unavailable")).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-2"})

	require.False(t, out.OK)
	require.Equal(t, emailchange.ReasonDirectoryError, out.Reason)
	// The token must survive a failed directory call so the same link can be
	// replayed once the directory is healthy.
	store.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestConfirmRetryAfterDirectoryRecovers(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-3")

	store.On("Peek", mock.Anything, "tok-3").Return(req, nil).Twice()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("old@example.com", true)
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").
		Return(errors.New("timeout")).Once()
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").
		Return(nil).Once()
	store.On("Consume", mock.Anything, "tok-3").Return(req, nil).Once()

	first := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-3"})
	require.False(t, first.OK)
	require.Equal(t, emailchange.ReasonDirectoryError, first.Reason)

	second := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-3"})
	require.True(t, second.OK)
	store.AssertExpectations(t)
	directory.AssertExpectations(t)
}

func TestConfirmUnknownReadBackStillCommits(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-4")

	store.On("Peek", mock.Anything, "tok-4").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("", false)
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	store.On("Consume", mock.Anything, "tok-4").Return(req, nil).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-4"})

	// Read-back is advisory: propagation lag must not fail the attempt.
	require.True(t, out.OK)
	require.False(t, out.Verified)
	store.AssertExpectations(t)
}

func TestConfirmStaleReadBackStillCommits(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-5")

	store.On("Peek", mock.Anything, "tok-5").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("old@example.com", true)
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	store.On("Consume", mock.Anything, "tok-5").Return(req, nil).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-5"})

	require.True(t, out.OK)
	require.False(t, out.Verified)
}

func TestConfirmLosingConsumeRaceAfterUpdateIsSuccess(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-6")

	store.On("Peek", mock.Anything, "tok-6").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("a@b.com", true)
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	store.On("Consume", mock.Anything, "tok-6").Return(nil, notFoundErr()).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-6"})

	// The directory accepted the update before the consume race was lost, so
	// the change stands and this attempt reports success.
	require.True(t, out.OK)
	store.AssertExpectations(t)
}

func TestConfirmMatchesEmailCaseInsensitively(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	req := pendingRequest("tok-7")

	store.On("Peek", mock.Anything, "tok-7").Return(req, nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("old@example.com", true).Once()
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("  A@B.com ", true).Once()
	store.On("Consume", mock.Anything, "tok-7").Return(req, nil).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-7"})

	require.True(t, out.OK)
	require.True(t, out.Verified)
}

func TestConfirmConsumeFirstMode(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).
		WithConsumeFirst().
		WithLogger(testLogger{})

	req := pendingRequest("tok-8")

	store.On("Consume", mock.Anything, "tok-8").Return(req, nil).Once()
	directory.On("SetEmail", mock.Anything, "mem_123", "a@b.com").Return(nil).Once()
	directory.On("GetEmail", mock.Anything, "mem_123").Return("a@b.com", true).Once()

	out := handler.Execute(context.Background(), emailchange.ConfirmEmailChangeMessage{Token: "tok-8"})

	require.True(t, out.OK)
	store.AssertExpectations(t)
	store.AssertNotCalled(t, "Peek", mock.Anything, mock.Anything)
}

func TestConfirmCancelledContext(t *testing.T) {
	store := &MockTokenStore{}
	directory := &MockDirectory{}
	handler := emailchange.NewConfirmEmailChangeHandler(store, directory).WithLogger(testLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := handler.Execute(ctx, emailchange.ConfirmEmailChangeMessage{Token: "tok-9"})

	require.False(t, out.OK)
	require.Equal(t, emailchange.ReasonServerError, out.Reason)
	store.AssertNotCalled(t, "Peek", mock.Anything, mock.Anything)
}
