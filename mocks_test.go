package emailchange_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	emailchange "github.com/kazu0702/vs-fund-api"
	"github.com/kazu0702/vs-fund-api/billing"
)

// MockTokenStore implements emailchange.TokenStore
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Create(ctx context.Context, memberID, oldEmail, newEmail string, ttl time.Duration) (*emailchange.EmailChangeRequest, error) {
	args := m.Called(ctx, memberID, oldEmail, newEmail, ttl)
	if rec := args.Get(0); rec != nil {
		return rec.(*emailchange.EmailChangeRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenStore) Peek(ctx context.Context, token string) (*emailchange.EmailChangeRequest, error) {
	args := m.Called(ctx, token)
	if rec := args.Get(0); rec != nil {
		return rec.(*emailchange.EmailChangeRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenStore) Consume(ctx context.Context, token string) (*emailchange.EmailChangeRequest, error) {
	args := m.Called(ctx, token)
	if rec := args.Get(0); rec != nil {
		return rec.(*emailchange.EmailChangeRequest), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenStore) PurgeExpired(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockDirectory implements emailchange.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetEmail(ctx context.Context, memberID string) (string, bool) {
	args := m.Called(ctx, memberID)
	return args.String(0), args.Bool(1)
}

func (m *MockDirectory) SetEmail(ctx context.Context, memberID, newEmail string) error {
	args := m.Called(ctx, memberID, newEmail)
	return args.Error(0)
}

// MockNotifier implements emailchange.Notifier
type MockNotifier struct {
	mock.Mock
	Sent chan *emailchange.EmailChangeRequest
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Sent: make(chan *emailchange.EmailChangeRequest, 1)}
}

func (m *MockNotifier) SendConfirmation(ctx context.Context, req *emailchange.EmailChangeRequest) error {
	args := m.Called(ctx, req)
	select {
	case m.Sent <- req:
	default:
	}
	return args.Error(0)
}

// MockActivitySink implements emailchange.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event emailchange.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockPlanSwapper implements billing.PlanSwapper
type MockPlanSwapper struct {
	mock.Mock
}

func (m *MockPlanSwapper) SwapPlan(ctx context.Context, swap billing.PlanSwap) (*billing.Subscription, error) {
	args := m.Called(ctx, swap)
	if sub := args.Get(0); sub != nil {
		return sub.(*billing.Subscription), args.Error(1)
	}
	return nil, args.Error(1)
}

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Error(string, ...any) {}
