package emailchange_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	emailchange "github.com/kazu0702/vs-fund-api"
)

func TestJanitorSweepPurges(t *testing.T) {
	store := &MockTokenStore{}
	store.On("PurgeExpired", mock.Anything).Return(int64(3), nil).Once()

	janitor := emailchange.NewJanitor(store, time.Hour).WithLogger(testLogger{})
	janitor.Sweep(context.Background())

	store.AssertExpectations(t)
}

func TestJanitorSweepSurvivesStoreError(t *testing.T) {
	store := &MockTokenStore{}
	store.On("PurgeExpired", mock.Anything).Return(int64(0), errors.New("connection reset")).Once()

	janitor := emailchange.NewJanitor(store, time.Hour).WithLogger(testLogger{})
	janitor.Sweep(context.Background())

	store.AssertExpectations(t)
}

func TestJanitorRunSweepsAtBootAndStopsOnCancel(t *testing.T) {
	store := &MockTokenStore{}
	swept := make(chan struct{}, 1)
	store.On("PurgeExpired", mock.Anything).Run(func(mock.Arguments) {
		select {
		case swept <- struct{}{}:
		default:
		}
	}).Return(int64(0), nil)

	janitor := emailchange.NewJanitor(store, time.Hour).WithLogger(testLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		janitor.Run(ctx)
		close(done)
	}()

	select {
	case <-swept:
	case <-time.After(time.Second):
		t.Fatal("janitor never swept at boot")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop on cancel")
	}
}

func TestJanitorDefaultsInterval(t *testing.T) {
	store := &MockTokenStore{}
	janitor := emailchange.NewJanitor(store, 0)
	require.NotNil(t, janitor)
}
