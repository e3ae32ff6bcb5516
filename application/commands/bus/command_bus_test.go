package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

type pingCommand struct{ invalid bool }

func (c pingCommand) Validate() error {
	if c.invalid {
		return errors.New("nid is required")
	}
	return nil
}

type recorder struct {
	messages []string
	errs     []error
}

func (r *recorder) RecordBusMessage(bus, message string, err error, d time.Duration) {
	r.messages = append(r.messages, bus+":"+message)
	r.errs = append(r.errs, err)
}

func TestSendDispatchesThroughMiddlewares(t *testing.T) {
	// Arrange
	var trail []string
	trace := func(name string) Middleware {
		return func(next CommandHandler) CommandHandler {
			return CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
				trail = append(trail, name)
				return next.Handle(ctx, cmd)
			})
		}
	}
	rec := &recorder{}
	b := NewCommandBus(trace("outer"), trace("inner"), MetricsMiddleware(rec), LoggingMiddleware(zap.NewNop()))
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		trail = append(trail, "handler")
		return nil
	})))

	// Act
	err := b.Send(context.Background(), pingCommand{})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "handler"}, trail)
	assert.Equal(t, []string{"command:pingCommand"}, rec.messages)
}

func TestSendRejectsInvalidCommand(t *testing.T) {
	// Arrange
	b := NewCommandBus()
	called := false
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		called = true
		return nil
	})))

	// Act
	err := b.Send(context.Background(), pingCommand{invalid: true})

	// Assert
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.False(t, called)
}

func TestSendUnknownCommand(t *testing.T) {
	err := NewCommandBus().Send(context.Background(), pingCommand{})

	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestRegisterTwice(t *testing.T) {
	b := NewCommandBus()
	noop := CommandHandlerFunc(func(ctx context.Context, cmd Command) error { return nil })

	require.NoError(t, b.Register(pingCommand{}, noop))
	assert.Error(t, b.Register(pingCommand{}, noop))
}

func TestHandlerErrorsPassThrough(t *testing.T) {
	// Arrange
	rec := &recorder{}
	b := NewCommandBus(MetricsMiddleware(rec))
	conflict := apperrors.NewConflictError("busy").WithCode(apperrors.CodeInitInProgress)
	require.NoError(t, b.Register(pingCommand{}, CommandHandlerFunc(func(ctx context.Context, cmd Command) error {
		return conflict
	})))

	// Act
	err := b.Send(context.Background(), pingCommand{})

	// Assert
	assert.Same(t, conflict, err)
	require.Len(t, rec.errs, 1)
	assert.Equal(t, conflict, rec.errs[0])
}
