package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

type mockDynamo struct {
	mock.Mock
}

func (m *mockDynamo) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.GetItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.PutItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DeleteItemOutput)
	return out, args.Error(1)
}

func (m *mockDynamo) DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*dynamodb.DescribeTableOutput)
	return out, args.Error(1)
}

func pk(item map[string]types.AttributeValue) string {
	if v, ok := item["PK"].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func TestDynamoStateRoundTrip(t *testing.T) {
	// Arrange
	client := new(mockDynamo)
	r := NewSessionRegistry(client, "lineage", zap.NewNop())
	sid := valueobjects.MustSessionID("abc")
	ctx := context.Background()

	client.On("GetItem", ctx, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
		return pk(in.Key) == "SESSION#abc" && *in.ConsistentRead
	})).Return(&dynamodb.GetItemOutput{Item: map[string]types.AttributeValue{
		"PK":    &types.AttributeValueMemberS{Value: "SESSION#abc"},
		"SK":    &types.AttributeValueMemberS{Value: "STATE"},
		"State": &types.AttributeValueMemberS{Value: "ready"},
	}}, nil).Once()

	client.On("PutItem", ctx, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
		state, ok := in.Item["State"].(*types.AttributeValueMemberS)
		return pk(in.Item) == "SESSION#abc" && ok && state.Value == "initializing" && in.ConditionExpression == nil
	})).Return(&dynamodb.PutItemOutput{}, nil).Once()

	// Act
	state, err := r.State(ctx, sid)
	setErr := r.SetState(ctx, sid, ports.SessionInitializing)

	// Assert
	require.NoError(t, err)
	require.NoError(t, setErr)
	assert.Equal(t, ports.SessionReady, state)
	client.AssertExpectations(t)
}

func TestDynamoStateAbsent(t *testing.T) {
	client := new(mockDynamo)
	r := NewSessionRegistry(client, "lineage", zap.NewNop())
	client.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

	state, err := r.State(context.Background(), valueobjects.MustSessionID("abc"))

	require.NoError(t, err)
	assert.Equal(t, ports.SessionAbsent, state)
}

func TestDynamoAcquireLease(t *testing.T) {
	sid := valueobjects.MustSessionID("abc")

	t.Run("acquired", func(t *testing.T) {
		client := new(mockDynamo)
		r := NewSessionRegistry(client, "lineage", zap.NewNop())
		r.now = func() time.Time { return time.Unix(100, 0) }
		client.On("PutItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.PutItemInput) bool {
			return pk(in.Item) == "LOCK#session-init#abc" && in.ConditionExpression != nil
		})).Return(&dynamodb.PutItemOutput{}, nil)

		ok, err := r.AcquireInitLease(context.Background(), sid, "pod-a", time.Minute)

		require.NoError(t, err)
		assert.True(t, ok)
		client.AssertExpectations(t)
	})

	t.Run("held elsewhere", func(t *testing.T) {
		client := new(mockDynamo)
		r := NewSessionRegistry(client, "lineage", zap.NewNop())
		client.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &types.ConditionalCheckFailedException{Message: stringPtr("held")})

		ok, err := r.AcquireInitLease(context.Background(), sid, "pod-b", time.Minute)

		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("service error", func(t *testing.T) {
		client := new(mockDynamo)
		r := NewSessionRegistry(client, "lineage", zap.NewNop())
		client.On("PutItem", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		_, err := r.AcquireInitLease(context.Background(), sid, "pod-b", time.Minute)

		assert.Error(t, err)
	})

	t.Run("throttling is unavailable", func(t *testing.T) {
		client := new(mockDynamo)
		r := NewSessionRegistry(client, "lineage", zap.NewNop())
		client.On("PutItem", mock.Anything, mock.Anything).
			Return(nil, &smithy.GenericAPIError{Code: "ProvisionedThroughputExceededException", Message: "slow down"})

		_, err := r.AcquireInitLease(context.Background(), sid, "pod-b", time.Minute)

		require.Error(t, err)
		assert.True(t, apperrors.IsUnavailable(err))
	})
}

func TestDynamoReleaseLeaseToleratesLostLease(t *testing.T) {
	client := new(mockDynamo)
	r := NewSessionRegistry(client, "lineage", zap.NewNop())
	client.On("DeleteItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.DeleteItemInput) bool {
		return pk(in.Key) == "LOCK#session-init#abc" && in.ConditionExpression != nil
	})).Return(nil, &types.ConditionalCheckFailedException{})

	err := r.ReleaseInitLease(context.Background(), valueobjects.MustSessionID("abc"), "pod-a")

	assert.NoError(t, err)
	client.AssertExpectations(t)
}

func stringPtr(s string) *string { return &s }
