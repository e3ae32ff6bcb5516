// Package dynamodb stores session registry state in a single-table DynamoDB
// layout (PK/SK).
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/CivicGraph/demo-server/application/ports"
	"github.com/CivicGraph/demo-server/domain/core/valueobjects"
	apperrors "github.com/CivicGraph/demo-server/pkg/errors"
)

// API is the subset of the DynamoDB client the registry uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type stateRecord struct {
	PK        string `dynamodbav:"PK"`        // SESSION#<session>
	SK        string `dynamodbav:"SK"`        // STATE
	State     string `dynamodbav:"State"`
	UpdatedAt string `dynamodbav:"UpdatedAt"` // RFC3339
}

type leaseRecord struct {
	PK        string `dynamodbav:"PK"` // LOCK#session-init#<session>
	SK        string `dynamodbav:"SK"` // LOCK
	Owner     string `dynamodbav:"Owner"`
	ExpiresAt int64  `dynamodbav:"ExpiresAt"` // unix nanoseconds
	TTL       int64  `dynamodbav:"TTL"`       // unix seconds, for DynamoDB TTL
}

// SessionRegistry implements ports.SessionRegistry on DynamoDB. Leases use
// conditional writes so only one process initializes a session at a time.
type SessionRegistry struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewSessionRegistry creates a registry on tableName.
func NewSessionRegistry(client API, tableName string, logger *zap.Logger) *SessionRegistry {
	return &SessionRegistry{client: client, tableName: tableName, logger: logger, now: time.Now}
}

func stateKey(s valueobjects.SessionID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "SESSION#" + s.String()},
		"SK": &types.AttributeValueMemberS{Value: "STATE"},
	}
}

func leaseKey(s valueobjects.SessionID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "LOCK#session-init#" + s.String()},
		"SK": &types.AttributeValueMemberS{Value: "LOCK"},
	}
}

func (r *SessionRegistry) Ping(ctx context.Context) error {
	_, err := r.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(r.tableName)})
	if err != nil {
		return apiError("describe table "+r.tableName, err)
	}
	return nil
}

func (r *SessionRegistry) State(ctx context.Context, session valueobjects.SessionID) (ports.SessionState, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            stateKey(session),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return ports.SessionAbsent, apiError("get session state", err)
	}
	if len(out.Item) == 0 {
		return ports.SessionAbsent, nil
	}
	var rec stateRecord
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return ports.SessionAbsent, fmt.Errorf("unmarshal session state: %w", err)
	}
	return ports.SessionState(rec.State), nil
}

func (r *SessionRegistry) SetState(ctx context.Context, session valueobjects.SessionID, state ports.SessionState) error {
	if state == ports.SessionAbsent {
		_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(r.tableName),
			Key:       stateKey(session),
		})
		if err != nil {
			return apiError("clear session state", err)
		}
		return nil
	}

	item, err := attributevalue.MarshalMap(stateRecord{
		PK:        "SESSION#" + session.String(),
		SK:        "STATE",
		State:     string(state),
		UpdatedAt: r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal session state: %w", err)
	}
	if _, err := r.client.PutItem(ctx, &dynamodb.PutItemInput{TableName: aws.String(r.tableName), Item: item}); err != nil {
		return apiError("put session state", err)
	}
	return nil
}

func (r *SessionRegistry) AcquireInitLease(ctx context.Context, session valueobjects.SessionID, owner string, ttl time.Duration) (bool, error) {
	now := r.now()
	expiresAt := now.Add(ttl)
	item, err := attributevalue.MarshalMap(leaseRecord{
		PK:        "LOCK#session-init#" + session.String(),
		SK:        "LOCK",
		Owner:     owner,
		ExpiresAt: expiresAt.UnixNano(),
		TTL:       expiresAt.Unix(),
	})
	if err != nil {
		return false, fmt.Errorf("marshal init lease: %w", err)
	}

	cond := expression.Or(
		expression.AttributeNotExists(expression.Name("PK")),
		expression.Name("ExpiresAt").LessThan(expression.Value(now.UnixNano())),
		expression.Name("Owner").Equal(expression.Value(owner)),
	)
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return false, fmt.Errorf("build lease condition: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      item,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			r.logger.Debug("Init lease held by another owner",
				zap.String("session", session.String()),
				zap.String("owner", owner),
			)
			return false, nil
		}
		return false, apiError("acquire init lease", err)
	}
	return true, nil
}

func (r *SessionRegistry) ReleaseInitLease(ctx context.Context, session valueobjects.SessionID, owner string) error {
	expr, err := expression.NewBuilder().
		WithCondition(expression.Name("Owner").Equal(expression.Value(owner))).
		Build()
	if err != nil {
		return fmt.Errorf("build release condition: %w", err)
	}

	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       leaseKey(session),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			r.logger.Warn("Init lease already released or taken over",
				zap.String("session", session.String()),
				zap.String("owner", owner),
			)
			return nil
		}
		return apiError("release init lease", err)
	}
	return nil
}

// apiError classifies a DynamoDB failure. Throttling surfaces as Unavailable
// so callers can retry; everything else is a database error.
func apiError(op string, err error) error {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch ae.ErrorCode() {
	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return apperrors.NewUnavailableError("dynamodb").
			WithCause(err).
			WithDetails(map[string]interface{}{"operation": op, "aws_code": ae.ErrorCode()})
	default:
		return apperrors.NewDatabaseError(op, err).
			WithDetails(map[string]interface{}{"aws_code": ae.ErrorCode(), "aws_message": ae.ErrorMessage()})
	}
}
