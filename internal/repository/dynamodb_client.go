package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"eco-assistant/internal/domain"
)

const skPrefixActivity = "ACT#"

// dynamodbAPI is the minimal DynamoDB interface required by Client.
// Defined here for testability.
type dynamodbAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Client stores tracked activities in a single DynamoDB table keyed by user.
type Client struct {
	api       dynamodbAPI
	tableName string
	newID     func() string
}

// New creates a new repository Client.
func New(api dynamodbAPI, tableName string) (*Client, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &Client{api: api, tableName: tableName, newID: uuid.NewString}, nil
}

// userPK returns the partition key holding a user's activities.
func userPK(userID string) string {
	return "USER#" + userID
}

// activitySK orders activities chronologically; the id keeps keys unique
// within one timestamp.
func activitySK(ts time.Time, id string) string {
	return skPrefixActivity + ts.UTC().Format(time.RFC3339Nano) + "#" + id
}

// ListActivities returns every activity for the user, oldest first.
func (c *Client) ListActivities(ctx context.Context, userID string) ([]domain.TrackedActivity, error) {
	in := &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: userPK(userID)},
			":prefix": &types.AttributeValueMemberS{Value: skPrefixActivity},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var acts []domain.TrackedActivity
	for {
		out, err := c.api.Query(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("repository: ListActivities query: %w", err)
		}
		for _, item := range out.Items {
			a, err := itemToActivity(item)
			if err != nil {
				return nil, fmt.Errorf("repository: ListActivities unmarshal: %w", err)
			}
			a.UserID = userID
			acts = append(acts, a)
		}
		if len(out.LastEvaluatedKey) == 0 {
			return acts, nil
		}
		in.ExclusiveStartKey = out.LastEvaluatedKey
	}
}

// AddActivity persists a new activity and returns its id.
func (c *Client) AddActivity(ctx context.Context, a domain.TrackedActivity) (string, error) {
	if strings.TrimSpace(a.UserID) == "" {
		return "", errors.New("repository: AddActivity: user id is required")
	}
	if a.ID == "" {
		a.ID = c.newID()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}

	_, err := c.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(c.tableName),
		Item:                activityItem(a),
		ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
	})
	if err != nil {
		return "", fmt.Errorf("repository: AddActivity: %w", err)
	}
	return a.ID, nil
}

func activityItem(a domain.TrackedActivity) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK":           &types.AttributeValueMemberS{Value: userPK(a.UserID)},
		"SK":           &types.AttributeValueMemberS{Value: activitySK(a.Timestamp, a.ID)},
		"activityId":   &types.AttributeValueMemberS{Value: a.ID},
		"category":     &types.AttributeValueMemberS{Value: string(a.Category)},
		"activity":     &types.AttributeValueMemberS{Value: a.ActivityLabel},
		"amount":       &types.AttributeValueMemberN{Value: formatFloat(a.Amount)},
		"co2Emissions": &types.AttributeValueMemberN{Value: formatFloat(a.CO2Emission)},
		"createdAt":    &types.AttributeValueMemberS{Value: a.Timestamp.UTC().Format(time.RFC3339Nano)},
	}
}

// itemToActivity converts a DynamoDB attribute map to a TrackedActivity.
func itemToActivity(item map[string]types.AttributeValue) (domain.TrackedActivity, error) {
	id, err := strAttr(item, "activityId")
	if err != nil {
		return domain.TrackedActivity{}, err
	}
	category, err := strAttr(item, "category")
	if err != nil {
		return domain.TrackedActivity{}, err
	}
	created, err := strAttr(item, "createdAt")
	if err != nil {
		return domain.TrackedActivity{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return domain.TrackedActivity{}, fmt.Errorf("repository: parse attribute %q: %w", "createdAt", err)
	}
	amount, err := floatAttr(item, "amount")
	if err != nil {
		return domain.TrackedActivity{}, err
	}
	emission, err := floatAttr(item, "co2Emissions")
	if err != nil {
		return domain.TrackedActivity{}, err
	}
	label, _ := strAttr(item, "activity") // allow empty

	return domain.TrackedActivity{
		ID:            id,
		Category:      domain.Category(category),
		ActivityLabel: label,
		Amount:        amount,
		CO2Emission:   emission,
		Timestamp:     ts,
	}, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func floatAttr(item map[string]types.AttributeValue, key string) (float64, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.ParseFloat(n.Value, 64)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
