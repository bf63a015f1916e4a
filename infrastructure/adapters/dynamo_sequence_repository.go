package adapters

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"video-sequence-api/application/ports/outbound"
	"video-sequence-api/config"
	"video-sequence-api/domain"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
)

// dynamoSequenceItem stores the sequence as one JSON document plus the
// attributes DynamoDB needs for keying, listing, and the version condition.
type dynamoSequenceItem struct {
	SequenceID string `dynamodbav:"sequence_id"`
	UserID     string `dynamodbav:"user_id"`
	Version    int64  `dynamodbav:"version"`
	UpdatedAt  int64  `dynamodbav:"updated_at"`
	Document   string `dynamodbav:"document"`
}

type dynamoSequenceRepository struct {
	logger       outbound.LoggerPort
	dynamoSvc    *dynamodb.DynamoDB
	dynamoConfig *config.DynamoConfig
}

func NewDynamoSequenceRepository(logger outbound.LoggerPort, dynamoSvc *dynamodb.DynamoDB, dynamoConfig *config.DynamoConfig) outbound.SequenceRepositoryPort {
	return &dynamoSequenceRepository{
		logger:       logger,
		dynamoSvc:    dynamoSvc,
		dynamoConfig: dynamoConfig,
	}
}

func (r *dynamoSequenceRepository) Load(ctx context.Context, sequenceID string) (*domain.Sequence, error) {
	out, err := r.dynamoSvc.GetItemWithContext(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.dynamoConfig.TableName),
		Key: map[string]*dynamodb.AttributeValue{
			"sequence_id": {S: aws.String(sequenceID)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to load sequence", map[string]interface{}{
			"sequence_id": sequenceID,
		})
		return nil, err
	}
	if out.Item == nil {
		return nil, &domain.SequenceError{
			Code:    domain.SequenceNotFound,
			Message: "sequence " + sequenceID + " not found",
		}
	}

	return r.unmarshalItem(out.Item)
}

// Save persists the sequence with an optimistic version check: the write
// succeeds only when the stored version still matches the one the caller
// loaded. The in-memory version is bumped on success.
func (r *dynamoSequenceRepository) Save(ctx context.Context, sequence *domain.Sequence) error {
	expected := sequence.Version
	sequence.Version = expected + 1
	sequence.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(sequence)
	if err != nil {
		sequence.Version = expected
		return err
	}

	av, err := dynamodbattribute.MarshalMap(dynamoSequenceItem{
		SequenceID: sequence.ID,
		UserID:     sequence.UserID,
		Version:    sequence.Version,
		UpdatedAt:  sequence.UpdatedAt.Unix(),
		Document:   string(document),
	})
	if err != nil {
		sequence.Version = expected
		return err
	}

	_, err = r.dynamoSvc.PutItemWithContext(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.dynamoConfig.TableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(sequence_id) OR version = :expected"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":expected": {N: aws.String(formatInt(expected))},
		},
	})
	if err != nil {
		sequence.Version = expected
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == dynamodb.ErrCodeConditionalCheckFailedException {
			return &domain.SequenceError{
				Code:    domain.SequenceConflict,
				Message: "sequence " + sequence.ID + " was modified concurrently",
				Cause:   err,
			}
		}
		r.logger.ErrorWithFields(err, "Failed to save sequence", map[string]interface{}{
			"sequence_id": sequence.ID,
		})
		return err
	}

	return nil
}

func (r *dynamoSequenceRepository) List(ctx context.Context, userID string, limit int) ([]domain.Sequence, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.dynamoConfig.TableName),
		IndexName:              aws.String(r.dynamoConfig.UserIndexName),
		KeyConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":user_id": {S: aws.String(userID)},
		},
	}
	if limit > 0 {
		input.Limit = aws.Int64(int64(limit))
	}

	out, err := r.dynamoSvc.QueryWithContext(ctx, input)
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to list sequences", map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	sequences := make([]domain.Sequence, 0, len(out.Items))
	for _, item := range out.Items {
		sequence, err := r.unmarshalItem(item)
		if err != nil {
			return nil, err
		}
		sequences = append(sequences, *sequence)
	}

	return sequences, nil
}

func (r *dynamoSequenceRepository) DeleteAll(ctx context.Context, sequenceID string) error {
	_, err := r.dynamoSvc.DeleteItemWithContext(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.dynamoConfig.TableName),
		Key: map[string]*dynamodb.AttributeValue{
			"sequence_id": {S: aws.String(sequenceID)},
		},
	})
	if err != nil {
		r.logger.ErrorWithFields(err, "Failed to delete sequence", map[string]interface{}{
			"sequence_id": sequenceID,
		})
	}
	return err
}

func (r *dynamoSequenceRepository) unmarshalItem(item map[string]*dynamodb.AttributeValue) (*domain.Sequence, error) {
	var stored dynamoSequenceItem
	if err := dynamodbattribute.UnmarshalMap(item, &stored); err != nil {
		return nil, err
	}

	var sequence domain.Sequence
	if err := json.Unmarshal([]byte(stored.Document), &sequence); err != nil {
		return nil, err
	}
	sequence.Version = stored.Version

	return &sequence, nil
}

func formatInt(value int64) string {
	return strconv.FormatInt(value, 10)
}
