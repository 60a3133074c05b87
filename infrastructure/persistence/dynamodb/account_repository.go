package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
	"github.com/sjak1/rabbithole-backend/pkg/utils"
)

// AccountRepository implements ports.AccountRepository using DynamoDB
type AccountRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewAccountRepository creates a new AccountRepository
func NewAccountRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.AccountRepository {
	return &AccountRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// accountItem represents the DynamoDB item structure for an account
type accountItem struct {
	PK          string  `dynamodbav:"PK"`
	SK          string  `dynamodbav:"SK"`
	EntityType  string  `dynamodbav:"EntityType"`
	UserID      string  `dynamodbav:"UserID"`
	Email       string  `dynamodbav:"Email"`
	DisplayName string  `dynamodbav:"DisplayName"`
	Credits     float64 `dynamodbav:"Credits"`
	CreatedAt   string  `dynamodbav:"CreatedAt"`
	UpdatedAt   string  `dynamodbav:"UpdatedAt"`
	Version     int     `dynamodbav:"Version"`
}

func accountKey(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("USER#%s", userID)},
		"SK": &types.AttributeValueMemberS{Value: "ACCOUNT"},
	}
}

// Get retrieves the account for a user id.
func (r *AccountRepository) Get(ctx context.Context, userID string) (*entities.Account, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       accountKey(userID),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("get account", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.NewNotFoundError("account")
	}

	var item accountItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal account", err)
	}

	createdAt := utils.ParseTimestamp(item.CreatedAt)
	updatedAt := utils.ParseTimestamp(item.UpdatedAt)

	account, err := entities.ReconstructAccount(
		item.UserID,
		item.Email,
		item.DisplayName,
		item.Credits,
		createdAt,
		updatedAt,
		item.Version,
	)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("reconstruct account", err)
	}
	return account, nil
}

// Put persists a new account, conditional on no account existing for the
// same user.
func (r *AccountRepository) Put(ctx context.Context, account *entities.Account) error {
	item := accountItem{
		PK:          fmt.Sprintf("USER#%s", account.ID()),
		SK:          "ACCOUNT",
		EntityType:  "ACCOUNT",
		UserID:      account.ID(),
		Email:       account.Email(),
		DisplayName: account.DisplayName(),
		Credits:     account.Credits(),
		CreatedAt:   account.CreatedAt().Format(utils.TimestampLayout),
		UpdatedAt:   account.UpdatedAt().Format(utils.TimestampLayout),
		Version:     account.Version(),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal account", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK"))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewDatabaseError("put account", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(r.tableName),
		Item:                      av,
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return pkgerrors.NewConflictError("account already exists")
		}
		return pkgerrors.NewDatabaseError("put account", err)
	}

	r.logger.Debug("Account saved", zap.String("userID", account.ID()))
	return nil
}

// Decrement atomically subtracts amount from the balance via an ADD update
// and returns the resulting balance from the same round trip.
func (r *AccountRepository) Decrement(ctx context.Context, userID string, amount float64) (float64, error) {
	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 accountKey(userID),
		UpdateExpression:    aws.String("ADD Credits :delta SET UpdatedAt = :now"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":delta": &types.AttributeValueMemberN{Value: strconv.FormatFloat(-amount, 'f', -1, 64)},
			":now":   &types.AttributeValueMemberS{Value: utils.NowTimestamp()},
		},
		ReturnValues: types.ReturnValueUpdatedNew,
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return 0, pkgerrors.NewNotFoundError("account")
		}
		return 0, pkgerrors.NewDatabaseError("decrement credits", err)
	}

	var updated struct {
		Credits float64 `dynamodbav:"Credits"`
	}
	if err := attributevalue.UnmarshalMap(result.Attributes, &updated); err != nil {
		return 0, pkgerrors.NewDatabaseError("unmarshal balance", err)
	}

	return updated.Credits, nil
}
