// Package dynamodb implements the persistence ports on a single DynamoDB
// table. Branch items live under the owning user's partition with a GSI
// projection keyed by branch id, so a branch can be resolved without knowing
// its owner up front.
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
	"github.com/sjak1/rabbithole-backend/pkg/utils"
)

// BranchRepository implements ports.BranchRepository using DynamoDB
type BranchRepository struct {
	client    *dynamodb.Client
	tableName string
	indexName string
	logger    *zap.Logger
}

// NewBranchRepository creates a new BranchRepository
func NewBranchRepository(client *dynamodb.Client, tableName, indexName string, logger *zap.Logger) ports.BranchRepository {
	return &BranchRepository{
		client:    client,
		tableName: tableName,
		indexName: indexName,
		logger:    logger,
	}
}

// branchItem represents the DynamoDB item structure for a branch
type branchItem struct {
	PK         string                  `dynamodbav:"PK"`
	SK         string                  `dynamodbav:"SK"`
	GSI1PK     string                  `dynamodbav:"GSI1PK"` // For branch lookups by ID
	GSI1SK     string                  `dynamodbav:"GSI1SK"` // Always "METADATA" for branches
	EntityType string                  `dynamodbav:"EntityType"`
	BranchID   string                  `dynamodbav:"BranchID"`
	UserID     string                  `dynamodbav:"UserID"`
	Name       string                  `dynamodbav:"Name"`
	ParentID   string                  `dynamodbav:"ParentID,omitempty"`
	Messages   []valueobjects.Message  `dynamodbav:"Messages"`
	CreatedAt  string                  `dynamodbav:"CreatedAt"`
	UpdatedAt  string                  `dynamodbav:"UpdatedAt"`
	Version    int                     `dynamodbav:"Version"`
}

func branchKeys(ownerID string, id valueobjects.BranchID) (pk, sk string) {
	return fmt.Sprintf("USER#%s", ownerID), fmt.Sprintf("BRANCH#%s", id.String())
}

func toBranchItem(branch *entities.Branch) branchItem {
	pk, sk := branchKeys(branch.OwnerID(), branch.ID())
	item := branchItem{
		PK:         pk,
		SK:         sk,
		GSI1PK:     fmt.Sprintf("BRANCHID#%s", branch.ID().String()),
		GSI1SK:     "METADATA",
		EntityType: "BRANCH",
		BranchID:   branch.ID().String(),
		UserID:     branch.OwnerID(),
		Name:       branch.Name(),
		Messages:   branch.Messages(),
		CreatedAt:  branch.CreatedAt().Format(utils.TimestampLayout),
		UpdatedAt:  branch.UpdatedAt().Format(utils.TimestampLayout),
		Version:    branch.Version(),
	}
	if parentID := branch.ParentID(); parentID != nil {
		item.ParentID = parentID.String()
	}
	return item
}

func fromBranchItem(item branchItem) (*entities.Branch, error) {
	id, err := valueobjects.NewBranchIDFromString(item.BranchID)
	if err != nil {
		return nil, fmt.Errorf("invalid stored branch id: %w", err)
	}

	var parentID *valueobjects.BranchID
	if item.ParentID != "" {
		pid, err := valueobjects.NewBranchIDFromString(item.ParentID)
		if err != nil {
			return nil, fmt.Errorf("invalid stored parent id: %w", err)
		}
		parentID = &pid
	}

	createdAt := utils.ParseTimestamp(item.CreatedAt)
	updatedAt := utils.ParseTimestamp(item.UpdatedAt)

	return entities.ReconstructBranch(
		id,
		item.UserID,
		item.Name,
		parentID,
		valueobjects.MessageLog(item.Messages),
		createdAt,
		updatedAt,
		item.Version,
	)
}

// Get resolves a branch by id via the GSI, then returns the reconstructed
// entity.
func (r *BranchRepository) Get(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error) {
	keyCond := expression.Key("GSI1PK").Equal(expression.Value(fmt.Sprintf("BRANCHID#%s", id.String()))).
		And(expression.Key("GSI1SK").Equal(expression.Value("METADATA")))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query branch", err)
	}

	result, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(r.indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query branch", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("branch")
	}

	var item branchItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, pkgerrors.NewDatabaseError("unmarshal branch", err)
	}

	branch, err := fromBranchItem(item)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("reconstruct branch", err)
	}
	return branch, nil
}

// Put persists the branch, conditional on the stored version matching the
// version the entity was loaded at. An entity that was never stored passes
// the not-exists arm of the condition instead.
func (r *BranchRepository) Put(ctx context.Context, branch *entities.Branch) error {
	item := toBranchItem(branch)
	item.Version = branch.Version() + 1

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return pkgerrors.NewDatabaseError("marshal branch", err)
	}

	cond := expression.AttributeNotExists(expression.Name("PK")).
		Or(expression.Name("Version").Equal(expression.Value(branch.Version())))
	expr, err := expression.NewBuilder().WithCondition(cond).Build()
	if err != nil {
		return pkgerrors.NewDatabaseError("put branch", err)
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
			return pkgerrors.NewConflictError("branch was modified concurrently")
		}
		return pkgerrors.NewDatabaseError("put branch", err)
	}

	r.logger.Debug("Branch saved",
		zap.String("branchID", branch.ID().String()),
		zap.Int("version", item.Version),
	)

	return nil
}

// Delete removes the branch item.
func (r *BranchRepository) Delete(ctx context.Context, id valueobjects.BranchID) error {
	// The primary key needs the owner; resolve through the GSI first.
	branch, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pk, sk := branchKeys(branch.OwnerID(), id)
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
	})
	if err != nil {
		return pkgerrors.NewDatabaseError("delete branch", err)
	}

	r.logger.Debug("Branch deleted", zap.String("branchID", id.String()))
	return nil
}

// ListByOwner returns all branch items under the owner's partition.
func (r *BranchRepository) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Branch, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(fmt.Sprintf("USER#%s", ownerID))).
		And(expression.Key("SK").BeginsWith("BRANCH#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query branches", err)
	}

	branches := make([]*entities.Branch, 0)
	var startKey map[string]types.AttributeValue
	for {
		result, err := r.client.Query(ctx, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			KeyConditionExpression:    expr.KeyCondition(),
			ExpressionAttributeNames:  expr.Names(),
			ExpressionAttributeValues: expr.Values(),
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query branches", err)
		}

		for _, raw := range result.Items {
			var item branchItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal branch item", zap.Error(err))
				continue
			}
			branch, err := fromBranchItem(item)
			if err != nil {
				r.logger.Warn("Failed to reconstruct branch",
					zap.String("branchID", item.BranchID),
					zap.Error(err),
				)
				continue
			}
			branches = append(branches, branch)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	return branches, nil
}
