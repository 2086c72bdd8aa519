package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/grainlyyy/pds-api/internal/domain"
)

// AllocationRepo stores delivery rider to shopkeeper allocations.
// PK: allocation_id. GSI status-allocation_date-index.
type AllocationRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAllocationRepo(client *dynamodb.Client, tableName string) *AllocationRepo {
	return &AllocationRepo{client: client, tableName: tableName}
}

func (r *AllocationRepo) Put(ctx context.Context, a *domain.Allocation) error {
	item, err := attributevalue.MarshalMap(a)
	if err != nil {
		return fmt.Errorf("marshal allocation: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	return err
}

// List returns allocations newest first, optionally restricted to one status.
func (r *AllocationRepo) List(ctx context.Context, status string) ([]domain.Allocation, error) {
	var items []map[string]types.AttributeValue
	if status != "" {
		p := dynamodb.NewQueryPaginator(r.client, &dynamodb.QueryInput{
			TableName:                 aws.String(r.tableName),
			IndexName:                 aws.String("status-allocation_date-index"),
			KeyConditionExpression:    aws.String("#st = :st"),
			ExpressionAttributeNames:  map[string]string{"#st": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":st": str(status)},
			ScanIndexForward:          aws.Bool(false),
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			items = append(items, page.Items...)
		}
	} else {
		p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			items = append(items, page.Items...)
		}
	}
	var allocations []domain.Allocation
	if err := attributevalue.UnmarshalListOfMaps(items, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}

func (r *AllocationRepo) Update(ctx context.Context, allocationID string, updates map[string]interface{}) (*domain.Allocation, error) {
	updates["updated_at"] = time.Now().UTC()
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return nil, err
	}
	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("allocation_id", allocationID),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(allocation_id)"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("allocation not found: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var a domain.Allocation
	if err := attributevalue.UnmarshalMap(out.Attributes, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AllocationRepo) Delete(ctx context.Context, allocationID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 strKey("allocation_id", allocationID),
		ConditionExpression: aws.String("attribute_exists(allocation_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("allocation not found: %w", domain.ErrNotFound)
	}
	return err
}
