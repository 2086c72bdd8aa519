package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/grainlyyy/pds-api/internal/domain"
)

const signupStatusIndex = "status-submitted_at-index"

// signupTable holds the operations shared by the three signup queues.
// PK: signup_id. GSI status-submitted_at-index lists a queue newest first.
type signupTable[T any] struct {
	client    *dynamodb.Client
	tableName string
	label     string
}

// Create stores a new request; an existing signup_id is a conflict.
func (t signupTable[T]) Create(ctx context.Context, item *T) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", t.label, err)
	}
	_, err = t.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(signup_id)"),
	})
	if isConditionFailed(err) {
		return fmt.Errorf("%s already exists: %w", t.label, domain.ErrConflict)
	}
	return err
}

func (t signupTable[T]) Get(ctx context.Context, id string) (*T, error) {
	out, err := t.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.tableName),
		Key:            strKey("signup_id", id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("%s not found: %w", t.label, domain.ErrNotFound)
	}
	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListByStatus returns a whole queue newest first. status "all" scans the table.
func (t signupTable[T]) ListByStatus(ctx context.Context, status string) ([]T, error) {
	var items []T
	if status == "all" {
		p := dynamodb.NewScanPaginator(t.client, &dynamodb.ScanInput{TableName: aws.String(t.tableName)})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return nil, err
			}
			var batch []T
			if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
				return nil, err
			}
			items = append(items, batch...)
		}
		return items, nil
	}

	p := dynamodb.NewQueryPaginator(t.client, &dynamodb.QueryInput{
		TableName:                 aws.String(t.tableName),
		IndexName:                 aws.String(signupStatusIndex),
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
		var batch []T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

// Decide moves a pending request to d.Status. A request that is no longer
// pending reports domain.ErrAlreadyProcessed.
func (t signupTable[T]) Decide(ctx context.Context, id string, d domain.SignupDecision) (*T, error) {
	ue, err := buildUpdateExpr(decisionUpdates(d))
	if err != nil {
		return nil, err
	}
	ue = ue.with(
		map[string]string{"#st": "status"},
		map[string]types.AttributeValue{":from": str(string(domain.SignupPending))},
	)
	out, err := t.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.tableName),
		Key:                       strKey("signup_id", id),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("attribute_exists(signup_id) AND #st = :from"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if isConditionFailed(err) {
		return nil, fmt.Errorf("%s %s: %w", t.label, id, domain.ErrAlreadyProcessed)
	}
	if err != nil {
		return nil, err
	}
	var item T
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// findOne queries a single-attribute GSI. When status is non-empty only
// requests in that status match.
func (t signupTable[T]) findOne(ctx context.Context, index, attr, value string, status domain.SignupStatus) (*T, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(t.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": str(value)},
	}
	if status != "" {
		input.FilterExpression = aws.String("#st = :st")
		input.ExpressionAttributeNames["#st"] = "status"
		input.ExpressionAttributeValues[":st"] = str(string(status))
	}
	out, err := t.client.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%s not found: %w", t.label, domain.ErrNotFound)
	}
	var item T
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ConsumerSignupRepo stores consumer applications and PIN-login records.
type ConsumerSignupRepo struct {
	signupTable[domain.ConsumerSignup]
}

func NewConsumerSignupRepo(client *dynamodb.Client, tableName string) *ConsumerSignupRepo {
	return &ConsumerSignupRepo{signupTable[domain.ConsumerSignup]{client: client, tableName: tableName, label: "consumer signup"}}
}

func (r *ConsumerSignupRepo) GetByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error) {
	return r.findOne(ctx, "aadhar_number-index", "aadhar_number", aadhaar, "")
}

func (r *ConsumerSignupRepo) GetApprovedByAadhaar(ctx context.Context, aadhaar string) (*domain.ConsumerSignup, error) {
	return r.findOne(ctx, "aadhar_number-index", "aadhar_number", aadhaar, domain.SignupApproved)
}

func (r *ConsumerSignupRepo) GetByRationCard(ctx context.Context, rationCardID string) (*domain.ConsumerSignup, error) {
	return r.findOne(ctx, "ration_card_id-index", "ration_card_id", rationCardID, "")
}

func (r *ConsumerSignupRepo) GetApprovedByRationCard(ctx context.Context, rationCardID string) (*domain.ConsumerSignup, error) {
	return r.findOne(ctx, "ration_card_id-index", "ration_card_id", rationCardID, domain.SignupApproved)
}

// DeliverySignupRepo stores delivery agent applications.
type DeliverySignupRepo struct {
	signupTable[domain.DeliverySignup]
}

func NewDeliverySignupRepo(client *dynamodb.Client, tableName string) *DeliverySignupRepo {
	return &DeliverySignupRepo{signupTable[domain.DeliverySignup]{client: client, tableName: tableName, label: "delivery signup"}}
}

func (r *DeliverySignupRepo) GetByWallet(ctx context.Context, wallet string) (*domain.DeliverySignup, error) {
	return r.findOne(ctx, "wallet_address-index", "wallet_address", wallet, "")
}

func (r *DeliverySignupRepo) GetApprovedByWallet(ctx context.Context, wallet string) (*domain.DeliverySignup, error) {
	return r.findOne(ctx, "wallet_address-index", "wallet_address", wallet, domain.SignupApproved)
}

func (r *DeliverySignupRepo) GetByLicense(ctx context.Context, license string) (*domain.DeliverySignup, error) {
	return r.findOne(ctx, "license_number-index", "license_number", license, "")
}

// ShopkeeperSignupRepo stores shopkeeper applications.
type ShopkeeperSignupRepo struct {
	signupTable[domain.ShopkeeperSignup]
}

func NewShopkeeperSignupRepo(client *dynamodb.Client, tableName string) *ShopkeeperSignupRepo {
	return &ShopkeeperSignupRepo{signupTable[domain.ShopkeeperSignup]{client: client, tableName: tableName, label: "shopkeeper signup"}}
}

func (r *ShopkeeperSignupRepo) GetByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error) {
	return r.findOne(ctx, "wallet_address-index", "wallet_address", wallet, "")
}

func (r *ShopkeeperSignupRepo) GetApprovedByWallet(ctx context.Context, wallet string) (*domain.ShopkeeperSignup, error) {
	return r.findOne(ctx, "wallet_address-index", "wallet_address", wallet, domain.SignupApproved)
}

func decisionUpdates(d domain.SignupDecision) map[string]interface{} {
	updates := map[string]interface{}{
		"status":      string(d.Status),
		"reviewed_by": d.ReviewedBy,
		"reviewed_at": d.ReviewedAt.UTC(),
	}
	if d.AdminNote != "" {
		updates["admin_note"] = d.AdminNote
	}
	if d.RejectionReason != "" {
		updates["rejection_reason"] = d.RejectionReason
	}
	if d.TxHash != "" {
		updates["tx_hash"] = d.TxHash
	}
	if d.BlockchainRegistered {
		updates["blockchain_registered"] = true
	}
	return updates
}
