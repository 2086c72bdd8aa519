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

const otpPickupIndex = "pickup_id-shopkeeper_address-index"

// batchWriteLimit is the DynamoDB maximum number of requests per BatchWriteItem call.
const batchWriteLimit = 25

// OTPRepo manages delivery-confirmation codes.
// PK: triple_key. TTL: expires_at.
type OTPRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewOTPRepo(client *dynamodb.Client, tableName string) *OTPRepo {
	return &OTPRepo{client: client, tableName: tableName}
}

func (r *OTPRepo) Get(ctx context.Context, tripleKey string) (*domain.OTP, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey("triple_key", tripleKey),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	if out.Item == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	var o domain.OTP
	if err := attributevalue.UnmarshalMap(out.Item, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// otpReplaceable admits a put over a missing, used or expired code. expires_at
// has whole-second precision, so a code expiring in the current second counts
// as expired.
const otpReplaceable = "attribute_not_exists(triple_key) OR is_used = :true OR expires_at <= :now"

// PutIfInactive writes o unless the triple already holds an unused code that
// has not expired at now. A concurrent writer that won the race surfaces as
// domain.ErrConflict.
func (r *OTPRepo) PutIfInactive(ctx context.Context, o *domain.OTP, now time.Time) error {
	item, err := attributevalue.MarshalMap(o)
	if err != nil {
		return fmt.Errorf("marshal otp: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                item,
		ConditionExpression: aws.String(otpReplaceable),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":true": boolean(true),
			":now":  num(now.Unix()),
		},
	})
	if isConditionFailed(err) {
		return fmt.Errorf("active otp exists for triple: %w", domain.ErrConflict)
	}
	return err
}

// FindUnused returns the newest unused code matching pickup, shopkeeper and code.
func (r *OTPRepo) FindUnused(ctx context.Context, pickupID, shopkeeper, code string) (*domain.OTP, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(otpPickupIndex),
		KeyConditionExpression: aws.String("pickup_id = :p AND shopkeeper_address = :s"),
		FilterExpression:       aws.String("otp_code = :c AND is_used = :false"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":     str(pickupID),
			":s":     str(shopkeeper),
			":c":     str(code),
			":false": boolean(false),
		},
	})
	if err != nil {
		return nil, err
	}
	var otps []domain.OTP
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &otps); err != nil {
		return nil, err
	}
	newest := latest(otps)
	if newest == nil {
		return nil, fmt.Errorf("otp not found: %w", domain.ErrNotFound)
	}
	return newest, nil
}

// MarkUsed flips is_used only if the stored code is still unused and matches
// code, so two concurrent verifications cannot both succeed.
func (r *OTPRepo) MarkUsed(ctx context.Context, tripleKey, code string, usedAt time.Time) error {
	ue, err := buildUpdateExpr(map[string]interface{}{
		"is_used": true,
		"used_at": usedAt,
	})
	if err != nil {
		return err
	}
	ue = ue.with(
		map[string]string{"#used": "is_used", "#code": "otp_code"},
		map[string]types.AttributeValue{":false": boolean(false), ":code": str(code)},
	)
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("triple_key", tripleKey),
		UpdateExpression:          aws.String(ue.Expr),
		ConditionExpression:       aws.String("#used = :false AND #code = :code"),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	if isConditionFailed(err) {
		return fmt.Errorf("otp already used: %w", domain.ErrNotFound)
	}
	return err
}

// ListByPickup returns every stored code for a pickup.
func (r *OTPRepo) ListByPickup(ctx context.Context, pickupID string) ([]domain.OTP, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(otpPickupIndex),
		KeyConditionExpression: aws.String("pickup_id = :p"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p": str(pickupID),
		},
	})
	if err != nil {
		return nil, err
	}
	var otps []domain.OTP
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &otps); err != nil {
		return nil, err
	}
	return otps, nil
}

// Scan returns every stored code. The table only holds codes younger than the
// TTL sweep, so a full scan stays small.
func (r *OTPRepo) Scan(ctx context.Context) ([]domain.OTP, error) {
	var otps []domain.OTP
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{TableName: aws.String(r.tableName)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var batch []domain.OTP
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, err
		}
		otps = append(otps, batch...)
	}
	return otps, nil
}

// DeleteGeneratedBefore removes every code generated before cutoff and returns
// how many were deleted.
func (r *OTPRepo) DeleteGeneratedBefore(ctx context.Context, cutoff time.Time) (int, error) {
	var keys []map[string]types.AttributeValue
	p := dynamodb.NewScanPaginator(r.client, &dynamodb.ScanInput{
		TableName:            aws.String(r.tableName),
		ProjectionExpression: aws.String("triple_key"),
		FilterExpression:     aws.String("expires_at < :limit"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":limit": num(cutoff.Add(domain.OTPValidity).Unix()),
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return 0, err
		}
		keys = append(keys, page.Items...)
	}

	deleted := 0
	for start := 0; start < len(keys); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(keys))
		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: k}})
		}
		n, err := r.batchDelete(ctx, reqs)
		deleted += n
		if err != nil {
			return deleted, err
		}
	}
	return deleted, nil
}

func (r *OTPRepo) batchDelete(ctx context.Context, reqs []types.WriteRequest) (int, error) {
	total := len(reqs)
	for attempt := 0; attempt < 3 && len(reqs) > 0; attempt++ {
		out, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{r.tableName: reqs},
		})
		if err != nil {
			return total - len(reqs), err
		}
		reqs = out.UnprocessedItems[r.tableName]
	}
	if len(reqs) > 0 {
		return total - len(reqs), fmt.Errorf("%d otp deletes left unprocessed", len(reqs))
	}
	return total, nil
}

func latest(otps []domain.OTP) *domain.OTP {
	var newest *domain.OTP
	for i := range otps {
		if newest == nil || otps[i].GeneratedAt.After(newest.GeneratedAt) {
			newest = &otps[i]
		}
	}
	return newest
}
