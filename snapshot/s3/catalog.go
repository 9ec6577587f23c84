package s3

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/hupe1980/knn/snapshot"
)

// Catalog records committed snapshot versions in DynamoDB. Each commit
// points a monotonically increasing version at a snapshot name, so several
// writers can publish models without overwriting each other's pointer.
//
// Table schema:
//   - Partition key: model (string) - the logical model name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name knn-snapshots \
//	  --attribute-definitions AttributeName=model,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=model,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type Catalog struct {
	client    DDBClient
	tableName string
	model     string
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when another writer committed the
// same version first.
var ErrConcurrentModification = errors.New("s3: concurrent modification detected")

// Version is a committed catalog entry.
type Version struct {
	Number    uint64
	Name      string
	Committed time.Time
}

// NewCatalog creates a catalog for model in tableName.
func NewCatalog(client DDBClient, tableName, model string) *Catalog {
	return &Catalog{
		client:    client,
		tableName: tableName,
		model:     model,
	}
}

// Latest returns the newest committed version, or snapshot.ErrNotFound
// when nothing was committed.
func (c *Catalog) Latest(ctx context.Context) (Version, error) {
	resp, err := c.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(c.tableName),
		KeyConditionExpression: aws.String("model = :model"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":model": &types.AttributeValueMemberS{Value: c.model},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return Version{}, fmt.Errorf("failed to query DynamoDB: %w", err)
	}
	if len(resp.Items) == 0 {
		return Version{}, snapshot.ErrNotFound
	}
	return parseVersion(resp.Items[0])
}

// Commit records name as the next version and returns it. When another
// writer commits concurrently, ErrConcurrentModification is returned and
// the caller may retry.
func (c *Catalog) Commit(ctx context.Context, name string) (Version, error) {
	var next uint64 = 1
	latest, err := c.Latest(ctx)
	switch {
	case err == nil:
		next = latest.Number + 1
	case !errors.Is(err, snapshot.ErrNotFound):
		return Version{}, err
	}

	v := Version{Number: next, Name: name, Committed: time.Now().UTC()}

	// Conditional put: only succeed if this version doesn't exist yet
	_, err = c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.tableName),
		Item: map[string]types.AttributeValue{
			"model":     &types.AttributeValueMemberS{Value: c.model},
			"version":   &types.AttributeValueMemberN{Value: strconv.FormatUint(v.Number, 10)},
			"name":      &types.AttributeValueMemberS{Value: v.Name},
			"committed": &types.AttributeValueMemberS{Value: v.Committed.Format(time.RFC3339Nano)},
		},
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return Version{}, ErrConcurrentModification
		}
		return Version{}, fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return v, nil
}

func parseVersion(item map[string]types.AttributeValue) (Version, error) {
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return Version{}, errors.New("s3: invalid version attribute in DynamoDB")
	}
	nameAttr, ok := item["name"].(*types.AttributeValueMemberS)
	if !ok {
		return Version{}, errors.New("s3: invalid name attribute in DynamoDB")
	}
	number, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return Version{}, fmt.Errorf("failed to parse version: %w", err)
	}

	v := Version{Number: number, Name: nameAttr.Value}
	if at, ok := item["committed"].(*types.AttributeValueMemberS); ok {
		v.Committed, _ = time.Parse(time.RFC3339Nano, at.Value)
	}
	return v, nil
}
