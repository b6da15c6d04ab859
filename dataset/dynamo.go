package dataset

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoCatalog is a dataset catalog shared through a DynamoDB table.
//
// Table schema:
//   - Partition key: name (string)
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name jsonload-datasets \
//	  --attribute-definitions AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=name,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
type DynamoCatalog struct {
	client DDBClient
	table  string
}

// NewDynamoCatalog creates a catalog over table.
func NewDynamoCatalog(client DDBClient, table string) *DynamoCatalog {
	return &DynamoCatalog{client: client, table: table}
}

// Lookup returns the dataset called name.
func (c *DynamoCatalog) Lookup(ctx context.Context, name string) (Dataset, error) {
	resp, err := c.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(c.table),
		Key: map[string]types.AttributeValue{
			"name": &types.AttributeValueMemberS{Value: name},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to get dataset %s from DynamoDB: %w", name, err)
	}
	if len(resp.Item) == 0 {
		return Dataset{}, fmt.Errorf("%w: %s", ErrUnknownDataset, name)
	}
	return datasetFromItem(resp.Item)
}

// List returns every dataset in the table.
func (c *DynamoCatalog) List(ctx context.Context) ([]Dataset, error) {
	var datasets []Dataset
	paginator := dynamodb.NewScanPaginator(c.client, &dynamodb.ScanInput{
		TableName: aws.String(c.table),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB: %w", err)
		}
		for _, item := range page.Items {
			ds, err := datasetFromItem(item)
			if err != nil {
				return nil, err
			}
			datasets = append(datasets, ds)
		}
	}
	return datasets, nil
}

// Put registers ds, replacing any dataset of the same name.
func (c *DynamoCatalog) Put(ctx context.Context, ds Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(c.table),
		Item:      itemFromDataset(ds),
	})
	if err != nil {
		return fmt.Errorf("failed to put dataset %s to DynamoDB: %w", ds.Name, err)
	}
	return nil
}

func itemFromDataset(ds Dataset) map[string]types.AttributeValue {
	item := map[string]types.AttributeValue{
		"name":     &types.AttributeValueMemberS{Value: ds.Name},
		"path":     &types.AttributeValueMemberS{Value: ds.Path},
		"source":   &types.AttributeValueMemberS{Value: ds.Source},
		"checksum": &types.AttributeValueMemberS{Value: ds.Checksum},
		"corpus":   &types.AttributeValueMemberBOOL{Value: ds.Corpus},
	}
	if ds.SourceChecksum != "" {
		item["source_checksum"] = &types.AttributeValueMemberS{Value: ds.SourceChecksum}
	}
	if ds.Encoding != "" {
		item["encoding"] = &types.AttributeValueMemberS{Value: ds.Encoding}
	}
	return item
}

func datasetFromItem(item map[string]types.AttributeValue) (Dataset, error) {
	var ds Dataset
	for _, f := range []struct {
		attr     string
		dst      *string
		required bool
	}{
		{"name", &ds.Name, true},
		{"path", &ds.Path, true},
		{"source", &ds.Source, true},
		{"checksum", &ds.Checksum, true},
		{"source_checksum", &ds.SourceChecksum, false},
		{"encoding", &ds.Encoding, false},
	} {
		av, ok := item[f.attr]
		if !ok {
			if f.required {
				return Dataset{}, fmt.Errorf("%w: item missing %s", ErrInvalidDataset, f.attr)
			}
			continue
		}
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return Dataset{}, fmt.Errorf("%w: attribute %s is not a string", ErrInvalidDataset, f.attr)
		}
		*f.dst = s.Value
	}
	if av, ok := item["corpus"].(*types.AttributeValueMemberBOOL); ok {
		ds.Corpus = av.Value
	}
	return ds, nil
}
