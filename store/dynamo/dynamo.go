// Package dynamo stores results in a DynamoDB table keyed by sequence id
// (pk) and entry kind (sk).
package dynamo

import (
	"context"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/internal/ddb"
	"github.com/letmevibethatforyou/blastx/store"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Store implements store.Store on a DynamoDB table.
type Store struct {
	client API
	table  string
	now    func() time.Time
}

var _ store.Store = (*Store)(nil)

// New returns a store writing to table.
func New(client API, table string) *Store {
	return &Store{client: client, table: table, now: time.Now}
}

func (s *Store) put(ctx context.Context, id, kind string, body []byte) error {
	if err := store.ValidateID(id); err != nil {
		return err
	}
	rec, err := ddb.NewRecord(id, kind, body, store.RunID(ctx), s.now())
	if err != nil {
		return err
	}
	item, err := ddb.MarshalRecord(rec)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s/%s", id, kind)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to put %s/%s into %s", id, kind, s.table)
	}
	return nil
}

func (s *Store) get(ctx context.Context, id, kind string) ([]byte, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: id},
			"sk": &types.AttributeValueMemberS{Value: kind},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s/%s from %s", id, kind, s.table)
	}
	if len(out.Item) == 0 {
		return nil, errors.Wrapf(blastx.ErrNotFound, "%s/%s", id, kind)
	}
	rec, err := ddb.UnmarshalRecord(out.Item)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal %s/%s", id, kind)
	}
	return rec.Body()
}

// PutRaw implements store.Store.
func (s *Store) PutRaw(ctx context.Context, id string, doc []byte) error {
	return s.put(ctx, id, ddb.KindRaw, doc)
}

// GetRaw implements store.Store.
func (s *Store) GetRaw(ctx context.Context, id string) ([]byte, error) {
	return s.get(ctx, id, ddb.KindRaw)
}

// PutTable implements store.Store.
func (s *Store) PutTable(ctx context.Context, id string, table string) error {
	return s.put(ctx, id, ddb.KindTable, []byte(table))
}

// GetTable implements store.Store.
func (s *Store) GetTable(ctx context.Context, id string) (string, error) {
	body, err := s.get(ctx, id, ddb.KindTable)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// ListRaw implements store.Store.
func (s *Store) ListRaw(ctx context.Context) ([]string, error) {
	return s.list(ctx, ddb.KindRaw)
}

// ListTables implements store.Store.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	return s.list(ctx, ddb.KindTable)
}

func (s *Store) list(ctx context.Context, kind string) ([]string, error) {
	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:            aws.String(s.table),
		ProjectionExpression: aws.String("pk"),
		FilterExpression:     aws.String("sk = :kind"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kind": &types.AttributeValueMemberS{Value: kind},
		},
	})

	var ids []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to scan %s", s.table)
		}
		for _, item := range page.Items {
			pk, ok := item["pk"].(*types.AttributeValueMemberS)
			if !ok {
				continue
			}
			ids = append(ids, pk.Value)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
