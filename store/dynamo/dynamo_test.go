package dynamo

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/internal/ddb"
	"github.com/letmevibethatforyou/blastx/store"
)

// mockDynamoDB keeps items in memory and serves scans one item per page.
type mockDynamoDB struct {
	items     map[string]map[string]types.AttributeValue
	scanCalls int
	putErr    error
}

func newMockDynamoDB() *mockDynamoDB {
	return &mockDynamoDB{items: map[string]map[string]types.AttributeValue{}}
}

func key(item map[string]types.AttributeValue) string {
	pk := item["pk"].(*types.AttributeValueMemberS).Value
	sk := item["sk"].(*types.AttributeValueMemberS).Value
	return pk + "|" + sk
}

func (m *mockDynamoDB) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.items[key(params.Item)] = params.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamoDB) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return &dynamodb.GetItemOutput{Item: m.items[key(params.Key)]}, nil
}

func (m *mockDynamoDB) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	m.scanCalls++
	want := params.ExpressionAttributeValues[":kind"].(*types.AttributeValueMemberS).Value

	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	start := 0
	if params.ExclusiveStartKey != nil {
		last := key(params.ExclusiveStartKey)
		for i, k := range keys {
			if k == last {
				start = i + 1
			}
		}
	}
	if start >= len(keys) {
		return &dynamodb.ScanOutput{}, nil
	}

	item := m.items[keys[start]]
	out := &dynamodb.ScanOutput{}
	if item["sk"].(*types.AttributeValueMemberS).Value == want {
		out.Items = []map[string]types.AttributeValue{{"pk": item["pk"]}}
	}
	if start+1 < len(keys) {
		out.LastEvaluatedKey = map[string]types.AttributeValue{"pk": item["pk"], "sk": item["sk"]}
	}
	return out, nil
}

func TestStore_PutGet(t *testing.T) {
	api := newMockDynamoDB()
	s := New(api, "results")
	s.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	ctx := store.WithRunID(context.Background(), "run-42")

	if err := s.PutRaw(ctx, "otu_1", []byte("<BlastOutput/>")); err != nil {
		t.Fatalf("PutRaw failed: %v", err)
	}

	item := api.items["otu_1|raw"]
	if item == nil {
		t.Fatal("Expected raw item to be stored")
	}
	rec, err := ddb.UnmarshalRecord(item)
	if err != nil {
		t.Fatalf("UnmarshalRecord failed: %v", err)
	}
	if rec.RunID != "run-42" || rec.UpdatedAt != "2024-01-02T03:04:05Z" {
		t.Errorf("Unexpected record metadata %+v", rec)
	}

	doc, err := s.GetRaw(ctx, "otu_1")
	if err != nil {
		t.Fatalf("GetRaw failed: %v", err)
	}
	if string(doc) != "<BlastOutput/>" {
		t.Errorf("GetRaw = %q", doc)
	}

	if _, err := s.GetTable(ctx, "otu_1"); !errors.Is(err, blastx.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if err := s.PutTable(ctx, "otu_1", "Score\tE_value"); err != nil {
		t.Fatalf("PutTable failed: %v", err)
	}
	table, err := s.GetTable(ctx, "otu_1")
	if err != nil || table != "Score\tE_value" {
		t.Errorf("GetTable = %q, %v", table, err)
	}
}

func TestStore_List(t *testing.T) {
	api := newMockDynamoDB()
	s := New(api, "results")
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := s.PutRaw(ctx, id, []byte("x")); err != nil {
			t.Fatalf("PutRaw failed: %v", err)
		}
	}
	_ = s.PutTable(ctx, "a", "t")

	ids, err := s.ListRaw(ctx)
	if err != nil {
		t.Fatalf("ListRaw failed: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"a", "b", "c"}) {
		t.Errorf("ListRaw = %v", ids)
	}
	if api.scanCalls != 4 {
		t.Errorf("Expected the paginator to follow 4 pages, got %d", api.scanCalls)
	}

	tables, err := s.ListTables(ctx)
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if !reflect.DeepEqual(tables, []string{"a"}) {
		t.Errorf("ListTables = %v", tables)
	}
}

func TestStore_Errors(t *testing.T) {
	api := newMockDynamoDB()
	api.putErr = errors.New("throttled")
	s := New(api, "results")
	ctx := context.Background()

	if err := s.PutRaw(ctx, "a", []byte("x")); err == nil || !errors.Is(err, api.putErr) {
		t.Errorf("Expected put error, got %v", err)
	}
	if err := s.PutRaw(ctx, "a/b", []byte("x")); !errors.Is(err, blastx.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
	if _, err := s.GetRaw(ctx, "missing"); !errors.Is(err, blastx.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
