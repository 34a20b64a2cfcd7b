// Package ddb holds the results table item layout and the DynamoDB stream
// event shapes delivered to Lambda.
package ddb

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
)

// DynamoDBEvent represents a DynamoDB stream event
type DynamoDBEvent struct {
	Records []DynamoDBEventRecord `json:"Records"`
}

// DynamoDBEventRecord represents a single DynamoDB stream record
type DynamoDBEventRecord struct {
	AWSRegion      string               `json:"awsRegion"`
	Change         DynamoDBStreamRecord `json:"dynamodb"`
	EventID        string               `json:"eventID"`
	EventName      string               `json:"eventName"`
	EventSource    string               `json:"eventSource"`
	EventVersion   string               `json:"eventVersion"`
	EventSourceArn string               `json:"eventSourceARN"`
}

// DynamoDBStreamRecord represents the DynamoDB stream data
type DynamoDBStreamRecord struct {
	ApproximateCreationDateTime int64        `json:"ApproximateCreationDateTime,omitempty"`
	Keys                        AttributeMap `json:"Keys,omitempty"`
	NewImage                    AttributeMap `json:"NewImage,omitempty"`
	OldImage                    AttributeMap `json:"OldImage,omitempty"`
	SequenceNumber              string       `json:"SequenceNumber"`
	SizeBytes                   int64        `json:"SizeBytes"`
	StreamViewType              string       `json:"StreamViewType"`
}

// DynamoDBOperationType represents the type of DynamoDB operation
type DynamoDBOperationType string

const (
	DynamoDBOperationTypeInsert DynamoDBOperationType = "INSERT"
	DynamoDBOperationTypeModify DynamoDBOperationType = "MODIFY"
	DynamoDBOperationTypeRemove DynamoDBOperationType = "REMOVE"
)

// Sort key values of the results table.
const (
	KindRaw   = "raw"
	KindTable = "table"
)

// Record is one results table item: a raw result document or an extracted
// table for a sequence. Document is gzip-compressed to stay well under the
// DynamoDB item size limit.
type Record struct {
	SequenceID string `dynamodbav:"pk"`
	Kind       string `dynamodbav:"sk"`
	Document   []byte `dynamodbav:"document"`
	RunID      string `dynamodbav:"run_id,omitempty"`
	UpdatedAt  string `dynamodbav:"updated_at,omitempty"`
}

// NewRecord compresses body into a Record stamped with runID and now.
func NewRecord(sequenceID, kind string, body []byte, runID string, now time.Time) (Record, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(body); err != nil {
		return Record{}, errors.Wrap(err, "failed to compress document")
	}
	if err := zw.Close(); err != nil {
		return Record{}, errors.Wrap(err, "failed to compress document")
	}
	return Record{
		SequenceID: sequenceID,
		Kind:       kind,
		Document:   buf.Bytes(),
		RunID:      runID,
		UpdatedAt:  now.UTC().Format(time.RFC3339),
	}, nil
}

// Body returns the decompressed document.
func (r Record) Body() ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(r.Document))
	if err != nil {
		return nil, errors.Wrapf(err, "document for %s/%s is not gzip", r.SequenceID, r.Kind)
	}
	defer zr.Close()
	body, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decompress document for %s/%s", r.SequenceID, r.Kind)
	}
	return body, nil
}

// MarshalRecord converts a Record into a DynamoDB item.
func MarshalRecord(record Record) (map[string]types.AttributeValue, error) {
	return attributevalue.MarshalMap(record)
}

// UnmarshalRecord converts a DynamoDB item or stream image into a Record.
func UnmarshalRecord(image map[string]types.AttributeValue) (Record, error) {
	var record Record
	err := attributevalue.UnmarshalMap(image, &record)
	if err != nil {
		return Record{}, err
	}
	return record, nil
}

// AttributeMap is an item image in the DynamoDB JSON wire format,
// e.g. {"pk": {"S": "otu1"}}.
type AttributeMap map[string]types.AttributeValue

// UnmarshalJSON implements json.Unmarshaler.
func (m *AttributeMap) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	av, err := UnmarshalAttributeValueMap(data)
	if err != nil {
		return err
	}
	*m = av
	return nil
}

// UnmarshalAttributeValueMap decodes an item image in the DynamoDB JSON wire
// format.
func UnmarshalAttributeValueMap(data []byte) (map[string]types.AttributeValue, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "invalid attribute map")
	}
	return decodeMap(raw)
}

func decodeMap(raw map[string]json.RawMessage) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(raw))
	for k, v := range raw {
		av, err := decodeValue(v)
		if err != nil {
			return nil, errors.Wrapf(err, "attribute %q", k)
		}
		out[k] = av
	}
	return out, nil
}

// wireValue has one field set per the DynamoDB JSON format.
type wireValue struct {
	S    *string                    `json:"S"`
	N    *string                    `json:"N"`
	B    []byte                     `json:"B"`
	BOOL *bool                      `json:"BOOL"`
	NULL *bool                      `json:"NULL"`
	M    map[string]json.RawMessage `json:"M"`
	L    []json.RawMessage          `json:"L"`
	SS   []string                   `json:"SS"`
	NS   []string                   `json:"NS"`
	BS   [][]byte                   `json:"BS"`
}

func decodeValue(data json.RawMessage) (types.AttributeValue, error) {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "invalid attribute value")
	}
	switch {
	case w.S != nil:
		return &types.AttributeValueMemberS{Value: *w.S}, nil
	case w.N != nil:
		return &types.AttributeValueMemberN{Value: *w.N}, nil
	case w.B != nil:
		return &types.AttributeValueMemberB{Value: w.B}, nil
	case w.BOOL != nil:
		return &types.AttributeValueMemberBOOL{Value: *w.BOOL}, nil
	case w.NULL != nil:
		return &types.AttributeValueMemberNULL{Value: *w.NULL}, nil
	case w.M != nil:
		m, err := decodeMap(w.M)
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: m}, nil
	case w.L != nil:
		list := make([]types.AttributeValue, 0, len(w.L))
		for i, item := range w.L {
			av, err := decodeValue(item)
			if err != nil {
				return nil, errors.Wrapf(err, "list element %d", i)
			}
			list = append(list, av)
		}
		return &types.AttributeValueMemberL{Value: list}, nil
	case w.SS != nil:
		return &types.AttributeValueMemberSS{Value: w.SS}, nil
	case w.NS != nil:
		return &types.AttributeValueMemberNS{Value: w.NS}, nil
	case w.BS != nil:
		return &types.AttributeValueMemberBS{Value: w.BS}, nil
	default:
		return nil, errors.Newf("unsupported attribute value %s", string(data))
	}
}
