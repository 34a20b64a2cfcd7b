package main

import (
	"context"
	"log/slog"

	"github.com/letmevibethatforyou/blastx"
	"github.com/letmevibethatforyou/blastx/blastxml"
	"github.com/letmevibethatforyou/blastx/internal/ddb"
)

// hitIndex is the part of algolia.Client the handler needs.
type hitIndex interface {
	SaveHits(ctx context.Context, indexName string, docs []blastx.HitDocument) error
	DeleteSequence(ctx context.Context, indexName string, sequenceID string) error
}

type Handler struct {
	indexName string
	hits      hitIndex
}

func NewHandler(indexName string, hits hitIndex) *Handler {
	return &Handler{
		indexName: indexName,
		hits:      hits,
	}
}

func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e ddb.DynamoDBEvent) error {
	slog.InfoContext(ctx, "Processing DynamoDB stream records", "record_count", len(e.Records))

	for _, record := range e.Records {
		if err := h.processRecord(ctx, record); err != nil {
			slog.ErrorContext(ctx, "Error processing record", "event_id", record.EventID, "error", err)
			return err
		}
	}

	return nil
}

func (h *Handler) processRecord(ctx context.Context, record ddb.DynamoDBEventRecord) error {
	switch ddb.DynamoDBOperationType(record.EventName) {
	case ddb.DynamoDBOperationTypeInsert, ddb.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			slog.WarnContext(ctx, "No new image for insert/modify operation, skipping record")
			return nil
		}

		parsed, err := ddb.UnmarshalRecord(record.Change.NewImage)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
			return nil
		}
		if parsed.SequenceID == "" {
			slog.WarnContext(ctx, "Missing sequence id (pk) in record, skipping record")
			return nil
		}
		if parsed.Kind != ddb.KindRaw {
			return nil
		}

		return h.handleUpsert(ctx, parsed)

	case ddb.DynamoDBOperationTypeRemove:
		parsed, err := ddb.UnmarshalRecord(record.Change.Keys)
		if err != nil {
			slog.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "error", err)
			return nil
		}
		if parsed.SequenceID == "" || parsed.Kind != ddb.KindRaw {
			return nil
		}

		slog.InfoContext(ctx, "Deleting hits from Algolia", "sequence_id", parsed.SequenceID, "index", h.indexName)
		return h.hits.DeleteSequence(ctx, h.indexName, parsed.SequenceID)

	default:
		slog.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		return nil
	}
}

// handleUpsert replaces the indexed hits of a sequence with the hits of its
// new raw document. Documents that cannot be read or parsed are skipped.
func (h *Handler) handleUpsert(ctx context.Context, record ddb.Record) error {
	body, err := record.Body()
	if err != nil {
		slog.WarnContext(ctx, "Failed to read document, skipping", "sequence_id", record.SequenceID, "error", err)
		return nil
	}

	rows, err := blastxml.Extract(body)
	if err != nil {
		slog.WarnContext(ctx, "Failed to parse result document, skipping",
			"sequence_id", record.SequenceID,
			"run_id", record.RunID,
			"error_kind", blastx.CodeOf(err).String(),
			"error", err,
		)
		return nil
	}

	if err := h.hits.DeleteSequence(ctx, h.indexName, record.SequenceID); err != nil {
		return err
	}
	if len(rows) == 0 {
		slog.InfoContext(ctx, "No hits for sequence", "sequence_id", record.SequenceID)
		return nil
	}

	slog.InfoContext(ctx, "Saving hits to Algolia",
		"sequence_id", record.SequenceID,
		"run_id", record.RunID,
		"hits", len(rows),
		"index", h.indexName,
	)
	return h.hits.SaveHits(ctx, h.indexName, blastx.NewHitDocuments(record.SequenceID, rows))
}
