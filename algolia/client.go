// Package algolia indexes extracted hits in Algolia and queries them back.
package algolia

import (
	"context"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/letmevibethatforyou/blastx"
)

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// WriteApiKey is the Algolia write API key.
	WriteApiKey string `json:"write_api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
// It allows for different secret retrieval strategies (static, environment variables, etc.).
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, writeApiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:       appID,
			WriteApiKey: writeApiKey,
		}, nil
	}
}

// EnvSecrets reads ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, errors.New("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:       appID,
			WriteApiKey: apiKey,
		}, nil
	}
}

// index is the part of an Algolia index the client uses.
type index interface {
	saveObjects(objects []map[string]interface{}) error
	deleteObjects(objectIDs []string) error
	search(query string, params ...interface{}) (search.QueryRes, error)
}

type algoliaIndex struct {
	index *search.Index
}

func (a algoliaIndex) saveObjects(objects []map[string]interface{}) error {
	_, err := a.index.SaveObjects(objects)
	return err
}

func (a algoliaIndex) deleteObjects(objectIDs []string) error {
	_, err := a.index.DeleteObjects(objectIDs)
	return err
}

func (a algoliaIndex) search(query string, params ...interface{}) (search.QueryRes, error) {
	return a.index.Search(query, params...)
}

// Client is a lazily connected Algolia client. Credentials are fetched on
// first use.
type Client struct {
	getClient func() (*search.Client, error)
	openIndex func(name string) (index, error)
	tracer    trace.Tracer
}

// NewClient creates a client that fetches its credentials with fetchSecrets.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.WriteApiKey == "" {
			return nil, errors.New("WriteApiKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.WriteApiKey), nil
	})

	c := &Client{
		getClient: getClient,
		tracer:    otel.Tracer("blastx-algolia"),
	}
	c.openIndex = func(name string) (index, error) {
		client, err := c.getClient()
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "failed to get Algolia client"), blastx.ErrBackendUnavailable)
		}
		return algoliaIndex{index: client.InitIndex(name)}, nil
	}
	return c
}

func failSpan(span trace.Span, err error, msg string) {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)
}

// HitObject converts a hit document into an Algolia record.
func HitObject(doc blastx.HitDocument) map[string]interface{} {
	object := make(map[string]interface{}, len(doc.Fields)+1)
	for k, v := range doc.Fields {
		object[k] = v
	}
	object["objectID"] = doc.ID
	return object
}

// SaveHits replaces the records of docs in indexName.
func (c *Client) SaveHits(ctx context.Context, indexName string, docs []blastx.HitDocument) error {
	objects := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		objects = append(objects, HitObject(doc))
	}
	return c.BatchSaveObjects(ctx, indexName, objects)
}

// DeleteSequence removes every hit record a sequence can have. Hits are
// capped at blastx.HitCap per sequence, so the candidate object IDs are
// known without a lookup.
func (c *Client) DeleteSequence(ctx context.Context, indexName string, sequenceID string) error {
	ids := make([]string, 0, blastx.HitCap)
	for rank := 1; rank <= blastx.HitCap; rank++ {
		ids = append(ids, blastx.HitID(sequenceID, rank))
	}
	return c.BatchDeleteObjects(ctx, indexName, ids)
}

// BatchSaveObjects saves objects to indexName in one batch.
func (c *Client) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	if len(objects) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_save_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objects)),
		),
	)
	defer span.End()

	idx, err := c.openIndex(indexName)
	if err != nil {
		failSpan(span, err, "failed to get Algolia client")
		return err
	}

	if err := idx.saveObjects(objects); err != nil {
		err = errors.Mark(errors.Wrapf(err, "failed to batch save objects to Algolia index %s", indexName), blastx.ErrBackendUnavailable)
		failSpan(span, err, "batch save failed")
		return err
	}

	span.SetStatus(codes.Ok, "objects saved")
	return nil
}

// BatchDeleteObjects deletes objectIDs from indexName in one batch.
func (c *Client) BatchDeleteObjects(ctx context.Context, indexName string, objectIDs []string) error {
	if len(objectIDs) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_delete_objects",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(objectIDs)),
		),
	)
	defer span.End()

	idx, err := c.openIndex(indexName)
	if err != nil {
		failSpan(span, err, "failed to get Algolia client")
		return err
	}

	if err := idx.deleteObjects(objectIDs); err != nil {
		err = errors.Mark(errors.Wrapf(err, "failed to batch delete objects from Algolia index %s", indexName), blastx.ErrBackendUnavailable)
		failSpan(span, err, "batch delete failed")
		return err
	}

	span.SetStatus(codes.Ok, "objects deleted")
	return nil
}
