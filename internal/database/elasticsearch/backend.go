package elasticsearch

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// backend adapts the Elasticsearch client to search.Backend.
type backend struct {
	client  *elasticsearch.Client
	refresh bool
}

func readResponse(res *esapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("error response from Elasticsearch: %s", res.String())
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}
	return body, nil
}

func (b *backend) refreshParam() string {
	if b.refresh {
		return "true"
	}
	return "false"
}

func (b *backend) Index(ctx context.Context, index, id string, body []byte) error {
	client := b.client
	_, err := readResponse(client.Index(
		index,
		bytes.NewReader(body),
		client.Index.WithContext(ctx),
		client.Index.WithDocumentID(id),
		client.Index.WithRefresh(b.refreshParam()),
	))
	return err
}

func (b *backend) Bulk(ctx context.Context, index string, body []byte) ([]byte, error) {
	client := b.client
	return readResponse(client.Bulk(
		bytes.NewReader(body),
		client.Bulk.WithContext(ctx),
		client.Bulk.WithIndex(index),
		client.Bulk.WithRefresh(b.refreshParam()),
	))
}

func (b *backend) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	client := b.client
	return readResponse(client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(index),
		client.Search.WithBody(bytes.NewReader(body)),
	))
}

func (b *backend) Count(ctx context.Context, index string, body []byte) ([]byte, error) {
	client := b.client
	return readResponse(client.Count(
		client.Count.WithContext(ctx),
		client.Count.WithIndex(index),
		client.Count.WithBody(bytes.NewReader(body)),
	))
}

func (b *backend) DeleteByQuery(ctx context.Context, index string, body []byte) error {
	client := b.client
	_, err := readResponse(client.DeleteByQuery(
		[]string{index},
		bytes.NewReader(body),
		client.DeleteByQuery.WithContext(ctx),
		client.DeleteByQuery.WithRefresh(b.refresh),
		client.DeleteByQuery.WithConflicts("proceed"),
	))
	return err
}

func (b *backend) UpdateByQuery(ctx context.Context, index string, body []byte) error {
	client := b.client
	_, err := readResponse(client.UpdateByQuery(
		[]string{index},
		client.UpdateByQuery.WithContext(ctx),
		client.UpdateByQuery.WithBody(bytes.NewReader(body)),
		client.UpdateByQuery.WithRefresh(b.refresh),
		client.UpdateByQuery.WithConflicts("proceed"),
	))
	return err
}
