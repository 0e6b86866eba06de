package opensearch

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// backend adapts the OpenSearch client to search.Backend.
type backend struct {
	client  *opensearch.Client
	refresh bool
}

func readResponse(res *opensearchapi.Response, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("request failed: %s", res.String())
	}
	return io.ReadAll(res.Body)
}

func (b *backend) Index(ctx context.Context, index, id string, body []byte) error {
	refresh := "false"
	if b.refresh {
		refresh = "true"
	}
	_, err := readResponse(b.client.Index(
		index,
		bytes.NewReader(body),
		b.client.Index.WithContext(ctx),
		b.client.Index.WithDocumentID(id),
		b.client.Index.WithRefresh(refresh),
	))
	return err
}

func (b *backend) Bulk(ctx context.Context, index string, body []byte) ([]byte, error) {
	opts := []func(*opensearchapi.BulkRequest){
		b.client.Bulk.WithContext(ctx),
		b.client.Bulk.WithIndex(index),
	}
	if b.refresh {
		opts = append(opts, b.client.Bulk.WithRefresh("true"))
	}
	return readResponse(b.client.Bulk(bytes.NewReader(body), opts...))
}

func (b *backend) Search(ctx context.Context, index string, body []byte) ([]byte, error) {
	return readResponse(b.client.Search(
		b.client.Search.WithContext(ctx),
		b.client.Search.WithIndex(index),
		b.client.Search.WithBody(bytes.NewReader(body)),
	))
}

func (b *backend) Count(ctx context.Context, index string, body []byte) ([]byte, error) {
	return readResponse(b.client.Count(
		b.client.Count.WithContext(ctx),
		b.client.Count.WithIndex(index),
		b.client.Count.WithBody(bytes.NewReader(body)),
	))
}

func (b *backend) DeleteByQuery(ctx context.Context, index string, body []byte) error {
	_, err := readResponse(b.client.DeleteByQuery(
		[]string{index},
		bytes.NewReader(body),
		b.client.DeleteByQuery.WithContext(ctx),
		b.client.DeleteByQuery.WithRefresh(b.refresh),
	))
	return err
}

func (b *backend) UpdateByQuery(ctx context.Context, index string, body []byte) error {
	_, err := readResponse(b.client.UpdateByQuery(
		[]string{index},
		b.client.UpdateByQuery.WithContext(ctx),
		b.client.UpdateByQuery.WithBody(bytes.NewReader(body)),
		b.client.UpdateByQuery.WithRefresh(b.refresh),
	))
	return err
}
