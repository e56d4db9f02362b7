package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/techhouse/storefront/internal/logging"
	"github.com/techhouse/storefront/internal/models"
	"github.com/techhouse/storefront/internal/repo"
)

// Indexer keeps the product index in step with the catalog by observing
// repository writes. Index failures are logged, never surfaced: search
// freshness is not worth failing an admin save over.
type Indexer struct {
	ES    *elasticsearch.Client
	Index string
}

func (i *Indexer) Notify(ctx context.Context, e repo.Event) {
	if i == nil || i.ES == nil || e.Entity != "Product" {
		return
	}

	l := logging.FromContext(ctx).With("svc", "search.indexer", "product_id", e.ID)

	switch e.Op {
	case repo.OpCreated, repo.OpUpdated:
		p, ok := e.Payload.(models.Product)
		if !ok {
			l.Error("index_skip", "reason", "unexpected payload type")
			return
		}
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(p); err != nil {
			l.Error("index_encode_failed", "error", err)
			return
		}
		res, err := i.ES.Index(i.Index, &buf,
			i.ES.Index.WithDocumentID(fmt.Sprint(e.ID)),
			i.ES.Index.WithContext(ctx),
		)
		if err != nil {
			l.Error("index_failed", "error", err)
			return
		}
		defer res.Body.Close()
		if res.IsError() {
			l.Error("index_failed", "status", res.Status())
		}
	case repo.OpDeleted:
		res, err := i.ES.Delete(i.Index, fmt.Sprint(e.ID),
			i.ES.Delete.WithContext(ctx),
		)
		if err != nil {
			l.Error("index_delete_failed", "error", err)
			return
		}
		defer res.Body.Close()
		if res.IsError() && res.StatusCode != 404 {
			l.Error("index_delete_failed", "status", res.Status())
		}
	}
}
