// Package elastic keeps an Elasticsearch index of videos and answers text
// queries against it. Failures surface as errs.ErrSearchUnavailable so
// listings degrade instead of failing.
package elastic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/model"
	"github.com/gofrs/uuid/v5"
	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

const mapping = `{
  "mappings": {
    "properties": {
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "owner_id":    {"type": "keyword"},
      "published":   {"type": "boolean"},
      "created_at":  {"type": "date"}
    }
  }
}`

// DefaultMaxCandidates caps the ids returned for one query.
const DefaultMaxCandidates = 1000

type document struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"created_at"`
}

// Index is a video search index.
type Index struct {
	client *elastic.Client
	index  string
	max    int
	log    *zap.Logger
}

// New connects to url without sniffing or background health checks.
func New(url, index string, log *zap.Logger) (*Index, error) {
	client, err := elastic.NewClient(
		elastic.SetURL(url),
		elastic.SetSniff(false),
		elastic.SetHealthcheck(false),
	)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Index{client: client, index: index, max: DefaultMaxCandidates, log: log}, nil
}

// EnsureIndex creates the index with its mapping when missing.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	exists, err := ix.client.IndexExists(ix.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("index exists %s: %w", ix.index, err)
	}
	if exists {
		return nil
	}
	if _, err := ix.client.CreateIndex(ix.index).BodyString(mapping).Do(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", ix.index, err)
	}
	ix.log.Info("search index created", zap.String("index", ix.index))
	return nil
}

// Put indexes or replaces v.
func (ix *Index) Put(ctx context.Context, v model.Video) error {
	doc := document{
		Title:       v.Title,
		Description: v.Description,
		OwnerID:     v.OwnerID.String(),
		Published:   v.Published,
		CreatedAt:   v.CreatedAt,
	}
	_, err := ix.client.Index().Index(ix.index).Id(v.ID.String()).BodyJson(doc).Do(ctx)
	if err != nil {
		return fmt.Errorf("index video %s: %w: %v", v.ID, errs.ErrSearchUnavailable, err)
	}
	return nil
}

// Remove drops a video from the index; a missing document is not an error.
func (ix *Index) Remove(ctx context.Context, id uuid.UUID) error {
	_, err := ix.client.Delete().Index(ix.index).Id(id.String()).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("unindex video %s: %w: %v", id, errs.ErrSearchUnavailable, err)
	}
	return nil
}

// TextSearch returns ids of videos whose fields contain every query term.
func (ix *Index) TextSearch(ctx context.Context, collection string, fields []string, query string) ([]uuid.UUID, error) {
	if collection != model.Videos {
		return nil, fmt.Errorf("search %s: %w: only videos are indexed", collection, errs.ErrSearchUnavailable)
	}
	q := elastic.NewMultiMatchQuery(query, fields...).Operator("and")
	res, err := ix.client.Search().
		Index(ix.index).
		Query(q).
		Size(ix.max).
		FetchSource(false).
		Do(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("search %s: %w: %v", ix.index, errs.ErrSearchUnavailable, err)
	}
	ids := make([]uuid.UUID, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		id, err := uuid.FromString(h.Id)
		if err != nil {
			ix.log.Warn("skipping foreign search hit", zap.String("id", h.Id))
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
