// Package search keeps a hashtag index of the posts the client has seen so
// hashtag feeds can be answered locally.
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"communityhub/content"
	"communityhub/model"

	"github.com/olivere/elastic/v7"
	"go.uber.org/zap"
)

const mappingsPosts = `
{
    "settings": {
        "number_of_shards": 1,
        "number_of_replicas": 0
    },
    "mappings": {
		"properties": {
			"id": {
				"type": "keyword"
			},
			"authorId": {
				"type": "keyword"
			},
			"hashtags": {
				"type": "keyword"
			},
			"content": {
				"type": "text"
			},
			"createdAt": {
				"type": "date"
			}
        }
    }
}`

type Config struct {
	URL      string `mapstructure:"url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Index    string `mapstructure:"index"`
}

func (c Config) Enabled() bool {
	return c.URL != ""
}

// Document is what gets indexed for a post.
type Document struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Hashtags  []string  `json:"hashtags"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func NewDocument(p model.Post) Document {
	tags := p.Hashtags
	if len(tags) == 0 {
		tags = content.Hashtags(p.Content)
	}
	normalised := make([]string, 0, len(tags))
	for _, t := range tags {
		normalised = append(normalised, strings.ToLower(t))
	}
	return Document{ID: p.ID, AuthorID: p.Author.ID, Hashtags: normalised, Content: p.Content, CreatedAt: p.CreatedAt}
}

type Index struct {
	es    *elastic.Client
	index string
	log   *zap.Logger
}

func New(cfg Config, log *zap.Logger) (*Index, error) {
	opts := []elastic.ClientOptionFunc{elastic.SetURL(cfg.URL), elastic.SetSniff(false)}
	if cfg.Username != "" {
		opts = append(opts, elastic.SetBasicAuth(cfg.Username, cfg.Password))
	}
	es, err := elastic.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("elastic client: %w", err)
	}
	index := cfg.Index
	if index == "" {
		index = "posts"
	}
	return &Index{es: es, index: index, log: log}, nil
}

func (i *Index) EnsureIndex(ctx context.Context) error {
	exists, err := i.es.IndexExists(i.index).Do(ctx)
	if err != nil {
		return fmt.Errorf("check index %s: %w", i.index, err)
	}
	if exists {
		return nil
	}
	if _, err := i.es.CreateIndex(i.index).BodyString(mappingsPosts).Do(ctx); err != nil {
		return fmt.Errorf("create index %s: %w", i.index, err)
	}
	i.log.Info("created search index", zap.String("index", i.index))
	return nil
}

func (i *Index) IndexPost(ctx context.Context, p model.Post) error {
	_, err := i.es.Index().Index(i.index).Id(p.ID).BodyJson(NewDocument(p)).Do(ctx)
	if err != nil {
		return fmt.Errorf("index post %s: %w", p.ID, err)
	}
	return nil
}

func (i *Index) DeletePost(ctx context.Context, id string) error {
	_, err := i.es.Delete().Index(i.index).Id(id).Do(ctx)
	if err != nil && !elastic.IsNotFound(err) {
		return fmt.Errorf("delete post %s: %w", id, err)
	}
	return nil
}

// SearchHashtag returns the ids of indexed posts tagged with tag, newest first.
func (i *Index) SearchHashtag(ctx context.Context, tag string, size int) ([]string, error) {
	if size <= 0 {
		size = 20
	}
	query := elastic.NewTermQuery("hashtags", strings.ToLower(strings.TrimPrefix(tag, "#")))
	res, err := i.es.Search().Index(i.index).Query(query).Sort("createdAt", false).Size(size).Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("search hashtag %s: %w", tag, err)
	}
	ids := make([]string, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc Document
		if err := json.Unmarshal(hit.Source, &doc); err != nil {
			i.log.Warn("skip malformed search hit", zap.String("id", hit.Id), zap.Error(err))
			continue
		}
		ids = append(ids, doc.ID)
	}
	return ids, nil
}
