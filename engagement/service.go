// Package engagement implements the social interactions of the feed (likes,
// saves, follows, comments) as optimistic mutations over the query cache.
package engagement

import (
	"context"
	"errors"
	"sync"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/content"
	"communityhub/model"
	"communityhub/notify"

	"go.uber.org/zap"
)

// API is the part of the community API the service talks to.
type API interface {
	Feed(ctx context.Context, q api.FeedQuery) (model.FeedResponse, error)
	Post(ctx context.Context, id string) (model.Post, error)
	CreatePost(ctx context.Context, p model.NewPost) (model.Post, error)
	LikePost(ctx context.Context, id string) (*model.LikeResult, error)
	UnlikePost(ctx context.Context, id string) (*model.LikeResult, error)
	SavePost(ctx context.Context, id string) (*model.SaveResult, error)
	UnsavePost(ctx context.Context, id string) (*model.SaveResult, error)
	Comments(ctx context.Context, postID string) ([]model.Comment, error)
	AddComment(ctx context.Context, postID, content string) (model.Comment, error)
	DeleteComment(ctx context.Context, postID, commentID string) error
	Profile(ctx context.Context, userID string) (model.Profile, error)
	Follow(ctx context.Context, userID string) (*model.FollowResult, error)
	Unfollow(ctx context.Context, userID string) (*model.FollowResult, error)
	Followers(ctx context.Context, userID string) ([]model.Profile, error)
}

// Indexer receives every post the service fetches, e.g. a hashtag index.
type Indexer interface {
	IndexPost(ctx context.Context, post model.Post) error
}

type Service struct {
	cache    *cache.Client
	api      API
	notifier notify.Notifier
	indexer  Indexer
	log      *zap.Logger

	mu     sync.RWMutex
	viewer model.Author
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithIndexer(i Indexer) Option {
	return func(s *Service) { s.indexer = i }
}

func WithLogger(log *zap.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithViewer sets the signed-in user shown as author of pending comments.
func WithViewer(a model.Author) Option {
	return func(s *Service) { s.viewer = a }
}

func New(c *cache.Client, a API, opts ...Option) *Service {
	s := &Service{cache: c, api: a, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewLogNotifier(s.log)
	}
	return s
}

func (s *Service) SetViewer(a model.Author) {
	s.mu.Lock()
	s.viewer = a
	s.mu.Unlock()
}

func (s *Service) currentViewer() model.Author {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewer
}

func (s *Service) rollback(ctx context.Context, title string, key cache.Key) func(error) {
	return func(err error) {
		s.notifier.Notify(ctx, notify.Error(title, key.String(), err))
	}
}

// Post returns the post, fetching it if the cache has nothing fresh.
func (s *Service) Post(ctx context.Context, id string) (model.Post, error) {
	return cache.Fetch(ctx, s.cache, cache.PostKey(id), func(ctx context.Context) (model.Post, error) {
		p, err := s.api.Post(ctx, id)
		if err != nil {
			return p, err
		}
		return s.enrich(ctx, p), nil
	})
}

// cached returns the post from the cache, fetching it only when absent.
func (s *Service) cached(ctx context.Context, id string) (model.Post, error) {
	p, err := cache.Get[model.Post](s.cache, cache.PostKey(id))
	if errors.Is(err, cache.ErrNotFound) {
		return s.Post(ctx, id)
	}
	return p, err
}

func (s *Service) enrich(ctx context.Context, p model.Post) model.Post {
	if len(p.Hashtags) == 0 {
		p.Hashtags = content.Hashtags(p.Content)
	}
	if s.indexer != nil {
		if err := s.indexer.IndexPost(ctx, p); err != nil {
			s.log.Warn("index post", zap.String("post", p.ID), zap.Error(err))
		}
	}
	return p
}
