package engagement

import (
	"context"
	"errors"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/model"
	"communityhub/notify"
	"communityhub/validators"

	"go.uber.org/zap"
)

func feedKey(q api.FeedQuery) cache.Key {
	var scope []string
	if q.Saved {
		scope = append(scope, "saved")
	}
	if q.Hashtag != "" {
		scope = append(scope, "hashtag", q.Hashtag)
	}
	if q.Cursor != "" {
		scope = append(scope, "cursor", q.Cursor)
	}
	return cache.FeedKey(scope...)
}

// Feed returns one feed page. Posts are cached under their own keys so a
// mutation on a post shows up in every page that lists it.
func (s *Service) Feed(ctx context.Context, q api.FeedQuery) ([]model.Post, string, error) {
	page, err := cache.Fetch(ctx, s.cache, feedKey(q), func(ctx context.Context) (model.FeedPage, error) {
		resp, err := s.api.Feed(ctx, q)
		if err != nil {
			return model.FeedPage{}, err
		}
		page := model.FeedPage{NextCursor: resp.NextCursor, PostIDs: make([]string, 0, len(resp.Posts))}
		for _, p := range resp.Posts {
			if err := cache.Set(s.cache, cache.PostKey(p.ID), s.enrich(ctx, p)); err != nil {
				return page, err
			}
			page.PostIDs = append(page.PostIDs, p.ID)
		}
		return page, nil
	})
	if err != nil {
		return nil, "", err
	}

	posts := make([]model.Post, 0, len(page.PostIDs))
	for _, id := range page.PostIDs {
		p, err := cache.Get[model.Post](s.cache, cache.PostKey(id))
		if errors.Is(err, cache.ErrNotFound) {
			// evicted since the page was cached
			if p, err = s.Post(ctx, id); err != nil {
				s.log.Warn("feed post missing", zap.String("post", id), zap.Error(err))
				continue
			}
		} else if err != nil {
			return nil, "", err
		}
		posts = append(posts, p)
	}
	return posts, page.NextCursor, nil
}

func (s *Service) CreatePost(ctx context.Context, np model.NewPost) (model.Post, error) {
	if err := validators.ValidatePost(np); err != nil {
		return model.Post{}, err
	}
	p, err := s.api.CreatePost(ctx, np)
	if err != nil {
		s.notifier.Notify(ctx, notify.Error("Could not publish post", "", err))
		return p, err
	}
	p = s.enrich(ctx, p)
	if err := cache.Set(s.cache, cache.PostKey(p.ID), p); err != nil {
		s.log.Warn("cache new post", zap.Error(err))
	}
	if err := s.cache.Invalidate(ctx, cache.FeedKey()); err != nil {
		s.log.Error("invalidate feed", zap.Error(err))
	}
	return p, nil
}

// ToggleLike likes or unlikes the post depending on its cached state.
func (s *Service) ToggleLike(ctx context.Context, postID string) (model.Post, error) {
	current, err := s.cached(ctx, postID)
	if err != nil {
		return current, err
	}
	request := s.api.LikePost
	title := "Could not like post"
	if current.IsLiked {
		request = s.api.UnlikePost
		title = "Could not unlike post"
	}

	key := cache.PostKey(postID)
	_, err = cache.PerformOptimisticMutation(ctx, s.cache, key,
		func(p model.Post) model.Post {
			p.IsLiked = !p.IsLiked
			if p.IsLiked {
				p.Likes++
			} else if p.Likes > 0 {
				p.Likes--
			}
			return p
		},
		func(ctx context.Context) (*model.LikeResult, error) { return request(ctx, postID) },
		func(p model.Post, r *model.LikeResult) model.Post {
			if r == nil {
				return p
			}
			p.Likes, p.IsLiked = r.Likes, r.IsLiked
			return p
		},
		s.rollback(ctx, title, key),
		cache.FeedKey(),
	)
	if err != nil {
		return current, err
	}
	return cache.Get[model.Post](s.cache, key)
}

// ToggleSave bookmarks or un-bookmarks the post.
func (s *Service) ToggleSave(ctx context.Context, postID string) (model.Post, error) {
	current, err := s.cached(ctx, postID)
	if err != nil {
		return current, err
	}
	request := s.api.SavePost
	title := "Could not save post"
	if current.IsSaved {
		request = s.api.UnsavePost
		title = "Could not remove saved post"
	}

	key := cache.PostKey(postID)
	_, err = cache.PerformOptimisticMutation(ctx, s.cache, key,
		func(p model.Post) model.Post {
			p.IsSaved = !p.IsSaved
			if p.IsSaved {
				p.Saves++
			} else if p.Saves > 0 {
				p.Saves--
			}
			return p
		},
		func(ctx context.Context) (*model.SaveResult, error) { return request(ctx, postID) },
		func(p model.Post, r *model.SaveResult) model.Post {
			if r == nil {
				return p
			}
			p.Saves, p.IsSaved = r.Saves, r.IsSaved
			return p
		},
		s.rollback(ctx, title, key),
		cache.FeedKey("saved"),
	)
	if err != nil {
		return current, err
	}
	return cache.Get[model.Post](s.cache, key)
}
