package engagement

import (
	"context"

	"communityhub/cache"
	"communityhub/model"
	"communityhub/validators"

	"github.com/google/uuid"
)

func (s *Service) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	return cache.Fetch(ctx, s.cache, cache.CommentsKey(postID), func(ctx context.Context) ([]model.Comment, error) {
		return s.api.Comments(ctx, postID)
	})
}

// AddComment shows a pending comment right away and swaps it for the
// server's copy once the API accepts it.
func (s *Service) AddComment(ctx context.Context, postID, text string) (model.Comment, error) {
	if err := validators.ValidateComment(text); err != nil {
		return model.Comment{}, err
	}
	pending := model.NewPendingComment("tmp-"+uuid.NewString(), postID, s.currentViewer(), text)

	commentsKey := cache.CommentsKey(postID)
	return cache.Mutate(ctx, s.cache, cache.Mutation[model.Comment]{
		Patches: []cache.Patch{
			cache.Edit(commentsKey,
				func(cs []model.Comment) []model.Comment {
					return append(cs, pending)
				},
				func(cs []model.Comment, created model.Comment) []model.Comment {
					for i := range cs {
						if cs[i].ID == pending.ID {
							cs[i] = created
							return cs
						}
					}
					return append(cs, created)
				}),
			cache.Edit[model.Post, model.Comment](cache.PostKey(postID), func(p model.Post) model.Post {
				p.Comments++
				return p
			}, nil),
		},
		Request: func(ctx context.Context) (model.Comment, error) {
			return s.api.AddComment(ctx, postID, text)
		},
		OnRollback: s.rollback(ctx, "Could not add comment", commentsKey),
		Invalidate: []cache.Key{cache.FeedKey()},
	})
}

func (s *Service) DeleteComment(ctx context.Context, postID, commentID string) error {
	commentsKey := cache.CommentsKey(postID)
	_, err := cache.Mutate(ctx, s.cache, cache.Mutation[struct{}]{
		Patches: []cache.Patch{
			cache.Edit[[]model.Comment, struct{}](commentsKey, func(cs []model.Comment) []model.Comment {
				kept := cs[:0]
				for _, c := range cs {
					if c.ID != commentID {
						kept = append(kept, c)
					}
				}
				return kept
			}, nil),
			cache.Edit[model.Post, struct{}](cache.PostKey(postID), func(p model.Post) model.Post {
				if p.Comments > 0 {
					p.Comments--
				}
				return p
			}, nil),
		},
		Request: func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.DeleteComment(ctx, postID, commentID)
		},
		OnRollback: s.rollback(ctx, "Could not delete comment", commentsKey),
		Invalidate: []cache.Key{cache.FeedKey()},
	})
	return err
}
