package engagement

import (
	"context"

	"communityhub/cache"
	"communityhub/model"
)

func (s *Service) Profile(ctx context.Context, userID string) (model.Profile, error) {
	return cache.Fetch(ctx, s.cache, cache.ProfileKey(userID), func(ctx context.Context) (model.Profile, error) {
		return s.api.Profile(ctx, userID)
	})
}

func (s *Service) Followers(ctx context.Context, userID string) ([]model.Profile, error) {
	return cache.Fetch(ctx, s.cache, cache.FollowersKey(userID), func(ctx context.Context) ([]model.Profile, error) {
		return s.api.Followers(ctx, userID)
	})
}

// ToggleFollow follows or unfollows the user depending on the cached profile.
func (s *Service) ToggleFollow(ctx context.Context, userID string) (model.Profile, error) {
	current, err := s.Profile(ctx, userID)
	if err != nil {
		return current, err
	}
	request := s.api.Follow
	title := "Could not follow user"
	if current.IsFollowing {
		request = s.api.Unfollow
		title = "Could not unfollow user"
	}

	key := cache.ProfileKey(userID)
	_, err = cache.PerformOptimisticMutation(ctx, s.cache, key,
		func(p model.Profile) model.Profile {
			p.IsFollowing = !p.IsFollowing
			if p.IsFollowing {
				p.Followers++
			} else if p.Followers > 0 {
				p.Followers--
			}
			return p
		},
		func(ctx context.Context) (*model.FollowResult, error) { return request(ctx, userID) },
		func(p model.Profile, r *model.FollowResult) model.Profile {
			if r == nil {
				return p
			}
			p.Followers, p.IsFollowing = r.Followers, r.IsFollowing
			return p
		},
		s.rollback(ctx, title, key),
		cache.FollowersKey(userID), cache.FeedKey(),
	)
	if err != nil {
		return current, err
	}
	return cache.Get[model.Profile](s.cache, key)
}
