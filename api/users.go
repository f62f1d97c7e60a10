package api

import (
	"context"
	"net/http"

	"communityhub/model"
)

func (c *Client) Profile(ctx context.Context, userID string) (model.Profile, error) {
	var profile model.Profile
	err := c.do(ctx, http.MethodGet, "/users/"+escape(userID), nil, &profile)
	return profile, err
}

func (c *Client) Follow(ctx context.Context, userID string) (*model.FollowResult, error) {
	var res model.FollowResult
	return optional(&res, c.do(ctx, http.MethodPost, "/users/"+escape(userID)+"/follow", nil, &res))
}

func (c *Client) Unfollow(ctx context.Context, userID string) (*model.FollowResult, error) {
	var res model.FollowResult
	return optional(&res, c.do(ctx, http.MethodDelete, "/users/"+escape(userID)+"/follow", nil, &res))
}

func (c *Client) Followers(ctx context.Context, userID string) ([]model.Profile, error) {
	var followers []model.Profile
	err := c.do(ctx, http.MethodGet, "/users/"+escape(userID)+"/followers", nil, &followers)
	return followers, err
}
