package api

import (
	"context"
	"net/http"

	"communityhub/model"
)

func (c *Client) AdminStats(ctx context.Context) (model.AdminStats, error) {
	var stats model.AdminStats
	err := c.do(ctx, http.MethodGet, "/admin/stats", nil, &stats)
	return stats, err
}

func (c *Client) AdminUsers(ctx context.Context) ([]model.AdminUser, error) {
	var users []model.AdminUser
	err := c.do(ctx, http.MethodGet, "/admin/users", nil, &users)
	return users, err
}

func (c *Client) SetUserStatus(ctx context.Context, userID string, status model.UserStatus) error {
	body := map[string]model.UserStatus{"status": status}
	return c.do(ctx, http.MethodPatch, "/admin/users/"+escape(userID)+"/status", body, nil)
}
