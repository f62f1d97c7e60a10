package api

import (
	"context"
	"net/http"

	"communityhub/model"
)

func (c *Client) Listings(ctx context.Context) ([]model.Listing, error) {
	var listings []model.Listing
	err := c.do(ctx, http.MethodGet, "/listing", nil, &listings)
	return listings, err
}

func (c *Client) Listing(ctx context.Context, id string) (model.Listing, error) {
	var listing model.Listing
	err := c.do(ctx, http.MethodGet, "/listing/"+escape(id), nil, &listing)
	return listing, err
}

func (c *Client) CreateListing(ctx context.Context, l model.NewListing) (model.Listing, error) {
	var listing model.Listing
	err := c.do(ctx, http.MethodPost, "/listing", l, &listing)
	return listing, err
}

func (c *Client) DeleteListing(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/listing/"+escape(id), nil, nil)
}
