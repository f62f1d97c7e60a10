package api

import (
	"context"
	"net/http"
	"net/url"

	"communityhub/model"
)

type FeedQuery struct {
	Cursor  string
	Hashtag string
	// Saved restricts the feed to the viewer's bookmarks.
	Saved bool
}

func (q FeedQuery) encode() string {
	v := url.Values{}
	if q.Cursor != "" {
		v.Set("cursor", q.Cursor)
	}
	if q.Hashtag != "" {
		v.Set("hashtag", q.Hashtag)
	}
	if q.Saved {
		v.Set("saved", "true")
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

func (c *Client) Feed(ctx context.Context, q FeedQuery) (model.FeedResponse, error) {
	var feed model.FeedResponse
	err := c.do(ctx, http.MethodGet, "/posts/feed"+q.encode(), nil, &feed)
	return feed, err
}

func (c *Client) Post(ctx context.Context, id string) (model.Post, error) {
	var post model.Post
	err := c.do(ctx, http.MethodGet, "/posts/"+escape(id), nil, &post)
	return post, err
}

func (c *Client) CreatePost(ctx context.Context, p model.NewPost) (model.Post, error) {
	var post model.Post
	err := c.do(ctx, http.MethodPost, "/posts", p, &post)
	return post, err
}

func (c *Client) LikePost(ctx context.Context, id string) (*model.LikeResult, error) {
	var res model.LikeResult
	return optional(&res, c.do(ctx, http.MethodPost, "/posts/"+escape(id)+"/like", nil, &res))
}

func (c *Client) UnlikePost(ctx context.Context, id string) (*model.LikeResult, error) {
	var res model.LikeResult
	return optional(&res, c.do(ctx, http.MethodDelete, "/posts/"+escape(id)+"/like", nil, &res))
}

func (c *Client) SavePost(ctx context.Context, id string) (*model.SaveResult, error) {
	var res model.SaveResult
	return optional(&res, c.do(ctx, http.MethodPost, "/posts/"+escape(id)+"/save", nil, &res))
}

func (c *Client) UnsavePost(ctx context.Context, id string) (*model.SaveResult, error) {
	var res model.SaveResult
	return optional(&res, c.do(ctx, http.MethodDelete, "/posts/"+escape(id)+"/save", nil, &res))
}

func (c *Client) Comments(ctx context.Context, postID string) ([]model.Comment, error) {
	var comments []model.Comment
	err := c.do(ctx, http.MethodGet, "/posts/"+escape(postID)+"/comments", nil, &comments)
	return comments, err
}

func (c *Client) AddComment(ctx context.Context, postID, content string) (model.Comment, error) {
	var comment model.Comment
	body := map[string]string{"content": content}
	err := c.do(ctx, http.MethodPost, "/posts/"+escape(postID)+"/comments", body, &comment)
	return comment, err
}

func (c *Client) DeleteComment(ctx context.Context, postID, commentID string) error {
	return c.do(ctx, http.MethodDelete, "/posts/"+escape(postID)+"/comments/"+escape(commentID), nil, nil)
}
