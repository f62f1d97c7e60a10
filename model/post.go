// Package model holds the DTOs mirrored from the community API. The client
// never owns these records; it keeps transient copies in the query cache.
package model

import "time"

type Author struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FullName  string `json:"fullName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type Post struct {
	ID        string    `json:"id"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	MediaURLs []string  `json:"mediaUrls,omitempty"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Saves     int       `json:"saves"`
	IsLiked   bool      `json:"isLiked"`
	IsSaved   bool      `json:"isSaved"`
	Hashtags  []string  `json:"hashtags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type NewPost struct {
	Content   string   `json:"content"`
	MediaURLs []string `json:"mediaUrls,omitempty"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	// Pending is set on comments added optimistically and not yet confirmed.
	Pending bool `json:"pending,omitempty"`
}

// FeedPage is a normalised feed: posts are cached under their own keys and
// the page only keeps their ids.
type FeedPage struct {
	PostIDs    []string `json:"postIds"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// FeedResponse is the wire shape of GET /posts/feed.
type FeedResponse struct {
	Posts      []Post `json:"posts"`
	NextCursor string `json:"nextCursor,omitempty"`
}

type LikeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

type SaveResult struct {
	Saves   int  `json:"saves"`
	IsSaved bool `json:"isSaved"`
}

// NewPendingComment builds the placeholder shown while a comment is in flight.
func NewPendingComment(id, postID string, author Author, content string) Comment {
	now := time.Now().UTC()
	return Comment{
		ID:        id,
		PostID:    postID,
		Author:    author,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
		Pending:   true,
	}
}
