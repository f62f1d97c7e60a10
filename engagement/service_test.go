package engagement

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/model"
	"communityhub/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOffline = errors.New("offline")

// fakeAPI is an in-memory stand-in for the community API.
type fakeAPI struct {
	mu        sync.Mutex
	posts     map[string]model.Post
	comments  map[string][]model.Comment
	profiles  map[string]model.Profile
	fail      bool
	noBody    bool // mutations answer without echoing the new state
	gate      chan struct{} // when set, mutations wait for it
	calls     []string
	feedCalls int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		posts: map[string]model.Post{
			"p1": {ID: "p1", Content: "hello #gophers", Likes: 4, Comments: 1},
			"p2": {ID: "p2", Content: "second", Likes: 0, IsLiked: false},
		},
		comments: map[string][]model.Comment{
			"p1": {{ID: "c1", PostID: "p1", Content: "first!"}},
		},
		profiles: map[string]model.Profile{
			"u1": {ID: "u1", Username: "ana", Followers: 10},
		},
	}
}

func (f *fakeAPI) mutate(name string) error {
	f.mu.Lock()
	gate := f.gate
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errOffline
	}
	return nil
}

func (f *fakeAPI) Feed(_ context.Context, q api.FeedQuery) (model.FeedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedCalls++
	return model.FeedResponse{Posts: []model.Post{f.posts["p1"], f.posts["p2"]}}, nil
}

func (f *fakeAPI) Post(_ context.Context, id string) (model.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.posts[id]
	if !ok {
		return p, &api.Error{Status: 404, Message: "not found"}
	}
	return p, nil
}

func (f *fakeAPI) CreatePost(_ context.Context, np model.NewPost) (model.Post, error) {
	if err := f.mutate("create"); err != nil {
		return model.Post{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := model.Post{ID: "p3", Content: np.Content}
	f.posts[p.ID] = p
	return p, nil
}

func (f *fakeAPI) setLike(id string, liked bool) (*model.LikeResult, error) {
	if err := f.mutate("like"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.posts[id]
	if liked != p.IsLiked {
		p.IsLiked = liked
		if liked {
			p.Likes++
		} else {
			p.Likes--
		}
	}
	f.posts[id] = p
	if f.noBody {
		return nil, nil
	}
	return &model.LikeResult{Likes: p.Likes, IsLiked: p.IsLiked}, nil
}

func (f *fakeAPI) LikePost(_ context.Context, id string) (*model.LikeResult, error) {
	return f.setLike(id, true)
}

func (f *fakeAPI) UnlikePost(_ context.Context, id string) (*model.LikeResult, error) {
	return f.setLike(id, false)
}

func (f *fakeAPI) setSave(id string, saved bool) (*model.SaveResult, error) {
	if err := f.mutate("save"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.posts[id]
	if saved != p.IsSaved {
		p.IsSaved = saved
		if saved {
			p.Saves++
		} else {
			p.Saves--
		}
	}
	f.posts[id] = p
	if f.noBody {
		return nil, nil
	}
	return &model.SaveResult{Saves: p.Saves, IsSaved: p.IsSaved}, nil
}

func (f *fakeAPI) SavePost(_ context.Context, id string) (*model.SaveResult, error) {
	return f.setSave(id, true)
}

func (f *fakeAPI) UnsavePost(_ context.Context, id string) (*model.SaveResult, error) {
	return f.setSave(id, false)
}

func (f *fakeAPI) Comments(_ context.Context, postID string) ([]model.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Comment(nil), f.comments[postID]...), nil
}

func (f *fakeAPI) AddComment(_ context.Context, postID, text string) (model.Comment, error) {
	if err := f.mutate("comment"); err != nil {
		return model.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	c := model.Comment{ID: "c-new", PostID: postID, Content: text}
	f.comments[postID] = append(f.comments[postID], c)
	p := f.posts[postID]
	p.Comments++
	f.posts[postID] = p
	return c, nil
}

func (f *fakeAPI) DeleteComment(_ context.Context, postID, commentID string) error {
	return f.mutate("delete-comment")
}

func (f *fakeAPI) Profile(_ context.Context, userID string) (model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[userID], nil
}

func (f *fakeAPI) setFollow(userID string, follow bool) (*model.FollowResult, error) {
	if err := f.mutate("follow"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.profiles[userID]
	if follow != p.IsFollowing {
		p.IsFollowing = follow
		if follow {
			p.Followers++
		} else {
			p.Followers--
		}
	}
	f.profiles[userID] = p
	if f.noBody {
		return nil, nil
	}
	return &model.FollowResult{Followers: p.Followers, IsFollowing: p.IsFollowing}, nil
}

func (f *fakeAPI) Follow(_ context.Context, userID string) (*model.FollowResult, error) {
	return f.setFollow(userID, true)
}

func (f *fakeAPI) Unfollow(_ context.Context, userID string) (*model.FollowResult, error) {
	return f.setFollow(userID, false)
}

func (f *fakeAPI) Followers(_ context.Context, userID string) ([]model.Profile, error) {
	return nil, nil
}

type recordingIndexer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingIndexer) IndexPost(_ context.Context, p model.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, p.ID)
	return nil
}

func setupService(t *testing.T) (*Service, *fakeAPI, *notify.Recorder, *cache.Client) {
	t.Helper()
	fake := newFakeAPI()
	rec := notify.NewRecorder(10)
	c := cache.NewClient(cache.NewMemoryStore())
	s := New(c, fake, WithNotifier(rec), WithViewer(model.Author{ID: "me", Username: "me"}))
	return s, fake, rec, c
}

func TestFeed_NormalisesPosts(t *testing.T) {
	s, fake, _, c := setupService(t)
	idx := &recordingIndexer{}
	s.indexer = idx

	posts, _, err := s.Feed(context.Background(), api.FeedQuery{})
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, []string{"gophers"}, posts[0].Hashtags)
	assert.ElementsMatch(t, []string{"p1", "p2"}, idx.ids)

	cached, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, 4, cached.Likes)

	_, _, err = s.Feed(context.Background(), api.FeedQuery{})
	require.NoError(t, err)
	assert.Equal(t, 1, fake.feedCalls)
}

func TestToggleLike_OptimisticThenReconciled(t *testing.T) {
	s, fake, rec, c := setupService(t)
	ctx := context.Background()
	_, _, err := s.Feed(ctx, api.FeedQuery{})
	require.NoError(t, err)

	gate := make(chan struct{})
	fake.gate = gate
	done := make(chan error, 1)
	go func() {
		_, err := s.ToggleLike(ctx, "p1")
		done <- err
	}()

	require.Eventually(t, func() bool {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		return len(fake.calls) == 1
	}, time.Second, time.Millisecond)

	pending, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.True(t, pending.IsLiked)
	assert.Equal(t, 5, pending.Likes)

	close(gate)
	require.NoError(t, <-done)

	final, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.True(t, final.IsLiked)
	assert.Equal(t, 5, final.Likes)
	assert.Zero(t, rec.Len())
	assert.Equal(t, 2, fake.feedCalls, "feed is refetched after a successful like")
}

func TestToggleLike_RollbackOnFailure(t *testing.T) {
	s, fake, rec, c := setupService(t)
	ctx := context.Background()
	before, err := s.Post(ctx, "p1")
	require.NoError(t, err)

	fake.fail = true
	_, err = s.ToggleLike(ctx, "p1")
	assert.ErrorIs(t, err, errOffline)

	after, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, before, after)

	items := rec.Drain()
	require.Len(t, items, 1)
	assert.Equal(t, notify.LevelError, items[0].Level)
	assert.Equal(t, "Could not like post", items[0].Title)
	assert.Equal(t, "post:p1", items[0].Key)
}

func TestToggleLike_Unlike(t *testing.T) {
	s, fake, _, _ := setupService(t)
	ctx := context.Background()

	p, err := s.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.IsLiked)

	p, err = s.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.False(t, p.IsLiked)
	assert.Equal(t, 4, p.Likes)
	assert.Equal(t, []string{"like", "like"}, fake.calls)
}

func TestToggleLike_EmptyResponseKeepsPrediction(t *testing.T) {
	s, fake, rec, c := setupService(t)
	ctx := context.Background()
	_, err := s.Post(ctx, "p1")
	require.NoError(t, err)

	fake.noBody = true
	p, err := s.ToggleLike(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, p.IsLiked)
	assert.Equal(t, 5, p.Likes)

	profile, err := s.ToggleFollow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, profile.IsFollowing)
	assert.Equal(t, 11, profile.Followers)

	cached, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.True(t, cached.IsLiked)
	assert.Zero(t, rec.Len())
}

func TestSetViewer_ConcurrentWithComments(t *testing.T) {
	s, _, _, _ := setupService(t)
	ctx := context.Background()
	_, err := s.Comments(ctx, "p1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetViewer(model.Author{ID: "other", Username: "other"})
		}()
		go func() {
			defer wg.Done()
			_, err := s.AddComment(ctx, "p1", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, "other", s.currentViewer().ID)
}

func TestToggleSave(t *testing.T) {
	s, fake, rec, _ := setupService(t)
	ctx := context.Background()

	p, err := s.ToggleSave(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, p.IsSaved)
	assert.Equal(t, 1, p.Saves)

	fake.fail = true
	p, err = s.ToggleSave(ctx, "p2")
	require.Error(t, err)
	assert.True(t, p.IsSaved)
	assert.Equal(t, 1, rec.Len())
}

func TestAddComment_ReplacesPending(t *testing.T) {
	s, fake, _, c := setupService(t)
	ctx := context.Background()
	_, err := s.Post(ctx, "p1")
	require.NoError(t, err)
	_, err = s.Comments(ctx, "p1")
	require.NoError(t, err)

	gate := make(chan struct{})
	fake.gate = gate
	done := make(chan error, 1)
	go func() {
		_, err := s.AddComment(ctx, "p1", "nice")
		done <- err
	}()

	require.Eventually(t, func() bool {
		cs, err := cache.Get[[]model.Comment](c, cache.CommentsKey("p1"))
		return err == nil && len(cs) == 2
	}, time.Second, time.Millisecond)
	cs, err := cache.Get[[]model.Comment](c, cache.CommentsKey("p1"))
	require.NoError(t, err)
	assert.True(t, cs[1].Pending)
	assert.Equal(t, "me", cs[1].Author.ID)
	p, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, 2, p.Comments)

	close(gate)
	require.NoError(t, <-done)

	cs, err = cache.Get[[]model.Comment](c, cache.CommentsKey("p1"))
	require.NoError(t, err)
	require.Len(t, cs, 2)
	assert.Equal(t, "c-new", cs[1].ID)
	assert.False(t, cs[1].Pending)
}

func TestAddComment_Validation(t *testing.T) {
	s, fake, _, _ := setupService(t)

	_, err := s.AddComment(context.Background(), "p1", "  ")
	assert.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestDeleteComment_Rollback(t *testing.T) {
	s, fake, rec, c := setupService(t)
	ctx := context.Background()
	_, err := s.Post(ctx, "p1")
	require.NoError(t, err)
	_, err = s.Comments(ctx, "p1")
	require.NoError(t, err)

	fake.fail = true
	require.Error(t, s.DeleteComment(ctx, "p1", "c1"))

	cs, err := cache.Get[[]model.Comment](c, cache.CommentsKey("p1"))
	require.NoError(t, err)
	require.Len(t, cs, 1)
	p, err := cache.Get[model.Post](c, cache.PostKey("p1"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Comments)
	assert.Equal(t, 1, rec.Len())

	fake.fail = false
	require.NoError(t, s.DeleteComment(ctx, "p1", "c1"))
	cs, err = cache.Get[[]model.Comment](c, cache.CommentsKey("p1"))
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestToggleFollow(t *testing.T) {
	s, _, _, _ := setupService(t)
	ctx := context.Background()

	p, err := s.ToggleFollow(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, p.IsFollowing)
	assert.Equal(t, 11, p.Followers)

	p, err = s.ToggleFollow(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, p.IsFollowing)
	assert.Equal(t, 10, p.Followers)
}

func TestCreatePost(t *testing.T) {
	s, fake, _, c := setupService(t)
	ctx := context.Background()
	_, _, err := s.Feed(ctx, api.FeedQuery{})
	require.NoError(t, err)

	p, err := s.CreatePost(ctx, model.NewPost{Content: "new #post"})
	require.NoError(t, err)
	assert.Equal(t, []string{"post"}, p.Hashtags)

	cached, err := cache.Get[model.Post](c, cache.PostKey("p3"))
	require.NoError(t, err)
	assert.Equal(t, "new #post", cached.Content)
	assert.Equal(t, 2, fake.feedCalls)

	_, err = s.CreatePost(ctx, model.NewPost{})
	assert.Error(t, err)
}
