package cache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type post struct {
	ID      string `json:"id"`
	Likes   int    `json:"likes"`
	IsLiked bool   `json:"isLiked"`
}

type likeResult struct {
	Likes   int  `json:"likes"`
	IsLiked bool `json:"isLiked"`
}

func toggle(p post) post {
	p.IsLiked = !p.IsLiked
	if p.IsLiked {
		p.Likes++
	} else {
		p.Likes--
	}
	return p
}

func TestPerformOptimisticMutation_PatchesBeforeResponse(t *testing.T) {
	store := NewMemoryStore()
	c := NewClient(store)
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1", Likes: 4}))

	requested := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := PerformOptimisticMutation(context.Background(), c, PostKey("1"), toggle,
			func(context.Context) (likeResult, error) {
				close(requested)
				<-release
				return likeResult{Likes: 9, IsLiked: true}, nil
			},
			func(p post, r likeResult) post {
				p.Likes, p.IsLiked = r.Likes, r.IsLiked
				return p
			}, nil)
		done <- err
	}()

	<-requested
	pending, err := Get[post](c, PostKey("1"))
	require.NoError(t, err)
	assert.Equal(t, post{ID: "1", Likes: 5, IsLiked: true}, pending)

	close(release)
	require.NoError(t, <-done)

	final, err := Get[post](c, PostKey("1"))
	require.NoError(t, err)
	assert.Equal(t, post{ID: "1", Likes: 9, IsLiked: true}, final)
}

func TestPerformOptimisticMutation_RollsBackExactly(t *testing.T) {
	store := NewMemoryStore()
	c := NewClient(store)
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1", Likes: 4, IsLiked: true}))
	before, err := store.Get(PostKey("1").String())
	require.NoError(t, err)

	boom := errors.New("network down")
	var rolledBack error
	_, err = PerformOptimisticMutation(context.Background(), c, PostKey("1"), toggle,
		func(context.Context) (likeResult, error) {
			p, getErr := Get[post](c, PostKey("1"))
			require.NoError(t, getErr)
			assert.False(t, p.IsLiked)
			assert.Equal(t, 3, p.Likes)
			return likeResult{}, boom
		}, nil, func(err error) { rolledBack = err })

	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, rolledBack, boom)

	after, err := store.Get(PostKey("1").String())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMutate_SkipsUncachedKeys(t *testing.T) {
	c := NewClient(NewMemoryStore())

	res, err := Mutate(context.Background(), c, Mutation[likeResult]{
		Patches: []Patch{Edit[post, likeResult](PostKey("404"), toggle, nil)},
		Request: func(context.Context) (likeResult, error) {
			return likeResult{Likes: 1, IsLiked: true}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Likes)

	_, err = Get[post](c, PostKey("404"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMutate_MultiplePatchesAndInvalidate(t *testing.T) {
	c := NewClient(NewMemoryStore())
	ctx := context.Background()
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1"}))
	require.NoError(t, Set(c, CommentsKey("1"), []string{"a"}))

	feedFetches := 0
	_, err := Fetch(ctx, c, FeedKey(), func(context.Context) ([]string, error) {
		feedFetches++
		return []string{"1"}, nil
	})
	require.NoError(t, err)

	_, err = Mutate(ctx, c, Mutation[string]{
		Patches: []Patch{
			Edit[[]string, string](CommentsKey("1"), func(cs []string) []string { return append(cs, "tmp") },
				func(cs []string, id string) []string {
					cs[len(cs)-1] = id
					return cs
				}),
			Edit[post, string](PostKey("1"), func(p post) post { p.Likes++; return p }, nil),
		},
		Request:    func(context.Context) (string, error) { return "b", nil },
		Invalidate: []Key{FeedKey()},
	})
	require.NoError(t, err)

	comments, err := Get[[]string](c, CommentsKey("1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, comments)

	p, err := Get[post](c, PostKey("1"))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)
	assert.Equal(t, 2, feedFetches)
}

func TestMutate_SameKeyTwiceRollsBackToOriginal(t *testing.T) {
	store := NewMemoryStore()
	c := NewClient(store)
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1", Likes: 1}))
	before, err := store.Get(PostKey("1").String())
	require.NoError(t, err)

	_, err = Mutate(context.Background(), c, Mutation[likeResult]{
		Patches: []Patch{
			Edit[post, likeResult](PostKey("1"), toggle, nil),
			Edit[post, likeResult](PostKey("1"), toggle, nil),
		},
		Request: func(context.Context) (likeResult, error) { return likeResult{}, errors.New("nope") },
	})
	require.Error(t, err)

	after, err := store.Get(PostKey("1").String())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestMutate_RollbackSkipsRemovedKeys(t *testing.T) {
	c := NewClient(NewMemoryStore())
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1", Likes: 4}))
	require.NoError(t, Set(c, ProfileKey("u1"), post{ID: "u1"}))

	requested := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		_, err := Mutate(context.Background(), c, Mutation[likeResult]{
			Patches: []Patch{
				Edit[post, likeResult](PostKey("1"), toggle, nil),
				Edit[post, likeResult](ProfileKey("u1"), toggle, nil),
			},
			Request: func(context.Context) (likeResult, error) {
				close(requested)
				<-release
				return likeResult{}, errors.New("offline")
			},
		})
		done <- err
	}()

	<-requested
	require.NoError(t, c.Remove(PostKey("1")))
	close(release)
	assert.Error(t, <-done)

	_, err := Get[post](c, PostKey("1"))
	assert.ErrorIs(t, err, ErrNotFound, "evicted entry stays evicted")

	profile, err := Get[post](c, ProfileKey("u1"))
	require.NoError(t, err)
	assert.Equal(t, post{ID: "u1"}, profile, "other keys are still restored")
	assert.Empty(t, c.inflight)
}

func TestMutate_ReconcileSkipsRemovedKeys(t *testing.T) {
	c := NewClient(NewMemoryStore())
	require.NoError(t, Set(c, PostKey("1"), post{ID: "1", Likes: 4}))

	_, err := PerformOptimisticMutation(context.Background(), c, PostKey("1"), toggle,
		func(context.Context) (likeResult, error) {
			require.NoError(t, c.Remove(Key{}))
			return likeResult{Likes: 9, IsLiked: true}, nil
		},
		func(p post, r likeResult) post {
			p.Likes, p.IsLiked = r.Likes, r.IsLiked
			return p
		}, nil)
	require.NoError(t, err)

	_, err = Get[post](c, PostKey("1"))
	assert.ErrorIs(t, err, ErrNotFound)
}
