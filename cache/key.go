package cache

import "strings"

const keySep = ":"

// Key identifies a cached query, most general part first, e.g.
// {"post", "42"} or {"feed", "hashtag", "go"}.
type Key []string

func (k Key) String() string {
	return strings.Join(k, keySep)
}

// HasPrefix reports whether k equals prefix or lies below it. The empty key
// is a prefix of every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// matchesPrefix is HasPrefix over encoded keys.
func matchesPrefix(key, prefix string) bool {
	return prefix == "" || key == prefix || strings.HasPrefix(key, prefix+keySep)
}

func PostKey(id string) Key {
	return Key{"post", id}
}

func CommentsKey(postID string) Key {
	return Key{"comments", postID}
}

func ProfileKey(userID string) Key {
	return Key{"profile", userID}
}

func FollowersKey(userID string) Key {
	return Key{"followers", userID}
}

func EventKey(id string) Key {
	return Key{"event", id}
}

func EventsKey() Key {
	return Key{"events"}
}

func ListingKey(id string) Key {
	return Key{"listing", id}
}

func ListingsKey() Key {
	return Key{"listings"}
}

func AdminKey(parts ...string) Key {
	return append(Key{"admin"}, parts...)
}

// FeedKey is the key of a feed view; scope narrows it, e.g. ("hashtag", "go").
func FeedKey(scope ...string) Key {
	return append(Key{"feed"}, scope...)
}
