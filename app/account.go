package app

import (
	"context"
	"net/http"

	"communityhub/cache"
	"communityhub/model"
	"communityhub/notify"
	"communityhub/validators"

	"github.com/gorilla/mux"
)

func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	var req model.OTPRequest
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := validators.ValidateOTPRequest(req); err != nil {
		s.fail(w, err)
		return
	}
	if err := s.api.SendOTP(r.Context(), req); err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Could not send code", "", err))
		s.fail(w, err)
		return
	}
	s.ok(w, "", nil)
}

// handleVerifyOTP signs the gateway in; later requests use the new token and
// pending comments carry the signed-in author.
func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req model.OTPVerify
	if err := decodeBody(r, &req); err != nil {
		s.fail(w, err)
		return
	}
	if err := validators.ValidateOTPVerify(req); err != nil {
		s.fail(w, err)
		return
	}
	session, err := s.api.VerifyOTP(r.Context(), req)
	if err != nil {
		s.notifier.Notify(r.Context(), notify.Error("Sign in failed", "", err))
		s.fail(w, err)
		return
	}
	s.engagement.SetViewer(session.User.Author())
	// cached views were built for the previous viewer
	if err := s.cache.Remove(cache.Key{}); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, session.User.ID, session.User)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.api.Logout(r.Context()); err != nil {
		s.fail(w, err)
		return
	}
	s.engagement.SetViewer(model.Author{})
	if err := s.cache.Remove(cache.Key{}); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, "", nil)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, err := s.engagement.Profile(r.Context(), id)
	if err != nil {
		s.fetchError(w, r, "Could not load profile", cache.ProfileKey(id), err)
		return
	}
	s.ok(w, id, profile)
}

func (s *Server) handleToggleFollow(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	profile, err := s.engagement.ToggleFollow(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, id, profile)
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	followers, err := s.engagement.Followers(r.Context(), id)
	if err != nil {
		s.fetchError(w, r, "Could not load followers", cache.FollowersKey(id), err)
		return
	}
	s.ok(w, id, followers)
}

func (s *Server) handleAdminStats(w http.ResponseWriter, r *http.Request) {
	stats, err := cache.Fetch(r.Context(), s.cache, cache.AdminKey("stats"), s.api.AdminStats)
	if err != nil {
		s.fetchError(w, r, "Could not load dashboard", cache.AdminKey("stats"), err)
		return
	}
	s.ok(w, "", stats)
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	users, err := cache.Fetch(r.Context(), s.cache, cache.AdminKey("users"), s.api.AdminUsers)
	if err != nil {
		s.fetchError(w, r, "Could not load users", cache.AdminKey("users"), err)
		return
	}
	s.ok(w, "", users)
}

// handleSetUserStatus patches the cached admin user list optimistically.
func (s *Server) handleSetUserStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Status model.UserStatus `json:"status"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	switch body.Status {
	case model.UserActive, model.UserSuspended, model.UserBanned:
	default:
		s.fail(w, validators.ValidationErrors{{Field: "status", Message: "unknown status"}})
		return
	}

	key := cache.AdminKey("users")
	_, err := cache.PerformOptimisticMutation(r.Context(), s.cache, key,
		func(users []model.AdminUser) []model.AdminUser {
			for i := range users {
				if users[i].ID == id {
					users[i].Status = body.Status
				}
			}
			return users
		},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.api.SetUserStatus(ctx, id, body.Status)
		},
		nil,
		func(err error) {
			s.notifier.Notify(r.Context(), notify.Error("Could not update user", key.String(), err))
		},
		cache.AdminKey("stats"),
	)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, id, nil)
}
