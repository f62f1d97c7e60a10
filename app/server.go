// Package app wires configuration and the local gateway that serves cached
// views and optimistic mutations to the front-end.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/engagement"
	"communityhub/model"
	"communityhub/notify"
	"communityhub/validators"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxBodySize = 25 << 20

// Uploader stores media and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, name string, r io.Reader, hash string) (string, error)
}

// Searcher finds indexed posts by hashtag.
type Searcher interface {
	SearchHashtag(ctx context.Context, tag string, size int) ([]string, error)
	DeletePost(ctx context.Context, id string) error
}

type Server struct {
	api        *api.Client
	cache      *cache.Client
	engagement *engagement.Service
	notifier   notify.Notifier
	recorder   *notify.Recorder
	uploader   Uploader
	searcher   Searcher
	log        *zap.Logger
}

type Deps struct {
	API        *api.Client
	Cache      *cache.Client
	Engagement *engagement.Service
	Notifier   notify.Notifier
	Recorder   *notify.Recorder
	Uploader   Uploader
	Searcher   Searcher
	Log        *zap.Logger
}

func NewServer(d Deps) *Server {
	s := &Server{
		api:        d.API,
		cache:      d.Cache,
		engagement: d.Engagement,
		notifier:   d.Notifier,
		recorder:   d.Recorder,
		uploader:   d.Uploader,
		searcher:   d.Searcher,
		log:        d.Log,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.recorder == nil {
		s.recorder = notify.NewRecorder(0)
	}
	if s.notifier == nil {
		s.notifier = s.recorder
	}
	return s
}

func (s *Server) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	router.Use(s.logRequests)

	router.HandleFunc("/feeds", s.handleFeed).Methods(http.MethodGet)
	router.HandleFunc("/search/hashtag/{tag}", s.handleSearchHashtag).Methods(http.MethodGet)
	router.HandleFunc("/posts", s.handleCreatePost).Methods(http.MethodPost)
	router.HandleFunc("/posts/{id}", s.handlePost).Methods(http.MethodGet)
	router.HandleFunc("/posts/{id}/like", s.handleToggleLike).Methods(http.MethodPost)
	router.HandleFunc("/posts/{id}/save", s.handleToggleSave).Methods(http.MethodPost)
	router.HandleFunc("/posts/{id}/comments", s.handleComments).Methods(http.MethodGet)
	router.HandleFunc("/posts/{id}/comments", s.handleAddComment).Methods(http.MethodPost)
	router.HandleFunc("/posts/{id}/comments/{commentID}", s.handleDeleteComment).Methods(http.MethodDelete)
	router.HandleFunc("/media", s.handleUploadMedia).Methods(http.MethodPost)

	router.HandleFunc("/users/{id}", s.handleProfile).Methods(http.MethodGet)
	router.HandleFunc("/users/{id}/follow", s.handleToggleFollow).Methods(http.MethodPost)
	router.HandleFunc("/users/{id}/followers", s.handleFollowers).Methods(http.MethodGet)
	router.HandleFunc("/auth/send-otp", s.handleSendOTP).Methods(http.MethodPost)
	router.HandleFunc("/auth/verify-otp", s.handleVerifyOTP).Methods(http.MethodPost)
	router.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	router.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
	router.HandleFunc("/events", s.handleCreateEvent).Methods(http.MethodPost)
	router.HandleFunc("/events/{id}", s.handleEvent).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}/export-csv", s.handleExportCSV).Methods(http.MethodGet)
	router.HandleFunc("/listing", s.handleListings).Methods(http.MethodGet)
	router.HandleFunc("/listing", s.handleCreateListing).Methods(http.MethodPost)
	router.HandleFunc("/listing/{id}", s.handleListing).Methods(http.MethodGet)
	router.HandleFunc("/listing/{id}", s.handleDeleteListing).Methods(http.MethodDelete)
	router.HandleFunc("/payments/create-intent", s.handleCreatePaymentIntent).Methods(http.MethodPost)
	router.HandleFunc("/payments/confirm", s.handleConfirmPayment).Methods(http.MethodPost)

	router.HandleFunc("/admin/stats", s.handleAdminStats).Methods(http.MethodGet)
	router.HandleFunc("/admin/users", s.handleAdminUsers).Methods(http.MethodGet)
	router.HandleFunc("/admin/users/{id}/status", s.handleSetUserStatus).Methods(http.MethodPatch)

	router.HandleFunc("/content/segments", s.handleSegments).Methods(http.MethodPost)
	router.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)
	router.HandleFunc("/cache", s.handleEvict).Methods(http.MethodDelete)
	return router
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, resp model.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) ok(w http.ResponseWriter, id string, data interface{}) {
	writeJSON(w, http.StatusOK, model.Success(id, data))
}

// fail renders err in the response envelope: validation errors per field,
// API errors with the upstream status, anything else as a server error.
func (s *Server) fail(w http.ResponseWriter, err error) {
	var verrs validators.ValidationErrors
	var apiErr *api.Error
	switch {
	case errors.As(err, &verrs):
		resp := model.Response{}
		for _, fe := range verrs {
			resp.Errors = append(resp.Errors, model.Errors{Side: "client", Tag: fe.Field, Message: fe.Message})
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
	case errors.As(err, &apiErr):
		status := apiErr.Status
		if status < 400 {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, model.Failure("server", "api", apiErr.Message))
	case errors.Is(err, cache.ErrNotFound):
		writeJSON(w, http.StatusNotFound, model.Failure("client", "cache", err.Error()))
	default:
		s.log.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, model.Failure("server", "internal", err.Error()))
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		return validators.ValidationErrors{{Field: "body", Message: "malformed JSON: " + err.Error()}}
	}
	return nil
}

// fetchError reports a failed read to the user and renders it.
func (s *Server) fetchError(w http.ResponseWriter, r *http.Request, title string, key cache.Key, err error) {
	s.notifier.Notify(r.Context(), notify.Error(title, key.String(), err))
	s.fail(w, err)
}
