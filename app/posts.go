package app

import (
	"net/http"
	"strconv"
	"strings"

	"communityhub/api"
	"communityhub/cache"
	"communityhub/content"
	"communityhub/model"
	"communityhub/notify"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	q := api.FeedQuery{
		Cursor:  r.URL.Query().Get("cursor"),
		Hashtag: r.URL.Query().Get("hashtag"),
	}
	q.Saved, _ = strconv.ParseBool(r.URL.Query().Get("saved"))
	posts, next, err := s.engagement.Feed(r.Context(), q)
	if err != nil {
		s.fetchError(w, r, "Could not load feed", cache.FeedKey(), err)
		return
	}
	s.ok(w, next, posts)
}

func (s *Server) handleSearchHashtag(w http.ResponseWriter, r *http.Request) {
	if s.searcher == nil {
		writeJSON(w, http.StatusNotImplemented, model.Failure("server", "search", "search is not configured"))
		return
	}
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	ids, err := s.searcher.SearchHashtag(r.Context(), mux.Vars(r)["tag"], size)
	if err != nil {
		s.fail(w, err)
		return
	}
	posts := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.engagement.Post(r.Context(), id)
		if api.IsStatus(err, http.StatusNotFound) {
			// deleted upstream since it was indexed
			if err := s.searcher.DeletePost(r.Context(), id); err != nil {
				s.log.Warn("drop stale search hit", zap.String("post", id), zap.Error(err))
			}
			continue
		}
		if err != nil {
			s.log.Warn("load search hit", zap.String("post", id), zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	s.ok(w, "", posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var np model.NewPost
	if err := decodeBody(r, &np); err != nil {
		s.fail(w, err)
		return
	}
	p, err := s.engagement.CreatePost(r.Context(), np)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, p.ID, p)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.engagement.Post(r.Context(), id)
	if err != nil {
		s.fetchError(w, r, "Could not load post", cache.PostKey(id), err)
		return
	}
	s.ok(w, id, p)
}

func (s *Server) handleToggleLike(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.engagement.ToggleLike(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, id, p)
}

func (s *Server) handleToggleSave(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := s.engagement.ToggleSave(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, id, p)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	comments, err := s.engagement.Comments(r.Context(), id)
	if err != nil {
		s.fetchError(w, r, "Could not load comments", cache.CommentsKey(id), err)
		return
	}
	s.ok(w, id, comments)
}

func (s *Server) handleAddComment(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body struct {
		Content string `json:"content"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	comment, err := s.engagement.AddComment(r.Context(), id, body.Content)
	if err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, comment.ID, comment)
}

func (s *Server) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.engagement.DeleteComment(r.Context(), vars["id"], vars["commentID"]); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, vars["commentID"], nil)
}

func (s *Server) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		writeJSON(w, http.StatusNotImplemented, model.Failure("server", "minio", "media storage is not configured"))
		return
	}
	if err := r.ParseMultipartForm(maxBodySize); err != nil {
		writeJSON(w, http.StatusBadRequest, model.Failure("client", "file", "bad multipart form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, model.Failure("client", "file", "file is required"))
		return
	}
	defer file.Close()

	url, err := s.uploader.Upload(r.Context(), header.Filename, file, r.FormValue("hash"))
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, model.Failure("client", "file", err.Error()))
		return
	}
	s.ok(w, "", map[string]string{"url": url})
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if err := decodeBody(r, &body); err != nil {
		s.fail(w, err)
		return
	}
	segments := content.Parse(body.Text)
	if segments == nil {
		segments = []content.Segment{}
	}
	s.ok(w, "", segments)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items := s.recorder.Drain()
	if items == nil {
		items = []notify.Notification{}
	}
	s.ok(w, "", items)
}

// handleEvict drops cached views under ?prefix=a:b when the front-end
// unmounts them. An empty prefix clears everything.
func (s *Server) handleEvict(w http.ResponseWriter, r *http.Request) {
	var prefix cache.Key
	if p := r.URL.Query().Get("prefix"); p != "" {
		prefix = cache.Key(strings.Split(p, ":"))
	}
	if err := s.cache.Remove(prefix); err != nil {
		s.fail(w, err)
		return
	}
	s.ok(w, prefix.String(), nil)
}
