package server

import (
	"net/http"

	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/ibeckermayer/x2notion/internal/types"
)

type pageRequest struct {
	URL string `json:"url"`
}

type submitPostRequest struct {
	Post        *types.ExtractedPost `json:"post"`
	Credentials *types.Credentials   `json:"credentials,omitempty"`
}

type submitThreadRequest struct {
	app.ThreadRequest
	Credentials *types.Credentials `json:"credentials,omitempty"`
}

type saveRequest struct {
	URL    string `json:"url"`
	Thread bool   `json:"thread"`
	app.SaveOptions
}

func (s *Server) pageURL(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req pageRequest
	if !decode(w, r, &req) {
		return "", false
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return "", false
	}
	return req.URL, true
}

func (s *Server) credentials(c *types.Credentials) types.Credentials {
	if c == nil {
		return s.opts.Credentials
	}
	return *c
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	u, ok := s.pageURL(w, r)
	if !ok {
		return
	}
	tc, err := s.backend.ExtractContext(r.Context(), u)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (s *Server) handleThread(w http.ResponseWriter, r *http.Request) {
	u, ok := s.pageURL(w, r)
	if !ok {
		return
	}
	posts, err := s.backend.ExtractFullThread(r.Context(), u)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleComments(w http.ResponseWriter, r *http.Request) {
	u, ok := s.pageURL(w, r)
	if !ok {
		return
	}
	items, err := s.backend.ExtractComments(r.Context(), u)
	if err != nil {
		fail(w, r, err)
		return
	}
	if items == nil {
		items = []types.CommentItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSubmitPost(w http.ResponseWriter, r *http.Request) {
	var req submitPostRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.backend.SubmitPost(r.Context(), req.Post, s.credentials(req.Credentials))
	if err != nil {
		fail(w, r, err)
		return
	}
	logger(r).Info().Str("page", res.PageURL).Msg("post submitted")
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSubmitThread(w http.ResponseWriter, r *http.Request) {
	var req submitThreadRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.backend.SubmitThread(r.Context(), req.ThreadRequest, s.credentials(req.Credentials))
	if err != nil {
		fail(w, r, err)
		return
	}
	logger(r).Info().Str("page", res.PageURL).Int("posts", res.Posts).Msg("thread submitted")
	writeJSON(w, http.StatusCreated, res)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if !decode(w, r, &req) {
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	save := s.backend.SavePost
	if req.Thread {
		save = s.backend.SaveThread
	}
	res, err := save(r.Context(), req.URL, req.SaveOptions)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}
