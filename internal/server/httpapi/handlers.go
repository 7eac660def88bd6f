package httpapi

import (
	"bytes"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/camvault/internal/capture"
	"github.com/dmitrijs2005/camvault/internal/common"
	"github.com/dmitrijs2005/camvault/internal/server/models"
)

type credentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Message string `json:"message,omitempty"`
	Role    string `json:"role"`
	Token   string `json:"token"`
}

type imagesResponse struct {
	Images      []string `json:"images"`
	Page        int      `json:"page"`
	TotalImages int      `json:"total_images"`
}

type changeRoleRequest struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type deleteUserRequest struct {
	ID int64 `json:"id"`
}

type userResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type healthResponse struct {
	Status  string         `json:"status"`
	Users   int            `json:"users"`
	Capture *capture.Stats `json:"capture,omitempty"`
}

func (s *HTTPServer) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Register(r.Context(), req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Message: "User registered",
		Role:    sess.Role.String(),
		Token:   sess.Token,
	})
}

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := parseBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	sess, err := s.users.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sessionResponse{Role: sess.Role.String(), Token: sess.Token})
}

func (s *HTTPServer) listImages(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, common.ErrInvalidPage)
			return
		}
		page = n
	}

	res, err := s.media.ListFrames(r.Context(), page)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, imagesResponse{Images: res.Frames, Page: res.Page, TotalImages: res.Total})
}

func (s *HTTPServer) image(w http.ResponseWriter, r *http.Request) {
	frame, err := s.media.FetchFrame(r.Context(), r.PathValue("filename"))
	if err != nil {
		// a malformed name is indistinguishable from a missing frame
		if statusFor(err) == http.StatusBadRequest {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		}
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	http.ServeContent(w, r, frame.Name, time.Time{}, bytes.NewReader(frame.Data))
}

func (s *HTTPServer) live(w http.ResponseWriter, r *http.Request) {
	frame, err := s.media.FetchLive(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Content-Type", "image/jpeg")
	h.Set("Content-Length", strconv.Itoa(len(frame.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(frame.Data)
}

func (s *HTTPServer) liveMeta(w http.ResponseWriter, r *http.Request) {
	name, err := s.media.LiveName(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, map[string]string{"filename": name})
}

func (s *HTTPServer) changeRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := IdentityFrom(r.Context())

	var req changeRoleRequest
	if err := parseBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		s.writeError(w, r, common.ErrInvalidRole)
		return
	}

	if err := s.users.ChangeRole(r.Context(), actor, req.ID, role); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Role updated"})
}

func (s *HTTPServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := IdentityFrom(r.Context())

	id, err := targetID(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.users.DeleteUser(r.Context(), actor, id); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (s *HTTPServer) listUsers(w http.ResponseWriter, r *http.Request) {
	actor, _ := IdentityFrom(r.Context())

	users, err := s.users.ListUsers(r.Context(), actor)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, Name: u.Name, Role: u.Role.String()})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.opts.CaptureStats != nil {
		st := s.opts.CaptureStats()
		resp.Capture = &st
	}

	n, err := s.users.CountUsers(r.Context())
	if err != nil {
		s.logger.Warn(r.Context(), "health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Users = n

	writeJSON(w, http.StatusOK, resp)
}

// targetID reads the user id from the query string, falling back to a
// JSON body.
func targetID(w http.ResponseWriter, r *http.Request) (int64, error) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, common.ErrInvalidBody
		}
		return id, nil
	}

	var req deleteUserRequest
	if err := parseBody(w, r, &req); err != nil {
		return 0, err
	}
	return req.ID, nil
}
