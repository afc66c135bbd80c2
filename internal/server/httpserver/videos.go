package httpserver

import (
	"fmt"
	"net/http"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/service"
	"github.com/and161185/vidgraph/internal/view"
	"github.com/gofrs/uuid/v5"
)

func (s *Server) listVideos(w http.ResponseWriter, r *http.Request) {
	q := view.VideoQuery{Request: pageRequest(r)}
	if raw := r.URL.Query().Get("userId"); raw != "" {
		id, err := uuid.FromString(raw)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("userId: %w", errs.ErrInvalidReference))
			return
		}
		q.OwnerID = id
	}
	p, err := s.Views.Videos(r.Context(), q)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) watchVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	d, err := s.Videos.Watch(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

type publishForm struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func (s *Server) publishVideo(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload)
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	f := publishForm{Title: r.FormValue("title"), Description: r.FormValue("description")}
	if err := s.check(&f); err != nil {
		s.respondError(w, r, err)
		return
	}
	up := s.newUploads()
	defer up.cleanup()
	media, err := up.save(r, s.UploadDir, "videoFile")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	thumb, err := up.save(r, s.UploadDir, "thumbnail")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	v, err := s.Videos.Publish(r.Context(), service.PublishInput{
		Title: f.Title, Description: f.Description, MediaPath: media, ThumbnailPath: thumb,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, v)
}

func (s *Server) updateVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	var p service.VideoPatch
	if vs, ok := r.Form["title"]; ok && len(vs) > 0 {
		p.Title = &vs[0]
	}
	if vs, ok := r.Form["description"]; ok && len(vs) > 0 {
		p.Description = &vs[0]
	}
	up := s.newUploads()
	defer up.cleanup()
	if p.ThumbnailPath, err = up.save(r, s.UploadDir, "thumbnail"); err != nil {
		s.respondError(w, r, err)
		return
	}
	v, err := s.Videos.Update(r.Context(), id, p)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}

func (s *Server) deleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Videos.Delete(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

func (s *Server) togglePublish(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "videoId")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	v, err := s.Videos.TogglePublish(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, v)
}
