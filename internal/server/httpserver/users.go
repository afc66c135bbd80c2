package httpserver

import (
	"net"
	"net/http"

	"github.com/and161185/vidgraph/internal/service"
)

type registerForm struct {
	Handle   string `json:"handle" validate:"required,max=64"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName" validate:"required,max=128"`
	Password string `json:"password" validate:"required,min=6"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	f := registerForm{
		Handle:   r.FormValue("handle"),
		Email:    r.FormValue("email"),
		FullName: r.FormValue("fullName"),
		Password: r.FormValue("password"),
	}
	if err := s.check(&f); err != nil {
		s.respondError(w, r, err)
		return
	}
	up := s.newUploads()
	defer up.cleanup()
	avatar, err := up.save(r, s.UploadDir, "avatar")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	cover, err := up.save(r, s.UploadDir, "coverImage")
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	acc, err := s.Users.Register(r.Context(), service.RegisterInput{
		Handle: f.Handle, Email: f.Email, FullName: f.FullName, Password: f.Password,
		AvatarPath: avatar, CoverPath: cover,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, acc)
}

type loginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	tok, err := s.Users.Login(r.Context(), req.Login, req.Password, clientAddr(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tok)
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	tok, err := s.Users.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, tok)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Users.Logout(r.Context()); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.Users.ChangePassword(r.Context(), req.OldPassword, req.NewPassword); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, empty)
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	acc, err := s.Views.CurrentUser(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, acc)
}

type updateAccountRequest struct {
	FullName *string `json:"fullName" validate:"omitempty,min=1,max=128"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Handle   *string `json:"handle" validate:"omitempty,min=1,max=64"`
}

func (s *Server) updateAccount(w http.ResponseWriter, r *http.Request) {
	var req updateAccountRequest
	if err := s.decode(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	acc, err := s.Users.UpdateAccount(r.Context(), service.AccountPatch{
		FullName: req.FullName, Email: req.Email, Handle: req.Handle,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, acc)
}

func (s *Server) updateImage(field string, target service.ImageField) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseForm(r); err != nil {
			s.respondError(w, r, err)
			return
		}
		up := s.newUploads()
		defer up.cleanup()
		path, err := up.save(r, s.UploadDir, field)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		acc, err := s.Users.UpdateImage(r.Context(), target, path)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		s.respondJSON(w, http.StatusOK, acc)
	}
}

func (s *Server) channelProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.Views.ChannelProfile(r.Context(), chiParam(r, "handle"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, p)
}

func (s *Server) watchHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.Views.WatchHistory(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, h)
}

// clientAddr is the remote host without its port.
func clientAddr(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
