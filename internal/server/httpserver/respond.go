package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/and161185/vidgraph/internal/errs"
	"github.com/and161185/vidgraph/internal/listing"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// empty is the body of void mutations.
var empty = struct{}{}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// report json names in messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error("encode response", zap.Error(err))
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

// statusOf maps the error taxonomy onto HTTP codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, errs.ErrInvalidReference), errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, errs.ErrDependency), errors.Is(err, errs.ErrSearchUnavailable):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		msg = "internal"
	}
	s.respondJSON(w, code, errorBody{Error: msg, Code: code})
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("request body: %w", errs.ErrValidation)
	}
	return s.check(dst)
}

func (s *Server) check(dst any) error {
	if err := s.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			parts := make([]string, 0, len(ve))
			for _, fe := range ve {
				parts = append(parts, fe.Field()+" failed "+fe.Tag())
			}
			return fmt.Errorf("%s: %w", strings.Join(parts, "; "), errs.ErrValidation)
		}
		return fmt.Errorf("%v: %w", err, errs.ErrValidation)
	}
	return nil
}

// pathID parses a uuid route parameter.
func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.FromString(chi.URLParam(r, name))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%s: %w", name, errs.ErrInvalidReference)
	}
	return id, nil
}

// pageRequest reads page, limit, sortBy, sortType and query. Non-numeric
// values fall back to defaults.
func pageRequest(r *http.Request) listing.Request {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("limit"))
	return listing.Request{
		Page:     page,
		PageSize: size,
		SortBy:   q.Get("sortBy"),
		SortType: q.Get("sortType"),
		Query:    q.Get("query"),
	}
}

func chiParam(r *http.Request, name string) string { return chi.URLParam(r, name) }
