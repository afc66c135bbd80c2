package httpserver

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/and161185/vidgraph/internal/errs"
	"go.uber.org/zap"
)

const maxUpload = 512 << 20

// uploads holds the local copies of a request's multipart files.
type uploads struct {
	paths []string
	log   *zap.Logger
}

// parseForm reads a multipart body, or a urlencoded one when no files are sent.
func parseForm(r *http.Request) error {
	err := r.ParseMultipartForm(32 << 20)
	if err == nil {
		return nil
	}
	if errors.Is(err, http.ErrNotMultipart) {
		if perr := r.ParseForm(); perr == nil {
			return nil
		}
	}
	return fmt.Errorf("form: %w", errs.ErrValidation)
}

// save copies form file field into dir and returns its path, or "" if the
// field is absent.
func (u *uploads) save(r *http.Request, dir, field string) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[field]) == 0 {
		return "", nil
	}
	fh := r.MultipartForm.File[field][0]
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("%s: %w", field, errs.ErrValidation)
	}
	defer src.Close()

	dst, err := os.CreateTemp(dir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", err
	}
	u.paths = append(u.paths, dst.Name())
	if _, err := io.Copy(dst, io.LimitReader(src, maxUpload)); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return dst.Name(), nil
}

// cleanup removes all saved files.
func (u *uploads) cleanup() {
	for _, p := range u.paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			u.log.Warn("remove upload", zap.String("path", p), zap.Error(err))
		}
	}
}

func (s *Server) newUploads() *uploads { return &uploads{log: s.log} }
