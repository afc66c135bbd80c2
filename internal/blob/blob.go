// Package blob defines the media blob-store collaborator. The core stores
// only the returned reference and, for media, its duration.
package blob

import "context"

// Kind selects how an upload is stored.
type Kind int

// Upload kinds.
const (
	Media Kind = iota // video; duration is probed
	Image             // thumbnail, avatar or cover image
)

// Object is a stored blob.
type Object struct {
	URL      string
	Duration float64 // seconds; zero for images
}

// Store uploads local files and deletes stored objects.
type Store interface {
	// Upload stores the file at localPath.
	Upload(ctx context.Context, localPath string, kind Kind) (Object, error)
	// Delete removes the object behind url and reports whether it was ours.
	Delete(ctx context.Context, url string) (bool, error)
}
