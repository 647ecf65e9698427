package storage

import "io"

// BlobStore holds homework attachments. Activity variants never upload
// files themselves; the submit flow only carries a reference returned here.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	SignedURL(key string) (string, error) // fs returns "file://..." for dev
}
