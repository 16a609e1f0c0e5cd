// Package docsource abstracts where assignment documents come from: a local
// directory of extracted text files, or an object store holding the raw
// uploads.
package docsource

import "context"

// Source lists available document names and loads their text. A document
// name carries the document id as its base name, e.g. "7.txt".
type Source interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (string, error)
}
