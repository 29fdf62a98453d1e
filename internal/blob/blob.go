// Package blob stores immutable question payloads by opaque ID.
//
// The store is the sole durable owner of questions: everything else in
// the backend (the cache, attempt records) keeps only the ID. Writes
// use fresh IDs, so no object is ever updated in place.
package blob

import (
	"context"
	"strings"

	"github.com/prepdeck/backend/internal/model"
)

const keyPrefix = "questions/"

// Store is the blob store contract consumed by the cache coordinator
// and the history read path.
type Store interface {
	// Put writes a question under the given ID. IDs must be fresh;
	// overwriting an existing ID is undefined behavior the caller
	// avoids by generating a new UUID per question.
	Put(ctx context.Context, id string, q model.Question) error

	// Get retrieves a question by exact ID. Returns a
	// *apperr.NotFoundError when the ID is absent.
	Get(ctx context.Context, id string) (model.Question, error)

	// GetMany fetches several questions, best-effort. Individual
	// failures are logged and the corresponding questions omitted;
	// the call itself only fails on a nil context or similar misuse.
	GetMany(ctx context.Context, ids []string) ([]model.Question, error)

	// List enumerates stored question IDs whose key matches the given
	// prefix. Administrative use only, not on the request path.
	List(ctx context.Context, prefix string) ([]string, error)
}

// objectKey maps a question ID to its stable object key.
func objectKey(id string) string {
	return keyPrefix + id + ".json"
}

// idFromKey is the inverse of objectKey; it returns "" for keys that
// do not look like question objects.
func idFromKey(key string) string {
	rest, ok := strings.CutPrefix(key, keyPrefix)
	if !ok {
		return ""
	}
	id, ok := strings.CutSuffix(rest, ".json")
	if !ok {
		return ""
	}
	return id
}
