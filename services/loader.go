package services

import (
	"context"

	"github/itish2003/cricketbot/models"
)

// DocumentLoader produces the raw documents an index is built from.
type DocumentLoader interface {
	Load(ctx context.Context) ([]models.RawDocument, error)
}

// ProgressFunc reports that done of total documents have been loaded.
type ProgressFunc func(done, total int)

// MultiLoader concatenates the output of several loaders, in order.
type MultiLoader []DocumentLoader

func (m MultiLoader) Load(ctx context.Context) ([]models.RawDocument, error) {
	var docs []models.RawDocument
	for _, loader := range m {
		loaded, err := loader.Load(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}
	return docs, nil
}
