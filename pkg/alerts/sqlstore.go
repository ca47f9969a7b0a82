package alerts

import (
	"context"

	"ticket-hunter/pkg/store"
)

type sqlStore struct {
	*store.Store
}

// NewSQLStore adapts the SQLite store to Store.
func NewSQLStore(s *store.Store) Store {
	return sqlStore{s}
}

func (s sqlStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}
