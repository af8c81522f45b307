package demstore

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/aresmaps/mars_relief/internal/dem"
)

// BadgerStore keeps tiles in a local badger database. Suited to
// single-node deployments where the tile set ships with the image.
type BadgerStore struct {
	db *badger.DB
}

var _ Store = (*BadgerStore)(nil)

func NewBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir)
	// Decrease logging verbosity
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Fetch(_ context.Context, key dem.Key) ([]byte, bool, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key.String()))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *BadgerStore) Put(_ context.Context, key dem.Key, data []byte) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key.String()), data)
	})
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
