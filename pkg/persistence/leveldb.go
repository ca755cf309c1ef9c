package persistence

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
	lerrors "github.com/syndtr/goleveldb/leveldb/errors"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBConfig configures a LevelDBStore.
type LevelDBConfig struct {
	// Path is the database directory.
	Path string

	// Sync forces an fsync after every write.
	Sync bool

	// Logger receives recovery notices. nil uses slog.Default().
	Logger *slog.Logger
}

// LevelDBStore is a Store on top of a LevelDB database directory.
type LevelDBStore struct {
	db    *leveldb.DB
	write *opt.WriteOptions
}

// OpenLevelDB opens (or creates) the database at cfg.Path. A corrupted
// database is recovered once before giving up.
func OpenLevelDB(cfg LevelDBConfig) (*LevelDBStore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}

	db, err := leveldb.OpenFile(cfg.Path, nil)
	if lerrors.IsCorrupted(err) {
		logger.Warn("store corrupted, recovering", "path", cfg.Path, "error", err)
		db, err = leveldb.RecoverFile(cfg.Path, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", cfg.Path, err)
	}

	return &LevelDBStore{
		db:    db,
		write: &opt.WriteOptions{Sync: cfg.Sync},
	}, nil
}

// Get implements Store.
func (s *LevelDBStore) Get(key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return nil, ErrClosed
	}
	return v, err
}

// Put implements Store.
func (s *LevelDBStore) Put(key string, value []byte) error {
	err := s.db.Put([]byte(key), value, s.write)
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrClosed
	}
	return err
}

// Delete implements Store.
func (s *LevelDBStore) Delete(key string) error {
	err := s.db.Delete([]byte(key), s.write)
	if errors.Is(err, leveldb.ErrClosed) {
		return ErrClosed
	}
	return err
}

// Keys implements Store.
func (s *LevelDBStore) Keys(prefix string) ([]string, error) {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	var keys []string
	for iter.Next() {
		keys = append(keys, string(iter.Key()))
	}
	if err := iter.Error(); err != nil {
		if errors.Is(err, leveldb.ErrClosed) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return keys, nil
}

// Close implements Store.
func (s *LevelDBStore) Close() error {
	return s.db.Close()
}
