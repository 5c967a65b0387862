package storage

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys.
const (
	keyOptions     = "options"
	benchKeyPrefix = "bench/"
)

// Options are the persisted engine settings, restored on startup and saved
// whenever a UCI setoption changes one of them.
type Options struct {
	SearchMode    string  `json:"search_mode"`
	UCBConst      float64 `json:"ucb_const"`
	RolloutBudget int     `json:"rollout_budget"`
	ExpandPolicy  string  `json:"expand_policy"`
	ArenaMB       int     `json:"arena_mb"`
	Telemetry     string  `json:"telemetry"`
}

// DefaultOptions returns the persisted defaults.
func DefaultOptions() *Options {
	return &Options{
		SearchMode:    "alphabeta",
		UCBConst:      2.7,
		RolloutBudget: 3,
		ExpandPolicy:  "random",
		ArenaMB:       2048,
	}
}

// BenchRecord is one bench run's totals.
type BenchRecord struct {
	When    time.Time     `json:"when"`
	Depth   int           `json:"depth"`
	Nodes   uint64        `json:"nodes"`
	Elapsed time.Duration `json:"elapsed"`
}

// Storage wraps BadgerDB for persistent engine data.
type Storage struct {
	db *badger.DB
}

// Open opens (or creates) the database in the default data directory.
func Open() (*Storage, error) {
	dbDir, err := DatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenAt(dbDir)
}

// OpenAt opens the database at an explicit directory (tests use a temp dir).
func OpenAt(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database.
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveOptions persists the engine options.
func (s *Storage) SaveOptions(opts *Options) error {
	data, err := json.Marshal(opts)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyOptions), data)
	})
}

// LoadOptions loads the persisted options, falling back to defaults when
// none were saved yet.
func (s *Storage) LoadOptions() (*Options, error) {
	opts := DefaultOptions()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyOptions))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, opts)
		})
	})

	return opts, err
}

// RecordBench appends a bench run, keyed by its timestamp so iteration
// returns runs in order.
func (s *Storage) RecordBench(rec BenchRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	key := make([]byte, len(benchKeyPrefix)+8)
	copy(key, benchKeyPrefix)
	binary.BigEndian.PutUint64(key[len(benchKeyPrefix):], uint64(rec.When.UnixNano()))

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// BenchHistory returns every recorded bench run, oldest first.
func (s *Storage) BenchHistory() ([]BenchRecord, error) {
	var recs []BenchRecord

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(benchKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var rec BenchRecord
				if err := json.Unmarshal(val, &rec); err != nil {
					return err
				}
				recs = append(recs, rec)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	return recs, err
}
