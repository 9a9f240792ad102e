package store

import (
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	appLog "meetdays/internal/log"
)

// BadgerConfig holds options for a BadgerDB-backed KV.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string
	// InMemory keeps everything in RAM; used by tests.
	InMemory bool
	// SyncWrites fsyncs every commit.
	SyncWrites bool
}

// BadgerKV is a KV backed by an embedded BadgerDB.
type BadgerKV struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a BadgerDB at cfg.Path.
func OpenBadger(cfg BadgerConfig) (*BadgerKV, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent database")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(badgerLogger{})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &BadgerKV{db: db}, nil
}

func (b *BadgerKV) Get(key string) (string, bool, error) {
	var value []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return string(value), true, nil
}

func (b *BadgerKV) Set(key, value string) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), []byte(value))
	})
}

// Close flushes and closes the database.
func (b *BadgerKV) Close() error {
	return b.db.Close()
}

// badgerLogger routes BadgerDB's internal logging into the app logger,
// demoting its chatty info lines to debug.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	appLog.Error("badger", fmt.Errorf(format, args...))
}

func (badgerLogger) Warningf(format string, args ...any) {
	appLog.Warn("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Infof(format string, args ...any) {
	appLog.Debug("badger: " + fmt.Sprintf(format, args...))
}

func (badgerLogger) Debugf(format string, args ...any) {
	appLog.Debug("badger: " + fmt.Sprintf(format, args...))
}
