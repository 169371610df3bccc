// Copyright 2026 The mlbp Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package store keeps verified pipeline reports in a badger database, keyed by
// pipeline.CacheKey.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	log "github.com/golang/glog"
	"github.com/hierpack/mlbp/mlbp/go/pipeline"
)

const reportPrefix = "report/"

// Options configures Open.
type Options struct {
	// Dir is the database directory. It is ignored when InMemory is set.
	Dir      string
	InMemory bool
}

// Store is a pipeline.Cache backed by badger. It is safe for concurrent use.
type Store struct {
	db *badger.DB
}

var _ pipeline.Cache = (*Store)(nil)

// glogLogger routes badger's logging to glog; debug output goes to V(2).
type glogLogger struct{}

func (glogLogger) Errorf(format string, args ...any)   { log.Errorf(format, args...) }
func (glogLogger) Warningf(format string, args ...any) { log.Warningf(format, args...) }
func (glogLogger) Infof(format string, args ...any)    { log.V(1).Infof(format, args...) }
func (glogLogger) Debugf(format string, args ...any)   { log.V(2).Infof(format, args...) }

// Open opens or creates the database.
func Open(opts Options) (*Store, error) {
	bopts := badger.DefaultOptions(opts.Dir).WithLogger(glogLogger{})
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true).WithLogger(glogLogger{})
	} else if opts.Dir == "" {
		return nil, errors.New("store: a directory is required unless InMemory is set")
	}
	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the report stored under key.
func (s *Store) Get(ctx context.Context, key string) (*pipeline.Report, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var rep pipeline.Report
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rep)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &rep, true, nil
}

// Put stores r under key, replacing any previous report.
func (s *Store) Put(ctx context.Context, key string, r *pipeline.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(reportPrefix+key), val)
	})
}

// Delete removes the report stored under key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(reportPrefix + key))
	})
}

// Keys lists the stored keys that start with prefix, in order. An instance fingerprint as
// prefix lists every formulation run of that instance.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.db.View(func(txn *badger.Txn) error {
		iopts := badger.DefaultIteratorOptions
		iopts.PrefetchValues = false
		it := txn.NewIterator(iopts)
		defer it.Close()
		p := []byte(reportPrefix + prefix)
		for it.Seek(p); it.ValidForPrefix(p); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			keys = append(keys, string(it.Item().Key()[len(reportPrefix):]))
		}
		return nil
	})
	return keys, err
}
