package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/cuemby/fragmentmgr/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var bucketTableFragments = []byte("table_fragments")

// BoltMetaStore implements MetaStore on an embedded BoltDB file: one bucket,
// one JSON-marshaled row per job, keyed by the job id written as a
// zero-padded 20-digit decimal string. A bbolt
// transaction is itself atomic, so Commit's batch maps directly onto it.
type BoltMetaStore struct {
	db *bolt.DB
}

// NewBoltMetaStore opens (creating if absent) a BoltDB file under dataDir.
func NewBoltMetaStore(dataDir string) (*BoltMetaStore, error) {
	dbPath := filepath.Join(dataDir, "fragmentmgr.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("open meta store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketTableFragments)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create meta store bucket: %w", err)
	}

	return &BoltMetaStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltMetaStore) Close() error {
	return s.db.Close()
}

func jobKey(id types.JobID) []byte {
	return []byte(fmt.Sprintf("%020d", id))
}

// List implements MetaStore.
func (s *BoltMetaStore) List(ctx context.Context) ([]*types.TableFragments, error) {
	var out []*types.TableFragments
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTableFragments)
		return b.ForEach(func(k, v []byte) error {
			var tf types.TableFragments
			if err := json.Unmarshal(v, &tf); err != nil {
				return fmt.Errorf("decode table fragments %s: %w", k, err)
			}
			out = append(out, &tf)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Commit implements MetaStore.
func (s *BoltMetaStore) Commit(ctx context.Context, batch Batch) error {
	if batch.Empty() {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketTableFragments)
		for _, p := range batch.Puts {
			data, err := json.Marshal(p.Value)
			if err != nil {
				return fmt.Errorf("encode table fragments %d: %w", p.JobID, err)
			}
			if err := b.Put(jobKey(p.JobID), data); err != nil {
				return err
			}
		}
		for _, d := range batch.Deletes {
			if err := b.Delete(jobKey(d.JobID)); err != nil {
				return err
			}
		}
		return nil
	})
}
