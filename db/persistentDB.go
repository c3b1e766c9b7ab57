package db

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"

	"github.com/wildbits/wildbits/settings"
)

const (
	DB_INTERNAL_TABLENAME = "internal-metadata"
	SCAN_CACHE_TABLENAME  = "scan-cache"
)

type PersistentDB struct {
	db *bolt.DB
}

// Opens (or creates) the database file at path
func NewPersistentDB(path string) (*PersistentDB, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	// a cache written by another release is dropped
	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(DB_INTERNAL_TABLENAME))
		if b != nil && string(b.Get([]byte("app_version"))) == settings.WILDBITS_VERSION {
			return nil
		}
		if tx.Bucket([]byte(SCAN_CACHE_TABLENAME)) != nil {
			if err := tx.DeleteBucket([]byte(SCAN_CACHE_TABLENAME)); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucketIfNotExists([]byte(DB_INTERNAL_TABLENAME))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		return b.Put([]byte("app_version"), []byte(settings.WILDBITS_VERSION))
	})
	if err != nil {
		zap.S().Warnf("failed to save app_version - %v", err)
		db.Close()
		return nil, err
	}

	return &PersistentDB{db: db}, nil
}

func (pd *PersistentDB) Close() error {
	return pd.db.Close()
}

func (pd *PersistentDB) ClearTable(tableName string) error {
	return pd.db.Update(func(tx *bolt.Tx) error {
		err := tx.DeleteBucket([]byte(tableName))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
}

func (pd *PersistentDB) AddEntry(tableName string, key string, value interface{}) error {
	return pd.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(tableName))
		if err != nil {
			return fmt.Errorf("create bucket: %s", err)
		}
		var bytesBuff bytes.Buffer
		if err := gob.NewEncoder(&bytesBuff).Encode(value); err != nil {
			return err
		}
		return b.Put([]byte(key), bytesBuff.Bytes())
	})
}

// GetEntry decodes the value of key into value and reports whether it existed
func (pd *PersistentDB) GetEntry(tableName string, key string, value interface{}) (bool, error) {
	found := false
	err := pd.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(tableName))
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(v)).Decode(value)
	})
	return found, err
}

// Count returns the number of entries of a table
func (pd *PersistentDB) Count(tableName string) int {
	n := 0
	pd.db.View(func(tx *bolt.Tx) error {
		if b := tx.Bucket([]byte(tableName)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n
}
