package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"

	"github.com/joseph-ayodele/docindex/internal/common"
)

var (
	bucketBlobs = []byte("blobs")
	bucketAttrs = []byte("blob_attrs")
)

type blobAttrs struct {
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BoltStore keeps blobs in a single bbolt file. It is the default for
// single-node deployments and tests.
type BoltStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ Store = (*BoltStore)(nil)

func NewBoltStore(file string, logger *slog.Logger) (*BoltStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(file); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := bbolt.Open(file, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBlobs); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketAttrs)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Info("storage.bolt.open", "path", file)
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) Put(_ context.Context, p string, data []byte, contentType string) (string, error) {
	key, err := cleanKey(p)
	if err != nil {
		return "", common.InvalidInputError(err.Error())
	}
	attrs, err := json.Marshal(blobAttrs{Size: int64(len(data)), ContentType: contentType, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return "", err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.Bucket(bucketBlobs).Put([]byte(key), data); err != nil {
			return err
		}
		return tx.Bucket(bucketAttrs).Put([]byte(key), attrs)
	})
	if err != nil {
		return "", fmt.Errorf("bolt put %s: %w", key, err)
	}
	return key, nil
}

func (s *BoltStore) Get(_ context.Context, p string) ([]byte, Object, error) {
	key, err := cleanKey(p)
	if err != nil {
		return nil, Object{}, common.NotFoundError("file not found")
	}
	var (
		data []byte
		obj  Object
	)
	err = s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlobs).Get([]byte(key))
		if v == nil {
			return common.NotFoundError("file not found: " + key)
		}
		// bbolt memory is only valid inside the transaction
		data = bytes.Clone(v)
		obj = s.objectFrom(key, tx.Bucket(bucketAttrs).Get([]byte(key)), int64(len(v)))
		return nil
	})
	if err != nil {
		return nil, Object{}, err
	}
	return data, obj, nil
}

func (s *BoltStore) List(_ context.Context, prefix string) ([]Object, error) {
	out := make([]Object, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketAttrs).Cursor()
		pfx := []byte(prefix)
		for k, v := c.Seek(pfx); k != nil && bytes.HasPrefix(k, pfx); k, v = c.Next() {
			if bytes.HasSuffix(k, []byte("/")) {
				continue
			}
			out = append(out, s.objectFrom(string(k), v, -1))
		}
		return nil
	})
	return out, err
}

func (s *BoltStore) objectFrom(key string, raw []byte, size int64) Object {
	obj := Object{Path: key, Filename: path.Base(key), Size: size, ContentType: "application/octet-stream"}
	var a blobAttrs
	if raw != nil && json.Unmarshal(raw, &a) == nil {
		obj.Size = a.Size
		obj.UpdatedAt = a.UpdatedAt
		if a.ContentType != "" {
			obj.ContentType = a.ContentType
		}
	}
	return obj
}

func (s *BoltStore) Ping(context.Context) error {
	return s.db.View(func(*bbolt.Tx) error { return nil })
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
