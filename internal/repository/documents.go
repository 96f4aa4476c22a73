package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/joseph-ayodele/docindex/internal/common"
	"github.com/joseph-ayodele/docindex/internal/entity"
)

var bucketDocuments = []byte("documents")

// DocumentStore keeps the local copy of document metadata, keyed by document id.
type DocumentStore interface {
	Put(doc entity.DocumentMetadata) error
	Get(id string) (*entity.DocumentMetadata, error)
	List() ([]entity.DocumentMetadata, error)
	Close() error
}

type boltDocumentStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

func NewBoltDocumentStore(path string, logger *slog.Logger) (DocumentStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create metadata dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketDocuments)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltDocumentStore{db: db, logger: logger}, nil
}

func (s *boltDocumentStore) Put(doc entity.DocumentMetadata) error {
	if doc.ID == "" {
		return common.InvalidInputError("document id is required")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).Put([]byte(doc.ID), data)
	})
}

func (s *boltDocumentStore) Get(id string) (*entity.DocumentMetadata, error) {
	var doc entity.DocumentMetadata
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocuments).Get([]byte(id))
		if data == nil {
			return common.NotFoundError("document not found: " + id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns every document, most recently uploaded first.
func (s *boltDocumentStore) List() ([]entity.DocumentMetadata, error) {
	out := make([]entity.DocumentMetadata, 0)
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var doc entity.DocumentMetadata
			if err := json.Unmarshal(v, &doc); err != nil {
				s.logger.Warn("skipping undecodable metadata record", "id", string(k), "error", err)
				return nil
			}
			out = append(out, doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, tj := out[i].UploadTimestamp, out[j].UploadTimestamp
		if ti == "" {
			ti = out[i].ProcessingTimestamp
		}
		if tj == "" {
			tj = out[j].ProcessingTimestamp
		}
		return ti > tj
	})
	return out, nil
}

func (s *boltDocumentStore) Close() error {
	return s.db.Close()
}
