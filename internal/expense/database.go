package expense

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const documentsBucketName = "documents"

// ErrDocumentNotFound is returned when the journal has no entry for an id
var ErrDocumentNotFound = errors.New("document not found")

// Journal records the outcome of every processed document
type Journal interface {
	// SaveDocument stores a document entry
	SaveDocument(doc *Document) error

	// GetDocument retrieves a document entry by ID
	GetDocument(id string) (*Document, error)

	// ListDocuments returns the entries of one thread, oldest first
	ListDocuments(threadID int64) ([]*Document, error)

	// Close closes the journal
	Close() error
}

// BoltDB implements Journal using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB opens (or creates) the journal file at path
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(documentsBucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveDocument saves a document entry keyed by its ID
func (b *BoltDB) SaveDocument(doc *Document) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(documentsBucketName))
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling document: %w", err)
		}
		return bucket.Put([]byte(doc.ID), data)
	})
}

// GetDocument retrieves a document entry by ID
func (b *BoltDB) GetDocument(id string) (*Document, error) {
	var doc *Document
	err := b.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(documentsBucketName)).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
		}
		return json.Unmarshal(data, &doc)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns a thread's entries in key order. IDs are time-ordered,
// so key order is processing order.
func (b *BoltDB) ListDocuments(threadID int64) ([]*Document, error) {
	docs := make([]*Document, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(documentsBucketName)).ForEach(func(k, v []byte) error {
			var doc Document
			if err := json.Unmarshal(v, &doc); err != nil {
				return fmt.Errorf("unmarshaling document %s: %w", k, err)
			}
			if doc.ThreadID == threadID {
				docs = append(docs, &doc)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Close closes the database
func (b *BoltDB) Close() error {
	return b.db.Close()
}
