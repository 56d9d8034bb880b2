package storage

import (
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Database is a key-value wrapper over LevelDB. pkg/chain uses it as the
// side store for full block transaction data.
type Database struct {
	db *leveldb.DB
}

// OpenDatabase opens or creates a LevelDB database
func OpenDatabase(path string) (*Database, error) {
	// Open with compression enabled
	opts := &opt.Options{
		Compression: opt.SnappyCompression,
	}

	db, err := leveldb.OpenFile(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database
func (db *Database) Close() error {
	return db.db.Close()
}

// Put stores key-value pair
func (db *Database) Put(key, value []byte) error {
	return db.db.Put(key, value, nil)
}

// Delete removes key
func (db *Database) Delete(key []byte) error {
	return db.db.Delete(key, nil)
}
