package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"AstroAI/internal/domain/models"
	"AstroAI/internal/domain/repository"
	applogger "AstroAI/pkg/logger"

	"github.com/dgraph-io/badger/v4"
)

const chunkPrefix = "chunk:"

// BadgerChunkStore keeps the retrieval index in badger, one key per chunk.
// Keys are "chunk:<seq>" with a zero padded sequence so iteration returns build order.
type BadgerChunkStore struct {
	db *badger.DB
}

// OpenBadger opens a badger database at dir, or an in-memory one when dir is empty.
func OpenBadger(dir string, l *applogger.Logger) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(badgerLogger{l: l})
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", dir, err)
	}
	return db, nil
}

func NewBadgerChunkStore(db *badger.DB) repository.ChunkStore {
	return &BadgerChunkStore{db: db}
}

// ReplaceAll drops the previous index and writes chunks in one batch.
func (s *BadgerChunkStore) ReplaceAll(ctx context.Context, chunks []models.Chunk) error {
	if err := s.db.DropPrefix([]byte(chunkPrefix)); err != nil {
		return fmt.Errorf("drop chunk index: %w", err)
	}
	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for i, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(ch)
		if err != nil {
			return fmt.Errorf("marshal chunk %s: %w", ch.ID, err)
		}
		if err := wb.Set(chunkKey(i), data); err != nil {
			return fmt.Errorf("write chunk %s: %w", ch.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flush chunk index: %w", err)
	}
	return nil
}

func (s *BadgerChunkStore) All(ctx context.Context) ([]models.Chunk, error) {
	var chunks []models.Chunk
	prefix := []byte(chunkPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := it.Item().Value(func(v []byte) error {
				var ch models.Chunk
				if err := json.Unmarshal(v, &ch); err != nil {
					return fmt.Errorf("decode chunk: %w", err)
				}
				chunks = append(chunks, ch)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read chunk index: %w", err)
	}
	return chunks, nil
}

func (s *BadgerChunkStore) Count(_ context.Context) (int, error) {
	n := 0
	prefix := []byte(chunkPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *BadgerChunkStore) Close() error {
	return s.db.Close()
}

func chunkKey(i int) []byte {
	return []byte(fmt.Sprintf("%s%09d", chunkPrefix, i))
}

// badgerLogger routes badger's printf logging to the application logger.
// Badger is chatty at info, so info goes to debug.
type badgerLogger struct{ l *applogger.Logger }

func (b badgerLogger) Errorf(f string, a ...interface{}) { b.log(b.l.Error, f, a) }

func (b badgerLogger) Warningf(f string, a ...interface{}) { b.log(b.l.Warn, f, a) }

func (b badgerLogger) Infof(f string, a ...interface{}) { b.log(b.l.Debug, f, a) }

func (b badgerLogger) Debugf(f string, a ...interface{}) { b.log(b.l.Debug, f, a) }

func (b badgerLogger) log(fn func(string, ...applogger.Field), f string, a []interface{}) {
	if b.l == nil {
		return
	}
	fn("badger: " + strings.TrimSpace(fmt.Sprintf(f, a...)))
}
