package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"movieetl/internal/biz"
	"movieetl/internal/metrics"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage. Ids are zero-padded so that key order
// is id order.
const (
	badgerMoviePrefix   = "movie:"
	badgerCreditsPrefix = "credits:"
)

type badgerStagingRepo struct {
	db  *badger.DB
	log *log.Helper
}

func newBadgerStagingRepo(db *badger.DB, logger log.Logger) *badgerStagingRepo {
	return &badgerStagingRepo{
		db:  db,
		log: log.NewHelper(logger),
	}
}

func badgerKey(prefix string, id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", prefix, id))
}

func (r *badgerStagingRepo) UpsertListing(ctx context.Context, id int64, listing biz.Document) error {
	if err := r.update(id, func(m *biz.StagedMovie) { m.Listing = listing }); err != nil {
		return fmt.Errorf("failed to upsert listing: %w", err)
	}
	metrics.StagedDocuments.WithLabelValues("listing").Inc()
	return nil
}

func (r *badgerStagingRepo) UpsertDetails(ctx context.Context, id int64, details biz.Document) error {
	if err := r.update(id, func(m *biz.StagedMovie) { m.Details = details }); err != nil {
		return fmt.Errorf("failed to upsert details: %w", err)
	}
	metrics.StagedDocuments.WithLabelValues("details").Inc()
	return nil
}

// update applies fn to the stored movie document, creating it when absent.
func (r *badgerStagingRepo) update(id int64, fn func(*biz.StagedMovie)) error {
	return r.db.Update(func(txn *badger.Txn) error {
		key := badgerKey(badgerMoviePrefix, id)
		m := &biz.StagedMovie{ID: id}

		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, m)
			}); err != nil {
				return err
			}
		}

		fn(m)
		data, err := json.Marshal(m)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

func (r *badgerStagingRepo) UpsertCredits(ctx context.Context, id int64, credits biz.Document) error {
	data, err := json.Marshal(credits)
	if err != nil {
		return fmt.Errorf("failed to encode credits: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(badgerCreditsPrefix, id), data)
	})
	if err != nil {
		return fmt.Errorf("failed to upsert credits: %w", err)
	}
	metrics.StagedDocuments.WithLabelValues("credits").Inc()
	return nil
}

func (r *badgerStagingRepo) GetCredits(ctx context.Context, id int64) (biz.Document, error) {
	var doc biz.Document
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(badgerCreditsPrefix, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}
	return doc, nil
}

func (r *badgerStagingRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerMoviePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			raw := strings.TrimPrefix(string(it.Item().Key()), badgerMoviePrefix)
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid staged key %q: %w", raw, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list staged ids: %w", err)
	}
	return ids, nil
}

func (r *badgerStagingRepo) ListDetailed(ctx context.Context, limit int) ([]*biz.StagedMovie, error) {
	var out []*biz.StagedMovie
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(badgerMoviePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var m biz.StagedMovie
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return err
			}
			if m.Details == nil {
				continue
			}
			out = append(out, &m)
			if limit > 0 && len(out) >= limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read staged movies: %w", err)
	}
	return out, nil
}

func (r *badgerStagingRepo) Count(ctx context.Context) (int64, error) {
	ids, err := r.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}
