package data

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"movieetl/internal/biz"
	"movieetl/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const (
	fieldListing = "raw"
	fieldDetails = "details"

	redisScanPage = 500
)

// redisStagingRepo keeps one hash per movie (listing and details fields), one
// string per credits document, and a sorted set of ids scored by id.
type redisStagingRepo struct {
	rdb    *redis.Client
	prefix string
	log    *log.Helper
}

func newRedisStagingRepo(rdb *redis.Client, prefix string, logger log.Logger) *redisStagingRepo {
	return &redisStagingRepo{
		rdb:    rdb,
		prefix: prefix,
		log:    log.NewHelper(logger),
	}
}

func (r *redisStagingRepo) movieKey(id int64) string {
	return fmt.Sprintf("%s:movie:%d", r.prefix, id)
}

func (r *redisStagingRepo) creditsKey(id int64) string {
	return fmt.Sprintf("%s:credits:%d", r.prefix, id)
}

func (r *redisStagingRepo) indexKey() string {
	return r.prefix + ":movies"
}

func (r *redisStagingRepo) UpsertListing(ctx context.Context, id int64, listing biz.Document) error {
	return r.setField(ctx, id, fieldListing, listing)
}

func (r *redisStagingRepo) UpsertDetails(ctx context.Context, id int64, details biz.Document) error {
	return r.setField(ctx, id, fieldDetails, details)
}

func (r *redisStagingRepo) setField(ctx context.Context, id int64, field string, doc biz.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", field, err)
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.movieKey(id), field, data)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{
			Score:  float64(id),
			Member: strconv.FormatInt(id, 10),
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", field, err)
	}

	metrics.StagedDocuments.WithLabelValues(kindLabel(field)).Inc()
	return nil
}

func (r *redisStagingRepo) UpsertCredits(ctx context.Context, id int64, credits biz.Document) error {
	data, err := json.Marshal(credits)
	if err != nil {
		return fmt.Errorf("failed to encode credits: %w", err)
	}
	if err := r.rdb.Set(ctx, r.creditsKey(id), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to upsert credits: %w", err)
	}
	metrics.StagedDocuments.WithLabelValues("credits").Inc()
	return nil
}

func (r *redisStagingRepo) GetCredits(ctx context.Context, id int64) (biz.Document, error) {
	data, err := r.rdb.Get(ctx, r.creditsKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credits: %w", err)
	}

	var doc biz.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode credits for movie %d: %w", id, err)
	}
	return doc, nil
}

func (r *redisStagingRepo) ListIDs(ctx context.Context) ([]int64, error) {
	members, err := r.rdb.ZRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list staged ids: %w", err)
	}
	return parseIDs(members)
}

func (r *redisStagingRepo) ListDetailed(ctx context.Context, limit int) ([]*biz.StagedMovie, error) {
	var out []*biz.StagedMovie
	for start := int64(0); ; start += redisScanPage {
		members, err := r.rdb.ZRange(ctx, r.indexKey(), start, start+redisScanPage-1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan staged ids: %w", err)
		}
		if len(members) == 0 {
			return out, nil
		}
		ids, err := parseIDs(members)
		if err != nil {
			return nil, err
		}

		cmds := make([]*redis.SliceCmd, len(ids))
		_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, id := range ids {
				cmds[i] = pipe.HMGet(ctx, r.movieKey(id), fieldListing, fieldDetails)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to read staged movies: %w", err)
		}

		for i, cmd := range cmds {
			vals := cmd.Val()
			if len(vals) != 2 || vals[1] == nil {
				continue
			}
			m := &biz.StagedMovie{ID: ids[i]}
			if err := decodeField(vals[0], &m.Listing); err != nil {
				return nil, fmt.Errorf("movie %d listing: %w", ids[i], err)
			}
			if err := decodeField(vals[1], &m.Details); err != nil {
				return nil, fmt.Errorf("movie %d details: %w", ids[i], err)
			}
			out = append(out, m)
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
}

func (r *redisStagingRepo) Count(ctx context.Context) (int64, error) {
	n, err := r.rdb.ZCard(ctx, r.indexKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count staged movies: %w", err)
	}
	return n, nil
}

func decodeField(v interface{}, dst *biz.Document) error {
	if v == nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Errorf("unexpected value type %T", v)
	}
	return json.Unmarshal([]byte(s), dst)
}

func parseIDs(members []string) ([]int64, error) {
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseInt(m, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid staged id %q: %w", m, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func kindLabel(field string) string {
	if field == fieldListing {
		return "listing"
	}
	return field
}
