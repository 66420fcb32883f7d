// Package vocabstore keeps the flattened rows of controlled vocabularies in
// Redis, one collection per vocabulary.
//
// A collection named c is stored under three keys:
//
//	<prefix>:<c>:rows  list of JSON records in file order
//	<prefix>:<c>:ids   hash of identifier -> position in rows
//	<prefix>:<c>:meta  hash with the id column, columns and index time
//
// and its name is a member of the <prefix>:collections set.
package vocabstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/c360studio/semharvest/csvingest"
)

// DefaultPrefix namespaces every key written by the store.
const DefaultPrefix = "semharvest:vocab"

// ErrNotFound is returned when a collection or record does not exist.
var ErrNotFound = errors.New("not found")

// Config holds the Redis connection settings.
type Config struct {
	Addr        string        `yaml:"addr"`
	Password    string        `yaml:"password"`
	DB          int           `yaml:"db"`
	Prefix      string        `yaml:"prefix"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// Collection describes an indexed collection.
type Collection struct {
	Name      string    `json:"name"`
	IDColumn  string    `json:"id_column"`
	Columns   []string  `json:"columns"`
	Records   int       `json:"records"`
	IndexedAt time.Time `json:"indexed_at"`
}

// Store is a Redis-backed vocabulary store.
type Store struct {
	rdb    goredis.UniversalClient
	prefix string
	logger *slog.Logger
}

// Open connects to Redis and pings it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, cfg.Prefix, logger), nil
}

// New wraps an existing client.
func New(rdb goredis.UniversalClient, prefix string, logger *slog.Logger) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{rdb: rdb, prefix: prefix, logger: logger}
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(collection, part string) string {
	return s.prefix + ":" + collection + ":" + part
}

func (s *Store) collectionsKey() string {
	return s.prefix + ":collections"
}

// IndexRecords replaces the collection with the rows of res. The previous
// content is removed in the same transaction, so readers never observe a
// mix of old and new rows.
func (s *Store) IndexRecords(ctx context.Context, collection string, res *csvingest.Result) error {
	if collection == "" {
		return fmt.Errorf("collection name is required")
	}
	if res == nil {
		res = &csvingest.Result{}
	}

	rows := make([]any, 0, len(res.Records))
	ids := make(map[string]any, len(res.Records))
	for i, rec := range res.Records {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %d: %w", i, err)
		}
		rows = append(rows, data)
		if id := res.ID(rec); id != "" {
			if _, dup := ids[id]; dup {
				s.logger.Debug("Duplicate vocabulary identifier", "collection", collection, "id", id)
			}
			ids[id] = i
		}
	}
	columns, err := json.Marshal(res.Columns)
	if err != nil {
		return fmt.Errorf("marshal columns: %w", err)
	}

	rowsKey, idsKey, metaKey := s.key(collection, "rows"), s.key(collection, "ids"), s.key(collection, "meta")
	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, rowsKey, idsKey, metaKey)
		if len(rows) > 0 {
			pipe.RPush(ctx, rowsKey, rows...)
		}
		if len(ids) > 0 {
			pipe.HSet(ctx, idsKey, ids)
		}
		pipe.HSet(ctx, metaKey, map[string]any{
			"id_column":  res.IDColumn,
			"columns":    columns,
			"records":    len(rows),
			"indexed_at": time.Now().UTC().Format(time.RFC3339Nano),
		})
		pipe.SAdd(ctx, s.collectionsKey(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("index collection %s: %w", collection, err)
	}
	s.logger.Debug("Indexed vocabulary collection", "collection", collection, "records", len(rows))
	return nil
}

// DropCollection removes the collection. Dropping a collection that does
// not exist is not an error.
func (s *Store) DropCollection(ctx context.Context, collection string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key(collection, "rows"), s.key(collection, "ids"), s.key(collection, "meta"))
		pipe.SRem(ctx, s.collectionsKey(), collection)
		return nil
	})
	if err != nil {
		return fmt.Errorf("drop collection %s: %w", collection, err)
	}
	return nil
}

// Collections lists the indexed collection names in sorted order.
func (s *Store) Collections(ctx context.Context) ([]string, error) {
	names, err := s.rdb.SMembers(ctx, s.collectionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Describe returns the metadata of a collection.
func (s *Store) Describe(ctx context.Context, collection string) (*Collection, error) {
	meta, err := s.rdb.HGetAll(ctx, s.key(collection, "meta")).Result()
	if err != nil {
		return nil, fmt.Errorf("describe collection %s: %w", collection, err)
	}
	if len(meta) == 0 {
		return nil, fmt.Errorf("collection %s: %w", collection, ErrNotFound)
	}

	c := &Collection{Name: collection, IDColumn: meta["id_column"]}
	if err := json.Unmarshal([]byte(meta["columns"]), &c.Columns); err != nil {
		return nil, fmt.Errorf("decode columns of %s: %w", collection, err)
	}
	c.Records, _ = strconv.Atoi(meta["records"])
	c.IndexedAt, _ = time.Parse(time.RFC3339Nano, meta["indexed_at"])
	return c, nil
}

// Records returns every row of a collection in file order.
func (s *Store) Records(ctx context.Context, collection string) ([]csvingest.Record, error) {
	raw, err := s.rdb.LRange(ctx, s.key(collection, "rows"), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	out := make([]csvingest.Record, 0, len(raw))
	for _, r := range raw {
		var rec csvingest.Record
		if err := json.Unmarshal([]byte(r), &rec); err != nil {
			return nil, fmt.Errorf("decode record of %s: %w", collection, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Get returns the row whose identifier is id.
func (s *Store) Get(ctx context.Context, collection, id string) (csvingest.Record, error) {
	pos, err := s.rdb.HGet(ctx, s.key(collection, "ids"), id).Int64()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("record %s in %s: %w", id, collection, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup record %s in %s: %w", id, collection, err)
	}
	raw, err := s.rdb.LIndex(ctx, s.key(collection, "rows"), pos).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, fmt.Errorf("record %s in %s: %w", id, collection, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read record %s in %s: %w", id, collection, err)
	}
	var rec csvingest.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode record %s in %s: %w", id, collection, err)
	}
	return rec, nil
}
