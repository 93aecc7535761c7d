// Package corpus persists corpus generations (postings, centroids, metadata
// and the current/previous version pointers) in Redis hashes.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/jobmatch/internal/db"
	"github.com/kailas-cloud/jobmatch/internal/db/redis"
	"github.com/kailas-cloud/jobmatch/internal/domain"
	"github.com/kailas-cloud/jobmatch/internal/domain/job"
	"github.com/kailas-cloud/jobmatch/internal/domain/label"
)

// writeChunk bounds the number of hashes per pipelined round-trip.
const writeChunk = 500

// store is the consumer interface for corpus persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	DropIndex(ctx context.Context, name string, deleteDocs bool) error
	UpdateAlias(ctx context.Context, alias, index string) error
}

// Repo stores corpus generations.
type Repo struct {
	store store
	keys  Keys
}

// New creates a corpus repository.
func New(s store, keys Keys) *Repo {
	return &Repo{store: s, keys: keys}
}

// Keys returns the key layout used by the repository.
func (r *Repo) Keys() Keys { return r.keys }

// SavePostings writes postings of version in pipelined chunks.
func (r *Repo) SavePostings(ctx context.Context, version string, postings []job.Posting) error {
	for start := 0; start < len(postings); start += writeChunk {
		end := min(start+writeChunk, len(postings))
		items := make([]db.HashSetItem, 0, end-start)
		for _, p := range postings[start:end] {
			items = append(items, db.HashSetItem{
				Key:    r.keys.Job(version, p.ID()),
				Fields: postingFields(p),
			})
		}
		if err := r.store.HSetMulti(ctx, items); err != nil {
			return fmt.Errorf("save postings %d-%d: %w", start, end, err)
		}
	}
	return nil
}

// LoadPostings reads every posting of version, ordered by id.
func (r *Repo) LoadPostings(ctx context.Context, version string) ([]job.Posting, error) {
	keys, err := r.store.Scan(ctx, r.keys.JobPrefix(version)+"*")
	if err != nil {
		return nil, fmt.Errorf("scan postings %s: %w", version, err)
	}
	slices.Sort(keys)

	out := make([]job.Posting, 0, len(keys))
	for start := 0; start < len(keys); start += writeChunk {
		end := min(start+writeChunk, len(keys))
		hashes, err := r.store.HGetAllMulti(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("load postings %s: %w", version, err)
		}
		for i, h := range hashes {
			if len(h) == 0 {
				continue // deleted between SCAN and HGETALL
			}
			p, err := parsePosting(h)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", keys[start+i], err)
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// SaveCentroids stores one centroid vector per label.
func (r *Repo) SaveCentroids(ctx context.Context, version string, centroids map[label.Label][]float32) error {
	if len(centroids) == 0 {
		return nil
	}
	fields := make(map[string]string, len(centroids))
	for l, v := range centroids {
		fields[l.String()] = redis.VectorToBytes(v)
	}
	if err := r.store.HSet(ctx, r.keys.Centroids(version), fields); err != nil {
		return fmt.Errorf("save centroids %s: %w", version, err)
	}
	return nil
}

// LoadCentroids returns the centroids of version, or domain.ErrNotFound.
func (r *Repo) LoadCentroids(ctx context.Context, version string) (map[label.Label][]float32, error) {
	h, err := r.store.HGetAll(ctx, r.keys.Centroids(version))
	if err != nil {
		return nil, fmt.Errorf("load centroids %s: %w", version, err)
	}
	if len(h) == 0 {
		return nil, fmt.Errorf("centroids %s: %w", version, domain.ErrNotFound)
	}
	out := make(map[label.Label][]float32, len(h))
	for name, blob := range h {
		l, err := label.Parse(name)
		if err != nil {
			return nil, fmt.Errorf("centroid %q: %w", name, err)
		}
		v, err := redis.BytesToVector(blob)
		if err != nil {
			return nil, fmt.Errorf("centroid %s: %w", name, err)
		}
		out[l] = v
	}
	return out, nil
}

// SaveMeta stores version metadata.
func (r *Repo) SaveMeta(ctx context.Context, m Meta) error {
	if err := r.store.HSet(ctx, r.keys.Meta(m.Version), metaFields(m)); err != nil {
		return fmt.Errorf("save meta %s: %w", m.Version, err)
	}
	return nil
}

// LoadMeta returns version metadata, or domain.ErrNotFound.
func (r *Repo) LoadMeta(ctx context.Context, version string) (Meta, error) {
	h, err := r.store.HGetAll(ctx, r.keys.Meta(version))
	if err != nil {
		return Meta{}, fmt.Errorf("load meta %s: %w", version, err)
	}
	if len(h) == 0 {
		return Meta{}, fmt.Errorf("meta %s: %w", version, domain.ErrNotFound)
	}
	return parseMeta(h)
}

// CurrentVersion returns the live version id, or "" when nothing was published.
func (r *Repo) CurrentVersion(ctx context.Context) (string, error) {
	return r.pointer(ctx, r.keys.Current())
}

// PreviousVersion returns the version replaced by the last publish, or "".
func (r *Repo) PreviousVersion(ctx context.Context) (string, error) {
	return r.pointer(ctx, r.keys.Previous())
}

func (r *Repo) pointer(ctx context.Context, key string) (string, error) {
	b, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return strings.TrimSpace(string(b)), nil
}

// Publish makes version current and demotes the current one to previous.
// It returns the version that fell off (the old previous), which is no
// longer referenced and may be deleted. Readers polling the current key
// switch on their next refresh.
func (r *Repo) Publish(ctx context.Context, version string) (retired string, err error) {
	cur, err := r.CurrentVersion(ctx)
	if err != nil {
		return "", err
	}
	if cur == version {
		return "", nil
	}
	prev, err := r.PreviousVersion(ctx)
	if err != nil {
		return "", err
	}

	if cur != "" {
		if err := r.store.Set(ctx, r.keys.Previous(), []byte(cur)); err != nil {
			return "", fmt.Errorf("demote %s: %w", cur, err)
		}
	}
	if err := r.store.Set(ctx, r.keys.Current(), []byte(version)); err != nil {
		return "", fmt.Errorf("publish %s: %w", version, err)
	}
	if prev == version {
		return "", nil
	}
	return prev, nil
}

// DeleteVersion removes every key of version, including its index if any.
func (r *Repo) DeleteVersion(ctx context.Context, version string) error {
	if version == "" {
		return nil
	}
	err := r.store.DropIndex(ctx, r.keys.Index(version), false)
	if err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop index %s: %w", version, err)
	}

	keys, err := r.store.Scan(ctx, r.keys.JobPrefix(version)+"*")
	if err != nil {
		return fmt.Errorf("scan postings %s: %w", version, err)
	}
	keys = append(keys, r.keys.Meta(version), r.keys.Centroids(version))
	if err := r.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("delete version %s: %w", version, err)
	}
	return nil
}
