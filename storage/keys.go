// Package storage keeps harvested graphs and run summaries in NATS KV.
package storage

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

// Bucket names.
const (
	BucketGraphs = "SEMHARVEST_GRAPHS"
	BucketRuns   = "SEMHARVEST_RUNS"
)

// KeyKind is the kind of entry a key addresses.
type KeyKind string

const (
	KeyKindGraph KeyKind = "graph"
	KeyKindRun   KeyKind = "run"
)

// Key is a typed KV key. KV keys only allow [-/_=.a-zA-Z0-9], so graph
// names and source files are hashed into Scope and ID.
type Key struct {
	Kind  KeyKind
	Scope string
	ID    string
}

// String returns the KV key.
func (k Key) String() string {
	if k.Scope == "" {
		return fmt.Sprintf("%s.%s", k.Kind, k.ID)
	}
	return fmt.Sprintf("%s.%s.%s", k.Kind, k.Scope, k.ID)
}

// ParseKey parses a KV key into its components.
func ParseKey(s string) (Key, error) {
	parts := strings.SplitN(s, ".", 3)
	if len(parts) < 2 || parts[1] == "" {
		return Key{}, fmt.Errorf("invalid key format: %s", s)
	}
	kind := KeyKind(parts[0])
	switch kind {
	case KeyKindRun:
		if len(parts) != 2 {
			return Key{}, fmt.Errorf("invalid run key: %s", s)
		}
		return Key{Kind: kind, ID: parts[1]}, nil
	case KeyKindGraph:
		if len(parts) != 3 || parts[2] == "" {
			return Key{}, fmt.Errorf("invalid graph key: %s", s)
		}
		return Key{Kind: kind, Scope: parts[1], ID: parts[2]}, nil
	default:
		return Key{}, fmt.Errorf("unknown key kind: %s", parts[0])
	}
}

// GraphKey addresses the statements that source contributed to graphName.
func GraphKey(graphName, source string) Key {
	return Key{Kind: KeyKindGraph, Scope: hash(graphName), ID: hash(source)}
}

// RunKey addresses a run summary.
func RunKey(runID string) Key {
	return Key{Kind: KeyKindRun, ID: runID}
}

func hash(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:10])
}

func getOrCreateBucket(ctx context.Context, js jetstream.JetStream, name string) (jetstream.KeyValue, error) {
	kv, err := js.KeyValue(ctx, name)
	if err == nil {
		return kv, nil
	}
	// Bucket doesn't exist, create it
	return js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: fmt.Sprintf("Semharvest %s storage", strings.ToLower(strings.TrimPrefix(name, "SEMHARVEST_"))),
		History:     5, // Keep last 5 revisions
	})
}

// keys lists the bucket keys with the given prefix.
func keys(ctx context.Context, kv jetstream.KeyValue, prefix string) ([]string, error) {
	all, err := kv.Keys(ctx)
	if err != nil {
		if err == jetstream.ErrNoKeysFound {
			return nil, nil
		}
		return nil, err
	}
	out := make([]string, 0, len(all))
	for _, k := range all {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}
