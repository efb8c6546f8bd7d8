package infra

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/Gilmore369/tesis-profesorg/middleware/ratelimit/domain"
)

var boltBucket = []byte("contact_ratelimit")

// BoltStore guarda as janelas num arquivo bbolt.
//
// Cada CheckAndIncrement roda numa transação Update (o bbolt serializa os
// escritores), então a contagem é consistente entre goroutines e sobrevive a
// reinícios. Não coordena várias instâncias: para isso use RedisStore.
type BoltStore struct {
	db     *bolt.DB
	policy domain.Policy
	opts   storeOptions
}

// OpenBoltStore abre (ou cria) o arquivo em `path`.
func OpenBoltStore(path string, policy domain.Policy, opts ...StoreOption) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %q: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket: %w", err)
	}

	return &BoltStore{db: db, policy: policy.Normalize(), opts: newStoreOptions(opts)}, nil
}

func (s *BoltStore) Policy() domain.Policy { return s.policy }

func (s *BoltStore) Close() error { return s.db.Close() }

// CheckAndIncrement implementa domain.WindowStore.
func (s *BoltStore) CheckAndIncrement(ctx context.Context, key domain.Key) (domain.Decision, error) {
	if err := ctx.Err(); err != nil {
		return domain.Decision{}, err
	}

	now := s.opts.now()
	var dec domain.Decision
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		k := []byte(key)

		rec, found := decodeRecord(b.Get(k))
		next, d := s.policy.Apply(rec, found, now)
		dec = d
		if !d.Allowed {
			return nil
		}
		return b.Put(k, encodeRecord(next))
	})
	if err != nil {
		return domain.Decision{}, fmt.Errorf("bolt update: %w", err)
	}
	return dec, nil
}

// Cleanup apaga as chaves cuja janela já terminou.
func (s *BoltStore) Cleanup() error {
	now := s.opts.now()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			rec, ok := decodeRecord(v)
			if !ok || rec.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len devolve quantas chaves estão no arquivo.
func (s *BoltStore) Len() (int, error) {
	n := 0
	err := s.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket(boltBucket).Stats().KeyN
		return nil
	})
	return n, err
}

// StartJanitor limpa janelas vencidas periodicamente; erros são ignorados
// (a próxima rodada tenta de novo). Pare cancelando o contexto.
func (s *BoltStore) StartJanitor(ctx DoneContext) {
	startJanitor(ctx, s.opts.cleanupEvery, func() { _ = s.Cleanup() })
}

// registro: count (uint32) + resetAt em unix nanos (int64), big endian.
const recordSize = 12

func encodeRecord(r domain.Record) []byte {
	buf := make([]byte, recordSize)
	binary.BigEndian.PutUint32(buf[0:4], uint32(r.Count))
	binary.BigEndian.PutUint64(buf[4:12], uint64(r.ResetAt.UnixNano()))
	return buf
}

func decodeRecord(v []byte) (domain.Record, bool) {
	if len(v) != recordSize {
		return domain.Record{}, false
	}
	return domain.Record{
		Count:   int(binary.BigEndian.Uint32(v[0:4])),
		ResetAt: time.Unix(0, int64(binary.BigEndian.Uint64(v[4:12]))).UTC(),
	}, true
}
