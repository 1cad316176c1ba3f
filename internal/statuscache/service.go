package statuscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	kafkax "github.com/ariefcatur/go-rental-orders.git/internal/kafka"
	"github.com/ariefcatur/go-rental-orders.git/internal/redisx"
	"github.com/ariefcatur/go-rental-orders.git/internal/rental"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Cache is the slice of the redis client used here; *redis.Client satisfies it.
type Cache interface {
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// Service keeps the Redis payment-status cache warm from domain events so
// status reads skip the database. The DB stays the source of truth; entries
// expire on their own TTL.
type Service struct {
	Redis       Cache
	ServiceName string
}

// HandleOrderCreated seeds the status cache for a fresh order (pending).
func (s *Service) HandleOrderCreated(ctx context.Context, m kafkago.Message) error {
	var env rental.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != rental.EventOrderCreated {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[rental.OrderCreatedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.setStatus(ctx, p.PaymentRecordID, rental.StatusPending); err != nil {
		// dedup belum di-set, jadi redelivery masih diproses
		return err
	}
	s.mark(ctx, env.EventID)
	return nil
}

// HandleStatusChanged refreshes the cached status after an admin transition.
func (s *Service) HandleStatusChanged(ctx context.Context, m kafkago.Message) error {
	var env rental.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != rental.EventPaymentStatusChanged {
		return nil
	}
	if s.seen(ctx, env.EventID) {
		return nil
	}

	p, err := kafkax.UnwrapPayload[rental.PaymentStatusChangedPayload](env.Payload)
	if err != nil {
		return err
	}
	if err := s.setStatus(ctx, p.PaymentRecordID, p.To); err != nil {
		return err
	}
	s.mark(ctx, env.EventID)
	return nil
}

func (s *Service) seen(ctx context.Context, eventID string) bool {
	n, _ := s.Redis.Exists(ctx, s.dedupKey(eventID)).Result()
	return n > 0
}

// mark dipanggil SETELAH tulis cache sukses; kalau dibalik, write yang gagal
// lalu di-redeliver bakal di-skip selamanya.
func (s *Service) mark(ctx context.Context, eventID string) {
	_ = s.Redis.Set(ctx, s.dedupKey(eventID), "1", redisx.TTLDedup).Err()
}

func (s *Service) dedupKey(eventID string) string {
	return fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
}

func (s *Service) setStatus(ctx context.Context, paymentRecordID string, status rental.Status) error {
	key := fmt.Sprintf(redisx.KeyPaymentStatus, paymentRecordID)
	body, _ := json.Marshal(map[string]any{"status": status})
	return s.Redis.Set(ctx, key, body, redisx.TTLStatusCache).Err()
}
