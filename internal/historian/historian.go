// Package historian drains the room action queue into long-term storage.
package historian

import (
	"context"
	"time"

	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/sirupsen/logrus"
)

const (
	popTimeout   = 3 * time.Second
	errorBackoff = time.Second
)

// Source yields queued action records. A nil record means the wait timed out.
type Source interface {
	PopRoomAction(ctx context.Context, timeout time.Duration) (*cache.RoomActionRecord, error)
}

// Sink archives a batch of records in one transaction.
type Sink interface {
	InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error
}

// Service pops records from Source, accumulates them and flushes to Sink when the batch
// is full or FlushDelay has passed since the last flush.
type Service struct {
	source     Source
	sink       Sink
	batchSize  int
	flushDelay time.Duration
	log        *logrus.Entry

	batch     []cache.RoomActionRecord
	lastFlush time.Time
	now       func() time.Time
}

func NewService(source Source, sink Sink, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Service {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Service{
		source:     source,
		sink:       sink,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		log:        logger.WithField("component", "historian"),
		batch:      make([]cache.RoomActionRecord, 0, batchSize),
		now:        time.Now,
	}
}

// Run loops until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	s.log.Info("historian service started")
	s.lastFlush = s.now()

	for ctx.Err() == nil {
		s.step(ctx)
	}

	// Final flush on shutdown; ctx is gone so it gets its own deadline.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.flush(flushCtx)
	s.log.Info("historian shutting down")
}

// step waits for at most one record and flushes when due.
func (s *Service) step(ctx context.Context) {
	wait := popTimeout
	if s.flushDelay > 0 && s.flushDelay < wait {
		wait = s.flushDelay
	}

	rec, err := s.source.PopRoomAction(ctx, wait)
	switch {
	case err != nil && ctx.Err() == nil:
		s.log.Warnf("pop failed: %v", err)
		select {
		case <-ctx.Done():
		case <-time.After(errorBackoff):
		}
	case rec != nil:
		s.batch = append(s.batch, *rec)
	}

	if len(s.batch) >= s.batchSize || s.now().Sub(s.lastFlush) >= s.flushDelay {
		s.flush(ctx)
	}
}

// flush writes the pending batch. A failed batch is logged and dropped so one bad record
// cannot wedge the queue.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = s.now()
	if len(s.batch) == 0 {
		return
	}
	records := make([]cache.RoomActionRecord, len(s.batch))
	copy(records, s.batch)
	s.batch = s.batch[:0]

	if err := s.sink.InsertRoomActions(ctx, records); err != nil {
		s.log.Errorf("failed to flush %d actions: %v", len(records), err)
		return
	}
	s.log.Debugf("flushed %d actions", len(records))
}
