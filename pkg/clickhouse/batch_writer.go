package clickhouse

import (
	"context"
	"sync"
	"time"

	"hermes/pkg/logger"
)

// FlushFunc performs the actual INSERT for a batch of buffered rows.
type FlushFunc func(ctx context.Context, batch []any) error

// BatchWriter accumulates rows in memory and writes them to ClickHouse in
// batches. ClickHouse is optimized for bulk inserts; writing usage records
// one row at a time would be wasteful.
type BatchWriter struct {
	flushFunc FlushFunc
	buffer    []any
	mu        sync.Mutex
	log       *logger.Logger

	maxBatchSize int           // flush when buffer reaches this size
	maxAge       time.Duration // flush at least this often
	tableName    string        // for logging only

	lastFlush time.Time
	ticker    *time.Ticker
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
}

// BatchWriterConfig contains configuration for BatchWriter.
type BatchWriterConfig struct {
	FlushFunc    FlushFunc
	TableName    string
	MaxBatchSize int           // default: 500
	MaxAge       time.Duration // default: 5s
}

// NewBatchWriter creates a batch writer. Start must be called before rows
// are flushed periodically; Add still flushes on its own when the buffer
// fills up.
func NewBatchWriter(cfg BatchWriterConfig) *BatchWriter {
	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 500
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 5 * time.Second
	}

	return &BatchWriter{
		flushFunc:    cfg.FlushFunc,
		buffer:       make([]any, 0, cfg.MaxBatchSize),
		maxBatchSize: cfg.MaxBatchSize,
		maxAge:       cfg.MaxAge,
		tableName:    cfg.TableName,
		lastFlush:    time.Now(),
		stopCh:       make(chan struct{}),
		log:          logger.Get().With("component", "batch_writer", "table", cfg.TableName),
	}
}

// Start begins the background flush ticker.
func (bw *BatchWriter) Start(ctx context.Context) {
	bw.mu.Lock()
	if bw.running {
		bw.mu.Unlock()
		return
	}
	bw.running = true
	bw.ticker = time.NewTicker(bw.maxAge)
	bw.mu.Unlock()

	bw.wg.Add(1)
	go bw.flushLoop(ctx)

	bw.log.Infof("Batch writer started (maxBatchSize=%d, maxAge=%v)", bw.maxBatchSize, bw.maxAge)
}

// Add appends a row to the buffer, flushing immediately when the buffer
// reaches maxBatchSize.
func (bw *BatchWriter) Add(ctx context.Context, row any) error {
	bw.mu.Lock()
	bw.buffer = append(bw.buffer, row)
	full := len(bw.buffer) >= bw.maxBatchSize
	bw.mu.Unlock()

	if full {
		return bw.Flush(ctx)
	}
	return nil
}

// Flush writes all buffered rows to ClickHouse.
func (bw *BatchWriter) Flush(ctx context.Context) error {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return nil
	}

	// Take ownership of the buffer so Add is not blocked during the insert.
	batch := bw.buffer
	bw.buffer = make([]any, 0, bw.maxBatchSize)
	bw.lastFlush = time.Now()
	bw.mu.Unlock()

	start := time.Now()
	err := bw.flushFunc(ctx, batch)
	elapsed := time.Since(start)

	if err != nil {
		bw.log.Errorf("Failed to flush %d rows to %s: %v (took %v)",
			len(batch), bw.tableName, err, elapsed)
		return err
	}

	bw.log.Debugf("Flushed %d rows to %s (took %v)", len(batch), bw.tableName, elapsed)
	return nil
}

func (bw *BatchWriter) flushLoop(ctx context.Context) {
	defer bw.wg.Done()

	for {
		select {
		case <-ctx.Done():
			bw.log.Info("Batch writer stopping, performing final flush")
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-bw.stopCh:
			bw.log.Info("Batch writer received stop signal, performing final flush")
			if err := bw.Flush(context.Background()); err != nil {
				bw.log.Errorf("Final flush failed: %v", err)
			}
			return

		case <-bw.ticker.C:
			bw.mu.Lock()
			pending := len(bw.buffer)
			bw.mu.Unlock()

			if pending > 0 {
				if err := bw.Flush(ctx); err != nil {
					bw.log.Errorf("Periodic flush failed: %v", err)
				}
			}
		}
	}
}

// Stop flushes remaining rows and waits for the flush loop to exit.
func (bw *BatchWriter) Stop(ctx context.Context) error {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		return nil
	}
	bw.running = false
	bw.mu.Unlock()

	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	close(bw.stopCh)

	done := make(chan struct{})
	go func() {
		bw.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		bw.log.Info("Batch writer stopped")
		return nil
	case <-ctx.Done():
		bw.log.Warn("Batch writer stop timed out")
		return ctx.Err()
	}
}

// BufferSize reports the number of rows awaiting flush.
func (bw *BatchWriter) BufferSize() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}
