package pipeline

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
)

// Reasons a record is skipped, as reported under "validation_errors".
const (
	SkipNilRecord = "nil_record"
	SkipDuplicate = "duplicate_review"
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(reviews []*models.Review) error
	Close() error
	Validate() error
}

// Pipeline numbers reviews in arrival order, drops cards that were rendered
// twice and writes them in batches. One pipeline serves one output file.
type Pipeline struct {
	writer    OutputWriter
	batchSize int
	batch     []*models.Review
	nextID    int

	seen *lru.Cache[string, struct{}]

	metrics metrics

	mu     sync.Mutex
	closed bool
	err    error
}

// NewPipeline builds a pipeline writing to writer.
func NewPipeline(writer OutputWriter, cfg *config.Config) (*Pipeline, error) {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 64
	}

	p := &Pipeline{
		writer:    writer,
		batchSize: batchSize,
		batch:     make([]*models.Review, 0, batchSize),
		nextID:    1,
		metrics:   newMetrics(),
	}

	if cfg.DedupeMaxSize > 0 {
		seen, err := lru.New[string, struct{}](cfg.DedupeMaxSize)
		if err != nil {
			return nil, fmt.Errorf("create dedupe cache: %w", err)
		}
		p.seen = seen
	}
	return p, nil
}

// Process assigns sequential IDs and queues reviews for writing. The input
// records are not modified.
func (p *Pipeline) Process(reviews ...*models.Review) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	if p.closed {
		return ErrPipelineClosed
	}

	for _, review := range reviews {
		if review == nil {
			p.metrics.addValidation(SkipNilRecord)
			continue
		}
		if p.duplicate(review) {
			p.metrics.addValidation(SkipDuplicate)
			continue
		}

		numbered := *review
		numbered.ID = p.nextID
		p.nextID++
		p.batch = append(p.batch, &numbered)
		p.metrics.incrementProcessed()

		if len(p.batch) >= p.batchSize {
			if err := p.flushLocked(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close flushes pending reviews and prevents more submissions. It does not
// close the writer.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.err
	}
	p.closed = true
	if p.err == nil {
		_ = p.flushLocked()
	}
	return p.err
}

// Written returns the number of reviews accepted so far.
func (p *Pipeline) Written() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextID - 1
}

// GetMetrics returns a snapshot of the internal counters.
func (p *Pipeline) GetMetrics() map[string]interface{} {
	return p.metrics.snapshot()
}

// Skipped returns how many records were dropped, by reason.
func (p *Pipeline) Skipped() map[string]int {
	skipped, _ := p.metrics.snapshot()["validation_errors"].(map[string]int)
	return skipped
}

func (p *Pipeline) duplicate(review *models.Review) bool {
	if p.seen == nil || review.ReviewID == "" {
		return false
	}
	if p.seen.Contains(review.ReviewID) {
		return true
	}
	p.seen.Add(review.ReviewID, struct{}{})
	return false
}

func (p *Pipeline) flushLocked() error {
	if len(p.batch) == 0 {
		return nil
	}
	if err := p.writer.Write(p.batch); err != nil {
		p.err = fmt.Errorf("write batch: %w", err)
		p.closed = true
		return p.err
	}
	p.batch = make([]*models.Review, 0, p.batchSize)
	return nil
}

type metrics struct {
	mu         sync.Mutex
	processed  int64
	validation map[string]int
}

func newMetrics() metrics {
	return metrics{
		validation: make(map[string]int),
	}
}

func (m *metrics) incrementProcessed() {
	m.mu.Lock()
	m.processed++
	m.mu.Unlock()
}

func (m *metrics) addValidation(kind string) {
	m.mu.Lock()
	m.validation[kind]++
	m.mu.Unlock()
}

func (m *metrics) snapshot() map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()

	copyValidation := make(map[string]int, len(m.validation))
	for k, v := range m.validation {
		copyValidation[k] = v
	}

	return map[string]interface{}{
		"processed_reviews": m.processed,
		"validation_errors": copyValidation,
	}
}
