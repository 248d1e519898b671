package pipeline

import (
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
)

type mockWriter struct {
	mu       sync.Mutex
	batches  [][]*models.Review
	writeErr error
}

func (mw *mockWriter) Write(reviews []*models.Review) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]*models.Review, len(reviews))
	copy(copyBatch, reviews)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	return nil
}

func (mw *mockWriter) Validate() error {
	return nil
}

func (mw *mockWriter) all() []*models.Review {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var out []*models.Review
	for _, batch := range mw.batches {
		out = append(out, batch...)
	}
	return out
}

func (mw *mockWriter) batchSizes() []int {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	sizes := make([]int, 0, len(mw.batches))
	for _, batch := range mw.batches {
		sizes = append(sizes, len(batch))
	}
	return sizes
}

func newTestPipeline(t *testing.T, writer OutputWriter, mutate func(*config.Config)) *Pipeline {
	t.Helper()
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := NewPipeline(writer, cfg)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return p
}

func TestPipelineAssignsContiguousIDs(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, nil)

	inputs := []*models.Review{
		{Name: "Ana", Rating: "5"},
		{Name: "Luis", Rating: "4"},
		{Name: "Unknown", Rating: "-"},
	}
	if err := p.Process(inputs...); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	written := writer.all()
	if len(written) != 3 {
		t.Fatalf("written=%d, want 3", len(written))
	}
	for i, review := range written {
		if review.ID != i+1 {
			t.Fatalf("review %d id=%d, want %d", i, review.ID, i+1)
		}
		if review.Name != inputs[i].Name {
			t.Fatalf("order changed: %q at %d", review.Name, i)
		}
	}
	for _, in := range inputs {
		if in.ID != 0 {
			t.Fatalf("input mutated: %+v", in)
		}
	}
	if p.Written() != 3 {
		t.Fatalf("Written()=%d, want 3", p.Written())
	}
}

func TestPipelineDropsRepeatedCards(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, nil)

	err := p.Process(
		&models.Review{Name: "Ana", ReviewID: "r1"},
		&models.Review{Name: "Ana", ReviewID: "r1"},
		&models.Review{Name: "Sin id"},
		&models.Review{Name: "Sin id"},
		nil,
		&models.Review{Name: "Luis", ReviewID: "r2"},
	)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	written := writer.all()
	if len(written) != 4 {
		t.Fatalf("written=%d, want 4", len(written))
	}
	if written[3].ID != 4 || written[3].ReviewID != "r2" {
		t.Fatalf("last=%+v, want id 4 r2", written[3])
	}

	validation, ok := p.GetMetrics()["validation_errors"].(map[string]int)
	if !ok {
		t.Fatalf("expected validation errors map")
	}
	if validation[SkipDuplicate] != 1 || validation[SkipNilRecord] != 1 {
		t.Fatalf("validation=%v", validation)
	}
	if skipped := p.Skipped(); skipped[SkipDuplicate] != 1 {
		t.Fatalf("skipped=%v", skipped)
	}
}

func TestPipelineDedupeDisabled(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, func(cfg *config.Config) { cfg.DedupeMaxSize = 0 })

	if err := p.Process(&models.Review{ReviewID: "r1"}, &models.Review{ReviewID: "r1"}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := len(writer.all()); got != 2 {
		t.Fatalf("written=%d, want 2", got)
	}
}

func TestPipelineBatchFlushThreshold(t *testing.T) {
	writer := &mockWriter{}
	p := newTestPipeline(t, writer, func(cfg *config.Config) { cfg.BatchSize = 64 })

	for i := 0; i < 65; i++ {
		if err := p.Process(&models.Review{Name: "r" + strconv.Itoa(i)}); err != nil {
			t.Fatalf("process: %v", err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sizes := writer.batchSizes()
	if len(sizes) != 2 || sizes[0] != 64 || sizes[1] != 1 {
		t.Fatalf("batch sizes = %v, want [64 1]", sizes)
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	p := newTestPipeline(t, &mockWriter{}, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(&models.Review{}); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("err=%v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriteErrorSticks(t *testing.T) {
	boom := errors.New("disk full")
	p := newTestPipeline(t, &mockWriter{writeErr: boom}, func(cfg *config.Config) { cfg.BatchSize = 1 })

	if err := p.Process(&models.Review{}); !errors.Is(err, boom) {
		t.Fatalf("err=%v, want disk full", err)
	}
	if err := p.Process(&models.Review{}); !errors.Is(err, boom) {
		t.Fatalf("second err=%v, want disk full", err)
	}
	if err := p.Close(); !errors.Is(err, boom) {
		t.Fatalf("close err=%v, want disk full", err)
	}
}
