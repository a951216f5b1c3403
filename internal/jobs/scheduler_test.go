package jobs

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/internal/config"
	"github.com/pricewatch/pricewatch/internal/models"
)

type fakeDueLister struct {
	due   []*models.Product
	err   error
	calls int
}

func (f *fakeDueLister) GetDue(ctx context.Context, limit int) ([]*models.Product, error) {
	f.calls++
	return f.due, f.err
}

type fakeTracker struct {
	scraped []string
	fail    map[string]bool
}

func (f *fakeTracker) ScrapeProduct(ctx context.Context, productID string) (*models.ScrapeResult, error) {
	f.scraped = append(f.scraped, productID)
	return &models.ScrapeResult{
		Success: !f.fail[productID],
		Status:  models.StatusSuccess,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:       true,
		CheckInterval: time.Hour,
		StartupDelay:  0,
		ProductDelay:  time.Millisecond,
	}
}

func TestRunPassScrapesAllDue(t *testing.T) {
	due := &fakeDueLister{due: []*models.Product{
		{ID: "p1", Platform: models.PlatformAmazon},
		{ID: "p2", Platform: models.PlatformWalmart},
		{ID: "p3", Platform: models.PlatformAmazon},
	}}
	tracker := &fakeTracker{fail: map[string]bool{"p2": true}}

	s := NewScheduler(due, tracker, testSchedulerConfig(), testLogger())
	s.runPass(context.Background())

	assert.Equal(t, []string{"p1", "p2", "p3"}, tracker.scraped)
}

func TestRunPassNothingDue(t *testing.T) {
	due := &fakeDueLister{}
	tracker := &fakeTracker{}

	s := NewScheduler(due, tracker, testSchedulerConfig(), testLogger())
	s.runPass(context.Background())

	assert.Empty(t, tracker.scraped)
}

func TestRunPassStopsOnCancel(t *testing.T) {
	due := &fakeDueLister{due: []*models.Product{
		{ID: "p1"}, {ID: "p2"}, {ID: "p3"},
	}}
	tracker := &fakeTracker{}

	cfg := testSchedulerConfig()
	cfg.ProductDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())

	s := NewScheduler(due, tracker, cfg, testLogger())

	done := make(chan struct{})
	go func() {
		s.runPass(ctx)
		close(done)
	}()

	// Let the first product go through, then cancel during the inter-product
	// delay.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runPass did not stop after cancellation")
	}

	require.NotEmpty(t, tracker.scraped)
	assert.Less(t, len(tracker.scraped), 3)
}

func TestStartHonorsStartupDelayAndCancel(t *testing.T) {
	due := &fakeDueLister{}
	tracker := &fakeTracker{}

	cfg := testSchedulerConfig()
	cfg.StartupDelay = time.Hour

	ctx, cancel := context.WithCancel(context.Background())

	s := NewScheduler(due, tracker, cfg, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop during startup delay")
	}

	assert.Zero(t, due.calls)
}
