package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/matzehuels/wsbump/pkg/release"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// syncSpinner animates on w while registry lookups run, then collapses into
// a one-line tally of the sync results.
type syncSpinner struct {
	w       io.Writer
	message string
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once
	mu      sync.Mutex
}

// newSyncSpinner returns a spinner for a sync over total packages. It stops
// on its own when ctx is cancelled.
func newSyncSpinner(ctx context.Context, w io.Writer, total int) *syncSpinner {
	spinnerCtx, cancel := context.WithCancel(ctx)
	return &syncSpinner{
		w:       w,
		message: fmt.Sprintf("Checking %d packages on crates.io...", total),
		ctx:     spinnerCtx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *syncSpinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				fmt.Fprintf(s.w, "\r%s %s", styleIconSpinner.Render(spinnerFrames[i%len(spinnerFrames)]), StyleDim.Render(s.message))
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and clears the line. Safe to call more than once.
func (s *syncSpinner) Stop() {
	s.once.Do(func() {
		s.cancel()
		<-s.stopped
		s.mu.Lock()
		defer s.mu.Unlock()
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", len(s.message)+4))
	})
}

// Finish stops the spinner and writes the tally for results in its place.
func (s *syncSpinner) Finish(results []release.SyncResult) syncTally {
	s.Stop()
	t := tallySync(results)
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.failed > 0 {
		fmt.Fprintln(s.w, styleIconError.Render(iconError)+" "+t.String())
	} else {
		fmt.Fprintln(s.w, styleIconSuccess.Render(iconSuccess)+" "+t.String())
	}
	return t
}

// syncTally counts sync results by outcome.
type syncTally struct {
	total, updated, synced, skipped, failed int
}

func tallySync(results []release.SyncResult) syncTally {
	t := syncTally{total: len(results)}
	for _, r := range results {
		switch r.Outcome {
		case release.Updated:
			t.updated++
		case release.AlreadySynced:
			t.synced++
		case release.PublishFalse:
			t.skipped++
		case release.Failed:
			t.failed++
		}
	}
	return t
}

// String renders e.g. "3 packages checked: 1 updated, 1 already synced, 1 failed".
// Zero counts are left out.
func (t syncTally) String() string {
	var parts []string
	for _, p := range []struct {
		n    int
		name string
	}{
		{t.updated, "updated"},
		{t.synced, "already synced"},
		{t.skipped, "not published"},
		{t.failed, "failed"},
	} {
		if p.n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", p.n, p.name))
		}
	}
	noun := "packages"
	if t.total == 1 {
		noun = "package"
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%d %s checked", t.total, noun)
	}
	return fmt.Sprintf("%d %s checked: %s", t.total, noun, strings.Join(parts, ", "))
}
