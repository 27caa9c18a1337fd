package volume

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/guardian/internal/core/domain"
)

// pollWatch wakes a rescan loop on filesystem events, watcher errors or
// the poll ticker. Without a watcher only the ticker fires.
type pollWatch struct {
	w      *fsnotify.Watcher
	events <-chan fsnotify.Event
	errs   <-chan error
}

func watchDir(dir string) *pollWatch {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return &pollWatch{}
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return &pollWatch{}
	}
	return &pollWatch{w: w, events: w.Events, errs: w.Errors}
}

func (p *pollWatch) close() {
	if p.w != nil {
		p.w.Close()
	}
}

// wait blocks until the next rescan is due. Watcher errors (queue
// overflow included) are drained and count as a wake-up.
func (p *pollWatch) wait(ctx context.Context, timer <-chan time.Time, tick <-chan time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return domain.ErrTimeout
	case <-tick:
	case <-p.events:
	case <-p.errs:
	}
	return nil
}
