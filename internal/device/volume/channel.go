package volume

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
)

// emptyGrace is how long an empty inbox file may still be in the middle
// of being written.
const emptyGrace = time.Second

// Channel is a device.Channel over one mounted volume.
type Channel struct {
	dir  string
	poll time.Duration

	mu        sync.Mutex
	connected bool
}

// NewChannel creates a channel for the volume mounted at dir.
func NewChannel(dir string, poll time.Duration) *Channel {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Channel{dir: dir, poll: poll}
}

// Path returns the volume's mount point.
func (c *Channel) Path() string {
	return c.dir
}

// Connect implements device.Channel.
func (c *Channel) Connect(ctx context.Context) error {
	info, err := os.Stat(c.dir)
	if err != nil {
		return domain.ErrDeviceIO.Wrap(err)
	}
	if !info.IsDir() {
		return domain.ErrDeviceIO.WithDetails(c.dir + ": not a directory")
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Disconnect implements device.Channel.
func (c *Channel) Disconnect(ctx context.Context) error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func (c *Channel) checkConnected() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return domain.ErrDeviceIO.WithDetails("not connected")
	}
	return nil
}

// Read implements device.Channel. It returns at most size bytes of the
// volume's key file.
func (c *Channel) Read(ctx context.Context, size int) ([]byte, error) {
	if err := c.checkConnected(); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(c.dir, MetaDir, KeyFile))
	if err != nil {
		return nil, domain.ErrDeviceIO.Wrap(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, int64(size)))
	if err != nil {
		return nil, domain.ErrDeviceIO.Wrap(err)
	}
	return data, nil
}

// Write implements device.Channel. Data is appended to the outbox.
func (c *Channel) Write(ctx context.Context, data []byte) error {
	if err := c.checkConnected(); err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(c.dir, MetaDir, OutboxFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return domain.ErrDeviceIO.Wrap(err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return domain.ErrDeviceIO.Wrap(err)
	}
	if err := f.Close(); err != nil {
		return domain.ErrDeviceIO.Wrap(err)
	}
	return nil
}

// Info implements device.Channel.
func (c *Channel) Info(ctx context.Context) (domain.Descriptor, error) {
	d, err := describe(c.dir)
	if err != nil {
		return domain.Descriptor{}, domain.ErrDeviceIO.Wrap(err)
	}
	return d, nil
}

// WaitForCommand implements device.Channel. It consumes the oldest inbox
// file and returns its trimmed content.
func (c *Channel) WaitForCommand(ctx context.Context, timeout time.Duration) (string, error) {
	if err := c.checkConnected(); err != nil {
		return "", err
	}

	inbox := filepath.Join(c.dir, MetaDir, InboxDir)

	watch := watchDir(inbox)
	defer watch.close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()

	for {
		cmd, ok, err := c.nextCommand(inbox)
		if err != nil {
			return "", err
		}
		if ok {
			return cmd, nil
		}

		if err := watch.wait(ctx, timer.C, ticker.C); err != nil {
			return "", err
		}
	}
}

// nextCommand pops the oldest non-empty inbox file.
func (c *Channel) nextCommand(inbox string) (string, bool, error) {
	if _, err := os.Stat(c.dir); err != nil {
		return "", false, domain.ErrDeviceIO.Wrap(err)
	}

	entries, err := os.ReadDir(inbox)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, domain.ErrDeviceIO.Wrap(err)
	}

	type pending struct {
		name string
		mod  time.Time
		size int64
	}
	files := make([]pending, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, pending{name: e.Name(), mod: info.ModTime(), size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool {
		if !files[i].mod.Equal(files[j].mod) {
			return files[i].mod.Before(files[j].mod)
		}
		return files[i].name < files[j].name
	})

	for _, f := range files {
		path := filepath.Join(inbox, f.name)
		if f.size == 0 {
			if time.Since(f.mod) > emptyGrace {
				_ = os.Remove(path)
			}
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return "", false, domain.ErrDeviceIO.Wrap(err)
		}
		if err := os.Remove(path); err != nil {
			return "", false, domain.ErrDeviceIO.Wrap(err)
		}
		cmd := strings.TrimSpace(string(data))
		if cmd == "" {
			continue
		}
		return cmd, true, nil
	}
	return "", false, nil
}
