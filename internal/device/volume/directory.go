package volume

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yndnr/guardian/internal/core/domain"
	"github.com/yndnr/guardian/internal/device"
)

// DefaultPollInterval is the rescan interval when fsnotify events are
// missed or unavailable.
const DefaultPollInterval = 500 * time.Millisecond

// Directory is a device.Directory over the volumes under a mount root.
type Directory struct {
	root string
	poll time.Duration

	mu sync.Mutex
	// reported maps a volume path to the type it was last reported as.
	// An entry lives as long as the volume stays mounted.
	reported map[string]domain.DeviceType
}

// NewDirectory creates a directory for the volumes under root.
func NewDirectory(root string, poll time.Duration) *Directory {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Directory{
		root:     root,
		poll:     poll,
		reported: make(map[string]domain.DeviceType),
	}
}

// Root returns the mount root.
func (d *Directory) Root() string {
	return d.root
}

type volumeEntry struct {
	path string
	desc domain.Descriptor
}

func (d *Directory) scan() ([]volumeEntry, error) {
	entries, err := os.ReadDir(d.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, domain.ErrDeviceIO.Wrap(err)
	}

	vols := make([]volumeEntry, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(d.root, e.Name())
		desc, err := describe(path)
		if err != nil {
			continue
		}
		vols = append(vols, volumeEntry{path: path, desc: desc})
	}
	sort.Slice(vols, func(i, j int) bool { return vols[i].path < vols[j].path })
	return vols, nil
}

// List implements device.Directory.
func (d *Directory) List(ctx context.Context) ([]domain.Descriptor, error) {
	vols, err := d.scan()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Descriptor, 0, len(vols))
	for _, v := range vols {
		out = append(out, v.desc)
	}
	return out, nil
}

// Get implements device.Directory.
func (d *Directory) Get(ctx context.Context, id string) (device.Channel, error) {
	vols, err := d.scan()
	if err != nil {
		return nil, err
	}
	for _, v := range vols {
		if v.desc.ID == id {
			return NewChannel(v.path, d.poll), nil
		}
	}
	return nil, domain.ErrDeviceNotFound.WithDetails(id)
}

// WaitForDevice implements device.Directory. A volume is reported once
// per appearance, and again if its type changes while mounted (for
// example when its manifest is written after the mount).
func (d *Directory) WaitForDevice(ctx context.Context, timeout time.Duration) (device.Discovery, error) {
	watch := watchDir(d.root)
	defer watch.close()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	ticker := time.NewTicker(d.poll)
	defer ticker.Stop()

	for {
		disc, err := d.next()
		if err != nil {
			return nil, err
		}
		if disc != nil {
			return disc, nil
		}

		if err := watch.wait(ctx, timer.C, ticker.C); err != nil {
			return nil, err
		}
	}
}

// next returns the first unreported volume, forgetting volumes that
// have been unmounted.
func (d *Directory) next() (device.Discovery, error) {
	vols, err := d.scan()
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	present := make(map[string]bool, len(vols))
	for _, v := range vols {
		present[v.path] = true
	}
	for path := range d.reported {
		if !present[path] {
			delete(d.reported, path)
		}
	}

	for _, v := range vols {
		if t, ok := d.reported[v.path]; ok && t == v.desc.Type {
			continue
		}
		d.reported[v.path] = v.desc.Type
		return device.Classify(NewChannel(v.path, d.poll), v.desc), nil
	}
	return nil, nil
}
