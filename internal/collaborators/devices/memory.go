package devices

import (
	"context"
	"errors"
	"sort"
	"sync"

	"bankops/pkg/model"
)

type MemoryRegistry struct {
	mu      sync.RWMutex
	devices map[string]model.Device
}

func NewMemoryRegistry(devices ...model.Device) *MemoryRegistry {
	r := &MemoryRegistry{devices: make(map[string]model.Device, len(devices))}
	for _, d := range devices {
		r.devices[d.ID] = d
	}
	return r
}

func (r *MemoryRegistry) Put(device model.Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[device.ID] = device
}

func (r *MemoryRegistry) Get(_ context.Context, deviceID string) (*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[deviceID]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return &d, nil
}

func (r *MemoryRegistry) IsDeviceReady(ctx context.Context, deviceID string) (bool, error) {
	d, err := r.Get(ctx, deviceID)
	if errors.Is(err, ErrDeviceNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return d.Status == model.DeviceActive, nil
}

func (r *MemoryRegistry) ListReady(_ context.Context) ([]*model.Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ready := make([]*model.Device, 0, len(r.devices))
	for _, d := range r.devices {
		if d.Status == model.DeviceActive {
			d := d
			ready = append(ready, &d)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i].ID < ready[j].ID })
	return ready, nil
}

var _ Registry = (*MemoryRegistry)(nil)
