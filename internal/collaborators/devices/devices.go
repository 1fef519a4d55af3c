// Package devices is the ATM device registry collaborator. The orchestrator
// never assigns a device the registry does not report as ready.
package devices

import (
	"context"
	"errors"

	"bankops/pkg/model"
)

const TableName = "atm_devices"

var ErrDeviceNotFound = errors.New("device not found")

type Registry interface {
	Get(ctx context.Context, deviceID string) (*model.Device, error)
	IsDeviceReady(ctx context.Context, deviceID string) (bool, error)
	// ListReady returns ready devices ordered by id.
	ListReady(ctx context.Context) ([]*model.Device, error)
}
