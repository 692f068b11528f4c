package scheduling

import (
	"context"

	"github.com/AutoCareLink/AutoCareLink/internal/maintenance"
	"github.com/AutoCareLink/AutoCareLink/internal/vehicle"
)

// VehicleStore 引擎对车辆存储的依赖。查找不存在时返回 (nil, nil)。
type VehicleStore interface {
	FindByVIN(ctx context.Context, vin string) (*vehicle.Vehicle, error)
	Update(ctx context.Context, v *vehicle.Vehicle) error
}

// ServiceStore 引擎对服务单存储的依赖。
type ServiceStore interface {
	FindOpenUnpaidByVIN(ctx context.Context, vin string) (*maintenance.Service, error)
	FindLatestUnassignedByVIN(ctx context.Context, vin string) (*maintenance.Service, error)
	Create(ctx context.Context, s *maintenance.Service) error
	Update(ctx context.Context, s *maintenance.Service) error
	ListUnassigned(ctx context.Context) ([]maintenance.Service, error)
	List(ctx context.Context) ([]maintenance.Service, error)
}
