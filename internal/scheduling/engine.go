package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AutoCareLink/AutoCareLink/internal/common/errs"
	"github.com/AutoCareLink/AutoCareLink/internal/common/logger"
	"github.com/AutoCareLink/AutoCareLink/internal/maintenance"
	"github.com/AutoCareLink/AutoCareLink/internal/technician"
	"github.com/AutoCareLink/AutoCareLink/internal/vehicle"
)

// Engine 调度引擎：串联里程台账、服务单生命周期与技师可用性。
// 引擎内不缓存任何技师/服务单状态，每个决策点都现查存储。
type Engine struct {
	vehicles VehicleStore
	services ServiceStore
	techs    technician.Directory
	index    *technician.Index
	clock    Clock
	log      logger.Logger
}

func NewEngine(
	vehicles VehicleStore,
	services ServiceStore,
	techs technician.Directory,
	index *technician.Index,
	clock Clock,
	log logger.Logger,
) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Engine{
		vehicles: vehicles,
		services: services,
		techs:    techs,
		index:    index,
		clock:    clock,
		log:      log,
	}
}

// RecordReadingInput 新增里程读数的入参。
type RecordReadingInput struct {
	VIN         string
	Mileage     int64
	ServiceType string
}

// RecordReadingResult 新增里程读数的结果。
type RecordReadingResult struct {
	Reading            vehicle.OdometerReading
	NextServiceMileage int64
	ServiceID          string
}

// RecordReading 录入一条里程读数，按规则顺序过闸门：
//  1. 车辆存在
//  2. 里程严格递增、时间不回拨（与时间戳最大的那条读数比较）
//  3. 没有未支付服务单挡着（任何写入之前）
//  4. 已有阈值时读数必须到期；首条读数里程必须为正
//  5. serviceType 非空
//
// 全部通过后先落服务单、再写台账+推进阈值（服务单落库失败时台账不动）。
func (e *Engine) RecordReading(ctx context.Context, in RecordReadingInput) (*RecordReadingResult, error) {
	vin := strings.TrimSpace(in.VIN)
	if vin == "" {
		return nil, errs.Validation("VIN is required")
	}

	v, err := e.vehicles.FindByVIN(ctx, vin)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if v == nil {
		return nil, errs.NotFound("Vehicle VIN does not exist.")
	}

	now := e.clock.Now()

	if latest := vehicle.LatestReading(v); latest != nil {
		if in.Mileage <= latest.Mileage {
			return nil, errs.Validation("Mileage must be greater than the last recorded value.")
		}
		if now.Before(latest.RecordedAt) {
			return nil, errs.Validation("Request can't be processed right now.")
		}
	}

	// 阈值总是按本次读数重算，与走哪个分支无关
	next := in.Mileage + vehicle.ServiceInterval(v.Type)

	open, err := e.services.FindOpenUnpaidByVIN(ctx, vin)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if open != nil {
		return nil, errs.ValidationWithEntity(
			"Existing unpaid service present; cannot add odometer reading until service is paid or completed",
			open.ID,
		)
	}

	// 首条读数与到期读数走同一条路径，只差“阈值检查是否生效”
	thresholdSet := vehicle.HasThreshold(v)
	if thresholdSet {
		if in.Mileage < v.NextServiceMileage {
			return nil, errs.Validation("Mileage is less than nextServiceMileage; reading not added until due")
		}
	} else if in.Mileage <= 0 {
		return nil, errs.Validation("Invalid mileage for initial reading")
	}

	svcType := strings.TrimSpace(in.ServiceType)
	if svcType == "" {
		if thresholdSet {
			return nil, errs.Validation("serviceType is required when mileage meets or exceeds nextServiceMileage")
		}
		return nil, errs.Validation("serviceType is required when creating an initial service")
	}

	reading := vehicle.OdometerReading{
		VehicleVIN: v.VIN,
		ReadingID:  vehicle.NextReadingID(v),
		Mileage:    in.Mileage,
		RecordedAt: now,
	}
	svc := &maintenance.Service{
		ID:          uuid.NewString(),
		VehicleVIN:  v.VIN,
		ServiceType: svcType,
		Status:      maintenance.StatusUnassigned,
		ReadingID:   reading.ReadingID,
		CreatedAt:   now,
	}

	// 先建服务单：失败时台账保持原样
	if err := e.services.Create(ctx, svc); err != nil {
		return nil, errs.Internal(err)
	}

	vehicle.AppendReading(v, reading, next)
	if err := e.vehicles.Update(ctx, v); err != nil {
		// 服务单已落库而台账没跟上：留下可对账的痕迹
		if e.log != nil {
			e.log.WithFields(map[string]interface{}{
				"vin":        v.VIN,
				"service_id": svc.ID,
				"reading_id": reading.ReadingID,
			}).Errorf("vehicle save failed after service create: %v", err)
		}
		return nil, errs.Internal(err)
	}

	return &RecordReadingResult{
		Reading:            reading,
		NextServiceMileage: next,
		ServiceID:          svc.ID,
	}, nil
}

// ListReadings 返回车辆的里程台账（按插入顺序；没有读数时返回空序列）。
func (e *Engine) ListReadings(ctx context.Context, vin string) ([]vehicle.OdometerReading, error) {
	v, err := e.vehicles.FindByVIN(ctx, strings.TrimSpace(vin))
	if err != nil {
		return nil, errs.Internal(err)
	}
	if v == nil {
		return nil, errs.NotFound("Vehicle not found.")
	}
	if v.Readings == nil {
		return []vehicle.OdometerReading{}, nil
	}
	return v.Readings, nil
}

// ScheduleServiceInput 排期/指派请求入参。VehicleVIN 与 VehicleID 二选一
// （VehicleID 为旧接口的车辆标识，这里同样按 VIN 解析）。
type ScheduleServiceInput struct {
	VehicleVIN     string
	VehicleID      string
	ServiceType    string
	DueServiceDate *time.Time
	Description    string
	TechnicianID   string
}

// ScheduleServiceResult Updated=true 表示更新了既有 Unassigned 单。
type ScheduleServiceResult struct {
	ServiceID string
	Updated   bool
}

// ScheduleService 排期一次维保服务：
//   - 车辆已有 Unassigned 单时原地更新（一辆车最多保留一张待排期单）
//   - 指定技师时按“技能 -> 今天档期 -> 占用”校验，任何一步不过整单不落
//   - serviceType 缺省时沿用既有 Unassigned 单的类型
func (e *Engine) ScheduleService(ctx context.Context, in ScheduleServiceInput) (*ScheduleServiceResult, error) {
	vin := strings.TrimSpace(in.VehicleVIN)
	if vin == "" {
		vin = strings.TrimSpace(in.VehicleID)
	}
	if vin == "" {
		return nil, errs.Validation("vehicleVIN or vehicleId is required")
	}

	v, err := e.vehicles.FindByVIN(ctx, vin)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if v == nil {
		return nil, errs.NotFound("Vehicle not found")
	}

	existing, err := e.services.FindLatestUnassignedByVIN(ctx, v.VIN)
	if err != nil {
		return nil, errs.Internal(err)
	}

	svcType := strings.TrimSpace(in.ServiceType)
	if svcType == "" && existing != nil {
		svcType = existing.ServiceType
	}
	if svcType == "" {
		return nil, errs.Validation("serviceType is required")
	}

	// 指派校验先行：不合格就整单拒绝，绝不落半个状态
	var tech *technician.Technician
	if techID := strings.TrimSpace(in.TechnicianID); techID != "" {
		tech, err = e.techs.FindByID(ctx, techID)
		if err != nil {
			return nil, errs.Internal(err)
		}
		if tech == nil {
			return nil, errs.NotFound("Technician not found")
		}

		excludeID := ""
		if existing != nil {
			excludeID = existing.ID
		}
		day := WeekdayName(e.clock.Now())
		if err := e.index.CheckEligible(ctx, tech, svcType, day, excludeID); err != nil {
			return nil, err
		}
	}

	if existing != nil {
		if tech != nil {
			maintenance.BindTechnician(existing, tech.ID, tech.FullName())
		}
		existing.ServiceType = svcType
		if strings.TrimSpace(in.Description) != "" {
			existing.Description = strings.TrimSpace(in.Description)
		}
		if in.DueServiceDate != nil {
			existing.DueServiceDate = in.DueServiceDate
		}
		if err := e.services.Update(ctx, existing); err != nil {
			return nil, errs.Internal(err)
		}
		return &ScheduleServiceResult{ServiceID: existing.ID, Updated: true}, nil
	}

	svc := &maintenance.Service{
		ID:             uuid.NewString(),
		VehicleVIN:     v.VIN,
		ServiceType:    svcType,
		Status:         maintenance.StatusUnassigned,
		Description:    strings.TrimSpace(in.Description),
		DueServiceDate: in.DueServiceDate,
		CreatedAt:      e.clock.Now(),
	}
	if tech != nil {
		maintenance.BindTechnician(svc, tech.ID, tech.FullName())
	}
	if err := e.services.Create(ctx, svc); err != nil {
		return nil, errs.Internal(err)
	}
	return &ScheduleServiceResult{ServiceID: svc.ID, Updated: false}, nil
}

// ListAvailableTechnicians 列出今天有档期、可选按技能过滤、且手头没有
// 未支付服务单的技师。
func (e *Engine) ListAvailableTechnicians(ctx context.Context, skillFilter string) ([]technician.Available, error) {
	day := WeekdayName(e.clock.Now())
	out, err := e.index.ListAvailable(ctx, day, strings.TrimSpace(skillFilter))
	if err != nil {
		return nil, errs.Internal(err)
	}
	return out, nil
}

// UnassignedService 待指派服务单 + 车辆概要（后台列表视图）。
type UnassignedService struct {
	maintenance.Service
	VehicleType     string     `json:"vehicleType"`
	VehicleMake     string     `json:"vehicleMake"`
	VehicleModel    string     `json:"vehicleModel"`
	VehicleYear     int        `json:"vehicleYear"`
	LastServiceDate *time.Time `json:"lastServiceDate"`
}

// ListUnassignedServices 列出未指派技师的服务单并补充车辆信息。
// 角色校验由边界层在进入引擎之前完成。
func (e *Engine) ListUnassignedServices(ctx context.Context) ([]UnassignedService, error) {
	services, err := e.services.ListUnassigned(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]UnassignedService, 0, len(services))
	for i := range services {
		s := services[i]
		item := UnassignedService{Service: s}
		v, err := e.vehicles.FindByVIN(ctx, s.VehicleVIN)
		if err != nil {
			return nil, errs.Internal(err)
		}
		if v != nil {
			item.VehicleType = v.Type
			item.VehicleMake = v.Make
			item.VehicleModel = v.Model
			item.VehicleYear = v.Year
			item.LastServiceDate = v.LastServiceDate
		}
		out = append(out, item)
	}
	return out, nil
}

// ListScheduledServices 列出全部服务单。
func (e *Engine) ListScheduledServices(ctx context.Context) ([]maintenance.Service, error) {
	out, err := e.services.List(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}
	return out, nil
}
