package vehicle

import (
	"context"
	"strings"
	"time"

	"github.com/AutoCareLink/AutoCareLink/internal/common/config"
	"github.com/AutoCareLink/AutoCareLink/internal/common/errs"
)

// Store 车辆存储接口（由 Repo 实现；测试用内存假实现）。
type Store interface {
	FindByVIN(ctx context.Context, vin string) (*Vehicle, error)
	Create(ctx context.Context, v *Vehicle) error
	List(ctx context.Context) ([]Vehicle, error)
}

// OpenUnpaidFlag 查询车辆是否存在“未完成且未支付”的服务单。
// 由 maintenance 仓库实现，这里只依赖布尔口径，避免领域包互相引用。
type OpenUnpaidFlag interface {
	HasOpenUnpaidByVIN(ctx context.Context, vin string) (bool, error)
}

// Registry 车辆登记用例：录入校验（品牌/类型白名单）、查询与列表增强。
type Registry struct {
	store Store
	flags OpenUnpaidFlag
	rules config.WorkshopConfig
}

func NewRegistry(store Store, flags OpenUnpaidFlag, rules config.WorkshopConfig) *Registry {
	return &Registry{store: store, flags: flags, rules: rules}
}

// CreateVehicleInput 车辆录入入参。LastServiceDate 接受 DD-MM-YYYY（历史录入格式）。
type CreateVehicleInput struct {
	Type            string
	Make            string
	Model           string
	Year            int
	VIN             string
	LastServiceDate string
}

// View 车辆列表视图：NextServiceMileage 未建立时输出 null，
// 并标注是否有未支付服务单挡着新读数。
type View struct {
	Vehicle
	NextServiceMileageView *int64 `json:"nextServiceMileage"`
	HasOpenUnpaidService   bool   `json:"hasOpenUnpaidService"`
}

func (g *Registry) Create(ctx context.Context, in CreateVehicleInput) (*Vehicle, error) {
	mk := strings.TrimSpace(in.Make)
	if mk == "" || !g.rules.AllowsMake(mk) {
		return nil, errs.Validation("Service not available for this brand")
	}

	if strings.TrimSpace(in.Type) == "" {
		return nil, errs.Validation("Vehicle type is required")
	}
	vtype := config.NormalizeType(in.Type)
	if !g.rules.AllowsType(vtype) {
		return nil, errs.Validation("Service not available for this vehicle type")
	}

	lastService, err := parseLastServiceDate(in.LastServiceDate, time.Now())
	if err != nil {
		return nil, err
	}

	vin := strings.TrimSpace(in.VIN)
	if vin == "" {
		return nil, errs.Validation("VIN is required")
	}

	existing, err := g.store.FindByVIN(ctx, vin)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if existing != nil {
		return nil, errs.Validation("Vehicle with this VIN already exists")
	}

	v := &Vehicle{
		VIN:             vin,
		Type:            vtype,
		Make:            mk,
		Model:           strings.TrimSpace(in.Model),
		Year:            in.Year,
		LastServiceDate: lastService,
	}
	if err := g.store.Create(ctx, v); err != nil {
		return nil, errs.Internal(err)
	}
	return v, nil
}

// Get 按 VIN 返回车辆；品牌/类型不在白名单内的存量数据视为不可服务。
func (g *Registry) Get(ctx context.Context, vin string) (*Vehicle, error) {
	v, err := g.store.FindByVIN(ctx, vin)
	if err != nil {
		return nil, errs.Internal(err)
	}
	if v == nil {
		return nil, errs.NotFound("Vehicle not found")
	}
	if !g.rules.AllowsMake(v.Make) || !g.rules.AllowsType(v.Type) {
		return nil, errs.Validation("Vehicle type or brand not supported")
	}
	return v, nil
}

// List 返回白名单内的车辆，并补充未支付服务单标记。
func (g *Registry) List(ctx context.Context) ([]View, error) {
	vehicles, err := g.store.List(ctx)
	if err != nil {
		return nil, errs.Internal(err)
	}

	out := make([]View, 0, len(vehicles))
	for i := range vehicles {
		v := vehicles[i]
		if !g.rules.AllowsMake(v.Make) || !g.rules.AllowsType(v.Type) {
			continue
		}
		unpaid, err := g.flags.HasOpenUnpaidByVIN(ctx, v.VIN)
		if err != nil {
			return nil, errs.Internal(err)
		}
		view := View{Vehicle: v, HasOpenUnpaidService: unpaid}
		if v.NextServiceMileage != 0 {
			m := v.NextServiceMileage
			view.NextServiceMileageView = &m
		}
		out = append(out, view)
	}
	return out, nil
}

// parseLastServiceDate 解析上次保养日期：优先 DD-MM-YYYY，兼容 ISO 写法；
// 解析失败或晚于今天视为无效。
func parseLastServiceDate(raw string, now time.Time) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("02-01-2006", raw)
	if err != nil {
		t, err = time.Parse("2006-01-02", raw)
	}
	if err != nil {
		return nil, errs.Validation("Invalid or future last service date")
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if t.After(today) {
		return nil, errs.Validation("Invalid or future last service date")
	}
	return &t, nil
}
