package maintenance

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, s *Service) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(s).Error
}

func (r *Repo) Update(ctx context.Context, s *Service) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(s).Error
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Service, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s Service
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// FindOpenUnpaidByVIN 查找车辆当前“未完成且未支付”的服务单（没有则返回 nil）。
func (r *Repo) FindOpenUnpaidByVIN(ctx context.Context, vin string) (*Service, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s Service
	err := db.Where("vehicle_vin = ? AND status <> ? AND payment_status <> ?",
		vin, StatusCompleted, PaymentPaid).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasOpenUnpaidByVIN 布尔口径的未支付服务单存在性检查，供车辆列表视图使用。
func (r *Repo) HasOpenUnpaidByVIN(ctx context.Context, vin string) (bool, error) {
	s, err := r.FindOpenUnpaidByVIN(ctx, vin)
	if err != nil {
		return false, err
	}
	return s != nil, nil
}

// FindLatestUnassignedByVIN 查找车辆最近创建的 Unassigned 服务单（没有则返回 nil）。
func (r *Repo) FindLatestUnassignedByVIN(ctx context.Context, vin string) (*Service, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s Service
	err := db.Where("vehicle_vin = ? AND status = ?", vin, StatusUnassigned).
		Order("created_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// HasActiveAssignment 判断技师是否已有未完成的服务单（支付状态不参与该判断）。
// excludeServiceID 非空时排除指定服务单，用于同一张单的重复确认。
func (r *Repo) HasActiveAssignment(ctx context.Context, technicianID, excludeServiceID string) (bool, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	q := db.Model(&Service{}).
		Where("technician_id = ? AND status <> ?", technicianID, StatusCompleted)
	if excludeServiceID != "" {
		q = q.Where("id <> ?", excludeServiceID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// HasActiveUnpaidAssignment 判断技师是否有“未完成且未支付”的服务单。
// available-technicians 列表按这个口径做排除。
func (r *Repo) HasActiveUnpaidAssignment(ctx context.Context, technicianID string) (bool, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	err := db.Model(&Service{}).
		Where("technician_id = ? AND status <> ? AND payment_status <> ?",
			technicianID, StatusCompleted, PaymentPaid).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListUnassigned 列出所有尚未指派技师的服务单。
func (r *Repo) ListUnassigned(ctx context.Context) ([]Service, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Service
	err := db.Where("technician_id = '' AND technician_name = ''").
		Order("created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List 列出全部服务单（按创建时间倒序）。
func (r *Repo) List(ctx context.Context) ([]Service, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Service
	if err := db.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
