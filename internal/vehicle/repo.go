package vehicle

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

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

// Update 保存车辆及其台账（新追加的读数一并落库）。
func (r *Repo) Update(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Session(&gorm.Session{FullSaveAssociations: true}).Save(v).Error
}

// FindByVIN 按 VIN 查找车辆并装载台账（按插入顺序）。不存在返回 (nil, nil)。
func (r *Repo) FindByVIN(ctx context.Context, vin string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var v Vehicle
	err := db.Preload("Readings", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Where("vin = ?", vin).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// List 列出全部车辆（含台账）。
func (r *Repo) List(ctx context.Context) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out []Vehicle
	err := db.Preload("Readings", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("id ASC")
	}).Order("created_at DESC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
