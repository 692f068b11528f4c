package vehicle

import "time"

// Vehicle 是 vehicles 表的 GORM 模型，以 VIN 为主键。
// NextServiceMileage 为 0 表示尚未建立保养阈值（首次读数时建立）。
type Vehicle struct {
	VIN   string `gorm:"primaryKey;size:64" json:"VIN"`
	Type  string `gorm:"size:16;not null" json:"type"` // Car / Truck
	Make  string `gorm:"size:64;not null" json:"make"`
	Model string `gorm:"size:64" json:"model"`
	Year  int    `json:"year"`

	LastServiceDate    *time.Time `json:"lastServiceDate"`
	NextServiceMileage int64      `gorm:"not null;default:0" json:"nextServiceMileage"`

	// 里程台账：只追加，按插入顺序保存
	Readings []OdometerReading `gorm:"foreignKey:VehicleVIN;references:VIN" json:"odometerReadings"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// OdometerReading 单条里程读数。ReadingID 是车辆内的展示序号（R001、R002 …），
// 由当前台账长度推导，永不复用。
type OdometerReading struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	VehicleVIN string    `gorm:"index;size:64;not null" json:"-"`
	ReadingID  string    `gorm:"size:8;not null" json:"readingId"`
	Mileage    int64     `gorm:"not null" json:"mileage"`
	RecordedAt time.Time `gorm:"not null" json:"timestamp"`
}
