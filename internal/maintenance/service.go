package maintenance

import "time"

// Status 服务单状态枚举（持久化为字符串）。
// “已指派”不单独落库：以 TechnicianID 是否为空来观测（与历史数据口径一致）。
type Status string

const (
	StatusUnassigned Status = "Unassigned" // 待排期/待指派
	StatusCompleted  Status = "Completed"  // 已完成（完成与支付由外部流程写入）
)

// PaymentPaid 支付完成标记。空串表示尚无支付记录。
const PaymentPaid = "Paid"

// Service 维保服务单 GORM 模型。
// 服务单按 VIN 关联车辆，不内嵌在车辆文档里。
type Service struct {
	ID string `gorm:"primaryKey;size:36" json:"_id"`

	VehicleVIN  string `gorm:"index;size:64;not null" json:"vehicleVIN"`          // 关联车辆
	ServiceType string `gorm:"size:64;not null" json:"serviceType"`               // 服务类型（自由文本）
	Status      Status `gorm:"type:varchar(16);index;not null" json:"status"`     // 当前状态

	TechnicianID   string `gorm:"index;size:36" json:"technicianId,omitempty"` // 指派技师，空 = 未指派
	TechnicianName string `gorm:"size:128" json:"technicianName,omitempty"`

	PaymentStatus string `gorm:"size:16" json:"paymentStatus,omitempty"` // 空 = 未产生支付记录
	ReadingID     string `gorm:"size:8" json:"readingId,omitempty"`      // 触发该单的里程读数编号，手工排期时为空
	Description   string `gorm:"size:512" json:"description,omitempty"`

	DueServiceDate *time.Time `json:"dueServiceDate,omitempty"`
	CreatedAt      time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
}
