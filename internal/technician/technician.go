package technician

import (
	"strings"
	"time"
)

// Technician 是 technicians 表的 GORM 模型。
// Skills / Availability 逗号分隔存储，例如 "Oil Change,Brake Check"、
// "monday,wednesday,friday"。匹配一律不区分大小写。
type Technician struct {
	ID           string    `gorm:"primaryKey;size:36"`
	FirstName    string    `gorm:"size:64;not null"`
	LastName     string    `gorm:"size:64"`
	Skills       string    `gorm:"size:256;not null"`
	Availability string    `gorm:"size:128;not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// FullName 返回 "FirstName LastName"，两端去空白。
func (t Technician) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(t.FirstName) + " " + strings.TrimSpace(t.LastName))
}

func (t Technician) SkillsSlice() []string {
	return splitCSV(t.Skills)
}

func (t Technician) AvailabilitySlice() []string {
	return splitCSV(t.Availability)
}

// HasSkill 判断技师是否具备某项技能（不区分大小写）。
func (t Technician) HasSkill(serviceType string) bool {
	return containsFold(t.SkillsSlice(), serviceType)
}

// AvailableOn 判断技师在某个 weekday（小写英文名）是否有档期。
func (t Technician) AvailableOn(day string) bool {
	return containsFold(t.AvailabilitySlice(), day)
}

// JoinCSV 把切片合并为逗号分隔存储格式，忽略空项。
func JoinCSV(items []string) string {
	if len(items) == 0 {
		return ""
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return strings.Join(out, ",")
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsFold(items []string, want string) bool {
	want = strings.TrimSpace(want)
	for _, s := range items {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
