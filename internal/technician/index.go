package technician

import (
	"context"
	"fmt"

	"github.com/AutoCareLink/AutoCareLink/internal/common/errs"
)

// Directory 技师目录读取接口（由 Repo 实现）。
type Directory interface {
	FindByID(ctx context.Context, id string) (*Technician, error)
	List(ctx context.Context) ([]Technician, error)
}

// AssignmentSource 技师占用情况查询接口（由 maintenance 仓库实现）。
// 每次查询都打到存储，不做缓存：占用判断必须反映当下的持久化状态。
type AssignmentSource interface {
	// HasActiveAssignment 未完成服务单存在性（支付状态不参与），可排除一张指定的单。
	HasActiveAssignment(ctx context.Context, technicianID, excludeServiceID string) (bool, error)
	// HasActiveUnpaidAssignment 未完成且未支付服务单存在性。
	HasActiveUnpaidAssignment(ctx context.Context, technicianID string) (bool, error)
}

// Index 回答“某天、某技能，哪些技师有空”以及单个技师的可指派性。
type Index struct {
	directory   Directory
	assignments AssignmentSource
}

func NewIndex(directory Directory, assignments AssignmentSource) *Index {
	return &Index{directory: directory, assignments: assignments}
}

// Available 对外暴露的技师视图。
type Available struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Skills       []string `json:"skills"`
	Availability []string `json:"availability"`
}

// ListAvailable 列出 day（小写 weekday 名）当天有档期、满足技能过滤、
// 且没有未支付在手服务单的技师。skillFilter 为空表示不过滤技能。
func (ix *Index) ListAvailable(ctx context.Context, day, skillFilter string) ([]Available, error) {
	techs, err := ix.directory.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Available, 0, len(techs))
	for i := range techs {
		t := techs[i]
		if !t.AvailableOn(day) {
			continue
		}
		if skillFilter != "" && !t.HasSkill(skillFilter) {
			continue
		}
		busy, err := ix.assignments.HasActiveUnpaidAssignment(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		if busy {
			continue
		}
		out = append(out, Available{
			ID:           t.ID,
			Name:         t.FullName(),
			Skills:       t.SkillsSlice(),
			Availability: t.AvailabilitySlice(),
		})
	}
	return out, nil
}

// CheckEligible 校验技师能否承接某类服务：技能 -> 档期 -> 占用，
// 首个不满足即返回。excludeServiceID 非空时占用检查跳过该服务单，
// 用于对同一张单的再次确认（更新路径）。
func (ix *Index) CheckEligible(ctx context.Context, t *Technician, serviceType, day, excludeServiceID string) error {
	if t == nil {
		return errs.NotFound("Technician not found")
	}
	if !t.HasSkill(serviceType) {
		return errs.Validation("Technician does not have the required skill")
	}
	if !t.AvailableOn(day) {
		return errs.Validation(fmt.Sprintf("Technician is not available today (%s)", day))
	}
	busy, err := ix.assignments.HasActiveAssignment(ctx, t.ID, excludeServiceID)
	if err != nil {
		return errs.Internal(err)
	}
	if busy {
		return errs.Validation("Technician already has an active assignment")
	}
	return nil
}
