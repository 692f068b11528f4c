package maintenance

import "strings"

// ObservedState 服务单的可观测状态：
// Unassigned -> Assigned（绑定技师后） -> Completed。
// Assigned 不单独持久化，由 TechnicianID 推导。
type ObservedState string

const (
	ObservedUnassigned ObservedState = "Unassigned"
	ObservedAssigned   ObservedState = "Assigned"
	ObservedCompleted  ObservedState = "Completed"
)

// AllowTransition 定义服务单状态机的允许流转关系。
// Completed 为终态；Assigned -> Unassigned 属于运营后台的纠错路径，这里不开放。
var AllowTransition = map[ObservedState][]ObservedState{
	ObservedUnassigned: {ObservedAssigned},
	ObservedAssigned:   {ObservedCompleted},
	ObservedCompleted:  {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to ObservedState) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ObservedStateOf 推导服务单当前的可观测状态。
func ObservedStateOf(s *Service) ObservedState {
	if s == nil {
		return ""
	}
	if s.Status == StatusCompleted {
		return ObservedCompleted
	}
	if strings.TrimSpace(s.TechnicianID) != "" {
		return ObservedAssigned
	}
	return ObservedUnassigned
}

// IsOpenUnpaid 判断服务单是否“未完成且未支付”。
// 该谓词是新增里程读数的唯一闸门：一辆车最多允许一张这样的单。
func IsOpenUnpaid(s *Service) bool {
	if s == nil {
		return false
	}
	return s.Status != StatusCompleted && s.PaymentStatus != PaymentPaid
}

// BindTechnician 把技师绑定到服务单。纯写入，不做任何校验；
// 技能/档期/占用校验由调度引擎在调用前完成。
func BindTechnician(s *Service, technicianID, technicianName string) {
	if s == nil {
		return
	}
	s.TechnicianID = strings.TrimSpace(technicianID)
	s.TechnicianName = strings.TrimSpace(technicianName)
}
