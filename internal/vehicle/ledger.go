package vehicle

import (
	"fmt"
	"strings"
)

// 保养里程间隔（公里）。卡车负载大，间隔放宽一倍。
const (
	IntervalTruck   int64 = 20000
	IntervalDefault int64 = 10000
)

// ServiceInterval 按车辆类型返回保养里程间隔（类型匹配不区分大小写）。
func ServiceInterval(vehicleType string) int64 {
	if strings.EqualFold(strings.TrimSpace(vehicleType), "truck") {
		return IntervalTruck
	}
	return IntervalDefault
}

// LatestReading 返回时间戳最大的读数；时间戳相同时取后插入的那条。
// 线性扫描，台账规模在单车生命周期内很有限；若未来读数量级上来再考虑索引。
func LatestReading(v *Vehicle) *OdometerReading {
	if v == nil || len(v.Readings) == 0 {
		return nil
	}
	latest := &v.Readings[0]
	for i := 1; i < len(v.Readings); i++ {
		r := &v.Readings[i]
		if !r.RecordedAt.Before(latest.RecordedAt) {
			latest = r
		}
	}
	return latest
}

// NextReadingID 生成下一条读数的展示序号，如 R001。由当前条数推导。
func NextReadingID(v *Vehicle) string {
	n := 1
	if v != nil {
		n = len(v.Readings) + 1
	}
	return fmt.Sprintf("R%03d", n)
}

// HasThreshold 判断是否已建立保养阈值（0 视为未建立）。
func HasThreshold(v *Vehicle) bool {
	return v != nil && v.NextServiceMileage != 0
}

// AppendReading 追加读数并推进阈值。调用方负责先完成全部闸门校验。
func AppendReading(v *Vehicle, r OdometerReading, nextServiceMileage int64) {
	if v == nil {
		return
	}
	v.Readings = append(v.Readings, r)
	v.NextServiceMileage = nextServiceMileage
}
