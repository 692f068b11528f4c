package scheduling

import (
	"strings"
	"time"
)

// Clock 注入式时钟：引擎内所有“现在”都从这里取，方便测试固定时间。
type Clock interface {
	Now() time.Time
}

// SystemClock 直接读系统时间。
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// WeekdayName 返回小写英文 weekday 名（"monday" …），
// 技师档期按这个口径存储与匹配。
func WeekdayName(t time.Time) string {
	return strings.ToLower(t.Weekday().String())
}
