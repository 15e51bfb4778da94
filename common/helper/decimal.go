package helper

import (
	"github.com/shopspring/decimal"
)

// TrimDecimal 金额格式化为保留 2 位小数的字符串
// 使用 StringFixed(2) 保证四舍五入而非截断
func TrimDecimal(val decimal.Decimal) string {
	return val.StringFixed(2)
}
