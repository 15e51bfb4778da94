package service

import "fmt"

// 静态号码分析数据：断组分布与快捷选号模板
// 纯函数，不依赖任何持久化状态；结果在包初始化时算一次后复用

// BreakGroupBucket 某一断组（三位数字之和 0~27）下的全部号码
type BreakGroupBucket struct {
	BreakGroup int8     `json:"break_group"`
	Count      int      `json:"count"`
	Numbers    []string `json:"numbers"`
}

// QuickPattern 一组快捷选号模板
type QuickPattern struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Numbers []string `json:"numbers"`
}

var (
	breakGroupTable []BreakGroupBucket
	quickPatterns   []QuickPattern
)

func init() {
	breakGroupTable = buildBreakGroupTable()
	quickPatterns = buildQuickPatterns()
}

// BreakGroupTable 000~999 按断组划分的完整分布
func BreakGroupTable() []BreakGroupBucket {
	return breakGroupTable
}

// QuickPatterns 快捷选号模板列表
func QuickPatterns() []QuickPattern {
	return quickPatterns
}

func buildBreakGroupTable() []BreakGroupBucket {
	buckets := make([]BreakGroupBucket, 28)
	for g := range buckets {
		buckets[g].BreakGroup = int8(g)
	}
	for i := 0; i < 1000; i++ {
		n := fmt.Sprintf("%03d", i)
		g := breakGroup(n)
		buckets[g].Numbers = append(buckets[g].Numbers, n)
	}
	for g := range buckets {
		buckets[g].Count = len(buckets[g].Numbers)
	}
	return buckets
}

func buildQuickPatterns() []QuickPattern {
	var triples, doubles, asc, desc, mirrors []string

	for i := 0; i < 1000; i++ {
		n := fmt.Sprintf("%03d", i)
		a, b, c := n[0], n[1], n[2]
		switch {
		case a == b && b == c:
			triples = append(triples, n)
		case a == b || b == c || a == c:
			doubles = append(doubles, n)
		}
		if b == a+1 && c == b+1 {
			asc = append(asc, n)
		}
		if b == a-1 && c == b-1 {
			desc = append(desc, n)
		}
		// 首尾相同的对称号
		if a == c && a != b {
			mirrors = append(mirrors, n)
		}
	}

	return []QuickPattern{
		{Name: "triple", Label: "豹子号", Numbers: triples},
		{Name: "double", Label: "对子号", Numbers: doubles},
		{Name: "sequence_asc", Label: "顺子号", Numbers: asc},
		{Name: "sequence_desc", Label: "倒顺子号", Numbers: desc},
		{Name: "mirror", Label: "对称号", Numbers: mirrors},
	}
}
