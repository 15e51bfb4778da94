package service

import "testing"

func TestBreakGroupTable(t *testing.T) {
	table := BreakGroupTable()
	if len(table) != 28 {
		t.Fatalf("bucket count = %d, want 28", len(table))
	}

	total := 0
	for _, b := range table {
		if b.Count != len(b.Numbers) {
			t.Fatalf("group %d: count %d != len(numbers) %d", b.BreakGroup, b.Count, len(b.Numbers))
		}
		total += b.Count
	}
	if total != 1000 {
		t.Fatalf("total numbers = %d, want 1000", total)
	}

	// 和为 0 与 27 各只有一个号码
	if table[0].Count != 1 || table[0].Numbers[0] != "000" {
		t.Fatalf("group 0 = %v", table[0].Numbers)
	}
	if table[27].Count != 1 || table[27].Numbers[0] != "999" {
		t.Fatalf("group 27 = %v", table[27].Numbers)
	}
	// 分布对称：sum=k 与 sum=27-k 的号码数相同
	for k := 0; k <= 13; k++ {
		if table[k].Count != table[27-k].Count {
			t.Fatalf("group %d count %d != group %d count %d", k, table[k].Count, 27-k, table[27-k].Count)
		}
	}
}

func TestQuickPatterns(t *testing.T) {
	byName := map[string][]string{}
	for _, p := range QuickPatterns() {
		byName[p.Name] = p.Numbers
	}

	if got := len(byName["triple"]); got != 10 {
		t.Fatalf("triple count = %d, want 10", got)
	}
	// 恰好两位相同：10*9*3 = 270
	if got := len(byName["double"]); got != 270 {
		t.Fatalf("double count = %d, want 270", got)
	}
	// 012..789
	if got := len(byName["sequence_asc"]); got != 8 {
		t.Fatalf("sequence_asc count = %d, want 8", got)
	}
	if byName["sequence_asc"][0] != "012" {
		t.Fatalf("first asc sequence = %s", byName["sequence_asc"][0])
	}
	// 987..210
	if got := len(byName["sequence_desc"]); got != 8 {
		t.Fatalf("sequence_desc count = %d, want 8", got)
	}
	// 首尾相同且中间不同：10*9 = 90
	if got := len(byName["mirror"]); got != 90 {
		t.Fatalf("mirror count = %d, want 90", got)
	}
}
