package service

import (
	"testing"

	"threed-server/internal/model"

	decimal "github.com/shopspring/decimal"
)

func testLimit() *model.ThreeDLimit {
	return &model.ThreeDLimit{
		MinAmount:        1,
		MaxAmount:        10000,
		MaxTotal:         100000,
		PayoutMultiplier: 800,
		ExactMultiplier:  500,
		PermMultiplier:   100,
	}
}

func TestSettlePayoutExact(t *testing.T) {
	b := model.Bet{BetNumber: "123", Amount: 100}
	payout, result := settlePayout(b, "123", testLimit())
	if result != 1 {
		t.Fatalf("result = %d, want 1", result)
	}
	if payout != 50000 {
		t.Fatalf("payout = %v, want 50000", payout)
	}
}

func TestSettlePayoutPermutation(t *testing.T) {
	cases := []string{"132", "213", "231", "312", "321"}
	for _, num := range cases {
		b := model.Bet{BetNumber: num, Amount: 100}
		payout, result := settlePayout(b, "123", testLimit())
		if result != 2 {
			t.Fatalf("bet %s: result = %d, want 2", num, result)
		}
		if payout != 10000 {
			t.Fatalf("bet %s: payout = %v, want 10000", num, payout)
		}
	}
}

func TestSettlePayoutLose(t *testing.T) {
	b := model.Bet{BetNumber: "456", Amount: 100}
	payout, result := settlePayout(b, "123", testLimit())
	if result != 3 {
		t.Fatalf("result = %d, want 3", result)
	}
	if payout != 0 {
		t.Fatalf("payout = %v, want 0", payout)
	}
}

// 重复数字的号码：排列集合更小，但判定逻辑不变
func TestSettlePayoutRepeatedDigits(t *testing.T) {
	// 直中优先于组合中
	b := model.Bet{BetNumber: "112", Amount: 50}
	payout, result := settlePayout(b, "112", testLimit())
	if result != 1 || payout != 25000 {
		t.Fatalf("exact: result=%d payout=%v", result, payout)
	}

	b = model.Bet{BetNumber: "121", Amount: 50}
	payout, result = settlePayout(b, "112", testLimit())
	if result != 2 || payout != 5000 {
		t.Fatalf("perm: result=%d payout=%v", result, payout)
	}

	// 三同号没有其他排列
	b = model.Bet{BetNumber: "112", Amount: 50}
	payout, result = settlePayout(b, "111", testLimit())
	if result != 3 || payout != 0 {
		t.Fatalf("lose: result=%d payout=%v", result, payout)
	}
}

func TestIsPermutation(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"123", "321", true},
		{"123", "123", true},
		{"112", "211", true},
		{"123", "124", false},
		{"111", "112", false},
		{"007", "700", true},
	}
	for _, c := range cases {
		if got := isPermutation(c.a, c.b); got != c.want {
			t.Fatalf("isPermutation(%s, %s) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestSettlePayoutRounding(t *testing.T) {
	// 金额带小数时派彩保留两位
	b := model.Bet{BetNumber: "123", Amount: 0.33}
	payout, _ := settlePayout(b, "123", testLimit())
	if payout != 165 {
		t.Fatalf("payout = %v, want 165", payout)
	}
}

func TestSettleAll(t *testing.T) {
	bets := []model.Bet{
		{BetNumber: "123", Amount: 100},  // 直中 -> 50000
		{BetNumber: "321", Amount: 100},  // 组合中 -> 10000
		{BetNumber: "456", Amount: 100},  // 未中 -> 0
		{BetNumber: "123", Amount: 0.33}, // 直中 -> 165
	}
	payouts, results, total := settleAll(bets, "123", testLimit())
	wantPayouts := []float64{50000, 10000, 0, 165}
	wantResults := []int8{1, 2, 3, 1}
	for i := range bets {
		if payouts[i] != wantPayouts[i] || results[i] != wantResults[i] {
			t.Fatalf("bet %d: payout=%v result=%d, want %v/%d",
				i, payouts[i], results[i], wantPayouts[i], wantResults[i])
		}
	}
	if !total.Equal(decimal.NewFromInt(60165)) {
		t.Fatalf("total = %s, want 60165", total.String())
	}
}
