package helper

import (
	"strings"
	"testing"
)

func TestIsMoneyFormat(t *testing.T) {
	cases := map[string]bool{
		"0":       true,
		"1":       true,
		"100":     true,
		"100.5":   true,
		"100.55":  true,
		"100.555": false,
		"01":      false,
		"-1":      false,
		"":        false,
		"abc":     false,
		"1.":      false,
		".5":      false,
		"1000000": true,
		" 500 ":   true, // Trim 后合法
		"1,000":   false,
	}
	for in, want := range cases {
		if got := IsMoneyFormat(in); got != want {
			t.Fatalf("IsMoneyFormat(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsThreeDigit(t *testing.T) {
	cases := map[string]bool{
		"000":  true,
		"007":  true,
		"999":  true,
		"99":   false,
		"1000": false,
		"12a":  false,
		"":     false,
		"-12":  false,
	}
	for in, want := range cases {
		if got := IsThreeDigit(in); got != want {
			t.Fatalf("IsThreeDigit(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestIsSessionCode(t *testing.T) {
	cases := map[string]bool{
		"2026-03-16":       true,
		"2026-3-16":        false,
		"20260316":         false,
		"":                 false,
		"2026-03-16 extra": false,
	}
	for in, want := range cases {
		if got := IsSessionCode(in); got != want {
			t.Fatalf("IsSessionCode(%q) = %v, want %v", in, got, want)
		}
	}
}

func validSlip() SlipParsed {
	return SlipParsed{
		SessionCode: "2026-03-16",
		TotalAmount: "1500",
		Selections: []SelectionParsed{
			{Number: "123", Amount: "1000"},
			{Number: "456", Amount: "500"},
		},
		IdempotencyKey: "idem-1",
	}
}

func TestValidateSlip(t *testing.T) {
	in := validSlip()
	if ok, msg := ValidateSlip(&in); !ok {
		t.Fatalf("valid slip rejected: %s", msg)
	}

	// 缺少必填字段
	in = validSlip()
	in.IdempotencyKey = ""
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("missing idempotency_key accepted")
	}

	// 场次编号格式错误
	in = validSlip()
	in.SessionCode = "16-03-2026"
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("bad session_code accepted")
	}

	// 空选号
	in = validSlip()
	in.Selections = nil
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("empty selections accepted")
	}

	// 号码位数错误
	in = validSlip()
	in.Selections[0].Number = "12"
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("2-digit number accepted")
	}

	// 金额格式错误
	in = validSlip()
	in.Selections[1].Amount = "5.555"
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("3-decimal amount accepted")
	}

	// 超过条目上限
	in = validSlip()
	in.Selections = make([]SelectionParsed, maxSelections+1)
	for i := range in.Selections {
		in.Selections[i] = SelectionParsed{Number: "123", Amount: "1"}
	}
	if ok, _ := ValidateSlip(&in); ok {
		t.Fatal("oversized selections accepted")
	}
}

func TestParseSlipFromJSON(t *testing.T) {
	body := `{"session_code":"2026-03-16","total_amount":"1500",
		"selections":[{"number":"123","amount":"1000"},{"number":"456","amount":"500"}],
		"idempotency_key":"idem-1"}`
	out, ok, msg := ParseSlipFromJSON(strings.NewReader(body))
	if !ok {
		t.Fatalf("parse failed: %s", msg)
	}
	if out.SessionCode != "2026-03-16" || len(out.Selections) != 2 {
		t.Fatalf("unexpected parse result: %+v", out)
	}
	if out.Selections[0].Number != "123" || out.Selections[0].Amount != "1000" {
		t.Fatalf("unexpected selection: %+v", out.Selections[0])
	}

	if _, ok, _ := ParseSlipFromJSON(strings.NewReader("{not json")); ok {
		t.Fatal("invalid json accepted")
	}
}

func TestValidateDrawResult(t *testing.T) {
	in := DrawResultParsed{SessionCode: "2026-03-16", WinNumber: "123", Operator: "ops"}
	if ok, msg := ValidateDrawResult(&in); !ok {
		t.Fatalf("valid draw result rejected: %s", msg)
	}

	in = DrawResultParsed{SessionCode: "2026-03-16", WinNumber: "12"}
	if ok, _ := ValidateDrawResult(&in); ok {
		t.Fatal("2-digit win_number accepted")
	}

	in = DrawResultParsed{SessionCode: "", WinNumber: "123"}
	if ok, _ := ValidateDrawResult(&in); ok {
		t.Fatal("empty session_code accepted")
	}
}

func TestValidateSessionEvent(t *testing.T) {
	in := SessionEventParsed{SessionCode: "2026-03-16", EventType: 1}
	if ok, msg := ValidateSessionEvent(&in); !ok {
		t.Fatalf("valid event rejected: %s", msg)
	}

	// 开奖不允许通过事件接口触发，event_type 仅支持 1|2
	in = SessionEventParsed{SessionCode: "2026-03-16", EventType: 3}
	if ok, _ := ValidateSessionEvent(&in); ok {
		t.Fatal("event_type 3 accepted")
	}

	in = SessionEventParsed{SessionCode: "2026-03-16", EventType: 0}
	if ok, _ := ValidateSessionEvent(&in); ok {
		t.Fatal("event_type 0 accepted")
	}
}

func TestValidateCloseDigit(t *testing.T) {
	in := CloseDigitParsed{Numbers: []string{"000", "123", "999"}}
	if ok, msg := ValidateCloseDigit(&in); !ok {
		t.Fatalf("valid numbers rejected: %s", msg)
	}

	in = CloseDigitParsed{Numbers: []string{"123", "12"}}
	if ok, _ := ValidateCloseDigit(&in); ok {
		t.Fatal("2-digit number accepted")
	}

	in = CloseDigitParsed{}
	if ok, _ := ValidateCloseDigit(&in); ok {
		t.Fatal("empty numbers accepted")
	}
}

func TestValidateLimit(t *testing.T) {
	in := LimitParsed{
		MinAmount:        "1",
		MaxAmount:        "10000",
		MaxTotal:         "100000",
		PayoutMultiplier: "800",
		ExactMultiplier:  "500",
		PermMultiplier:   "100",
	}
	if ok, msg := ValidateLimit(&in); !ok {
		t.Fatalf("valid limit rejected: %s", msg)
	}

	in.MaxAmount = ""
	if ok, _ := ValidateLimit(&in); ok {
		t.Fatal("empty max_amount accepted")
	}

	in.MaxAmount = "-5"
	if ok, _ := ValidateLimit(&in); ok {
		t.Fatal("negative max_amount accepted")
	}
}

func TestValidateCredentials(t *testing.T) {
	in := CredentialsParsed{Username: "player_01", Password: "secret99"}
	if ok, msg := ValidateCredentials(&in); !ok {
		t.Fatalf("valid credentials rejected: %s", msg)
	}

	in = CredentialsParsed{Username: "  player_01  ", Password: "secret99"}
	if ok, _ := ValidateCredentials(&in); !ok || in.Username != "player_01" {
		t.Fatalf("username not trimmed: %q", in.Username)
	}

	cases := map[string]CredentialsParsed{
		"empty username":    {Username: "", Password: "secret99"},
		"empty password":    {Username: "player_01", Password: ""},
		"short username":    {Username: "ab", Password: "secret99"},
		"bad chars":         {Username: "玩家一号", Password: "secret99"},
		"space in username": {Username: "player 1", Password: "secret99"},
		"short password":    {Username: "player_01", Password: "12345"},
	}
	for name, c := range cases {
		if ok, _ := ValidateCredentials(&c); ok {
			t.Fatalf("%s accepted", name)
		}
	}
}
