package helper

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	beegocontext "github.com/beego/beego/v2/server/web/context"
)

// IsJSONContentType 判断是否为 JSON 请求
func IsJSONContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.Contains(ct, "json")
}

// 金额格式校验：非负，最多两位小数（预编译正则）
var moneyRe = regexp.MustCompile(`^(?:0|[1-9]\d*)(?:\.\d{1,2})?$`)

// IsMoneyFormat 判断金额格式
func IsMoneyFormat(s string) bool {
	return moneyRe.MatchString(strings.TrimSpace(s))
}

// 号码格式校验：恰好三位数字（000-999）
var numberRe = regexp.MustCompile(`^\d{3}$`)

// IsThreeDigit 判断是否为合法三位号码
func IsThreeDigit(s string) bool {
	return numberRe.MatchString(strings.TrimSpace(s))
}

// 场次编号格式：YYYY-MM-DD
var sessionCodeRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// IsSessionCode 判断场次编号格式
func IsSessionCode(s string) bool {
	return sessionCodeRe.MatchString(strings.TrimSpace(s))
}

// 默认输入保护参数
const (
	defaultJSONMaxBytes int64         = 1 << 20 // 1MB
	defaultParseTimeout time.Duration = 1 * time.Second

	// 单笔注单最多允许的号码条目数
	maxSelections = 100
)

type deadlineReader struct {
	r        io.Reader
	deadline time.Time
}

func (dr *deadlineReader) Read(p []byte) (int, error) {
	if time.Now().After(dr.deadline) {
		return 0, fmt.Errorf("read timeout")
	}
	return dr.r.Read(p)
}

// jsonBodyReader 在 JSON 分支下为请求体增加大小限制与解析超时保护
func jsonBodyReader(ctx *beegocontext.Context) io.Reader {
	lr := io.LimitReader(ctx.Request.Body, defaultJSONMaxBytes)
	return &deadlineReader{r: lr, deadline: time.Now().Add(defaultParseTimeout)}
}

// GetTraceID 统一提取 trace_id：优先从中间件注入的数据取，其次从常见请求头降级
func GetTraceID(ctx *beegocontext.Context) string {
	if v := ctx.Input.GetData("trace_id"); v != nil {
		return fmt.Sprint(v)
	}
	if h := strings.TrimSpace(ctx.Input.Header("X-Trace-ID")); h != "" {
		return h
	}
	if h := strings.TrimSpace(ctx.Input.Header("Trace-Id")); h != "" {
		return h
	}
	return ""
}

// parseByContentType 按 Content-Type 选择解析函数，减少重复 if/else 分支
func parseByContentType[T any](ctx *beegocontext.Context,
	jsonParser func(io.Reader) (T, bool, string),
	formParser func(*beegocontext.Context) (T, bool, string),
) (T, bool, string) {
	ct := ctx.Input.Header("Content-Type")
	if IsJSONContentType(ct) {
		return jsonParser(jsonBodyReader(ctx))
	}
	return formParser(ctx)
}

// SelectionParsed 为单条号码投注项
type SelectionParsed struct {
	Number string `json:"number"`
	Amount string `json:"amount"`
}

// SlipParsed 为解析后的注单入参（与控制器/服务层解耦）
type SlipParsed struct {
	SessionCode    string            `json:"session_code"`
	TotalAmount    string            `json:"total_amount"`
	Selections     []SelectionParsed `json:"selections"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// ParseSlipFromJSON 解析 JSON 到 SlipParsed。失败返回 false 与错误消息。
func ParseSlipFromJSON(r io.Reader) (SlipParsed, bool, string) {
	var out SlipParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return SlipParsed{}, false, "invalid json body"
	}
	return out, true, ""
}

// ParseSlipFromForm 从表单读取字段，selections 为 JSON 编码的数组参数
func ParseSlipFromForm(ctx *beegocontext.Context) (SlipParsed, bool, string) {
	var out SlipParsed
	out.SessionCode = strings.TrimSpace(ctx.Input.Query("session_code"))
	out.TotalAmount = strings.TrimSpace(ctx.Input.Query("total_amount"))
	out.IdempotencyKey = strings.TrimSpace(ctx.Input.Query("idempotency_key"))

	sel := strings.TrimSpace(ctx.Input.Query("selections"))
	if sel == "" {
		return SlipParsed{}, false, "selections required"
	}
	if err := json.Unmarshal([]byte(sel), &out.Selections); err != nil {
		return SlipParsed{}, false, "selections must be a json array"
	}
	return out, true, ""
}

// ValidateSlip 对通用字段做二次校验（适用于 JSON 与 FORM）。失败返回 false 与错误消息。
func ValidateSlip(in *SlipParsed) (bool, string) {
	in.SessionCode = strings.TrimSpace(in.SessionCode)
	in.TotalAmount = strings.TrimSpace(in.TotalAmount)
	in.IdempotencyKey = strings.TrimSpace(in.IdempotencyKey)

	if in.SessionCode == "" || in.TotalAmount == "" || in.IdempotencyKey == "" {
		return false, "missing required fields: session_code/total_amount/idempotency_key"
	}
	// 额外长度保护，避免异常超长输入
	if len(in.SessionCode) > 32 || len(in.IdempotencyKey) > 64 || len(in.TotalAmount) > 32 {
		return false, "invalid request"
	}
	if !IsSessionCode(in.SessionCode) {
		return false, "session_code must be YYYY-MM-DD"
	}
	if !IsMoneyFormat(in.TotalAmount) {
		return false, "total_amount must be numeric with up to 2 decimals"
	}
	if len(in.Selections) == 0 {
		return false, "selections required"
	}
	if len(in.Selections) > maxSelections {
		return false, fmt.Sprintf("too many selections: max %d", maxSelections)
	}
	for i := range in.Selections {
		in.Selections[i].Number = strings.TrimSpace(in.Selections[i].Number)
		in.Selections[i].Amount = strings.TrimSpace(in.Selections[i].Amount)
		if !IsThreeDigit(in.Selections[i].Number) {
			return false, fmt.Sprintf("selections[%d].number must be 3 digits", i)
		}
		if !IsMoneyFormat(in.Selections[i].Amount) {
			return false, fmt.Sprintf("selections[%d].amount must be numeric with up to 2 decimals", i)
		}
	}
	return true, ""
}

// ParseAndValidateSlip 按 Content-Type 自动解析并做统一校验
func ParseAndValidateSlip(ctx *beegocontext.Context) (SlipParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSlipFromJSON, ParseSlipFromForm)
	if !ok {
		return SlipParsed{}, false, msg
	}
	if ok, msg := ValidateSlip(&out); !ok {
		return SlipParsed{}, false, msg
	}
	return out, true, ""
}

// -------- DrawResult helpers --------

type DrawResultParsed struct {
	SessionCode string `json:"session_code"`
	WinNumber   string `json:"win_number"`
	Operator    string `json:"operator"`
}

func ParseDrawResultFromJSON(r io.Reader) (DrawResultParsed, bool, string) {
	var out DrawResultParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return DrawResultParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseDrawResultFromForm(ctx *beegocontext.Context) (DrawResultParsed, bool, string) {
	var out DrawResultParsed
	out.SessionCode = ctx.Input.Query("session_code")
	out.WinNumber = ctx.Input.Query("win_number")
	out.Operator = ctx.Input.Query("operator")
	return out, true, ""
}

func ValidateDrawResult(in *DrawResultParsed) (bool, string) {
	in.SessionCode = strings.TrimSpace(in.SessionCode)
	in.WinNumber = strings.TrimSpace(in.WinNumber)
	in.Operator = strings.TrimSpace(in.Operator)
	if in.SessionCode == "" || in.WinNumber == "" {
		return false, "invalid request"
	}
	if len(in.SessionCode) > 32 || len(in.Operator) > 64 {
		return false, "invalid request"
	}
	if !IsSessionCode(in.SessionCode) {
		return false, "session_code must be YYYY-MM-DD"
	}
	if !IsThreeDigit(in.WinNumber) {
		return false, "win_number must be 3 digits"
	}
	return true, ""
}

// ParseAndValidateDrawResult 按 Content-Type 自动解析并校验
func ParseAndValidateDrawResult(ctx *beegocontext.Context) (DrawResultParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseDrawResultFromJSON, ParseDrawResultFromForm)
	if !ok {
		return DrawResultParsed{}, false, msg
	}
	if ok, msg := ValidateDrawResult(&out); !ok {
		return DrawResultParsed{}, false, msg
	}
	return out, true, ""
}

// -------- SessionEvent helpers --------

type SessionEventParsed struct {
	SessionCode string `json:"session_code"`
	EventType   int    `json:"event_type"` // 仅支持数值：1=session_open 2=session_close
	Operator    string `json:"operator"`
}

// ParseSessionEventFromJSON 仅接受数值型 event_type（1..2）
func ParseSessionEventFromJSON(r io.Reader) (SessionEventParsed, bool, string) {
	var raw map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return SessionEventParsed{}, false, "invalid request"
	}
	var out SessionEventParsed
	if v, ok := raw["session_code"].(string); ok {
		out.SessionCode = v
	}
	if v, ok := raw["operator"].(string); ok {
		out.Operator = v
	}
	// 仅当 event_type 为 JSON 数字时赋值
	if v, ok := raw["event_type"].(float64); ok {
		out.EventType = int(v)
	}
	return out, true, ""
}

func ParseSessionEventFromForm(ctx *beegocontext.Context) (SessionEventParsed, bool, string) {
	var out SessionEventParsed
	out.SessionCode = ctx.Input.Query("session_code")
	out.Operator = ctx.Input.Query("operator")
	et := strings.TrimSpace(ctx.Input.Query("event_type"))
	if et != "" {
		if n, err := strconv.Atoi(et); err == nil {
			out.EventType = n
		}
	}
	return out, true, ""
}

func ValidateSessionEvent(in *SessionEventParsed) (bool, string) {
	in.SessionCode = strings.TrimSpace(in.SessionCode)
	in.Operator = strings.TrimSpace(in.Operator)
	if in.SessionCode == "" || in.EventType == 0 {
		return false, "invalid request"
	}
	if len(in.SessionCode) > 32 || len(in.Operator) > 64 {
		return false, "invalid request"
	}
	if !IsSessionCode(in.SessionCode) {
		return false, "session_code must be YYYY-MM-DD"
	}
	if in.EventType != 1 && in.EventType != 2 {
		return false, "event_type must be one of: 1|2"
	}
	return true, ""
}

func ParseAndValidateSessionEvent(ctx *beegocontext.Context) (SessionEventParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseSessionEventFromJSON, ParseSessionEventFromForm)
	if !ok {
		return SessionEventParsed{}, false, msg
	}
	if ok, msg := ValidateSessionEvent(&out); !ok {
		return SessionEventParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Admin settings helpers --------

type LimitParsed struct {
	MinAmount        string `json:"min_amount"`
	MaxAmount        string `json:"max_amount"`
	MaxTotal         string `json:"max_total"`
	PayoutMultiplier string `json:"payout_multiplier"`
	ExactMultiplier  string `json:"exact_multiplier"`
	PermMultiplier   string `json:"perm_multiplier"`
}

func ParseLimitFromJSON(r io.Reader) (LimitParsed, bool, string) {
	var out LimitParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return LimitParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseLimitFromForm(ctx *beegocontext.Context) (LimitParsed, bool, string) {
	var out LimitParsed
	out.MinAmount = ctx.Input.Query("min_amount")
	out.MaxAmount = ctx.Input.Query("max_amount")
	out.MaxTotal = ctx.Input.Query("max_total")
	out.PayoutMultiplier = ctx.Input.Query("payout_multiplier")
	out.ExactMultiplier = ctx.Input.Query("exact_multiplier")
	out.PermMultiplier = ctx.Input.Query("perm_multiplier")
	return out, true, ""
}

func ValidateLimit(in *LimitParsed) (bool, string) {
	fields := []struct {
		name string
		val  *string
	}{
		{"min_amount", &in.MinAmount},
		{"max_amount", &in.MaxAmount},
		{"max_total", &in.MaxTotal},
		{"payout_multiplier", &in.PayoutMultiplier},
		{"exact_multiplier", &in.ExactMultiplier},
		{"perm_multiplier", &in.PermMultiplier},
	}
	for _, f := range fields {
		*f.val = strings.TrimSpace(*f.val)
		if *f.val == "" {
			return false, f.name + " required"
		}
		if !IsMoneyFormat(*f.val) {
			return false, f.name + " must be numeric with up to 2 decimals"
		}
	}
	return true, ""
}

func ParseAndValidateLimit(ctx *beegocontext.Context) (LimitParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseLimitFromJSON, ParseLimitFromForm)
	if !ok {
		return LimitParsed{}, false, msg
	}
	if ok, msg := ValidateLimit(&out); !ok {
		return LimitParsed{}, false, msg
	}
	return out, true, ""
}

type CloseDigitParsed struct {
	Numbers []string `json:"numbers"`
	Open    bool     `json:"open"`
}

func ParseCloseDigitFromJSON(r io.Reader) (CloseDigitParsed, bool, string) {
	var out CloseDigitParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return CloseDigitParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseCloseDigitFromForm(ctx *beegocontext.Context) (CloseDigitParsed, bool, string) {
	var out CloseDigitParsed
	ns := strings.TrimSpace(ctx.Input.Query("numbers"))
	if ns != "" {
		out.Numbers = strings.Split(ns, ",")
	}
	out.Open = strings.TrimSpace(ctx.Input.Query("open")) == "1"
	return out, true, ""
}

func ValidateCloseDigit(in *CloseDigitParsed) (bool, string) {
	if len(in.Numbers) == 0 {
		return false, "numbers required"
	}
	if len(in.Numbers) > 1000 {
		return false, "too many numbers"
	}
	for i := range in.Numbers {
		in.Numbers[i] = strings.TrimSpace(in.Numbers[i])
		if !IsThreeDigit(in.Numbers[i]) {
			return false, fmt.Sprintf("numbers[%d] must be 3 digits", i)
		}
	}
	return true, ""
}

func ParseAndValidateCloseDigit(ctx *beegocontext.Context) (CloseDigitParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCloseDigitFromJSON, ParseCloseDigitFromForm)
	if !ok {
		return CloseDigitParsed{}, false, msg
	}
	if ok, msg := ValidateCloseDigit(&out); !ok {
		return CloseDigitParsed{}, false, msg
	}
	return out, true, ""
}

// -------- Credentials helpers --------

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9_]{3,32}$`)

type CredentialsParsed struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func ParseCredentialsFromJSON(r io.Reader) (CredentialsParsed, bool, string) {
	var out CredentialsParsed
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return CredentialsParsed{}, false, "invalid request"
	}
	return out, true, ""
}

func ParseCredentialsFromForm(ctx *beegocontext.Context) (CredentialsParsed, bool, string) {
	var out CredentialsParsed
	out.Username = ctx.Input.Query("username")
	out.Password = ctx.Input.Query("password")
	return out, true, ""
}

func ValidateCredentials(in *CredentialsParsed) (bool, string) {
	in.Username = strings.TrimSpace(in.Username)
	// 密码不做 Trim，空白也是口令的一部分
	if in.Username == "" || in.Password == "" {
		return false, "invalid request"
	}
	if !usernameRe.MatchString(in.Username) {
		return false, "username must be 3-32 chars of [a-zA-Z0-9_]"
	}
	if len(in.Password) < 6 || len(in.Password) > 64 {
		return false, "password must be 6-64 chars"
	}
	return true, ""
}

// ParseAndValidateCredentials 按 Content-Type 自动解析并校验
func ParseAndValidateCredentials(ctx *beegocontext.Context) (CredentialsParsed, bool, string) {
	out, ok, msg := parseByContentType(ctx, ParseCredentialsFromJSON, ParseCredentialsFromForm)
	if !ok {
		return CredentialsParsed{}, false, msg
	}
	if ok, msg := ValidateCredentials(&out); !ok {
		return CredentialsParsed{}, false, msg
	}
	return out, true, ""
}
