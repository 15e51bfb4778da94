package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beegoctx "github.com/beego/beego/v2/server/web/context"
)

type stubDrawService struct{ err error }

func (s stubDrawService) SubmitDrawResult(context.Context, service.DrawInput) error {
	return s.err
}

func runDeclare(t *testing.T, svcErr error) *httptest.ResponseRecorder {
	t.Helper()
	orig := newDrawService
	newDrawService = func() service.DrawService { return stubDrawService{err: svcErr} }
	defer func() { newDrawService = orig }()

	body := `{"session_code":"2026-03-16","win_number":"123","operator":"admin"}`
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/api/admin/threed/result", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	ctx := beegoctx.NewContext()
	ctx.Reset(w, r)

	c := &DrawResultController{}
	c.Init(ctx, "", "", nil)
	c.Declare()
	return w
}

// 重复开奖必须拒绝并返回 409，而不是幂等成功
func TestDeclareDuplicateConflict(t *testing.T) {
	w := runDeclare(t, service.ErrAlreadyDeclared)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	var resp response.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Code != response.CodeAlreadyDeclared {
		t.Fatalf("code = %d, want %d", resp.Code, response.CodeAlreadyDeclared)
	}
}

func TestDeclareSuccess(t *testing.T) {
	w := runDeclare(t, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp response.APIResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Code != response.CodeSuccess {
		t.Fatalf("code = %d, want 0", resp.Code)
	}
}
