package service

import (
	"context"
	"fmt"
	"strings"

	"threed-server/common/helper"
	infmysql "threed-server/internal/infra/mysql"
	"threed-server/internal/model"

	"github.com/pkg/errors"
)

// 后台配置管理：全局限额、号码开关、个人限额

type LimitInput struct {
	MinAmount        float64
	MaxAmount        float64
	MaxTotal         float64
	PayoutMultiplier float64
	ExactMultiplier  float64
	PermMultiplier   float64
	Operator         string
	TraceID          string
}

type CloseDigitInput struct {
	Numbers  []string
	Open     bool
	Operator string
	TraceID  string
}

type SettingsService interface {
	// UpdateLimit 停用旧配置并写入新配置，对后续注单立即生效
	UpdateLimit(ctx context.Context, in LimitInput) error
	// ToggleNumbers 批量开关号码
	ToggleNumbers(ctx context.Context, in CloseDigitInput) error
	// UpdateUserLimit 更新用户的个人单号码限额
	UpdateUserLimit(ctx context.Context, userID int64, limit3 float64, traceID string) error
	// GetActiveLimit 查询启用中的配置
	GetActiveLimit(ctx context.Context) (*model.ThreeDLimit, error)
	// ListClosedNumbers 查询当前关闭的号码
	ListClosedNumbers(ctx context.Context) ([]string, error)
}

type settingsService struct{}

func NewSettingsService() SettingsService { return &settingsService{} }

var ErrInvalidLimit = errors.New("invalid limit config")

func (s *settingsService) UpdateLimit(ctx context.Context, in LimitInput) error {
	// 金额与倍率必须为正，且 min <= max <= max_total
	if in.MinAmount <= 0 || in.MaxAmount < in.MinAmount || in.MaxTotal < in.MaxAmount {
		return ErrInvalidLimit
	}
	if in.PayoutMultiplier <= 0 || in.ExactMultiplier <= 0 || in.PermMultiplier <= 0 {
		return ErrInvalidLimit
	}

	fmt.Printf("[Settings] 更新限额: min=%.2f, max=%.2f, max_total=%.2f, payout=%.0f, exact=%.0f, perm=%.0f, operator=%s, trace_id=%s\n",
		in.MinAmount, in.MaxAmount, in.MaxTotal, in.PayoutMultiplier, in.ExactMultiplier, in.PermMultiplier, in.Operator, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	defer func() { _ = tx.Rollback() }()

	l := &model.ThreeDLimit{
		MinAmount:        in.MinAmount,
		MaxAmount:        in.MaxAmount,
		MaxTotal:         in.MaxTotal,
		PayoutMultiplier: in.PayoutMultiplier,
		ExactMultiplier:  in.ExactMultiplier,
		PermMultiplier:   in.PermMultiplier,
	}
	if err := model.ReplaceLimit(ctx, tx, l); err != nil {
		return errors.Wrap(err, "replace limit")
	}

	return tx.Commit()
}

func (s *settingsService) ToggleNumbers(ctx context.Context, in CloseDigitInput) error {
	if len(in.Numbers) == 0 {
		return ErrBadRequest
	}
	for _, n := range in.Numbers {
		num := strings.TrimSpace(n)
		if len(num) != 3 || !helper.CtypeDigit(num) {
			return fmt.Errorf("invalid number: %s", n)
		}
	}

	fmt.Printf("[Settings] 号码开关: numbers=%v, open=%v, operator=%s, trace_id=%s\n",
		in.Numbers, in.Open, in.Operator, in.TraceID)

	tx, err := infmysql.SQLX().BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, n := range in.Numbers {
		if err := model.SetNumberOpen(ctx, tx, strings.TrimSpace(n), in.Open); err != nil {
			return errors.Wrapf(err, "toggle number %s", n)
		}
	}

	return tx.Commit()
}

func (s *settingsService) UpdateUserLimit(ctx context.Context, userID int64, limit3 float64, traceID string) error {
	if userID <= 0 || limit3 < 0 {
		return ErrBadRequest
	}

	fmt.Printf("[Settings] 更新个人限额: user_id=%d, limit3=%.2f, trace_id=%s\n", userID, limit3, traceID)

	db := infmysql.SQLX()
	if _, err := model.GetUserByID(ctx, db, userID); err != nil {
		if helper.IsNoRows(err) {
			return ErrBadRequest
		}
		return errors.Wrap(err, "get user")
	}
	return model.UpdateUserLimit(ctx, db, userID, limit3)
}

func (s *settingsService) GetActiveLimit(ctx context.Context) (*model.ThreeDLimit, error) {
	return model.GetActiveLimit(ctx, infmysql.SQLX())
}

func (s *settingsService) ListClosedNumbers(ctx context.Context) ([]string, error) {
	return model.ListClosedNumbers(ctx, infmysql.SQLX())
}
