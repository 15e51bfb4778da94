package helper

import (
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func isDigit(r rune) bool {
	return '0' <= r && r <= '9'
}

// CtypeDigit 判断字符串是否全为数字，投注号码校验用
func CtypeDigit(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !isDigit(r) {
			return false
		}
	}
	return true
}

// IsEmptyString 去掉首尾空白后判空
func IsEmptyString(str string) bool {
	return strings.TrimSpace(str) == ""
}

// HashPassword 用 bcrypt 默认代价生成密码哈希
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword 校验明文密码与存储哈希是否匹配
func CheckPassword(input string, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(input)) == nil
}

func IsNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
