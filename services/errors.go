package services

import (
	"errors"
	"fmt"

	"spotkeeper/store"
)

// 核心操作回傳的錯誤種類，呼叫端以 errors.Is 判斷
var (
	ErrValidation       = errors.New("validation error")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrLotFull          = errors.New("lot is full")
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ErrInvalidCredentials 登入失敗；不區分帳號不存在或密碼錯誤
var ErrInvalidCredentials = errors.New("invalid username or password")

// lookupErr 查詢失敗時，store.ErrNotFound 轉為 ErrNotFound，其餘保留原錯誤
func lookupErr(err error, entity string, id int) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: %s %d", ErrNotFound, entity, id)
	}
	return fmt.Errorf("failed to load %s %d: %w", entity, id, err)
}
