// Package store 定義核心所依賴的實體儲存介面。
//
// 所有讀寫都在交易內進行：Update 的 fn 回傳錯誤時，fn 內的所有寫入都會被撤銷。
package store

import (
	"context"
	"errors"

	"spotkeeper/models"
)

// ErrNotFound 查無資料
var ErrNotFound = errors.New("record not found")

// ErrDuplicate 違反唯一鍵
var ErrDuplicate = errors.New("duplicate record")

// Store 實體儲存
type Store interface {
	// Update 以讀寫交易執行 fn
	Update(ctx context.Context, fn func(tx Tx) error) error
	// View 以唯讀交易執行 fn
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx 交易內可用的操作
type Tx interface {
	CreateUser(user *models.User) error
	GetUser(id int) (*models.User, error)
	// LockUser 取得使用者並鎖定，直到交易結束；鎖的順序一律先使用者後停車場
	LockUser(id int) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	FindUserByUsernameOrEmail(username, email string) (*models.User, error)
	ListUsers(includeAdmins bool) ([]models.User, error)
	AdminExists() (bool, error)
	DeleteUser(id int) error

	CreateLot(lot *models.ParkingLot) error
	GetLot(id int) (*models.ParkingLot, error)
	// LockLot 取得停車場並鎖定，直到交易結束；同一停車場的寫入因此序列化
	LockLot(id int) (*models.ParkingLot, error)
	UpdateLot(lot *models.ParkingLot) error
	DeleteLot(id int) error
	ListLots() ([]models.ParkingLot, error)

	CreateSpot(spot *models.ParkingSpot) error
	GetSpot(id int) (*models.ParkingSpot, error)
	ListSpots() ([]models.ParkingSpot, error)
	ListSpotsByLot(lotID int) ([]models.ParkingSpot, error)
	SpotsByLotAndStatus(lotID int, status models.SpotStatus) ([]models.ParkingSpot, error)
	CountSpotsByLot(lotID int) (int, error)
	MaxSpotNumber(lotID int) (int, error)
	UpdateSpotStatus(id int, status models.SpotStatus) error
	DeleteSpot(id int) error
	DeleteSpotsByLot(lotID int) error

	CreateBooking(booking *models.Booking) error
	GetBooking(id int) (*models.Booking, error)
	UpdateBooking(booking *models.Booking) error
	OpenBookingBySpot(spotID int) (*models.Booking, error)
	OpenBookingByIDAndUser(id, userID int) (*models.Booking, error)
	OpenBookingsByUser(userID int) ([]models.Booking, error)
	ListOpenBookings() ([]models.Booking, error)
	ClosedBookingsByUser(userID int) ([]models.Booking, error)
	ClosedBookings() ([]models.Booking, error)
	SpotHasBookings(spotID int) (bool, error)
	LotHasBookings(lotID int) (bool, error)
	DeleteBookingsByUser(userID int) error
}
