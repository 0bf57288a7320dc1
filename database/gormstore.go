package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spotkeeper/models"
	"spotkeeper/store"
)

// GormStore 以 GORM 實作 store.Store
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Update(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, s.txOptions()...)
}

func (s *GormStore) View(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx})
	}, s.txOptions()...)
}

// txOptions MySQL 預設的 REPEATABLE READ 會讓 LockLot 之後的一般查詢讀到舊快照，
// 改用 READ COMMITTED 才能看到前一個持鎖交易提交的資料
func (s *GormStore) txOptions() []*sql.TxOptions {
	if s.db.Dialector.Name() == "mysql" {
		return []*sql.TxOptions{{Isolation: sql.LevelReadCommitted}}
	}
	return nil
}

type gormTx struct {
	db *gorm.DB
}

// translate 將 GORM / MySQL 錯誤轉成 store 的錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isDuplicateEntry(err):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	}
	return err
}

// isDuplicateEntry MySQL 1062；SQLite 只能從訊息判斷
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// --- users ---

func (t *gormTx) CreateUser(user *models.User) error {
	return translate(t.db.Create(user).Error)
}

func (t *gormTx) GetUser(id int) (*models.User, error) {
	var user models.User
	if err := t.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) LockUser(id int) (*models.User, error) {
	var user models.User
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := t.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) FindUserByUsernameOrEmail(username, email string) (*models.User, error) {
	var user models.User
	err := t.db.Where("username = ? OR email = ?", username, email).Order("user_id").First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (t *gormTx) ListUsers(includeAdmins bool) ([]models.User, error) {
	users := []models.User{}
	query := t.db.Order("user_id")
	if !includeAdmins {
		query = query.Where("is_admin = ?", false)
	}
	if err := query.Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	return users, nil
}

func (t *gormTx) AdminExists() (bool, error) {
	var n int64
	if err := t.db.Model(&models.User{}).Where("is_admin = ?", true).Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (t *gormTx) DeleteUser(id int) error {
	res := t.db.Delete(&models.User{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- lots ---

func (t *gormTx) CreateLot(lot *models.ParkingLot) error {
	return translate(t.db.Create(lot).Error)
}

func (t *gormTx) GetLot(id int) (*models.ParkingLot, error) {
	var lot models.ParkingLot
	if err := t.db.First(&lot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

// LockLot 以 SELECT ... FOR UPDATE 鎖住停車場資料列
func (t *gormTx) LockLot(id int) (*models.ParkingLot, error) {
	var lot models.ParkingLot
	if err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&lot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &lot, nil
}

func (t *gormTx) UpdateLot(lot *models.ParkingLot) error {
	err := t.db.Model(&models.ParkingLot{}).Where("lot_id = ?", lot.LotID).Updates(map[string]interface{}{
		"name":           lot.Name,
		"address":        lot.Address,
		"pincode":        lot.Pincode,
		"price_per_hour": lot.PricePerHour,
		"capacity":       lot.Capacity,
	}).Error
	return translate(err)
}

func (t *gormTx) DeleteLot(id int) error {
	res := t.db.Delete(&models.ParkingLot{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) ListLots() ([]models.ParkingLot, error) {
	lots := []models.ParkingLot{}
	if err := t.db.Order("lot_id").Find(&lots).Error; err != nil {
		return nil, translate(err)
	}
	return lots, nil
}

// --- spots ---

func (t *gormTx) CreateSpot(spot *models.ParkingSpot) error {
	return translate(t.db.Create(spot).Error)
}

func (t *gormTx) GetSpot(id int) (*models.ParkingSpot, error) {
	var spot models.ParkingSpot
	if err := t.db.First(&spot, id).Error; err != nil {
		return nil, translate(err)
	}
	return &spot, nil
}

func (t *gormTx) ListSpots() ([]models.ParkingSpot, error) {
	spots := []models.ParkingSpot{}
	if err := t.db.Order("lot_id, spot_number").Find(&spots).Error; err != nil {
		return nil, translate(err)
	}
	return spots, nil
}

func (t *gormTx) ListSpotsByLot(lotID int) ([]models.ParkingSpot, error) {
	spots := []models.ParkingSpot{}
	if err := t.db.Where("lot_id = ?", lotID).Order("spot_number").Find(&spots).Error; err != nil {
		return nil, translate(err)
	}
	return spots, nil
}

func (t *gormTx) SpotsByLotAndStatus(lotID int, status models.SpotStatus) ([]models.ParkingSpot, error) {
	spots := []models.ParkingSpot{}
	err := t.db.Where("lot_id = ? AND status = ?", lotID, status).Order("spot_number").Find(&spots).Error
	if err != nil {
		return nil, translate(err)
	}
	return spots, nil
}

func (t *gormTx) CountSpotsByLot(lotID int) (int, error) {
	var n int64
	if err := t.db.Model(&models.ParkingSpot{}).Where("lot_id = ?", lotID).Count(&n).Error; err != nil {
		return 0, translate(err)
	}
	return int(n), nil
}

func (t *gormTx) MaxSpotNumber(lotID int) (int, error) {
	var highest int
	err := t.db.Model(&models.ParkingSpot{}).
		Where("lot_id = ?", lotID).
		Select("COALESCE(MAX(spot_number), 0)").
		Scan(&highest).Error
	if err != nil {
		return 0, translate(err)
	}
	return highest, nil
}

func (t *gormTx) UpdateSpotStatus(id int, status models.SpotStatus) error {
	err := t.db.Model(&models.ParkingSpot{}).Where("spot_id = ?", id).Update("status", status).Error
	return translate(err)
}

func (t *gormTx) DeleteSpot(id int) error {
	res := t.db.Delete(&models.ParkingSpot{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteSpotsByLot(lotID int) error {
	return translate(t.db.Where("lot_id = ?", lotID).Delete(&models.ParkingSpot{}).Error)
}

// --- bookings ---

func (t *gormTx) CreateBooking(booking *models.Booking) error {
	return translate(t.db.Create(booking).Error)
}

func (t *gormTx) GetBooking(id int) (*models.Booking, error) {
	var booking models.Booking
	if err := t.db.First(&booking, id).Error; err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (t *gormTx) UpdateBooking(booking *models.Booking) error {
	return translate(t.db.Save(booking).Error)
}

func (t *gormTx) OpenBookingBySpot(spotID int) (*models.Booking, error) {
	var booking models.Booking
	err := t.db.Where("spot_id = ? AND check_out_time IS NULL", spotID).Order("booking_id").First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (t *gormTx) OpenBookingByIDAndUser(id, userID int) (*models.Booking, error) {
	var booking models.Booking
	err := t.db.Where("booking_id = ? AND user_id = ? AND check_out_time IS NULL", id, userID).First(&booking).Error
	if err != nil {
		return nil, translate(err)
	}
	return &booking, nil
}

func (t *gormTx) OpenBookingsByUser(userID int) ([]models.Booking, error) {
	return t.findBookings("user_id = ? AND check_out_time IS NULL", "booking_id", userID)
}

func (t *gormTx) ListOpenBookings() ([]models.Booking, error) {
	return t.findBookings("check_out_time IS NULL", "booking_id")
}

func (t *gormTx) ClosedBookingsByUser(userID int) ([]models.Booking, error) {
	return t.findBookings("user_id = ? AND check_out_time IS NOT NULL", "check_out_time DESC, booking_id DESC", userID)
}

func (t *gormTx) ClosedBookings() ([]models.Booking, error) {
	return t.findBookings("check_out_time IS NOT NULL", "check_out_time DESC, booking_id DESC")
}

func (t *gormTx) findBookings(where, order string, args ...interface{}) ([]models.Booking, error) {
	bookings := []models.Booking{}
	if err := t.db.Where(where, args...).Order(order).Find(&bookings).Error; err != nil {
		return nil, translate(err)
	}
	return bookings, nil
}

func (t *gormTx) SpotHasBookings(spotID int) (bool, error) {
	var n int64
	if err := t.db.Model(&models.Booking{}).Where("spot_id = ?", spotID).Count(&n).Error; err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (t *gormTx) LotHasBookings(lotID int) (bool, error) {
	var n int64
	err := t.db.Model(&models.Booking{}).
		Joins("JOIN parking_spot ON parking_spot.spot_id = booking.spot_id").
		Where("parking_spot.lot_id = ?", lotID).
		Count(&n).Error
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (t *gormTx) DeleteBookingsByUser(userID int) error {
	return translate(t.db.Where("user_id = ?", userID).Delete(&models.Booking{}).Error)
}
