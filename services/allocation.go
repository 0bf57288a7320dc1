package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gopkg.in/guregu/null.v4"

	"spotkeeper/models"
	"spotkeeper/store"
)

const maxVehicleNumberLen = 20

// timestampPrecision 與 datetime(6) 欄位相同，存回資料庫的時間不會再被截斷
const timestampPrecision = time.Microsecond

// AllocationService 車位分配：進場佔位、出場結帳
type AllocationService struct {
	store store.Store
	now   func() time.Time
}

type AllocationOption func(*AllocationService)

// WithClock 替換取得目前時間的函式（測試用）
func WithClock(now func() time.Time) AllocationOption {
	return func(s *AllocationService) {
		s.now = now
	}
}

func NewAllocationService(st store.Store, opts ...AllocationOption) *AllocationService {
	s := &AllocationService{store: st, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AllocationService) clock() time.Time {
	return s.now().UTC().Truncate(timestampPrecision)
}

// CheckIn 在停車場鎖內挑選編號最小的空車位，標記為佔用並開立預約
func (s *AllocationService) CheckIn(ctx context.Context, lotID, userID int, vehicleNumber string) (*models.BookingView, error) {
	vehicleNumber = strings.TrimSpace(vehicleNumber)
	if vehicleNumber == "" {
		return nil, fmt.Errorf("%w: vehicle_number is required", ErrValidation)
	}
	if len(vehicleNumber) > maxVehicleNumberLen {
		return nil, fmt.Errorf("%w: vehicle_number must be at most %d characters", ErrValidation, maxVehicleNumberLen)
	}

	var view *models.BookingView
	err := s.store.Update(ctx, func(tx store.Tx) error {
		// 先鎖使用者再鎖停車場，與 RemoveUser 互斥
		user, err := tx.LockUser(userID)
		if err != nil {
			return lookupErr(err, "user", userID)
		}
		lot, err := tx.LockLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}

		available, err := tx.SpotsByLotAndStatus(lotID, models.SpotAvailable)
		if err != nil {
			return fmt.Errorf("failed to find available spot: %w", err)
		}
		if len(available) == 0 {
			return fmt.Errorf("%w: parking lot %q has no available spot", ErrLotFull, lot.Name)
		}
		spot := available[0]

		if err := tx.UpdateSpotStatus(spot.SpotID, models.SpotOccupied); err != nil {
			return fmt.Errorf("failed to occupy spot %d: %w", spot.SpotID, err)
		}
		booking := &models.Booking{
			UserID:        user.UserID,
			SpotID:        spot.SpotID,
			VehicleNumber: vehicleNumber,
			CheckInTime:   s.clock(),
		}
		if err := tx.CreateBooking(booking); err != nil {
			return fmt.Errorf("failed to create booking: %w", err)
		}

		view = &models.BookingView{
			Booking:    *booking,
			SpotNumber: spot.SpotNumber,
			LotID:      lot.LotID,
			LotName:    lot.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Check-in: user %d vehicle %s parked at lot %d spot %d (booking %d)",
		userID, vehicleNumber, view.LotID, view.SpotNumber, view.Booking.BookingID)
	return view, nil
}

// CheckOut 結束使用者自己的未結預約，計算費用並釋出車位
func (s *AllocationService) CheckOut(ctx context.Context, bookingID, userID int) (*models.BookingView, error) {
	var view *models.BookingView
	err := s.store.Update(ctx, func(tx store.Tx) error {
		booking, err := tx.OpenBookingByIDAndUser(bookingID, userID)
		if err != nil {
			return openBookingErr(err, bookingID, userID)
		}
		spot, err := tx.GetSpot(booking.SpotID)
		if err != nil {
			return fmt.Errorf("failed to load spot %d of booking %d: %w", booking.SpotID, bookingID, err)
		}
		lot, err := tx.LockLot(spot.LotID)
		if err != nil {
			return fmt.Errorf("failed to lock parking lot %d: %w", spot.LotID, err)
		}
		// 取得鎖後重新確認預約仍未結束，並發的第二次出場會在這裡得到 NotFound
		booking, err = tx.OpenBookingByIDAndUser(bookingID, userID)
		if err != nil {
			return openBookingErr(err, bookingID, userID)
		}

		now := s.now().UTC()
		checkOut := now.Truncate(timestampPrecision)
		// 停留短於儲存精度時截斷後兩個時間相同，改用未截斷的時間計費，仍算一小時
		billedUntil := checkOut
		if !checkOut.After(booking.CheckInTime) && now.After(booking.CheckInTime) {
			billedUntil = now
		}
		booking.CheckOutTime = null.TimeFrom(checkOut)
		booking.TotalCost = null.FloatFrom(CalculateCost(booking.CheckInTime, billedUntil, lot.PricePerHour))
		if err := tx.UpdateBooking(booking); err != nil {
			return fmt.Errorf("failed to close booking %d: %w", bookingID, err)
		}
		if err := tx.UpdateSpotStatus(spot.SpotID, models.SpotAvailable); err != nil {
			return fmt.Errorf("failed to release spot %d: %w", spot.SpotID, err)
		}

		view = &models.BookingView{
			Booking:    *booking,
			SpotNumber: spot.SpotNumber,
			LotID:      lot.LotID,
			LotName:    lot.Name,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Check-out: booking %d closed, cost %.2f", bookingID, view.Booking.TotalCost.Float64)
	return view, nil
}

func openBookingErr(err error, bookingID, userID int) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%w: no open booking %d for user %d", ErrNotFound, bookingID, userID)
	}
	return fmt.Errorf("failed to load booking %d: %w", bookingID, err)
}

// ActiveBookings 使用者目前未離場的預約
func (s *AllocationService) ActiveBookings(ctx context.Context, userID int) ([]models.BookingView, error) {
	var views []models.BookingView
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(userID); err != nil {
			return lookupErr(err, "user", userID)
		}
		bookings, err := tx.OpenBookingsByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to list active bookings: %w", err)
		}
		views, err = newViewBuilder(tx, false).build(bookings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// History 使用者已結束的預約，依離場時間由新到舊
func (s *AllocationService) History(ctx context.Context, userID int) ([]models.BookingView, error) {
	var views []models.BookingView
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(userID); err != nil {
			return lookupErr(err, "user", userID)
		}
		bookings, err := tx.ClosedBookingsByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to list booking history: %w", err)
		}
		views, err = newViewBuilder(tx, false).build(bookings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// AllClosedBookings 所有已結束的預約（管理員），附上使用者名稱
func (s *AllocationService) AllClosedBookings(ctx context.Context) ([]models.BookingView, error) {
	var views []models.BookingView
	err := s.store.View(ctx, func(tx store.Tx) error {
		bookings, err := tx.ClosedBookings()
		if err != nil {
			return fmt.Errorf("failed to list closed bookings: %w", err)
		}
		views, err = newViewBuilder(tx, true).build(bookings)
		return err
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

// viewBuilder 在同一個交易內補上車位、停車場與使用者資訊，重複的查詢只做一次
type viewBuilder struct {
	tx        store.Tx
	withUsers bool
	spots     map[int]*models.ParkingSpot
	lots      map[int]*models.ParkingLot
	users     map[int]string
}

func newViewBuilder(tx store.Tx, withUsers bool) *viewBuilder {
	return &viewBuilder{
		tx:        tx,
		withUsers: withUsers,
		spots:     make(map[int]*models.ParkingSpot),
		lots:      make(map[int]*models.ParkingLot),
		users:     make(map[int]string),
	}
}

func (b *viewBuilder) build(bookings []models.Booking) ([]models.BookingView, error) {
	views := make([]models.BookingView, 0, len(bookings))
	for _, booking := range bookings {
		spot, err := b.spot(booking.SpotID)
		if err != nil {
			return nil, err
		}
		lot, err := b.lot(spot.LotID)
		if err != nil {
			return nil, err
		}
		view := models.BookingView{
			Booking:    booking,
			SpotNumber: spot.SpotNumber,
			LotID:      lot.LotID,
			LotName:    lot.Name,
		}
		if b.withUsers {
			if view.Username, err = b.username(booking.UserID); err != nil {
				return nil, err
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (b *viewBuilder) spot(id int) (*models.ParkingSpot, error) {
	if spot, ok := b.spots[id]; ok {
		return spot, nil
	}
	spot, err := b.tx.GetSpot(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load spot %d: %w", id, err)
	}
	b.spots[id] = spot
	return spot, nil
}

func (b *viewBuilder) lot(id int) (*models.ParkingLot, error) {
	if lot, ok := b.lots[id]; ok {
		return lot, nil
	}
	lot, err := b.tx.GetLot(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load parking lot %d: %w", id, err)
	}
	b.lots[id] = lot
	return lot, nil
}

func (b *viewBuilder) username(id int) (string, error) {
	if name, ok := b.users[id]; ok {
		return name, nil
	}
	user, err := b.tx.GetUser(id)
	if err != nil {
		return "", fmt.Errorf("failed to load user %d: %w", id, err)
	}
	b.users[id] = user.Username
	return user.Username, nil
}
