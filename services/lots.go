package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"spotkeeper/models"
	"spotkeeper/store"
)

// LotService 停車場與車位的生命週期
type LotService struct {
	store store.Store
}

func NewLotService(st store.Store) *LotService {
	return &LotService{store: st}
}

// validateLot 檢查必填欄位與數值；editing 時不檢查 capacity
func validateLot(in *models.LotInput, editing bool) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Address = strings.TrimSpace(in.Address)
	in.Pincode = strings.TrimSpace(in.Pincode)

	var missing []string
	if in.Name == "" {
		missing = append(missing, "name")
	}
	if in.Address == "" {
		missing = append(missing, "address")
	}
	if in.Pincode == "" {
		missing = append(missing, "pincode")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	if len(in.Name) > 100 || len(in.Address) > 200 || len(in.Pincode) > 10 {
		return fmt.Errorf("%w: name, address or pincode too long", ErrValidation)
	}
	if math.IsNaN(in.PricePerHour) || math.IsInf(in.PricePerHour, 0) || in.PricePerHour <= 0 {
		return fmt.Errorf("%w: price_per_hour must be positive", ErrValidation)
	}
	// 費率欄位為 decimal(10,2)，更細的費率存檔時會被四捨五入
	if price := decimal.NewFromFloat(in.PricePerHour); !price.Equal(price.Round(2)) {
		return fmt.Errorf("%w: price_per_hour must have at most 2 decimal places", ErrValidation)
	}
	if !editing && in.Capacity <= 0 {
		return fmt.Errorf("%w: capacity must be positive", ErrValidation)
	}
	return nil
}

// CreateLot 建立停車場並產生編號 1..capacity 的空車位
func (s *LotService) CreateLot(ctx context.Context, in models.LotInput) (*models.ParkingLot, error) {
	if err := validateLot(&in, false); err != nil {
		return nil, err
	}

	lot := &models.ParkingLot{
		Name:         in.Name,
		Address:      in.Address,
		Pincode:      in.Pincode,
		PricePerHour: in.PricePerHour,
		Capacity:     in.Capacity,
	}
	err := s.store.Update(ctx, func(tx store.Tx) error {
		if err := tx.CreateLot(lot); err != nil {
			return fmt.Errorf("failed to create parking lot: %w", err)
		}
		for i := 1; i <= lot.Capacity; i++ {
			spot := &models.ParkingSpot{LotID: lot.LotID, SpotNumber: i, Status: models.SpotAvailable}
			if err := tx.CreateSpot(spot); err != nil {
				return fmt.Errorf("failed to create spot %d: %w", i, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lot.AvailableSpots = lot.Capacity
	log.Printf("Created parking lot %d (%s) with %d spots", lot.LotID, lot.Name, lot.Capacity)
	return lot, nil
}

// EditLot 只更新名稱、地址、郵遞區號與費率；capacity 不可在此修改
func (s *LotService) EditLot(ctx context.Context, lotID int, in models.LotInput) (*models.ParkingLot, error) {
	if err := validateLot(&in, true); err != nil {
		return nil, err
	}

	var lot *models.ParkingLot
	err := s.store.Update(ctx, func(tx store.Tx) error {
		var err error
		lot, err = tx.LockLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}
		lot.Name = in.Name
		lot.Address = in.Address
		lot.Pincode = in.Pincode
		lot.PricePerHour = in.PricePerHour
		if err := tx.UpdateLot(lot); err != nil {
			return fmt.Errorf("failed to update parking lot %d: %w", lotID, err)
		}
		available, err := tx.SpotsByLotAndStatus(lotID, models.SpotAvailable)
		if err != nil {
			return fmt.Errorf("failed to count available spots: %w", err)
		}
		lot.AvailableSpots = len(available)
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Updated parking lot %d", lotID)
	return lot, nil
}

// AddSpot 新增一個車位，編號為目前最大編號 + 1（刪除過的編號不重用）
func (s *LotService) AddSpot(ctx context.Context, lotID int) (*models.ParkingSpot, error) {
	var spot *models.ParkingSpot
	err := s.store.Update(ctx, func(tx store.Tx) error {
		lot, err := tx.LockLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}
		count, err := tx.CountSpotsByLot(lotID)
		if err != nil {
			return fmt.Errorf("failed to count spots: %w", err)
		}
		if count >= lot.Capacity {
			return fmt.Errorf("%w: lot %d already has %d of %d spots", ErrCapacityExceeded, lotID, count, lot.Capacity)
		}
		highest, err := tx.MaxSpotNumber(lotID)
		if err != nil {
			return fmt.Errorf("failed to get highest spot number: %w", err)
		}
		spot = &models.ParkingSpot{LotID: lotID, SpotNumber: highest + 1, Status: models.SpotAvailable}
		if err := tx.CreateSpot(spot); err != nil {
			return fmt.Errorf("failed to create spot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Added spot %d to parking lot %d", spot.SpotNumber, lotID)
	return spot, nil
}

// DeleteSpot 只能刪除空閒且從未被預約過的車位
func (s *LotService) DeleteSpot(ctx context.Context, spotID int) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		spot, err := tx.GetSpot(spotID)
		if err != nil {
			return lookupErr(err, "spot", spotID)
		}
		if _, err := tx.LockLot(spot.LotID); err != nil {
			return lookupErr(err, "parking lot", spot.LotID)
		}
		// 取得鎖之後重新讀取
		spot, err = tx.GetSpot(spotID)
		if err != nil {
			return lookupErr(err, "spot", spotID)
		}

		hasHistory, err := tx.SpotHasBookings(spotID)
		if err != nil {
			return fmt.Errorf("failed to check booking history: %w", err)
		}
		if hasHistory {
			return fmt.Errorf("%w: spot %d has booking history", ErrConflict, spot.SpotNumber)
		}
		if !spot.IsAvailable() {
			return fmt.Errorf("%w: spot %d is occupied", ErrConflict, spot.SpotNumber)
		}
		if err := tx.DeleteSpot(spotID); err != nil {
			return fmt.Errorf("failed to delete spot %d: %w", spotID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Deleted spot %d", spotID)
	return nil
}

// DeleteLot 停車場沒有佔用中的車位、也沒有任何預約紀錄時才能刪除，連同車位一起刪
func (s *LotService) DeleteLot(ctx context.Context, lotID int) error {
	err := s.store.Update(ctx, func(tx store.Tx) error {
		lot, err := tx.LockLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}
		hasHistory, err := tx.LotHasBookings(lotID)
		if err != nil {
			return fmt.Errorf("failed to check booking history: %w", err)
		}
		if hasHistory {
			return fmt.Errorf("%w: parking lot %q has booking history", ErrConflict, lot.Name)
		}
		occupied, err := tx.SpotsByLotAndStatus(lotID, models.SpotOccupied)
		if err != nil {
			return fmt.Errorf("failed to check occupied spots: %w", err)
		}
		if len(occupied) > 0 {
			return fmt.Errorf("%w: parking lot %q has occupied spots", ErrConflict, lot.Name)
		}
		if err := tx.DeleteSpotsByLot(lotID); err != nil {
			return fmt.Errorf("failed to delete spots of lot %d: %w", lotID, err)
		}
		if err := tx.DeleteLot(lotID); err != nil {
			return fmt.Errorf("failed to delete parking lot %d: %w", lotID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Deleted parking lot %d", lotID)
	return nil
}

// GetLot 查詢單一停車場（含空位數）
func (s *LotService) GetLot(ctx context.Context, lotID int) (*models.ParkingLot, error) {
	var lot *models.ParkingLot
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		lot, err = tx.GetLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}
		available, err := tx.SpotsByLotAndStatus(lotID, models.SpotAvailable)
		if err != nil {
			return fmt.Errorf("failed to count available spots: %w", err)
		}
		lot.AvailableSpots = len(available)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// ListLots 所有停車場及其空位數
func (s *LotService) ListLots(ctx context.Context) ([]models.ParkingLot, error) {
	var lots []models.ParkingLot
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		lots, err = tx.ListLots()
		if err != nil {
			return fmt.Errorf("failed to list parking lots: %w", err)
		}
		for i := range lots {
			available, err := tx.SpotsByLotAndStatus(lots[i].LotID, models.SpotAvailable)
			if err != nil {
				return fmt.Errorf("failed to count available spots of lot %d: %w", lots[i].LotID, err)
			}
			lots[i].AvailableSpots = len(available)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lots, nil
}

// LotDetails 停車場內每個車位；佔用中的車位附上目前的預約與使用者
func (s *LotService) LotDetails(ctx context.Context, lotID int) (*models.ParkingLot, []models.SpotDetail, error) {
	var lot *models.ParkingLot
	var details []models.SpotDetail
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		lot, err = tx.GetLot(lotID)
		if err != nil {
			return lookupErr(err, "parking lot", lotID)
		}
		spots, err := tx.ListSpotsByLot(lotID)
		if err != nil {
			return fmt.Errorf("failed to list spots: %w", err)
		}
		details = make([]models.SpotDetail, 0, len(spots))
		for _, spot := range spots {
			detail := models.SpotDetail{Spot: spot}
			if spot.IsAvailable() {
				lot.AvailableSpots++
			} else {
				booking, err := tx.OpenBookingBySpot(spot.SpotID)
				switch {
				case errors.Is(err, store.ErrNotFound):
				case err != nil:
					return fmt.Errorf("failed to load open booking of spot %d: %w", spot.SpotID, err)
				default:
					detail.Booking = booking
					user, err := tx.GetUser(booking.UserID)
					if err != nil && !errors.Is(err, store.ErrNotFound) {
						return fmt.Errorf("failed to load user %d: %w", booking.UserID, err)
					}
					detail.User = user
				}
			}
			details = append(details, detail)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return lot, details, nil
}
