package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"spotkeeper/models"
	"spotkeeper/store"
)

type Occupancy struct {
	Occupied  int `json:"occupied"`
	Available int `json:"available"`
}

func (o *Occupancy) add(status models.SpotStatus) {
	if status == models.SpotOccupied {
		o.Occupied++
	} else {
		o.Available++
	}
}

type LotOccupancy struct {
	LotID   int    `json:"lot_id"`
	LotName string `json:"lot_name"`
	Occupancy
}

type LotCost struct {
	LotID     int     `json:"lot_id"`
	LotName   string  `json:"lot_name"`
	TotalCost float64 `json:"total_cost"`
	Visits    int     `json:"visits"`
}

// ReportService 唯讀統計，只依據目前的車位狀態與預約紀錄
type ReportService struct {
	store store.Store
}

func NewReportService(st store.Store) *ReportService {
	return &ReportService{store: st}
}

// OverallOccupancy 所有停車場的佔用 / 空閒車位數
func (s *ReportService) OverallOccupancy(ctx context.Context) (Occupancy, error) {
	var occ Occupancy
	err := s.store.View(ctx, func(tx store.Tx) error {
		spots, err := tx.ListSpots()
		if err != nil {
			return fmt.Errorf("failed to list spots: %w", err)
		}
		for _, spot := range spots {
			occ.add(spot.Status)
		}
		return nil
	})
	return occ, err
}

// PerLotOccupancy 依停車場分組的佔用統計；沒有車位的停車場也會列出
func (s *ReportService) PerLotOccupancy(ctx context.Context) (map[int]LotOccupancy, error) {
	result := make(map[int]LotOccupancy)
	err := s.store.View(ctx, func(tx store.Tx) error {
		lots, err := tx.ListLots()
		if err != nil {
			return fmt.Errorf("failed to list parking lots: %w", err)
		}
		for _, lot := range lots {
			result[lot.LotID] = LotOccupancy{LotID: lot.LotID, LotName: lot.Name}
		}
		spots, err := tx.ListSpots()
		if err != nil {
			return fmt.Errorf("failed to list spots: %w", err)
		}
		for _, spot := range spots {
			entry, ok := result[spot.LotID]
			if !ok {
				continue
			}
			entry.add(spot.Status)
			result[spot.LotID] = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UserCostSummary 使用者在各停車場的總花費與次數，只計算已結束的預約
func (s *ReportService) UserCostSummary(ctx context.Context, userID int) (map[int]LotCost, error) {
	result := make(map[int]LotCost)
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetUser(userID); err != nil {
			return lookupErr(err, "user", userID)
		}
		bookings, err := tx.ClosedBookingsByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to list booking history: %w", err)
		}
		views, err := newViewBuilder(tx, false).build(bookings)
		if err != nil {
			return err
		}

		totals := make(map[int]decimal.Decimal)
		for _, v := range views {
			entry := result[v.LotID]
			entry.LotID = v.LotID
			entry.LotName = v.LotName
			entry.Visits++
			result[v.LotID] = entry
			totals[v.LotID] = totals[v.LotID].Add(decimal.NewFromFloat(v.Booking.TotalCost.Float64))
		}
		for lotID, total := range totals {
			entry := result[lotID]
			entry.TotalCost = total.Round(2).InexactFloat64()
			result[lotID] = entry
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
