package services

import (
	"context"
	"fmt"
	"log"

	"spotkeeper/models"
	"spotkeeper/store"
)

// Violation 一筆不一致的資料
type Violation struct {
	Kind   string `json:"kind"`
	LotID  int    `json:"lot_id,omitempty"`
	SpotID int    `json:"spot_id,omitempty"`
	Detail string `json:"detail"`
}

const (
	ViolationOverCapacity     = "over_capacity"
	ViolationMultipleOpen     = "multiple_open_bookings"
	ViolationOccupiedNoOpen   = "occupied_without_booking"
	ViolationAvailableButOpen = "available_with_open_booking"
)

// AuditService 檢查車位數、車位狀態與未結預約之間的一致性，只讀不寫
type AuditService struct {
	store store.Store
}

func NewAuditService(st store.Store) *AuditService {
	return &AuditService{store: st}
}

func (s *AuditService) Run(ctx context.Context) ([]Violation, error) {
	violations := []Violation{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		lots, err := tx.ListLots()
		if err != nil {
			return fmt.Errorf("failed to list parking lots: %w", err)
		}
		spots, err := tx.ListSpots()
		if err != nil {
			return fmt.Errorf("failed to list spots: %w", err)
		}
		open, err := tx.ListOpenBookings()
		if err != nil {
			return fmt.Errorf("failed to list open bookings: %w", err)
		}

		perLot := make(map[int]int)
		for _, spot := range spots {
			perLot[spot.LotID]++
		}
		for _, lot := range lots {
			if perLot[lot.LotID] > lot.Capacity {
				violations = append(violations, Violation{
					Kind:   ViolationOverCapacity,
					LotID:  lot.LotID,
					Detail: fmt.Sprintf("%d spots for capacity %d", perLot[lot.LotID], lot.Capacity),
				})
			}
		}

		openPerSpot := make(map[int]int)
		for _, b := range open {
			openPerSpot[b.SpotID]++
		}
		for _, spot := range spots {
			n := openPerSpot[spot.SpotID]
			switch {
			case n > 1:
				violations = append(violations, Violation{
					Kind: ViolationMultipleOpen, LotID: spot.LotID, SpotID: spot.SpotID,
					Detail: fmt.Sprintf("spot %d has %d open bookings", spot.SpotNumber, n),
				})
			case n == 0 && spot.Status == models.SpotOccupied:
				violations = append(violations, Violation{
					Kind: ViolationOccupiedNoOpen, LotID: spot.LotID, SpotID: spot.SpotID,
					Detail: fmt.Sprintf("spot %d is occupied without an open booking", spot.SpotNumber),
				})
			case n == 1 && spot.Status == models.SpotAvailable:
				violations = append(violations, Violation{
					Kind: ViolationAvailableButOpen, LotID: spot.LotID, SpotID: spot.SpotID,
					Detail: fmt.Sprintf("spot %d is available but has an open booking", spot.SpotNumber),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, v := range violations {
		log.Printf("Audit violation [%s] lot=%d spot=%d: %s", v.Kind, v.LotID, v.SpotID, v.Detail)
	}
	return violations, nil
}
