package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/guregu/null.v4"

	"spotkeeper/models"
)

func TestMemoryStore_RollbackOnError(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Update(ctx, func(tx Tx) error {
		lot := &models.ParkingLot{Name: "Temp", Capacity: 1, PricePerHour: 1}
		require.NoError(t, tx.CreateLot(lot))
		require.NoError(t, tx.CreateSpot(&models.ParkingSpot{LotID: lot.LotID, SpotNumber: 1, Status: models.SpotAvailable}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = st.View(ctx, func(tx Tx) error {
		lots, err := tx.ListLots()
		require.NoError(t, err)
		assert.Empty(t, lots)
		spots, err := tx.ListSpots()
		require.NoError(t, err)
		assert.Empty(t, spots)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_ViewIsReadOnly(t *testing.T) {
	st := NewMemoryStore()

	err := st.View(context.Background(), func(tx Tx) error {
		return tx.CreateUser(&models.User{Username: "a", Email: "a@example.com"})
	})
	assert.ErrorIs(t, err, errReadOnly)
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	st := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := st.Update(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestMemoryStore_Uniqueness(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	err := st.Update(ctx, func(tx Tx) error {
		require.NoError(t, tx.CreateUser(&models.User{Username: "ann", Email: "ann@example.com"}))
		assert.ErrorIs(t, tx.CreateUser(&models.User{Username: "ann", Email: "x@example.com"}), ErrDuplicate)
		assert.ErrorIs(t, tx.CreateUser(&models.User{Username: "x", Email: "ann@example.com"}), ErrDuplicate)

		require.NoError(t, tx.CreateSpot(&models.ParkingSpot{LotID: 1, SpotNumber: 1}))
		assert.ErrorIs(t, tx.CreateSpot(&models.ParkingSpot{LotID: 1, SpotNumber: 1}), ErrDuplicate)
		assert.NoError(t, tx.CreateSpot(&models.ParkingSpot{LotID: 2, SpotNumber: 1}))
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_Queries(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

	var lotID int
	var spotIDs []int
	err := st.Update(ctx, func(tx Tx) error {
		lot := &models.ParkingLot{Name: "Q", Capacity: 5, PricePerHour: 2}
		require.NoError(t, tx.CreateLot(lot))
		lotID = lot.LotID
		for _, n := range []int{3, 1, 2} {
			spot := &models.ParkingSpot{LotID: lotID, SpotNumber: n, Status: models.SpotAvailable}
			require.NoError(t, tx.CreateSpot(spot))
			spotIDs = append(spotIDs, spot.SpotID)
		}
		require.NoError(t, tx.UpdateSpotStatus(spotIDs[1], models.SpotOccupied))

		closedEarly := &models.Booking{UserID: 7, SpotID: spotIDs[0], CheckInTime: base,
			CheckOutTime: null.TimeFrom(base.Add(time.Hour)), TotalCost: null.FloatFrom(2)}
		closedLate := &models.Booking{UserID: 7, SpotID: spotIDs[2], CheckInTime: base,
			CheckOutTime: null.TimeFrom(base.Add(3 * time.Hour)), TotalCost: null.FloatFrom(6)}
		open := &models.Booking{UserID: 7, SpotID: spotIDs[1], CheckInTime: base}
		for _, b := range []*models.Booking{closedEarly, closedLate, open} {
			require.NoError(t, tx.CreateBooking(b))
		}
		return nil
	})
	require.NoError(t, err)

	err = st.View(ctx, func(tx Tx) error {
		spots, err := tx.ListSpotsByLot(lotID)
		require.NoError(t, err)
		require.Len(t, spots, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{spots[0].SpotNumber, spots[1].SpotNumber, spots[2].SpotNumber})

		available, err := tx.SpotsByLotAndStatus(lotID, models.SpotAvailable)
		require.NoError(t, err)
		assert.Len(t, available, 2)

		highest, err := tx.MaxSpotNumber(lotID)
		require.NoError(t, err)
		assert.Equal(t, 3, highest)

		highest, err = tx.MaxSpotNumber(lotID + 1)
		require.NoError(t, err)
		assert.Equal(t, 0, highest)

		closed, err := tx.ClosedBookingsByUser(7)
		require.NoError(t, err)
		require.Len(t, closed, 2)
		assert.Equal(t, 6.0, closed[0].TotalCost.Float64, "latest check-out first")

		open, err := tx.OpenBookingBySpot(spotIDs[1])
		require.NoError(t, err)
		assert.True(t, open.IsOpen())

		_, err = tx.OpenBookingByIDAndUser(open.BookingID, 8)
		assert.ErrorIs(t, err, ErrNotFound)

		has, err := tx.LotHasBookings(lotID)
		require.NoError(t, err)
		assert.True(t, has)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	var lotID int
	require.NoError(t, st.Update(ctx, func(tx Tx) error {
		lot := &models.ParkingLot{Name: "Original", Capacity: 1, PricePerHour: 1}
		err := tx.CreateLot(lot)
		lotID = lot.LotID
		return err
	}))

	require.NoError(t, st.View(ctx, func(tx Tx) error {
		lot, err := tx.GetLot(lotID)
		require.NoError(t, err)
		lot.Name = "Changed"
		return nil
	}))

	require.NoError(t, st.View(ctx, func(tx Tx) error {
		lot, err := tx.GetLot(lotID)
		require.NoError(t, err)
		assert.Equal(t, "Original", lot.Name)
		return nil
	}))
}
