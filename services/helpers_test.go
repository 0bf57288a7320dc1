package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"spotkeeper/database"
	"spotkeeper/models"
	"spotkeeper/store"
)

// forEachStore runs fn against the in-memory store and a SQLite-backed GORM store.
func forEachStore(t *testing.T, fn func(t *testing.T, st store.Store)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemoryStore())
	})
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "parking.db"), "release")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return database.NewGormStore(db)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	st         store.Store
	clock      *fakeClock
	lots       *LotService
	allocation *AllocationService
	reports    *ReportService
	users      *UserService
	audit      *AuditService
}

func newFixture(st store.Store) *fixture {
	clock := newFakeClock()
	return &fixture{
		st:         st,
		clock:      clock,
		lots:       NewLotService(st),
		allocation: NewAllocationService(st, WithClock(clock.Now)),
		reports:    NewReportService(st),
		users:      NewUserService(st),
		audit:      NewAuditService(st),
	}
}

func (f *fixture) createLot(t *testing.T, name string, price float64, capacity int) *models.ParkingLot {
	t.Helper()
	lot, err := f.lots.CreateLot(context.Background(), models.LotInput{
		Name:         name,
		Address:      "1 Main Street",
		Pincode:      "560001",
		PricePerHour: price,
		Capacity:     capacity,
	})
	require.NoError(t, err)
	return lot
}

func (f *fixture) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), username, username+"@example.com", "not-a-real-hash")
	require.NoError(t, err)
	return user
}

// spotIDs maps spot number to spot id for a lot.
func (f *fixture) spotIDs(t *testing.T, lotID int) map[int]int {
	t.Helper()
	_, details, err := f.lots.LotDetails(context.Background(), lotID)
	require.NoError(t, err)
	ids := make(map[int]int, len(details))
	for _, d := range details {
		ids[d.Spot.SpotNumber] = d.Spot.SpotID
	}
	return ids
}
