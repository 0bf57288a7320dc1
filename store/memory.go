package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"spotkeeper/models"
)

var errReadOnly = errors.New("write in read-only transaction")

type memState struct {
	users    map[int]models.User
	lots     map[int]models.ParkingLot
	spots    map[int]models.ParkingSpot
	bookings map[int]models.Booking
	nextID   map[string]int
}

func newMemState() *memState {
	return &memState{
		users:    make(map[int]models.User),
		lots:     make(map[int]models.ParkingLot),
		spots:    make(map[int]models.ParkingSpot),
		bookings: make(map[int]models.Booking),
		nextID:   make(map[string]int),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.lots {
		c.lots[k] = v
	}
	for k, v := range s.spots {
		c.spots[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.nextID {
		c.nextID[k] = v
	}
	return c
}

func (s *memState) newID(table string) int {
	s.nextID[table]++
	return s.nextID[table]
}

// MemoryStore 單一程序內的實體儲存。
// 同一時間只允許一個寫入交易；交易在快照上執行，成功才替換狀態。
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func (m *MemoryStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	if err := fn(&memTx{state: snapshot}); err != nil {
		return err
	}
	m.state = snapshot
	return nil
}

func (m *MemoryStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{state: m.state, readOnly: true})
}

type memTx struct {
	state    *memState
	readOnly bool
}

func (t *memTx) writable() error {
	if t.readOnly {
		return errReadOnly
	}
	return nil
}

// --- users ---

func (t *memTx) CreateUser(user *models.User) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, u := range t.state.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
	}
	user.UserID = t.state.newID("user")
	t.state.users[user.UserID] = *user
	return nil
}

func (t *memTx) GetUser(id int) (*models.User, error) {
	u, ok := t.state.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) LockUser(id int) (*models.User, error) {
	return t.GetUser(id)
}

func (t *memTx) GetUserByUsername(username string) (*models.User, error) {
	for _, u := range t.state.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) FindUserByUsernameOrEmail(username, email string) (*models.User, error) {
	for _, id := range sortedKeys(t.state.users) {
		u := t.state.users[id]
		if u.Username == username || u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListUsers(includeAdmins bool) ([]models.User, error) {
	users := []models.User{}
	for _, id := range sortedKeys(t.state.users) {
		u := t.state.users[id]
		if u.IsAdmin && !includeAdmins {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func (t *memTx) AdminExists() (bool, error) {
	for _, u := range t.state.users {
		if u.IsAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DeleteUser(id int) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.users[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.users, id)
	return nil
}

// --- lots ---

func (t *memTx) CreateLot(lot *models.ParkingLot) error {
	if err := t.writable(); err != nil {
		return err
	}
	lot.LotID = t.state.newID("lot")
	t.state.lots[lot.LotID] = *lot
	return nil
}

func (t *memTx) GetLot(id int) (*models.ParkingLot, error) {
	l, ok := t.state.lots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &l, nil
}

// LockLot 寫入交易本身已獨佔整個儲存
func (t *memTx) LockLot(id int) (*models.ParkingLot, error) {
	return t.GetLot(id)
}

func (t *memTx) UpdateLot(lot *models.ParkingLot) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.lots[lot.LotID]; !ok {
		return ErrNotFound
	}
	stored := *lot
	stored.AvailableSpots = 0
	t.state.lots[lot.LotID] = stored
	return nil
}

func (t *memTx) DeleteLot(id int) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.lots[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.lots, id)
	return nil
}

func (t *memTx) ListLots() ([]models.ParkingLot, error) {
	lots := []models.ParkingLot{}
	for _, id := range sortedKeys(t.state.lots) {
		lots = append(lots, t.state.lots[id])
	}
	return lots, nil
}

// --- spots ---

func (t *memTx) CreateSpot(spot *models.ParkingSpot) error {
	if err := t.writable(); err != nil {
		return err
	}
	for _, s := range t.state.spots {
		if s.LotID == spot.LotID && s.SpotNumber == spot.SpotNumber {
			return fmt.Errorf("spot %d in lot %d: %w", spot.SpotNumber, spot.LotID, ErrDuplicate)
		}
	}
	spot.SpotID = t.state.newID("spot")
	t.state.spots[spot.SpotID] = *spot
	return nil
}

func (t *memTx) GetSpot(id int) (*models.ParkingSpot, error) {
	s, ok := t.state.spots[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) ListSpots() ([]models.ParkingSpot, error) {
	spots := []models.ParkingSpot{}
	for _, id := range sortedKeys(t.state.spots) {
		spots = append(spots, t.state.spots[id])
	}
	return spots, nil
}

func (t *memTx) ListSpotsByLot(lotID int) ([]models.ParkingSpot, error) {
	return t.filterSpots(func(s models.ParkingSpot) bool { return s.LotID == lotID }), nil
}

func (t *memTx) SpotsByLotAndStatus(lotID int, status models.SpotStatus) ([]models.ParkingSpot, error) {
	return t.filterSpots(func(s models.ParkingSpot) bool {
		return s.LotID == lotID && s.Status == status
	}), nil
}

func (t *memTx) filterSpots(keep func(models.ParkingSpot) bool) []models.ParkingSpot {
	spots := []models.ParkingSpot{}
	for _, s := range t.state.spots {
		if keep(s) {
			spots = append(spots, s)
		}
	}
	sort.Slice(spots, func(i, j int) bool { return spots[i].SpotNumber < spots[j].SpotNumber })
	return spots
}

func (t *memTx) CountSpotsByLot(lotID int) (int, error) {
	n := 0
	for _, s := range t.state.spots {
		if s.LotID == lotID {
			n++
		}
	}
	return n, nil
}

func (t *memTx) MaxSpotNumber(lotID int) (int, error) {
	highest := 0
	for _, s := range t.state.spots {
		if s.LotID == lotID && s.SpotNumber > highest {
			highest = s.SpotNumber
		}
	}
	return highest, nil
}

func (t *memTx) UpdateSpotStatus(id int, status models.SpotStatus) error {
	if err := t.writable(); err != nil {
		return err
	}
	s, ok := t.state.spots[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	t.state.spots[id] = s
	return nil
}

func (t *memTx) DeleteSpot(id int) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.spots[id]; !ok {
		return ErrNotFound
	}
	delete(t.state.spots, id)
	return nil
}

func (t *memTx) DeleteSpotsByLot(lotID int) error {
	if err := t.writable(); err != nil {
		return err
	}
	for id, s := range t.state.spots {
		if s.LotID == lotID {
			delete(t.state.spots, id)
		}
	}
	return nil
}

// --- bookings ---

func (t *memTx) CreateBooking(booking *models.Booking) error {
	if err := t.writable(); err != nil {
		return err
	}
	booking.BookingID = t.state.newID("booking")
	t.state.bookings[booking.BookingID] = *booking
	return nil
}

func (t *memTx) GetBooking(id int) (*models.Booking, error) {
	b, ok := t.state.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) UpdateBooking(booking *models.Booking) error {
	if err := t.writable(); err != nil {
		return err
	}
	if _, ok := t.state.bookings[booking.BookingID]; !ok {
		return ErrNotFound
	}
	t.state.bookings[booking.BookingID] = *booking
	return nil
}

func (t *memTx) OpenBookingBySpot(spotID int) (*models.Booking, error) {
	for _, id := range sortedKeys(t.state.bookings) {
		b := t.state.bookings[id]
		if b.SpotID == spotID && b.IsOpen() {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) OpenBookingByIDAndUser(id, userID int) (*models.Booking, error) {
	b, ok := t.state.bookings[id]
	if !ok || b.UserID != userID || !b.IsOpen() {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) OpenBookingsByUser(userID int) ([]models.Booking, error) {
	return t.filterBookings(func(b models.Booking) bool { return b.UserID == userID && b.IsOpen() }), nil
}

func (t *memTx) ListOpenBookings() ([]models.Booking, error) {
	return t.filterBookings(func(b models.Booking) bool { return b.IsOpen() }), nil
}

func (t *memTx) ClosedBookingsByUser(userID int) ([]models.Booking, error) {
	bookings := t.filterBookings(func(b models.Booking) bool { return b.UserID == userID && !b.IsOpen() })
	sortByCheckOutDesc(bookings)
	return bookings, nil
}

func (t *memTx) ClosedBookings() ([]models.Booking, error) {
	bookings := t.filterBookings(func(b models.Booking) bool { return !b.IsOpen() })
	sortByCheckOutDesc(bookings)
	return bookings, nil
}

func (t *memTx) filterBookings(keep func(models.Booking) bool) []models.Booking {
	bookings := []models.Booking{}
	for _, id := range sortedKeys(t.state.bookings) {
		if b := t.state.bookings[id]; keep(b) {
			bookings = append(bookings, b)
		}
	}
	return bookings
}

func (t *memTx) SpotHasBookings(spotID int) (bool, error) {
	for _, b := range t.state.bookings {
		if b.SpotID == spotID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) LotHasBookings(lotID int) (bool, error) {
	for _, b := range t.state.bookings {
		if s, ok := t.state.spots[b.SpotID]; ok && s.LotID == lotID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) DeleteBookingsByUser(userID int) error {
	if err := t.writable(); err != nil {
		return err
	}
	for id, b := range t.state.bookings {
		if b.UserID == userID {
			delete(t.state.bookings, id)
		}
	}
	return nil
}

func sortByCheckOutDesc(bookings []models.Booking) {
	sort.SliceStable(bookings, func(i, j int) bool {
		ti, tj := bookings[i].CheckOutTime.Time, bookings[j].CheckOutTime.Time
		if ti.Equal(tj) {
			return bookings[i].BookingID > bookings[j].BookingID
		}
		return ti.After(tj)
	})
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
