package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"spotkeeper/models"
	"spotkeeper/store"
	"spotkeeper/utils"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// UserService 使用者註冊、登入查詢與管理員移除
type UserService struct {
	store store.Store
}

func NewUserService(st store.Store) *UserService {
	return &UserService{store: st}
}

func validateUser(username, email, passwordHash string) (string, string, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || passwordHash == "" {
		return "", "", fmt.Errorf("%w: username, email and password are required", ErrValidation)
	}
	if len(username) > 80 || len(email) > 120 {
		return "", "", fmt.Errorf("%w: username or email too long", ErrValidation)
	}
	if !emailRegex.MatchString(email) {
		return "", "", fmt.Errorf("%w: invalid email format", ErrValidation)
	}
	return username, email, nil
}

// Register 註冊一般使用者；帳號或 email 重複時回傳 ErrConflict
func (s *UserService) Register(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	return s.create(ctx, username, email, passwordHash, false)
}

func (s *UserService) create(ctx context.Context, username, email, passwordHash string, isAdmin bool) (*models.User, error) {
	username, email, err := validateUser(username, email, passwordHash)
	if err != nil {
		return nil, err
	}

	user := &models.User{Username: username, Email: email, PasswordHash: passwordHash, IsAdmin: isAdmin}
	err = s.store.Update(ctx, func(tx store.Tx) error {
		existing, err := tx.FindUserByUsernameOrEmail(username, email)
		switch {
		case err == nil:
			if existing.Username == username {
				return fmt.Errorf("%w: username %s is already in use", ErrConflict, username)
			}
			return fmt.Errorf("%w: email %s is already in use", ErrConflict, email)
		case !errors.Is(err, store.ErrNotFound):
			return fmt.Errorf("failed to check for duplicate user: %w", err)
		}

		if err := tx.CreateUser(user); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return fmt.Errorf("%w: username or email is already in use", ErrConflict)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Successfully registered user %s with ID %d", user.Username, user.UserID)
	return user, nil
}

// EnsureAdmin 尚無任何管理員時建立預設管理員；已存在則不做事
func (s *UserService) EnsureAdmin(ctx context.Context, username, email, passwordHash string) (bool, error) {
	var exists bool
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		exists, err = tx.AdminExists()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to check for admin: %w", err)
	}
	if exists {
		return false, nil
	}
	if _, err := s.create(ctx, username, email, passwordHash, true); err != nil {
		return false, err
	}
	return true, nil
}

// Authenticate 以帳號密碼登入
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			log.Printf("Login failed: user %s not found", username)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPasswordHash(password, user.PasswordHash) {
		log.Printf("Login failed: invalid password for user %s", username)
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		user, err = tx.GetUserByUsername(username)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %s", ErrNotFound, username)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// ListUsers 所有非管理員使用者
func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	err := s.store.View(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers(false)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// RemoveUser 移除非管理員使用者與其所有預約；未離場的預約會先釋出車位
func (s *UserService) RemoveUser(ctx context.Context, userID int) error {
	var removed int
	err := s.store.Update(ctx, func(tx store.Tx) error {
		// 鎖住使用者後，並發的 CheckIn 要等到這裡提交才能讀到使用者
		user, err := tx.LockUser(userID)
		if err != nil {
			return lookupErr(err, "user", userID)
		}
		if user.IsAdmin {
			return fmt.Errorf("%w: cannot remove admin user %s", ErrConflict, user.Username)
		}

		open, err := tx.OpenBookingsByUser(userID)
		if err != nil {
			return fmt.Errorf("failed to list open bookings: %w", err)
		}
		spotsByLot := make(map[int][]int)
		for _, b := range open {
			spot, err := tx.GetSpot(b.SpotID)
			if err != nil {
				return fmt.Errorf("failed to load spot %d: %w", b.SpotID, err)
			}
			spotsByLot[spot.LotID] = append(spotsByLot[spot.LotID], spot.SpotID)
		}
		// 依 lot_id 排序上鎖，避免與其他交易互相等待
		lotIDs := make([]int, 0, len(spotsByLot))
		for lotID := range spotsByLot {
			lotIDs = append(lotIDs, lotID)
		}
		sort.Ints(lotIDs)
		for _, lotID := range lotIDs {
			if _, err := tx.LockLot(lotID); err != nil {
				return fmt.Errorf("failed to lock parking lot %d: %w", lotID, err)
			}
			for _, spotID := range spotsByLot[lotID] {
				if err := tx.UpdateSpotStatus(spotID, models.SpotAvailable); err != nil {
					return fmt.Errorf("failed to release spot %d: %w", spotID, err)
				}
			}
		}

		if err := tx.DeleteBookingsByUser(userID); err != nil {
			return fmt.Errorf("failed to delete bookings of user %d: %w", userID, err)
		}
		if err := tx.DeleteUser(userID); err != nil {
			return fmt.Errorf("failed to delete user %d: %w", userID, err)
		}
		removed = len(open)
		return nil
	})
	if err != nil {
		return err
	}

	log.Printf("Removed user %d (released %d occupied spots)", userID, removed)
	return nil
}
