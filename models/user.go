package models

type User struct {
	UserID       int    `json:"user_id" gorm:"primaryKey;autoIncrement;column:user_id"`
	Username     string `json:"username" gorm:"type:varchar(80);uniqueIndex;not null"`
	Email        string `json:"email" gorm:"type:varchar(120);uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"type:varchar(100);not null"`
	IsAdmin      bool   `json:"is_admin" gorm:"not null;default:false"`
}

func (User) TableName() string {
	return "user"
}

type SimpleUserResponse struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	IsAdmin  bool   `json:"is_admin"`
}

func (u *User) ToSimpleResponse() SimpleUserResponse {
	return SimpleUserResponse{
		UserID:   u.UserID,
		Username: u.Username,
		Email:    u.Email,
		IsAdmin:  u.IsAdmin,
	}
}
