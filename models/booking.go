package models

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Booking 一台車佔用一個車位的紀錄；CheckOutTime 為空代表尚未離場
type Booking struct {
	BookingID     int        `json:"booking_id" gorm:"primaryKey;autoIncrement;column:booking_id"`
	UserID        int        `json:"user_id" gorm:"index;not null;column:user_id"`
	SpotID        int        `json:"spot_id" gorm:"index;not null;column:spot_id"`
	VehicleNumber string     `json:"vehicle_number" gorm:"type:varchar(20);not null"`
	CheckInTime   time.Time  `json:"check_in_time" gorm:"precision:6;not null"`
	CheckOutTime  null.Time  `json:"check_out_time" gorm:"precision:6;index"`
	TotalCost     null.Float `json:"total_cost" gorm:"type:decimal(10,2)"`

	User *User        `json:"-" gorm:"foreignKey:UserID;references:UserID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
	Spot *ParkingSpot `json:"-" gorm:"foreignKey:SpotID;references:SpotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (Booking) TableName() string {
	return "booking"
}

// IsOpen 尚未離場
func (b *Booking) IsOpen() bool {
	return !b.CheckOutTime.Valid
}

type SimpleBookingResponse struct {
	BookingID     int        `json:"booking_id"`
	UserID        int        `json:"user_id"`
	SpotID        int        `json:"spot_id"`
	VehicleNumber string     `json:"vehicle_number"`
	CheckInTime   time.Time  `json:"check_in_time"`
	CheckOutTime  *time.Time `json:"check_out_time"`
	TotalCost     *float64   `json:"total_cost"`
}

func (b *Booking) ToSimpleResponse() SimpleBookingResponse {
	return SimpleBookingResponse{
		BookingID:     b.BookingID,
		UserID:        b.UserID,
		SpotID:        b.SpotID,
		VehicleNumber: b.VehicleNumber,
		CheckInTime:   b.CheckInTime,
		CheckOutTime:  b.CheckOutTime.Ptr(),
		TotalCost:     b.TotalCost.Ptr(),
	}
}

// BookingView 預約加上車位與停車場資訊，用於歷史紀錄
type BookingView struct {
	Booking    Booking
	SpotNumber int
	LotID      int
	LotName    string
	Username   string
}

type BookingResponse struct {
	SimpleBookingResponse
	SpotNumber      int    `json:"spot_number"`
	LotID           int    `json:"lot_id"`
	LotName         string `json:"lot_name"`
	Username        string `json:"username,omitempty"`
	DurationSeconds *int64 `json:"duration_seconds,omitempty"`
}

func (v *BookingView) ToResponse() BookingResponse {
	resp := BookingResponse{
		SimpleBookingResponse: v.Booking.ToSimpleResponse(),
		SpotNumber:            v.SpotNumber,
		LotID:                 v.LotID,
		LotName:               v.LotName,
		Username:              v.Username,
	}
	if v.Booking.CheckOutTime.Valid {
		secs := int64(v.Booking.CheckOutTime.Time.Sub(v.Booking.CheckInTime).Seconds())
		resp.DurationSeconds = &secs
	}
	return resp
}
