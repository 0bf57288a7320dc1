package services

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillableHours 計費時數：不足一小時以一小時計，時間倒退（時鐘誤差）視為 0
func BillableHours(checkIn, checkOut time.Time) int64 {
	d := checkOut.Sub(checkIn)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// CalculateCost 根據進場和出場時間計算費用，小時數向上取整後乘以每小時費率
func CalculateCost(checkIn, checkOut time.Time, pricePerHour float64) float64 {
	hours := BillableHours(checkIn, checkOut)
	if hours == 0 || pricePerHour <= 0 {
		return 0
	}
	return decimal.NewFromInt(hours).
		Mul(decimal.NewFromFloat(pricePerHour)).
		Round(2).
		InexactFloat64()
}
