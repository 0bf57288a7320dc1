package models

// ParkingLot 定義停車場模型
type ParkingLot struct {
	LotID          int     `json:"lot_id" gorm:"primaryKey;autoIncrement;column:lot_id"`
	Name           string  `json:"name" gorm:"type:varchar(100);not null"`
	Address        string  `json:"address" gorm:"type:varchar(200);not null"`
	Pincode        string  `json:"pincode" gorm:"type:varchar(10);not null"`
	PricePerHour   float64 `json:"price_per_hour" gorm:"type:decimal(10,2);not null"`
	Capacity       int     `json:"capacity" gorm:"not null"`
	AvailableSpots int     `json:"-" gorm:"-"` // transient，不存DB，用於計算剩餘車位
}

func (ParkingLot) TableName() string {
	return "parking_lot"
}

// ParkingLotResponse 定義停車場回應結構
type ParkingLotResponse struct {
	LotID          int     `json:"lot_id"`
	Name           string  `json:"name"`
	Address        string  `json:"address"`
	Pincode        string  `json:"pincode"`
	PricePerHour   float64 `json:"price_per_hour"`
	Capacity       int     `json:"capacity"`
	AvailableSpots int     `json:"available_spots"`
}

func (p *ParkingLot) ToResponse() ParkingLotResponse {
	return ParkingLotResponse{
		LotID:          p.LotID,
		Name:           p.Name,
		Address:        p.Address,
		Pincode:        p.Pincode,
		PricePerHour:   p.PricePerHour,
		Capacity:       p.Capacity,
		AvailableSpots: p.AvailableSpots,
	}
}

// LotInput 建立或編輯停車場時的欄位
type LotInput struct {
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Pincode      string  `json:"pincode"`
	PricePerHour float64 `json:"price_per_hour"`
	Capacity     int     `json:"capacity"`
}
