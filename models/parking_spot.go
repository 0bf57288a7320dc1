package models

// SpotStatus 車位狀態
type SpotStatus string

const (
	SpotAvailable SpotStatus = "available"
	SpotOccupied  SpotStatus = "occupied"
)

type ParkingSpot struct {
	SpotID     int        `json:"spot_id" gorm:"primaryKey;autoIncrement;column:spot_id"`
	LotID      int        `json:"lot_id" gorm:"not null;column:lot_id;uniqueIndex:idx_lot_spot_number"`
	SpotNumber int        `json:"spot_number" gorm:"not null;uniqueIndex:idx_lot_spot_number"`
	Status     SpotStatus `json:"status" gorm:"type:varchar(16);not null;index"`

	Lot *ParkingLot `json:"-" gorm:"foreignKey:LotID;references:LotID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT"`
}

func (ParkingSpot) TableName() string {
	return "parking_spot"
}

func (p *ParkingSpot) IsAvailable() bool {
	return p.Status == SpotAvailable
}

type ParkingSpotResponse struct {
	SpotID     int    `json:"spot_id"`
	LotID      int    `json:"lot_id"`
	SpotNumber int    `json:"spot_number"`
	Status     string `json:"status"`
}

func (p *ParkingSpot) ToResponse() ParkingSpotResponse {
	return ParkingSpotResponse{
		SpotID:     p.SpotID,
		LotID:      p.LotID,
		SpotNumber: p.SpotNumber,
		Status:     string(p.Status),
	}
}

// SpotDetail 管理員查看停車場時，每個車位及目前佔用者
type SpotDetail struct {
	Spot    ParkingSpot
	Booking *Booking
	User    *User
}

type SpotDetailResponse struct {
	ParkingSpotResponse
	Booking *SimpleBookingResponse `json:"booking,omitempty"`
	User    *SimpleUserResponse    `json:"user,omitempty"`
}

func (d *SpotDetail) ToResponse() SpotDetailResponse {
	resp := SpotDetailResponse{ParkingSpotResponse: d.Spot.ToResponse()}
	if d.Booking != nil {
		b := d.Booking.ToSimpleResponse()
		resp.Booking = &b
	}
	if d.User != nil {
		u := d.User.ToSimpleResponse()
		resp.User = &u
	}
	return resp
}
