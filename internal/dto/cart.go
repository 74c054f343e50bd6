package dto

import "time"

type TrackCartItemRequest struct {
	SessionID string `json:"session_id" binding:"required,max=128"`
	ItemID    string `json:"item_id" binding:"required,max=64"`
	Quantity  int32  `json:"quantity" binding:"required,gt=0"`
}

type ReservationResponse struct {
	ItemID    string    `json:"item_id"`
	Quantity  int32     `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CartResponse struct {
	SessionID string                `json:"session_id"`
	Items     []ReservationResponse `json:"items"`
}

type ReleaseAllResponse struct {
	SessionID string `json:"session_id"`
	Released  int    `json:"released"`
}

type StockResponse struct {
	ItemID    string `json:"item_id"`
	Available *int32 `json:"available"`
	Unlimited bool   `json:"unlimited"`
}
