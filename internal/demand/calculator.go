package demand

import (
	"fmt"
	"math"
)

type Tier string

const (
	TierNone     Tier = "none"
	TierModerate Tier = "moderate"
	TierHigh     Tier = "high"
	TierCritical Tier = "critical"
)

type Input struct {
	ItemID          string
	ActiveCartCount int
	TotalReserved   int64
	// ActualStock: остаток в базе, nil для безлимитных позиций.
	ActualStock *int32
	// AvailableStock: остаток за вычетом резервов.
	AvailableStock *int32
	// RecentOrders: заказы с позицией за последний час.
	RecentOrders int64
}

type Snapshot struct {
	ItemID                string  `json:"item_id"`
	ActiveCartCount       int     `json:"active_cart_count"`
	TotalReservedQuantity int64   `json:"total_reserved_quantity"`
	AvailableStock        *int32  `json:"available_stock"`
	DemandScore           float64 `json:"demand_score"`
	UrgencyTier           Tier    `json:"urgency_tier"`
	UrgencyMessage        *string `json:"urgency_message"`
	SocialProof           *string `json:"social_proof"`
}

// Calculate: чистая функция: одинаковый вход даёт одинаковый снимок.
func Calculate(in Input, th Thresholds) Snapshot {
	snap := Snapshot{
		ItemID:                in.ItemID,
		ActiveCartCount:       in.ActiveCartCount,
		TotalReservedQuantity: in.TotalReserved,
		AvailableStock:        in.AvailableStock,
		DemandScore:           Score(in, th),
	}
	snap.UrgencyTier = classify(in.ActiveCartCount, snap.DemandScore, th)
	if snap.UrgencyTier == TierNone {
		return snap
	}

	msg := urgencyMessage(snap.UrgencyTier, in.ActiveCartCount, in.AvailableStock)
	snap.UrgencyMessage = &msg
	proof := socialProof(in.RecentOrders)
	snap.SocialProof = &proof
	return snap
}

func Score(in Input, th Thresholds) float64 {
	carts := ratio(float64(in.ActiveCartCount), float64(th.CriticalCarts))
	orders := ratio(float64(in.RecentOrders), float64(th.OrderSaturation))

	var scarcity float64
	if in.ActualStock != nil {
		switch {
		case in.AvailableStock != nil && *in.AvailableStock == 0:
			scarcity = 1
		case *in.ActualStock > 0:
			scarcity = ratio(float64(in.TotalReserved), float64(*in.ActualStock))
		}
	}

	score := th.CartWeight*carts + th.ScarcityWeight*scarcity + th.OrderWeight*orders
	return math.Round(clamp01(score)*1000) / 1000
}

func classify(carts int, score float64, th Thresholds) Tier {
	switch {
	case carts <= 1:
		return TierNone
	case carts >= th.CriticalCarts || score >= th.CriticalScore:
		return TierCritical
	case carts >= th.HighCarts || score >= th.HighScore:
		return TierHigh
	default:
		return TierModerate
	}
}

func urgencyMessage(tier Tier, carts int, available *int32) string {
	switch tier {
	case TierCritical:
		if available != nil && *available > 0 {
			return fmt.Sprintf("Only %d left and %d people have this in their cart", *available, carts)
		}
		return fmt.Sprintf("%d people have this in their cart right now", carts)
	case TierHigh:
		return fmt.Sprintf("%d people are looking at this item", carts)
	default:
		return fmt.Sprintf("In %d carts right now", carts)
	}
}

func socialProof(recent int64) string {
	if recent > 0 {
		return fmt.Sprintf("Ordered %d times in the last hour", recent)
	}
	return "Popular right now"
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return clamp01(num / den)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
