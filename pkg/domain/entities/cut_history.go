package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// PartCutHistory is an immutable record of one fulfilled cut job item
type PartCutHistory struct {
	ID               uint            `json:"id" gorm:"primaryKey"`
	PartNumber       PartNumber      `json:"part_number"`
	WireCutterID     uint            `json:"wire_cutter_id"`
	CutJobItemID     uint            `json:"cut_job_item_id"`
	QuantityCut      decimal.Decimal `json:"quantity_cut"`
	TotalTimeMinutes decimal.Decimal `json:"total_time_minutes"`
	EventDate        time.Time       `json:"event_date"`
}

func (PartCutHistory) TableName() string {
	return "part_cut_histories"
}
