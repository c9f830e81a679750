package entity

import "time"

const SettingAutoTrading = "autoTradingEnabled"

type Setting struct {
	Key       string    `json:"key" firestore:"key"`
	Value     string    `json:"value" firestore:"value"`
	UpdatedAt time.Time `json:"updated_at" firestore:"updatedAt"`
}
