package dto

import "github.com/shopspring/decimal"

type PlaceWagerRequest struct {
	UserID int64           `json:"userId"`
	Amount decimal.Decimal `json:"amount"` // aceita número ou string; sempre decimal exato
	Chance float64         `json:"chance"` // probabilidade de vitória em [0,1]
}
