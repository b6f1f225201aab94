package repo

import (
	"time"

	"github.com/shopspring/decimal"
)

// User é o modelo persistido no Postgres.
// Balance é NUMERIC no banco; aqui sempre decimal exato, nunca float
type User struct {
	ID        int64
	Name      string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Wager é o modelo persistido no Postgres.
// Imutável depois do commit do settlement
type Wager struct {
	ID          int64
	UserID      int64
	Stake       decimal.Decimal
	Probability float64
	Payout      decimal.Decimal
	Win         bool
	CreatedAt   time.Time
}
