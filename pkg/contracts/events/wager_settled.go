package events

// Evento publicado no tópico "wager_settled" após cada settlement confirmado
// Valores monetários trafegam como string decimal exata, nunca float
type WagerSettled struct {
	EventID  string  `json:"event_id"` // uuid do envelope, único por publicação
	WagerID  int64   `json:"wager_id"`
	UserID   int64   `json:"user_id"`
	Stake    string  `json:"stake"`
	Chance   float64 `json:"chance"`
	Payout   string  `json:"payout"`
	Win      bool    `json:"win"`
	TsUnixMs int64   `json:"ts_unix_ms"`
}
