package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/shared/config"
	"github.com/radieske/wager-platform-poc/internal/shared/db"
	"github.com/radieske/wager-platform-poc/internal/shared/kafka"
	"github.com/radieske/wager-platform-poc/internal/shared/logger"
	"github.com/radieske/wager-platform-poc/internal/shared/metrics"
	ev "github.com/radieske/wager-platform-poc/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-audit-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres para a trilha de auditoria (insert-only)
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Kafka consumer: eventos wager_settled
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicWagerSettled, "settlement-audit")
	defer reader.Close()

	// DLQ para mensagens indecodificáveis ou não processáveis
	dlqWriter := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicWagerSettledDLQ)
	defer dlqWriter.Close()

	metrics.StartServer(cfg.MetricsPort, func(ctx context.Context) error {
		return pg.PingContext(ctx)
	})

	log.Info("settlement-audit-worker started",
		zap.String("consume", cfg.TopicWagerSettled),
		zap.String("dlq", cfg.TopicWagerSettledDLQ),
	)

	ctx := context.Background()

	// Loop principal: consome, grava auditoria, desvia veneno pra DLQ
	for {
		key, value, err := kafka.ReadNext(ctx, reader)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var settled ev.WagerSettled
		if jerr := json.Unmarshal(value, &settled); jerr != nil {
			log.Error("unmarshal wager_settled", zap.Error(jerr))
			_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
			continue
		}

		if err := insertAudit(ctx, pg, &settled); err != nil {
			log.Error("audit insert", zap.Int64("wagerId", settled.WagerID), zap.Error(err))
			// Retry simples antes de desviar pra DLQ
			const retries = 3
			for i := 0; i < retries; i++ {
				time.Sleep(time.Duration(300*(i+1)) * time.Millisecond)
				if err = insertAudit(ctx, pg, &settled); err == nil {
					break
				}
			}
			if err != nil {
				_ = kafka.WriteJSON(ctx, dlqWriter, string(key), value)
			}
		}
	}
}

// insertAudit registra o settlement na trilha de auditoria.
// ON CONFLICT DO NOTHING porque o consumo é at-least-once
func insertAudit(ctx context.Context, pg *sql.DB, e *ev.WagerSettled) error {
	_, err := pg.ExecContext(ctx, `
		INSERT INTO settlement_audit (wager_id, user_id, stake, chance, payout, win, settled_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (wager_id) DO NOTHING`,
		e.WagerID, e.UserID, e.Stake, e.Chance, e.Payout, e.Win,
		time.UnixMilli(e.TsUnixMs).UTC(),
	)
	return err
}
