package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/wager-service/lock"
	"github.com/radieske/wager-platform-poc/internal/wager-service/repo"
)

// lockKeyPrefix nomeia o recurso de exclusão mútua por usuário
const lockKeyPrefix = "user-lock:"

// DefaultLockTTL limita por quanto tempo um holder travado segura o lock
// sem release explícito
const DefaultLockTTL = 5 * time.Second

// DefaultTxTimeout limita a unit of work; fica estritamente abaixo do TTL
// do lock para a transação nunca sobreviver ao lease
const DefaultTxTimeout = 3 * time.Second

// LockClient abstrai o lock distribuído para o algoritmo de quorum
// poder ser trocado sem tocar no engine
type LockClient interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (lock.Handle, error)
}

// Ledger abre a unit of work sobre o armazenamento durável
type Ledger interface {
	Begin(ctx context.Context) (repo.UnitOfWork, error)
}

// Engine orquestra um settlement: lock por usuário → unit of work →
// checagem de saldo → sorteio → escrita atômica → commit → release
type Engine struct {
	locks   LockClient
	ledger  Ledger
	outcome *OutcomeEvaluator
	log     *zap.Logger

	lockTTL   time.Duration
	txTimeout time.Duration
}

type Option func(*Engine)

func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.lockTTL = ttl }
}

func WithTxTimeout(d time.Duration) Option {
	return func(e *Engine) { e.txTimeout = d }
}

func New(log *zap.Logger, locks LockClient, ledger Ledger, outcome *OutcomeEvaluator, opts ...Option) *Engine {
	e := &Engine{
		locks:     locks,
		ledger:    ledger,
		outcome:   outcome,
		log:       log,
		lockTTL:   DefaultLockTTL,
		txTimeout: DefaultTxTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LockKey retorna o nome do recurso travado para um usuário
func LockKey(userID int64) string {
	return fmt.Sprintf("%s%d", lockKeyPrefix, userID)
}

// Settle executa um settlement completo para (userID, stake, probability).
//
// 1) Valida argumentos antes do lock: falha local não segura lock de ninguém.
// 2) Adquire o lock "user-lock:<id>" com TTL limitado.
// 3) Abre a unit of work e lê o saldo dentro dela.
// 4) balance < stake encerra com ErrInsufficientBalance; stake igual ao
// saldo é permitido e zera o saldo.
// 5) Sorteia o resultado, grava saldo novo + wager na mesma unit of work.
// 6) Commit; qualquer falha antes dele faz rollback explícito.
//
// O release do lock é um defer: roda exatamente uma vez em todo caminho
// de saída, inclusive no sucesso, e sempre depois da transação terminar.
func (e *Engine) Settle(ctx context.Context, userID int64, stake decimal.Decimal, probability float64) (*repo.Wager, error) {
	if probability < 0 || probability > 1 {
		return nil, fmt.Errorf("%w: probability %v outside [0,1]", ErrInvalidArgument, probability)
	}
	if stake.Sign() <= 0 {
		return nil, fmt.Errorf("%w: stake must be positive, got %s", ErrInvalidArgument, stake)
	}

	key := LockKey(userID)
	handle, err := e.locks.Acquire(ctx, key, e.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockUnavailable, err)
	}
	defer e.release(handle, key)

	// A transação herda um deadline abaixo do TTL do lock: se o banco
	// demorar, a tx morre antes do lease expirar com ela aberta
	txCtx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	uow, err := e.ledger.Begin(txCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: begin unit of work: %v", ErrStoreUnavailable, err)
	}

	balance, err := uow.UserBalance(txCtx, userID)
	if err != nil {
		e.abort(uow)
		if errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrUserNotFound, userID)
		}
		return nil, fmt.Errorf("%w: read balance: %v", ErrStoreUnavailable, err)
	}

	if balance.LessThan(stake) {
		e.abort(uow)
		return nil, fmt.Errorf("%w: balance %s < stake %s", ErrInsufficientBalance, balance, stake)
	}

	win, payout := e.outcome.Evaluate(stake, probability)

	newBalance := balance.Sub(stake)
	if win {
		newBalance = newBalance.Add(payout)
	}

	wager := &repo.Wager{
		UserID:      userID,
		Stake:       stake,
		Probability: probability,
		Payout:      payout,
		Win:         win,
	}

	if err := uow.WriteBalance(txCtx, userID, newBalance); err != nil {
		e.abort(uow)
		return nil, fmt.Errorf("%w: write balance: %v", ErrStoreUnavailable, err)
	}
	if err := uow.AppendWager(txCtx, wager); err != nil {
		e.abort(uow)
		return nil, fmt.Errorf("%w: append wager: %v", ErrStoreUnavailable, err)
	}

	if err := uow.Commit(); err != nil {
		// rollback pós-commit falho é best effort; drivers que já
		// encerraram a tx respondem ErrTxDone e tudo bem
		e.abort(uow)
		return nil, fmt.Errorf("%w: %v", ErrCommit, err)
	}

	e.log.Info("wager settled",
		zap.Int64("userId", userID),
		zap.String("stake", stake.String()),
		zap.Bool("win", win),
		zap.String("payout", payout.String()),
		zap.String("newBalance", newBalance.String()),
	)

	return wager, nil
}

// release devolve o lock; falha aqui é logada e suprimida porque o TTL
// já limita o estrago de um release perdido
func (e *Engine) release(h lock.Handle, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Release(ctx); err != nil {
		e.log.Warn("lock release failed", zap.String("key", key), zap.Error(err))
	}
}

// abort desfaz a unit of work; ErrTxDone significa que a tx já terminou
func (e *Engine) abort(uow repo.UnitOfWork) {
	if err := uow.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		e.log.Error("rollback failed", zap.Error(err))
	}
}
