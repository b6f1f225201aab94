package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Postgres implementa o ledger de saldo e o histórico de wagers
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// UnitOfWork agrupa leitura de saldo, escrita de saldo e append do wager
// como uma unidade atômica: tudo commita ou tudo volta
type UnitOfWork interface {
	UserBalance(ctx context.Context, userID int64) (decimal.Decimal, error)
	WriteBalance(ctx context.Context, userID int64, balance decimal.Decimal) error
	AppendWager(ctx context.Context, w *Wager) error
	Commit() error
	Rollback() error
}

// Begin abre uma unit of work sobre uma transação do banco
func (p *Postgres) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &ledgerTx{tx: tx}, nil
}

type ledgerTx struct{ tx *sql.Tx }

// UserBalance lê o saldo com FOR UPDATE.
// O lock distribuído já serializa settlements do mesmo usuário; o row lock
// é a segunda linha de defesa caso o lease esteja mal configurado
func (t *ledgerTx) UserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var raw string
	err := t.tx.QueryRowContext(ctx,
		`SELECT balance FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&raw)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrNotFound
	}
	if err != nil {
		return decimal.Zero, err
	}

	bal, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return bal, nil
}

func (t *ledgerTx) WriteBalance(ctx context.Context, userID int64, balance decimal.Decimal) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE users SET balance=$1, updated_at=NOW() WHERE id=$2`, balance.String(), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendWager insere o registro do wager e preenche ID e CreatedAt
func (t *ledgerTx) AppendWager(ctx context.Context, w *Wager) error {
	return t.tx.QueryRowContext(ctx, `
		INSERT INTO wagers (user_id, stake, probability, payout, win)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		w.UserID, w.Stake.String(), w.Probability, w.Payout.String(), w.Win,
	).Scan(&w.ID, &w.CreatedAt)
}

func (t *ledgerTx) Commit() error   { return t.tx.Commit() }
func (t *ledgerTx) Rollback() error { return t.tx.Rollback() }

// GetUser retorna um usuário pelo id
func (p *Postgres) GetUser(ctx context.Context, id int64) (*User, error) {
	var (
		u   User
		raw string
	)
	err := p.db.QueryRowContext(ctx,
		`SELECT id, name, balance, created_at, updated_at FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.Name, &raw, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if u.Balance, err = decimal.NewFromString(raw); err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return &u, nil
}

// ListUsers retorna uma janela de usuários ordenada por id
func (p *Postgres) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, balance, created_at, updated_at FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var (
			u   User
			raw string
		)
		if err := rows.Scan(&u.ID, &u.Name, &raw, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if u.Balance, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("parse balance %q: %w", raw, err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetWager retorna um wager pelo id
func (p *Postgres) GetWager(ctx context.Context, id int64) (*Wager, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT id, user_id, stake, probability, payout, win, created_at FROM wagers WHERE id=$1`, id)
	w, err := scanWager(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ListWagers retorna uma janela de wagers ordenada por id
func (p *Postgres) ListWagers(ctx context.Context, limit, offset int) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, user_id, stake, probability, payout, win, created_at FROM wagers ORDER BY id LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWagers(rows)
}

// WagersByUserIDs retorna todos os wagers dos usuários informados (lookup em lote)
func (p *Postgres) WagersByUserIDs(ctx context.Context, userIDs []int64) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, stake, probability, payout, win, created_at
		FROM wagers
		WHERE user_id = ANY($1)
		ORDER BY id`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWagers(rows)
}

// BestWagersByUserIDs retorna, para cada usuário do lote, o wager de maior payout
func (p *Postgres) BestWagersByUserIDs(ctx context.Context, userIDs []int64) ([]Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT w.id, w.user_id, w.stake, w.probability, w.payout, w.win, w.created_at
		FROM wagers w
		WHERE w.user_id = ANY($1)
		  AND w.payout = (SELECT MAX(payout) FROM wagers WHERE user_id = w.user_id)
		ORDER BY w.user_id`, pq.Array(userIDs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWagers(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWager(r rowScanner) (*Wager, error) {
	var (
		w         Wager
		rawStake  string
		rawPayout string
	)
	if err := r.Scan(&w.ID, &w.UserID, &rawStake, &w.Probability, &rawPayout, &w.Win, &w.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if w.Stake, err = decimal.NewFromString(rawStake); err != nil {
		return nil, fmt.Errorf("parse stake %q: %w", rawStake, err)
	}
	if w.Payout, err = decimal.NewFromString(rawPayout); err != nil {
		return nil, fmt.Errorf("parse payout %q: %w", rawPayout, err)
	}
	return &w, nil
}

func collectWagers(rows *sql.Rows) ([]Wager, error) {
	var out []Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}
