package oplog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ohmynofan/blockstreet-auto-bot/internal/domain/model"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339Nano
)

// Store is the append-only operation ledger. It is never read back to
// restore session state.
type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) init() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS op_logs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        pass_id TEXT NOT NULL,
        wallet TEXT NOT NULL,
        address TEXT NOT NULL,
        kind TEXT NOT NULL,
        symbol TEXT NOT NULL DEFAULT '',
        target TEXT NOT NULL DEFAULT '',
        amount TEXT NOT NULL DEFAULT '0',
        status TEXT NOT NULL,
        error TEXT,
        op_date TEXT NOT NULL,
        created_at TEXT NOT NULL
    )`,
		`CREATE INDEX IF NOT EXISTS idx_op_logs_address_date ON op_logs(address, op_date)`,
		`CREATE TABLE IF NOT EXISTS earn_logs (
        address TEXT NOT NULL,
        earn_date TEXT NOT NULL,
        today_earn TEXT,
        total_earn TEXT,
        balance TEXT,
        PRIMARY KEY(address, earn_date)
    )`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("init ledger schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record appends one attempted operation.
func (s *Store) Record(ctx context.Context, op model.Operation) error {
	at := op.At
	if at.IsZero() {
		at = time.Now()
	}
	var errText sql.NullString
	if op.Error != "" {
		errText = sql.NullString{String: op.Error, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO op_logs(pass_id, wallet, address, kind, status, op_date, created_at, symbol, target, amount, error)
    VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.PassID, op.Wallet, normalizeAddress(op.Address), string(op.Kind), string(op.Status),
		at.UTC().Format(dateLayout), at.UTC().Format(timeLayout),
		op.Symbol, op.Target, op.Amount.String(), errText)
	if err != nil {
		return fmt.Errorf("record operation: %w", err)
	}
	return nil
}

// Summary is one wallet's activity for one UTC day.
type Summary struct {
	Address   string
	Day       string
	Succeeded int
	Failed    int
	Skipped   int
	Volume    map[model.OperationKind]decimal.Decimal
	TodayEarn string
	TotalEarn string
	Balance   string
}

func (s *Store) DailySummary(ctx context.Context, address string, day time.Time) (Summary, error) {
	addr := normalizeAddress(address)
	dateStr := day.UTC().Format(dateLayout)
	sum := Summary{Address: addr, Day: dateStr, Volume: map[model.OperationKind]decimal.Decimal{}}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, status, amount FROM op_logs WHERE address = ? AND op_date = ?`, addr, dateStr)
	if err != nil {
		return Summary{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var kind, status, amount string
		if err := rows.Scan(&kind, &status, &amount); err != nil {
			return Summary{}, err
		}
		switch model.OperationStatus(status) {
		case model.StatusSucceeded:
			sum.Succeeded++
			if d, err := decimal.NewFromString(amount); err == nil {
				k := model.OperationKind(kind)
				sum.Volume[k] = sum.Volume[k].Add(d)
			}
		case model.StatusFailed:
			sum.Failed++
		case model.StatusSkipped:
			sum.Skipped++
		}
	}
	if err := rows.Err(); err != nil {
		return Summary{}, err
	}

	var todayEarnNS, totalEarnNS, balanceNS sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT today_earn, total_earn, balance FROM earn_logs WHERE address = ? AND earn_date = ?`, addr, dateStr).
		Scan(&todayEarnNS, &totalEarnNS, &balanceNS)
	if err != nil && err != sql.ErrNoRows {
		return Summary{}, err
	}
	sum.TodayEarn = todayEarnNS.String
	sum.TotalEarn = totalEarnNS.String
	sum.Balance = balanceNS.String
	return sum, nil
}

// UpdateEarning stores the latest earn snapshot for the day.
func (s *Store) UpdateEarning(ctx context.Context, address string, day time.Time, info model.EarnInfo) error {
	addr := normalizeAddress(address)
	dateStr := day.UTC().Format(dateLayout)

	_, err := s.db.ExecContext(ctx, `INSERT INTO earn_logs(address, earn_date, today_earn, total_earn, balance)
    VALUES(?, ?, ?, ?, ?)
    ON CONFLICT(address, earn_date) DO UPDATE SET today_earn = excluded.today_earn, total_earn = excluded.total_earn, balance = excluded.balance`,
		addr, dateStr, info.TodayEarn.String(), info.TotalEarn.String(), info.Balance.String())
	return err
}

func normalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
