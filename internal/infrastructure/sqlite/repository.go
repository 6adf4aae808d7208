package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"github.com/0xFacet/facet-tx-worker/internal/domain"
)

// Repository is an embedded audit log of completed derivations. It
// implements application.AuditSink.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if dbPath == "" {
		return nil, errors.New("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if err := createSchema(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS derivations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		chain_id INTEGER NOT NULL,
		l1_tx_hash TEXT NOT NULL,
		facet_tx_hash TEXT NOT NULL,
		path TEXT NOT NULL,
		from_address TEXT NOT NULL,
		to_address TEXT,
		value TEXT,
		gas_limit INTEGER NOT NULL,
		mint_amount TEXT,
		mint_rate TEXT,
		oracle_block INTEGER NOT NULL,
		l1_block INTEGER NOT NULL,
		derived_at TEXT NOT NULL,
		UNIQUE(chain_id, l1_tx_hash)
	)`)
	return err
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) RecordDerivation(ctx context.Context, record domain.DerivationRecord) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var toAddress, value, mintAmount, mintRate sql.NullString
	if record.To != nil {
		toAddress = sql.NullString{String: record.To.Hex(), Valid: true}
	}
	if record.Value != nil {
		value = sql.NullString{String: record.Value.String(), Valid: true}
	}
	if record.MintAmount != nil {
		mintAmount = sql.NullString{String: record.MintAmount.String(), Valid: true}
	}
	if record.MintRate != nil {
		mintRate = sql.NullString{String: record.MintRate.String(), Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `INSERT INTO derivations
		(chain_id, l1_tx_hash, facet_tx_hash, path, from_address, to_address,
		 value, gas_limit, mint_amount, mint_rate, oracle_block, l1_block, derived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chain_id, l1_tx_hash) DO NOTHING`,
		record.ChainID,
		record.L1TxHash.Hex(),
		record.FacetTxHash.Hex(),
		record.Path,
		record.From.Hex(),
		toAddress,
		value,
		record.GasLimit,
		mintAmount,
		mintRate,
		record.OracleBlock,
		record.L1BlockNum,
		record.DerivedAt.UTC().Format(time.RFC3339),
	)
	return err
}

// CountDerivations reports the audit-log size for metrics.
func (r *Repository) CountDerivations(ctx context.Context) (uint64, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var count uint64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM derivations`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return r.db.PingContext(ctx)
}
