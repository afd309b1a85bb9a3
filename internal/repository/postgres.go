package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Records are stored as JSONB documents next to their key and version. The version guard in
// each upsert's WHERE clause makes stale writes affect zero rows.
const schema = `
CREATE TABLE IF NOT EXISTS auctions (
	auction_id TEXT PRIMARY KEY,
	version    BIGINT NOT NULL,
	doc        JSONB  NOT NULL
);
CREATE TABLE IF NOT EXISTS rounds (
	auction_id TEXT    NOT NULL,
	idx        INTEGER NOT NULL,
	version    BIGINT  NOT NULL,
	doc        JSONB   NOT NULL,
	PRIMARY KEY (auction_id, idx)
);
CREATE TABLE IF NOT EXISTS bids (
	bid_id     TEXT PRIMARY KEY,
	auction_id TEXT   NOT NULL,
	seq        BIGINT NOT NULL,
	version    BIGINT NOT NULL,
	doc        JSONB  NOT NULL
);
CREATE INDEX IF NOT EXISTS bids_auction_seq ON bids (auction_id, seq);
CREATE TABLE IF NOT EXISTS ledger_entries (
	user_id TEXT PRIMARY KEY,
	version BIGINT NOT NULL,
	doc     JSONB  NOT NULL
);`

// PostgresRepo is a Store backed by PostgreSQL through a pgx pool.
type PostgresRepo struct {
	db *pgxpool.Pool
}

// NewPostgresRepo connects, pings and creates the tables if needed.
func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return &PostgresRepo{db: pool}, nil
}

func (p *PostgresRepo) Close() {
	p.db.Close()
}

func (p *PostgresRepo) upsert(ctx context.Context, kind, id, query string, args ...any) error {
	tag, err := p.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: save %s %s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: save %s %s: %w", kind, id, auctionerrors.ErrVersionConflict)
	}
	return nil
}

func (p *PostgresRepo) SaveAuction(ctx context.Context, a models.Auction) error {
	doc, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("postgres: encode auction: %w", err)
	}
	return p.upsert(ctx, "auction", a.AuctionID, `
		INSERT INTO auctions (auction_id, version, doc) VALUES ($1, $2, $3)
		ON CONFLICT (auction_id) DO UPDATE SET version = EXCLUDED.version, doc = EXCLUDED.doc
		WHERE auctions.version < EXCLUDED.version`,
		a.AuctionID, a.Version, doc)
}

func (p *PostgresRepo) SaveRound(ctx context.Context, r models.Round) error {
	doc, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("postgres: encode round: %w", err)
	}
	return p.upsert(ctx, "round", fmt.Sprintf("%s/%d", r.AuctionID, r.Index), `
		INSERT INTO rounds (auction_id, idx, version, doc) VALUES ($1, $2, $3, $4)
		ON CONFLICT (auction_id, idx) DO UPDATE SET version = EXCLUDED.version, doc = EXCLUDED.doc
		WHERE rounds.version < EXCLUDED.version`,
		r.AuctionID, r.Index, r.Version, doc)
}

func (p *PostgresRepo) SaveBid(ctx context.Context, b models.Bid) error {
	doc, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("postgres: encode bid: %w", err)
	}
	return p.upsert(ctx, "bid", b.BidID, `
		INSERT INTO bids (bid_id, auction_id, seq, version, doc) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (bid_id) DO UPDATE SET version = EXCLUDED.version, doc = EXCLUDED.doc
		WHERE bids.version < EXCLUDED.version`,
		b.BidID, b.AuctionID, int64(b.Seq), b.Version, doc)
}

func (p *PostgresRepo) SaveLedgerEntry(ctx context.Context, e models.LedgerEntry) error {
	doc, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("postgres: encode ledger entry: %w", err)
	}
	return p.upsert(ctx, "ledger entry", e.UserID, `
		INSERT INTO ledger_entries (user_id, version, doc) VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET version = EXCLUDED.version, doc = EXCLUDED.doc
		WHERE ledger_entries.version < EXCLUDED.version`,
		e.UserID, e.Version, doc)
}

func (p *PostgresRepo) GetAuction(ctx context.Context, auctionID string) (models.Auction, error) {
	var a models.Auction
	err := getDoc(ctx, p.db, &a, "SELECT doc FROM auctions WHERE auction_id = $1", auctionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, fmt.Errorf("postgres: get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, err
}

func (p *PostgresRepo) ListRounds(ctx context.Context, auctionID string) ([]models.Round, error) {
	return listDocs[models.Round](ctx, p.db, "SELECT doc FROM rounds WHERE auction_id = $1 ORDER BY idx", auctionID)
}

func (p *PostgresRepo) ListBids(ctx context.Context, auctionID string) ([]models.Bid, error) {
	return listDocs[models.Bid](ctx, p.db, "SELECT doc FROM bids WHERE auction_id = $1 ORDER BY seq", auctionID)
}

func (p *PostgresRepo) GetLedgerEntry(ctx context.Context, userID string) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := getDoc(ctx, p.db, &e, "SELECT doc FROM ledger_entries WHERE user_id = $1", userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return e, fmt.Errorf("postgres: get ledger entry %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return e, err
}

func getDoc(ctx context.Context, db *pgxpool.Pool, dst any, query string, args ...any) error {
	var doc []byte
	if err := db.QueryRow(ctx, query, args...).Scan(&doc); err != nil {
		return err
	}
	if err := json.Unmarshal(doc, dst); err != nil {
		return fmt.Errorf("postgres: decode: %w", err)
	}
	return nil
}

func listDocs[T any](ctx context.Context, db *pgxpool.Pool, query string, args ...any) ([]T, error) {
	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query: %w", err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return nil, fmt.Errorf("postgres: decode: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
