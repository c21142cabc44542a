package relayer

import (
	"context"
	"fmt"
	"time"
)

func (s *Server) migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`
CREATE TABLE IF NOT EXISTS orders (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  hash TEXT NOT NULL UNIQUE,
  maker_address TEXT NOT NULL,
  taker_address TEXT NOT NULL,
  sender_address TEXT NOT NULL,
  exchange_address TEXT NOT NULL,
  fee_recipient_address TEXT NOT NULL,
  maker_asset_data TEXT NOT NULL,
  taker_asset_data TEXT NOT NULL,
  order_json TEXT NOT NULL,
  created_at TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_assets ON orders(maker_asset_data, taker_asset_data);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_maker ON orders(maker_address);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
