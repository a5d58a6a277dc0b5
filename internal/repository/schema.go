package repository

import "fmt"

// Schema returns the idempotent DDL for every table the service reads or writes.
func Schema(db string) []string {
	stmts := []string{
		"CREATE DATABASE IF NOT EXISTS %[1]s",
		`CREATE TABLE IF NOT EXISTS %[1]s.price_points (
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			close Decimal(38, 12),
			volume Decimal(38, 12)
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.liquidity_samples (
			symbol LowCardinality(String),
			ts DateTime64(3, 'UTC'),
			volume_24h Decimal(38, 12),
			spread Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, ts)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.trades (
			user_id String,
			symbol LowCardinality(String),
			amount Decimal(38, 12),
			pnl_percent Decimal(38, 12),
			sector LowCardinality(String),
			trade_date DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY (user_id, trade_date)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.text_items (
			id String,
			symbol LowCardinality(String),
			source LowCardinality(String),
			text String,
			engagement Float64,
			reliability Float64,
			published_at DateTime64(3, 'UTC')
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, published_at, id)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.risk_profiles (
			id String,
			cycle_id String,
			symbol LowCardinality(String),
			volatility Float64,
			volatility_status LowCardinality(String),
			avg_volume Float64,
			avg_spread Float64,
			liquidity_level LowCardinality(String),
			max_drawdown Float64,
			sharpe Float64,
			sortino Float64,
			risk_score Float64,
			risk_band LowCardinality(String),
			status LowCardinality(String),
			computed_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY (symbol, computed_at)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.portfolio_risk (
			id String,
			cycle_id String,
			user_id String,
			portfolio_value Decimal(38, 12),
			var_95 Decimal(38, 12),
			es_95 Decimal(38, 12),
			var_99 Decimal(38, 12),
			var_days UInt32,
			var_status LowCardinality(String),
			hhi Float64,
			top_asset_weight Float64,
			diversification Float64,
			concentration_level LowCardinality(String),
			status LowCardinality(String),
			computed_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY (user_id, computed_at)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.market_risk (
			cycle_id String,
			volatility_index Float64,
			assets UInt32,
			computed_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY computed_at`,
		`CREATE TABLE IF NOT EXISTS %[1]s.sentiment_snapshots (
			cycle_id String,
			symbol LowCardinality(String),
			items UInt32,
			matched UInt32,
			mean_score Float64,
			fear_greed LowCardinality(String),
			distribution Map(String, Float64),
			trend LowCardinality(String),
			lexicon_version String,
			status LowCardinality(String),
			window_from DateTime64(3, 'UTC'),
			window_to DateTime64(3, 'UTC'),
			computed_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY (symbol, computed_at)`,
		`CREATE TABLE IF NOT EXISTS %[1]s.alerts (
			id String,
			cycle_id String,
			alert_type LowCardinality(String),
			subject_id String,
			level LowCardinality(String),
			message String,
			metric_value Decimal(38, 12),
			created_at DateTime64(3, 'UTC')
		) ENGINE = MergeTree ORDER BY (created_at, alert_type)`,
	}
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = fmt.Sprintf(s, db)
	}
	return out
}
