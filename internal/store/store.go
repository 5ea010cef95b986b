// Package store is the single persistence boundary of the pipeline. Every
// table is keyed by a date; writes are delete-then-insert by key inside one
// transaction, so repeating a write with the same rows is a no-op.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"crackwatch/internal/models"
)

// Store wraps the SQLite handle. Construct with Open, then Migrate once.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path with WAL mode
// enabled. The pipeline assumes a single writer process.
func Open(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate runs the schema creation SQL. Safe to call multiple times due to
// IF NOT EXISTS.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	if _, err := s.db.Exec(`INSERT OR IGNORE INTO schema_version (version) VALUES (1)`); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// replaceByKey deletes each incoming key then inserts its row, all in one
// transaction. exec receives the insert statement and the row index.
func (s *Store) replaceByKey(table, keyCol, insertSQL string, keys []string, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	del, err := tx.Prepare(fmt.Sprintf("DELETE FROM %s WHERE %s = ?", table, keyCol))
	if err != nil {
		return fmt.Errorf("preparing delete: %w", err)
	}
	defer del.Close()

	for _, k := range keys {
		if _, err := del.Exec(k); err != nil {
			return fmt.Errorf("deleting %s key %s: %w", table, k, err)
		}
	}

	ins, err := tx.Prepare(insertSQL)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer ins.Close()

	for i := range keys {
		if err := exec(ins, i); err != nil {
			return fmt.Errorf("inserting into %s: %w", table, err)
		}
	}

	return tx.Commit()
}

func key(t time.Time) string {
	return t.Format(models.DateFormat)
}

func parseKey(s string) (time.Time, error) {
	return time.ParseInLocation(models.DateFormat, s, time.UTC)
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanNullFloat(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// UpsertRaw replaces raw market rows by trading date.
func (s *Store) UpsertRaw(rows []models.RawObservation) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = key(r.Date)
	}
	return s.replaceByKey("raw_market_data", "date", `
		INSERT INTO raw_market_data
			(date, crude_oil, gasoline, heating_oil, natural_gas, valero, phillips66)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			r := rows[i]
			_, err := ins.Exec(keys[i], r.CrudeOil, r.Gasoline, r.HeatingOil,
				r.NaturalGas, r.Valero, r.Phillips66)
			return err
		})
}

// ReadRaw returns all raw rows ordered by date ascending.
func (s *Store) ReadRaw() ([]models.RawObservation, error) {
	rows, err := s.db.Query(`
		SELECT date, crude_oil, gasoline, heating_oil, natural_gas, valero, phillips66
		FROM raw_market_data ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("querying raw_market_data: %w", err)
	}
	defer rows.Close()

	var out []models.RawObservation
	for rows.Next() {
		var r models.RawObservation
		var d string
		if err := rows.Scan(&d, &r.CrudeOil, &r.Gasoline, &r.HeatingOil,
			&r.NaturalGas, &r.Valero, &r.Phillips66); err != nil {
			return nil, fmt.Errorf("scanning raw row: %w", err)
		}
		if r.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing raw date %q: %w", d, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertMargins replaces derived margin rows by trading date.
func (s *Store) UpsertMargins(rows []models.MarginObservation) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = key(r.Date)
	}
	return s.replaceByKey("processed_margin_data", "date", `
		INSERT INTO processed_margin_data
			(date, crude_oil, gasoline, heating_oil, natural_gas, valero, phillips66,
			 gasoline_bbl, heating_oil_bbl, crack_spread, variable_opex, total_opex,
			 net_margin, spread_30d_ma, net_margin_30d_ma)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			r := rows[i]
			_, err := ins.Exec(keys[i], r.CrudeOil, r.Gasoline, r.HeatingOil,
				r.NaturalGas, r.Valero, r.Phillips66,
				r.GasolineBbl, r.HeatingOilBbl, r.CrackSpread, r.VariableOpex,
				r.TotalOpex, r.NetMargin,
				nullFloat(r.SpreadMA30), nullFloat(r.NetMarginMA30))
			return err
		})
}

// ReadMargins returns all derived margin rows ordered by date ascending.
func (s *Store) ReadMargins() ([]models.MarginObservation, error) {
	rows, err := s.db.Query(`
		SELECT date, crude_oil, gasoline, heating_oil, natural_gas, valero, phillips66,
		       gasoline_bbl, heating_oil_bbl, crack_spread, variable_opex, total_opex,
		       net_margin, spread_30d_ma, net_margin_30d_ma
		FROM processed_margin_data ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("querying processed_margin_data: %w", err)
	}
	defer rows.Close()

	var out []models.MarginObservation
	for rows.Next() {
		var r models.MarginObservation
		var d string
		var spreadMA, netMA sql.NullFloat64
		if err := rows.Scan(&d, &r.CrudeOil, &r.Gasoline, &r.HeatingOil,
			&r.NaturalGas, &r.Valero, &r.Phillips66,
			&r.GasolineBbl, &r.HeatingOilBbl, &r.CrackSpread, &r.VariableOpex,
			&r.TotalOpex, &r.NetMargin, &spreadMA, &netMA); err != nil {
			return nil, fmt.Errorf("scanning margin row: %w", err)
		}
		if r.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing margin date %q: %w", d, err)
		}
		r.SpreadMA30 = scanNullFloat(spreadMA)
		r.NetMarginMA30 = scanNullFloat(netMA)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertReports replaces commentary documents by report date.
func (s *Store) UpsertReports(rows []models.Report) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = key(r.Date)
	}
	return s.replaceByKey("commentary_reports", "report_date", `
		INSERT INTO commentary_reports (report_date, url, raw_text, word_count)
		VALUES (?, ?, ?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			r := rows[i]
			_, err := ins.Exec(keys[i], r.URL, r.RawText, r.WordCount)
			return err
		})
}

// ReadReports returns all commentary documents ordered by report date.
func (s *Store) ReadReports() ([]models.Report, error) {
	rows, err := s.db.Query(`
		SELECT report_date, url, raw_text, word_count
		FROM commentary_reports ORDER BY report_date`)
	if err != nil {
		return nil, fmt.Errorf("querying commentary_reports: %w", err)
	}
	defer rows.Close()

	var out []models.Report
	for rows.Next() {
		var r models.Report
		var d string
		if err := rows.Scan(&d, &r.URL, &r.RawText, &r.WordCount); err != nil {
			return nil, fmt.Errorf("scanning report row: %w", err)
		}
		if r.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing report date %q: %w", d, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReportDates returns the set of report dates already stored.
func (s *Store) ReportDates() (map[time.Time]bool, error) {
	return s.dateSet("SELECT report_date FROM commentary_reports")
}

// SentimentDates returns the set of report dates already scored.
func (s *Store) SentimentDates() (map[time.Time]bool, error) {
	return s.dateSet("SELECT report_date FROM commentary_sentiment")
}

func (s *Store) dateSet(query string) (map[time.Time]bool, error) {
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("querying date set: %w", err)
	}
	defer rows.Close()

	set := make(map[time.Time]bool)
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scanning date: %w", err)
		}
		t, err := parseKey(d)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", d, err)
		}
		set[t] = true
	}
	return set, rows.Err()
}

// UpsertSentiment replaces sentiment scores by report date.
func (s *Store) UpsertSentiment(rows []models.SentimentScore) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = key(r.Date)
	}
	return s.replaceByKey("commentary_sentiment", "report_date", `
		INSERT INTO commentary_sentiment
			(report_date, compound, positive, negative, neutral,
			 net_keyword_score, dominant_topic, topic_prob)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			r := rows[i]
			_, err := ins.Exec(keys[i], r.Compound, r.Positive, r.Negative,
				r.Neutral, r.NetKeywordScore, r.DominantTopic, r.TopicProb)
			return err
		})
}

// ReadSentiment returns all sentiment scores ordered by report date.
func (s *Store) ReadSentiment() ([]models.SentimentScore, error) {
	rows, err := s.db.Query(`
		SELECT report_date, compound, positive, negative, neutral,
		       net_keyword_score, dominant_topic, topic_prob
		FROM commentary_sentiment ORDER BY report_date`)
	if err != nil {
		return nil, fmt.Errorf("querying commentary_sentiment: %w", err)
	}
	defer rows.Close()

	var out []models.SentimentScore
	for rows.Next() {
		var r models.SentimentScore
		var d string
		if err := rows.Scan(&d, &r.Compound, &r.Positive, &r.Negative,
			&r.Neutral, &r.NetKeywordScore, &r.DominantTopic, &r.TopicProb); err != nil {
			return nil, fmt.Errorf("scanning sentiment row: %w", err)
		}
		if r.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing sentiment date %q: %w", d, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertMerged replaces aligned sentiment/margin rows by report date.
func (s *Store) UpsertMerged(rows []models.MergedRow) error {
	if len(rows) == 0 {
		return nil
	}
	keys := make([]string, len(rows))
	for i, r := range rows {
		keys[i] = key(r.Date)
	}
	return s.replaceByKey("sentiment_margin_merged", "report_date", `
		INSERT INTO sentiment_margin_merged
			(report_date, compound, positive, negative, neutral, net_keyword_score,
			 dominant_topic, topic_prob, trade_date, crack_spread, spread_30d_ma, net_margin)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			r := rows[i]
			_, err := ins.Exec(keys[i], r.Compound, r.Positive, r.Negative,
				r.Neutral, r.NetKeywordScore, r.DominantTopic, r.TopicProb,
				key(r.TradeDate), r.CrackSpread, nullFloat(r.SpreadMA30), r.NetMargin)
			return err
		})
}

// ReadMerged returns all aligned rows ordered by report date.
func (s *Store) ReadMerged() ([]models.MergedRow, error) {
	rows, err := s.db.Query(`
		SELECT report_date, compound, positive, negative, neutral, net_keyword_score,
		       dominant_topic, topic_prob, trade_date, crack_spread, spread_30d_ma, net_margin
		FROM sentiment_margin_merged ORDER BY report_date`)
	if err != nil {
		return nil, fmt.Errorf("querying sentiment_margin_merged: %w", err)
	}
	defer rows.Close()

	var out []models.MergedRow
	for rows.Next() {
		var r models.MergedRow
		var d, td string
		var spreadMA sql.NullFloat64
		if err := rows.Scan(&d, &r.Compound, &r.Positive, &r.Negative, &r.Neutral,
			&r.NetKeywordScore, &r.DominantTopic, &r.TopicProb,
			&td, &r.CrackSpread, &spreadMA, &r.NetMargin); err != nil {
			return nil, fmt.Errorf("scanning merged row: %w", err)
		}
		if r.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing merged date %q: %w", d, err)
		}
		if r.TradeDate, err = parseKey(td); err != nil {
			return nil, fmt.Errorf("parsing trade date %q: %w", td, err)
		}
		r.SpreadMA30 = scanNullFloat(spreadMA)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertRollingCorr replaces rolling-correlation points by date.
func (s *Store) UpsertRollingCorr(points []models.CorrPoint) error {
	if len(points) == 0 {
		return nil
	}
	keys := make([]string, len(points))
	for i, p := range points {
		keys[i] = key(p.Date)
	}
	return s.replaceByKey("sentiment_margin_rolling_corr", "date", `
		INSERT INTO sentiment_margin_rolling_corr (date, rolling_corr)
		VALUES (?, ?)`,
		keys, func(ins *sql.Stmt, i int) error {
			_, err := ins.Exec(keys[i], points[i].Corr)
			return err
		})
}

// ReadRollingCorr returns all rolling-correlation points ordered by date.
func (s *Store) ReadRollingCorr() ([]models.CorrPoint, error) {
	rows, err := s.db.Query(`
		SELECT date, rolling_corr FROM sentiment_margin_rolling_corr ORDER BY date`)
	if err != nil {
		return nil, fmt.Errorf("querying sentiment_margin_rolling_corr: %w", err)
	}
	defer rows.Close()

	var out []models.CorrPoint
	for rows.Next() {
		var p models.CorrPoint
		var d string
		if err := rows.Scan(&d, &p.Corr); err != nil {
			return nil, fmt.Errorf("scanning corr row: %w", err)
		}
		if p.Date, err = parseKey(d); err != nil {
			return nil, fmt.Errorf("parsing corr date %q: %w", d, err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
