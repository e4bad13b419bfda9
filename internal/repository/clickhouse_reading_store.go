package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"GridPulse/internal/domain/models"
	domrepo "GridPulse/internal/domain/repository"
	pkgch "GridPulse/pkg/clickhouse"
	applogger "GridPulse/pkg/logger"
)

// SchemaStatements returns idempotent DDL for the reading and payment tables.
func SchemaStatements(database string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.meter_readings (
            customer_id Int64,
            ts DateTime('UTC'),
            kwh Float64,
            voltage Nullable(Float64),
            current Nullable(Float64),
            cost Float64,
            anomaly UInt8,
            note String,
            source String
        ) ENGINE = MergeTree()
        ORDER BY (customer_id, ts)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.payments (
            customer_id Int64,
            ts DateTime('UTC'),
            amount Float64
        ) ENGINE = MergeTree()
        ORDER BY (customer_id, ts)`, database),
	}
}

// ClickHouseReadingStore implements ReadingStore for ClickHouse. A reading
// and its derived output land in one row, so neither is visible without
// the other.
type ClickHouseReadingStore struct {
	db       *sql.DB
	database string
	l        *applogger.Logger
}

// NewClickHouseReadingStore creates ClickHouse-backed storage.
func NewClickHouseReadingStore(ch *pkgch.Client, database string) *ClickHouseReadingStore {
	return &ClickHouseReadingStore{db: ch.DB(), database: database}
}

// SetLogger injects a structured logger.
func (s *ClickHouseReadingStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHouseReadingStore) Init(ctx context.Context) error {
	for _, stmt := range SchemaStatements(s.database) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return domrepo.NewStoreError("init", err)
		}
	}
	return nil
}

func (s *ClickHouseReadingStore) readingsTable() string { return s.database + ".meter_readings" }
func (s *ClickHouseReadingStore) paymentsTable() string { return s.database + ".payments" }

func (s *ClickHouseReadingStore) Record(ctx context.Context, reading *models.Reading, derived *models.DerivedOutput, source string) error {
	q := fmt.Sprintf("INSERT INTO %s (customer_id, ts, kwh, voltage, current, cost, anomaly, note, source) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", s.readingsTable())
	anomaly := uint8(0)
	if derived.Anomaly {
		anomaly = 1
	}
	_, err := s.db.ExecContext(ctx, q,
		reading.CustomerID,
		reading.Timestamp.UTC(),
		reading.Kwh,
		reading.Voltage,
		reading.Current,
		derived.Cost,
		anomaly,
		derived.AnomalyNote,
		source,
	)
	if err != nil {
		return domrepo.NewStoreError("record", err)
	}
	return nil
}

func (s *ClickHouseReadingStore) RecordBatch(ctx context.Context, recs []*models.MeterRecord, source string) error {
	if len(recs) == 0 {
		return nil
	}
	// Multi-row VALUES to reduce round-trips. Chunk size tuned to 2000 rows.
	const chunkSize = 2000
	for start := 0; start < len(recs); start += chunkSize {
		end := start + chunkSize
		if end > len(recs) {
			end = len(recs)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, rec := range recs[start:end] {
			if rec == nil || rec.Reading.CustomerID == 0 || rec.Reading.Timestamp.IsZero() {
				continue
			}
			anomaly := uint8(0)
			if rec.Derived.Anomaly {
				anomaly = 1
			}
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				rec.Reading.CustomerID,
				rec.Reading.Timestamp.UTC(),
				rec.Reading.Kwh,
				rec.Reading.Voltage,
				rec.Reading.Current,
				rec.Derived.Cost,
				anomaly,
				rec.Derived.AnomalyNote,
				source,
			)
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (customer_id, ts, kwh, voltage, current, cost, anomaly, note, source) VALUES %s", s.readingsTable(), strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return domrepo.NewStoreError("record_batch", err)
		}
	}
	return nil
}

func (s *ClickHouseReadingStore) Latest(ctx context.Context, customerID int64) (*models.MeterRecord, error) {
	q := fmt.Sprintf("SELECT customer_id, ts, kwh, voltage, current, cost, anomaly, note, source FROM %s WHERE customer_id = ? ORDER BY ts DESC LIMIT 1", s.readingsTable())
	row := s.db.QueryRowContext(ctx, q, customerID)

	rec, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, domrepo.NewStoreError("latest", err)
	}
	return rec, nil
}

func (s *ClickHouseReadingStore) Scan(ctx context.Context, customerID int64, from, to time.Time) (domrepo.ReadingIterator, error) {
	start := time.Now()
	if to.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	q := fmt.Sprintf("SELECT customer_id, ts, kwh, voltage, current, cost, anomaly, note, source FROM %s WHERE customer_id = ? AND ts >= ? AND ts < ? ORDER BY ts ASC", s.readingsTable())
	rows, err := s.db.QueryContext(ctx, q, customerID, from.UTC(), to.UTC())
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse scan query error",
				applogger.Int64("customer_id", customerID),
				applogger.Error(err),
			)
		}
		return nil, domrepo.NewStoreError("scan", err)
	}
	if s.l != nil {
		s.l.Debug("clickhouse scan started",
			applogger.Int64("customer_id", customerID),
			applogger.Duration("query_ms", time.Since(start)),
		)
	}
	return &chIterator{rows: rows}, nil
}

func (s *ClickHouseReadingStore) RecordPayment(ctx context.Context, p *models.Payment) error {
	q := fmt.Sprintf("INSERT INTO %s (customer_id, ts, amount) VALUES (?, ?, ?)", s.paymentsTable())
	if _, err := s.db.ExecContext(ctx, q, p.CustomerID, p.Timestamp.UTC(), p.Amount); err != nil {
		return domrepo.NewStoreError("record_payment", err)
	}
	return nil
}

func (s *ClickHouseReadingStore) PaymentsSince(ctx context.Context, customerID int64, since time.Time) ([]*models.Payment, error) {
	q := fmt.Sprintf("SELECT customer_id, ts, amount FROM %s WHERE customer_id = ? AND ts >= ? ORDER BY ts ASC", s.paymentsTable())
	rows, err := s.db.QueryContext(ctx, q, customerID, since.UTC())
	if err != nil {
		return nil, domrepo.NewStoreError("payments", err)
	}
	defer rows.Close()

	var out []*models.Payment
	for rows.Next() {
		var p models.Payment
		var ts time.Time
		if err := rows.Scan(&p.CustomerID, &ts, &p.Amount); err != nil {
			return nil, domrepo.NewStoreError("payments", err)
		}
		p.Timestamp = ts.UTC()
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, domrepo.NewStoreError("payments", err)
	}
	return out, nil
}

func (s *ClickHouseReadingStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseReadingStore) Close() error {
	return nil // Managed by pkg
}

func scanRecord(scan func(dest ...interface{}) error) (*models.MeterRecord, error) {
	var rec models.MeterRecord
	var ts time.Time
	var anomaly uint8
	var voltage, current sql.NullFloat64
	if err := scan(&rec.Reading.CustomerID, &ts, &rec.Reading.Kwh, &voltage, &current, &rec.Derived.Cost, &anomaly, &rec.Derived.AnomalyNote, &rec.Source); err != nil {
		return nil, err
	}
	rec.Reading.Timestamp = ts.UTC()
	if voltage.Valid {
		rec.Reading.Voltage = &voltage.Float64
	}
	if current.Valid {
		rec.Reading.Current = &current.Float64
	}
	rec.Derived.Anomaly = anomaly != 0
	return &rec, nil
}

// chIterator streams rows from an open scan in ascending order.
type chIterator struct {
	rows *sql.Rows
	cur  *models.MeterRecord
	err  error
}

func (it *chIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			it.err = domrepo.NewStoreError("scan", err)
		}
		return false
	}
	rec, err := scanRecord(it.rows.Scan)
	if err != nil {
		it.err = domrepo.NewStoreError("scan", err)
		return false
	}
	it.cur = rec
	return true
}

func (it *chIterator) Record() *models.MeterRecord { return it.cur }

func (it *chIterator) Err() error { return it.err }

func (it *chIterator) Close() error { return it.rows.Close() }
