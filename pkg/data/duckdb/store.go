package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/peter-kozarec/rebalancer/pkg/common"
	"github.com/peter-kozarec/rebalancer/pkg/market"
	"github.com/peter-kozarec/rebalancer/pkg/utility/fixed"
)

const (
	extension      = ".parquet"
	defaultWorkers = 4
)

var (
	ErrInvalidTicker = errors.New("invalid ticker")
	ErrValidation    = errors.New("cached data failed validation")
	ErrNotCached     = errors.New("ticker not cached")
)

type Option func(*Store)

// WithWorkers bounds the number of tickers read concurrently.
func WithWorkers(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithUpstream makes Get fill cache gaps from p and persist them.
func WithUpstream(p market.Provider) Option {
	return func(s *Store) {
		s.upstream = p
	}
}

// Store is a price cache holding one Parquet file per ticker, queried
// through an in-process DuckDB.
type Store struct {
	logger   *zap.Logger
	dir      string
	db       *sql.DB
	workers  int
	upstream market.Provider

	mu sync.Mutex
}

// Info describes one cached ticker.
type Info struct {
	Ticker string
	Rows   int
	First  time.Time
	Last   time.Time
	Size   int64
}

func NewStore(logger *zap.Logger, dir string, options ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("os.MkdirAll: %w", err)
	}

	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}

	s := &Store{
		logger:  logger,
		dir:     dir,
		db:      db,
		workers: defaultWorkers,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dir() string {
	return s.dir
}

// Get reads the cached rows of every ticker within [from, to]. A ticker
// that is missing or fails validation is dropped with a warning.
func (s *Store) Get(ctx context.Context, tickers []string, from, to time.Time) (*market.Panel, error) {
	from, to = common.Day(from), common.Day(to)

	results := make([][]common.Bar, len(tickers))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for idx, ticker := range tickers {
		g.Go(func() error {
			bars, err := s.get(ctx, ticker, from, to)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				s.logger.Warn("ticker dropped",
					zap.String("ticker", ticker),
					zap.Error(err))
				return nil
			}
			results[idx] = bars
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var bars []common.Bar
	for _, r := range results {
		bars = append(bars, r...)
	}
	if len(bars) == 0 {
		return nil, market.ErrNoData
	}
	return market.NewPanel(bars), nil
}

func (s *Store) get(ctx context.Context, ticker string, from, to time.Time) ([]common.Bar, error) {
	bars, err := s.load(ctx, ticker)
	if err != nil && !errors.Is(err, ErrNotCached) {
		return nil, err
	}

	if s.upstream != nil {
		filled, fillErr := s.fill(ctx, ticker, bars, from, to)
		if fillErr != nil {
			return nil, fillErr
		}
		if filled {
			if bars, err = s.load(ctx, ticker); err != nil {
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, err
	}

	lo := sort.Search(len(bars), func(i int) bool { return !bars[i].Date.Before(from) })
	hi := sort.Search(len(bars), func(i int) bool { return bars[i].Date.After(to) })
	return bars[lo:hi], nil
}

// fill downloads the ranges before and after the cached rows and merges
// them into the cache.
func (s *Store) fill(ctx context.Context, ticker string, cached []common.Bar, from, to time.Time) (bool, error) {
	type gap struct{ from, to time.Time }

	var gaps []gap
	if len(cached) == 0 {
		gaps = append(gaps, gap{from, to})
	} else {
		first, last := cached[0].Date, cached[len(cached)-1].Date
		if from.Before(first) {
			gaps = append(gaps, gap{from, first.AddDate(0, 0, -1)})
		}
		if to.After(last) {
			gaps = append(gaps, gap{last.AddDate(0, 0, 1), to})
		}
	}

	var fresh []common.Bar
	for _, g := range gaps {
		panel, err := s.upstream.Get(ctx, []string{ticker}, g.from, g.to)
		if errors.Is(err, market.ErrNoData) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("upstream %s: %w", ticker, err)
		}
		fresh = append(fresh, panel.Bars()...)
	}

	if len(fresh) == 0 {
		return false, nil
	}
	if err := s.Put(ctx, ticker, fresh); err != nil {
		return false, err
	}
	return true, nil
}

// load reads and validates every cached row of ticker.
func (s *Store) load(ctx context.Context, ticker string) ([]common.Bar, error) {
	path, err := s.path(ticker)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNotCached)
	}

	query := fmt.Sprintf(`SELECT date, open, high, low, close, adj_close, volume FROM read_parquet(%s)`, quote(path))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error preparing query: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var bars []common.Bar
	for rows.Next() {
		bar, err := scanBar(rows, ticker)
		if err != nil {
			return nil, err
		}
		if n := len(bars); n > 0 && !bar.Date.After(bars[n-1].Date) {
			return nil, fmt.Errorf("%s dates not increasing at %s: %w", ticker, bar.Date.Format(time.DateOnly), ErrValidation)
		}
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error scanning rows: %w", err)
	}
	return bars, nil
}

// Put merges bars into the cached file of ticker. On duplicate dates the
// new rows win. The file is replaced atomically.
func (s *Store) Put(ctx context.Context, ticker string, bars []common.Bar) error {
	path, err := s.path(ticker)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("db.Conn: %w", err)
	}
	defer func(conn *sql.Conn) {
		_ = conn.Close()
	}(conn)

	if _, err := conn.ExecContext(ctx, `CREATE OR REPLACE TEMP TABLE incoming (date DATE, open DOUBLE, high DOUBLE, low DOUBLE, close DOUBLE, adj_close DOUBLE, volume DOUBLE)`); err != nil {
		return fmt.Errorf("error creating staging table: %w", err)
	}
	defer func() {
		_, _ = conn.ExecContext(context.Background(), `DROP TABLE IF EXISTS incoming`)
	}()

	stmt, err := conn.PrepareContext(ctx, `INSERT INTO incoming VALUES (CAST(? AS DATE), ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("error preparing insert: %w", err)
	}
	defer func(stmt *sql.Stmt) {
		_ = stmt.Close()
	}(stmt)

	for _, bar := range latestPerDay(bars) {
		if _, err := stmt.ExecContext(ctx,
			bar.Date,
			bar.Open.F64(),
			bar.High.F64(),
			bar.Low.F64(),
			bar.Close.F64(),
			bar.AdjClose.F64(),
			bar.Volume.F64()); err != nil {
			return fmt.Errorf("error inserting row: %w", err)
		}
	}

	source := `SELECT *, 1 AS priority FROM incoming`
	if _, err := os.Stat(path); err == nil {
		source += fmt.Sprintf(` UNION ALL SELECT date, open, high, low, close, adj_close, volume, 0 AS priority FROM read_parquet(%s)`, quote(path))
	}

	tmp := path + ".tmp"
	query := fmt.Sprintf(`COPY (
		SELECT date, open, high, low, close, adj_close, volume FROM (%s)
		QUALIFY row_number() OVER (PARTITION BY date ORDER BY priority DESC) = 1
		ORDER BY date
	) TO %s (FORMAT PARQUET)`, source, quote(tmp))

	if _, err := conn.ExecContext(ctx, query); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("error writing %s: %w", ticker, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("os.Rename: %w", err)
	}

	s.logger.Debug("cache updated",
		zap.String("ticker", ticker),
		zap.Int("rows", len(bars)))
	return nil
}

// Import merges a CSV file with a header row into the cache of ticker.
// Column names are matched case-insensitively, so both "adj_close" and
// "Adj Close" are accepted.
func (s *Store) Import(ctx context.Context, ticker, csvPath string) (int, error) {
	if _, err := s.path(ticker); err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT CAST(date AS DATE), open, high, low, close, adj_close, volume
		FROM read_csv(%s, header = true, normalize_names = true)`, quote(csvPath))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("error reading %s: %w", csvPath, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var bars []common.Bar
	for rows.Next() {
		bar, err := scanBar(rows, ticker)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", csvPath, err)
		}
		bars = append(bars, bar)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error scanning rows: %w", err)
	}

	if len(bars) == 0 {
		return 0, fmt.Errorf("%s: %w", csvPath, market.ErrNoData)
	}
	if err := s.Put(ctx, ticker, bars); err != nil {
		return 0, err
	}
	return len(bars), nil
}

// Tickers lists the cached tickers in ascending order.
func (s *Store) Tickers() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("os.ReadDir: %w", err)
	}

	var tickers []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, extension))
	}
	sort.Strings(tickers)
	return tickers, nil
}

func (s *Store) Info(ctx context.Context) ([]Info, error) {
	tickers, err := s.Tickers()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(tickers))
	for _, ticker := range tickers {
		path := filepath.Join(s.dir, ticker+extension)

		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("os.Stat: %w", err)
		}

		info := Info{Ticker: ticker, Size: stat.Size()}
		var first, last sql.NullTime

		query := fmt.Sprintf(`SELECT count(*), min(date), max(date) FROM read_parquet(%s)`, quote(path))
		if err := s.db.QueryRowContext(ctx, query).Scan(&info.Rows, &first, &last); err != nil {
			return nil, fmt.Errorf("error reading %s: %w", ticker, err)
		}
		info.First = common.Day(first.Time)
		info.Last = common.Day(last.Time)

		infos = append(infos, info)
	}
	return infos, nil
}

// Clear removes the cached file of ticker.
func (s *Store) Clear(ticker string) error {
	path, err := s.path(ticker)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", ticker, ErrNotCached)
		}
		return fmt.Errorf("os.Remove: %w", err)
	}
	s.logger.Info("cache cleared", zap.String("ticker", ticker))
	return nil
}

// ClearAll removes every cached file and reports how many were removed.
func (s *Store) ClearAll() (int, error) {
	tickers, err := s.Tickers()
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for idx, ticker := range tickers {
		if err := os.Remove(filepath.Join(s.dir, ticker+extension)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return idx, fmt.Errorf("os.Remove: %w", err)
		}
	}
	s.logger.Info("cache cleared", zap.Int("tickers", len(tickers)))
	return len(tickers), nil
}

func (s *Store) path(ticker string) (string, error) {
	if ticker == "" || ticker == "." || ticker == ".." || strings.ContainsAny(ticker, `/\'`) {
		return "", fmt.Errorf("%q: %w", ticker, ErrInvalidTicker)
	}
	return filepath.Join(s.dir, ticker+extension), nil
}

// scanBar reads one date, open, high, low, close, adj_close, volume row.
// Missing, negative and non-finite values fail with ErrValidation.
func scanBar(rows *sql.Rows, ticker string) (common.Bar, error) {
	var (
		date   sql.NullTime
		values [6]sql.NullFloat64
	)
	if err := rows.Scan(&date, &values[0], &values[1], &values[2], &values[3], &values[4], &values[5]); err != nil {
		return common.Bar{}, fmt.Errorf("error scanning row: %w", err)
	}
	if !date.Valid {
		return common.Bar{}, fmt.Errorf("%s missing date: %w", ticker, ErrValidation)
	}

	var points [6]fixed.Point
	for idx, v := range values {
		if !v.Valid || v.Float64 < 0 || math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0) {
			return common.Bar{}, fmt.Errorf("%s %s: %w", ticker, date.Time.Format(time.DateOnly), ErrValidation)
		}
		points[idx] = fixed.FromFloat64(v.Float64)
	}

	return common.Bar{
		Symbol:   ticker,
		Date:     common.Day(date.Time),
		Open:     points[0],
		High:     points[1],
		Low:      points[2],
		Close:    points[3],
		AdjClose: points[4],
		Volume:   points[5],
	}, nil
}

// latestPerDay keeps the last bar given for each day, ordered by date.
func latestPerDay(bars []common.Bar) []common.Bar {
	byDay := make(map[time.Time]common.Bar, len(bars))
	for _, bar := range bars {
		bar.Date = common.Day(bar.Date)
		byDay[bar.Date] = bar
	}

	out := make([]common.Bar, 0, len(byDay))
	for _, bar := range byDay {
		out = append(out, bar)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
