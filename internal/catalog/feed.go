package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"oahushop/internal/logx"
	"oahushop/internal/models"
)

// significantColumns: name, variant/size, price.
const significantColumns = 3

// Feed is one snapshot of the product sheet. Rows exclude the header row.
type Feed struct {
	Header    []string
	Columns   int
	Rows      [][]string
	Fallback  bool
	Err       error
	FetchedAt time.Time
}

// Len returns the number of data rows.
func (f Feed) Len() int {
	return len(f.Rows)
}

// Cell returns the trimmed value at (row, col) when both exist and the cell is not blank.
func (f Feed) Cell(row, col int) (string, bool) {
	if row < 0 || row >= len(f.Rows) || col < 0 || col >= f.Columns {
		return "", false
	}
	r := f.Rows[row]
	if col >= len(r) {
		return "", false
	}
	v := strings.TrimSpace(r[col])
	if v == "" {
		return "", false
	}
	return v, true
}

// Describe pairs feed row index with the product folder. Missing rows, columns
// or blank cells fall back to the folder-derived labels.
func (f Feed) Describe(index int, folder string) (name, variant, price string, fromFeed bool) {
	name, variant, price = models.FallbackName(folder), models.FallbackVariant, models.FallbackPrice
	if index >= len(f.Rows) {
		return name, variant, price, false
	}
	if v, ok := f.Cell(index, 0); ok {
		name = v
	}
	if v, ok := f.Cell(index, 1); ok {
		variant = v
	}
	if v, ok := f.Cell(index, 2); ok {
		price = v
	}
	return name, variant, price, true
}

// FallbackFeed is the deterministic placeholder dataset used when the sheet
// cannot be fetched: 26 rows named 상품 126 .. 상품 151.
func FallbackFeed(cause error) Feed {
	rows := make([][]string, 0, 26)
	for i := 0; i < 26; i++ {
		n := 126 + i
		rows = append(rows, []string{
			fmt.Sprintf("상품 %d", n),
			fmt.Sprintf("색상/사이즈 정보 %d", n),
			fmt.Sprintf("%d원", 50000+i*1000),
		})
	}
	return Feed{
		Header:    []string{"A", "B", "C"},
		Columns:   significantColumns,
		Rows:      rows,
		Fallback:  true,
		Err:       cause,
		FetchedAt: time.Now(),
	}
}

// ParseFeed reads a CSV export. The first record is the header.
func ParseFeed(r io.Reader) (Feed, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	records, err := cr.ReadAll()
	if err != nil {
		return Feed{}, fmt.Errorf("parse feed csv: %w", err)
	}
	if len(records) == 0 {
		return Feed{}, errors.New("parse feed csv: no header row")
	}
	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	return Feed{
		Header:    header,
		Columns:   len(header),
		Rows:      records[1:],
		FetchedAt: time.Now(),
	}, nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("feed responded %d", e.code)
}

// FetchProducts returns the memoized feed, fetching it on first use. A failed
// fetch yields FallbackFeed with Err set; that result is memoized as well until
// ClearCache. The fetch is detached from ctx cancellation so a caller that goes
// away cannot leave the fallback cached; the client timeout bounds it instead.
func (r *Reader) FetchProducts(ctx context.Context) Feed {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != nil {
		return *r.cached
	}

	feed, err := r.fetch(context.WithoutCancel(ctx))
	if err != nil {
		logx.Warn().Err(err).Str("url", r.feedURL).Msg("feed unavailable, using fallback dataset")
		feed = FallbackFeed(err)
	} else {
		logx.Info().Int("rows", feed.Len()).Msg("feed loaded")
	}
	r.cached = &feed
	return feed
}

// ClearCache drops the memoized feed; the next FetchProducts refetches.
func (r *Reader) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	logx.Info().Msg("feed cache cleared")
}

func (r *Reader) fetch(ctx context.Context) (Feed, error) {
	if r.feedURL == "" {
		return Feed{}, errors.New("feed url not configured")
	}
	var feed Feed
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := r.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return &statusError{code: resp.StatusCode}
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(&statusError{code: resp.StatusCode})
		}
		parsed, err := ParseFeed(resp.Body)
		if err != nil {
			return backoff.Permanent(err)
		}
		feed = parsed
		return nil
	}
	b := backoff.WithContext(backoff.WithMaxRetries(r.newBackOff(), uint64(r.retries)), ctx)
	if err := backoff.Retry(op, b); err != nil {
		return Feed{}, err
	}
	return feed, nil
}
