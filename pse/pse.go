package pse

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/shopspring/decimal"
)

const (
	DefaultURL = "https://api.raporty.pse.pl/api/rce-pln"
	selectCols = "dtime,period,rce_pln,business_date,publication_ts"
	maxRecords = 200
	slotLength = 15 * time.Minute
)

var ErrInvalidResponse = errors.New("invalid pse response")

var publicationLayouts = []string{
	"2006-01-02 15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

type Client struct {
	logger *slog.Logger
	url    string
	hourly bool
	client *http.Client
	now    func() time.Time
}

// New returns a client for the RCE price endpoint. With hourly set the four
// quarters of every hour are averaged into a single record.
func New(endpoint string, hourly bool) *Client {
	if endpoint == "" {
		endpoint = DefaultURL
	}
	return &Client{
		logger: slog.Default().With("module", "pse"),
		url:    endpoint,
		hourly: hourly,
		client: &http.Client{},
		now:    time.Now,
	}
}

func (c *Client) GetPriceRecords(ctx context.Context) ([]types.PriceRecord, error) {
	today := hours.Today(c.now())

	q := url.Values{}
	q.Set("$select", selectCols)
	q.Set("$filter", fmt.Sprintf("business_date ge '%s'", today))
	q.Set("$first", fmt.Sprintf("%d", maxRecords))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var data response
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if data.Value == nil {
		return nil, fmt.Errorf("%w: missing value field", ErrInvalidResponse)
	}
	if len(*data.Value) == 0 {
		c.logger.Warn("pse returned no price records", slog.String("from", today))
	}

	records := make([]types.PriceRecord, 0, len(*data.Value))
	for _, raw := range *data.Value {
		r, err := toRecord(raw)
		if err != nil {
			c.logger.Warn("skipping malformed price record", slog.String("dtime", raw.DTime), slog.Any("error", err))
			continue
		}
		records = append(records, r)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PeriodStart.Before(records[j].PeriodStart)
	})

	if c.hourly {
		records = HourlyAverages(records)
	}

	c.logger.Debug("fetched price records", slog.Int("count", len(records)), slog.Bool("hourly", c.hourly))
	return records, nil
}

func toRecord(raw rawRecord) (types.PriceRecord, error) {
	end, err := hours.ParseDTime(raw.DTime)
	if err != nil {
		return types.PriceRecord{}, err
	}
	if raw.BusinessDate == "" {
		return types.PriceRecord{}, fmt.Errorf("missing business_date")
	}

	price, err := parsePrice(raw.RcePln)
	if err != nil {
		return types.PriceRecord{}, err
	}

	r, err := types.NewPriceRecord(end.Add(-slotLength), end, raw.BusinessDate, price.InexactFloat64())
	if err != nil {
		return types.PriceRecord{}, err
	}
	r.PublishedAt = parsePublication(raw.PublicationTS)
	return r, nil
}

// parsePrice accepts both "350.12" and 350.12.
func parsePrice(raw json.RawMessage) (decimal.Decimal, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) || bytes.Equal(trimmed, []byte(`""`)) {
		return decimal.Decimal{}, fmt.Errorf("missing rce_pln")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(trimmed); err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse rce_pln %s: %w", trimmed, err)
	}
	return d, nil
}

func parsePublication(s string) time.Time {
	for _, layout := range publicationLayouts {
		if t, err := time.ParseInLocation(layout, s, hours.Warsaw()); err == nil {
			return t
		}
	}
	return time.Time{}
}
