package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/newthinker/dipcast/internal/collector"
	"github.com/newthinker/dipcast/internal/core"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	userAgent      = "Mozilla/5.0 (compatible; dipcast)"
)

// validSymbol matches symbols like XLG, SPY, BRK-B, 0700.HK, ^GSPC
var validSymbol = regexp.MustCompile(`^\^?[A-Za-z0-9-]{1,10}(\.[A-Za-z]{1,4})?$`)

// validateSymbol checks if a symbol has valid format
func validateSymbol(symbol string) error {
	if symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if len(symbol) > 20 {
		return fmt.Errorf("symbol too long: %s", symbol)
	}
	if !validSymbol.MatchString(symbol) {
		return fmt.Errorf("invalid symbol format: %s", symbol)
	}
	return nil
}

// Yahoo implements the Yahoo Finance chart collector
type Yahoo struct {
	client  *http.Client
	baseURL string
	now     func() time.Time
}

// New creates a new Yahoo collector
func New() *Yahoo {
	return &Yahoo{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: defaultBaseURL,
		now:     time.Now,
	}
}

func (y *Yahoo) Name() string {
	return "yahoo"
}

func (y *Yahoo) Init(cfg collector.Config) error {
	if cfg.Timeout > 0 {
		y.client.Timeout = cfg.Timeout
	}
	if cfg.BaseURL != "" {
		y.baseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	return nil
}

// toYahooSymbol converts internal symbol format to Yahoo format
func (y *Yahoo) toYahooSymbol(symbol string) string {
	// Shanghai stocks: 600519.SH -> 600519.SS
	if strings.HasSuffix(symbol, ".SH") {
		return strings.TrimSuffix(symbol, ".SH") + ".SS"
	}
	return symbol
}

// FetchDailyBars fetches daily candles for symbol over lookback
func (y *Yahoo) FetchDailyBars(ctx context.Context, symbol string, lookback core.Lookback) (core.BarSeries, error) {
	if err := validateSymbol(symbol); err != nil {
		return core.BarSeries{}, core.WrapError(core.ErrSymbolNotFound, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.chartURL(symbol, lookback), nil)
	if err != nil {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := y.client.Do(req)
	if err != nil {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("fetching history: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.BarSeries{}, core.WrapError(core.ErrSymbolNotFound, fmt.Errorf("%s", symbol))
	}
	if resp.StatusCode != http.StatusOK {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("unexpected status: %d", resp.StatusCode))
	}

	var result chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed, fmt.Errorf("decoding response: %w", err))
	}

	if result.Chart.Error != nil {
		return core.BarSeries{}, core.WrapError(core.ErrCollectorFailed,
			fmt.Errorf("yahoo error: %s", result.Chart.Error.Description))
	}

	if len(result.Chart.Result) == 0 || len(result.Chart.Result[0].Indicators.Quote) == 0 {
		return core.BarSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no data for symbol: %s", symbol))
	}

	candles := toCandles(symbol, result.Chart.Result[0])
	if len(candles) == 0 {
		return core.BarSeries{}, core.WrapError(core.ErrNoData, fmt.Errorf("no complete bars for symbol: %s", symbol))
	}
	return core.NewBarSeries(symbol, candles)
}

func (y *Yahoo) chartURL(symbol string, lookback core.Lookback) string {
	q := url.Values{}
	q.Set("interval", "1d")
	q.Set("includePrePost", "false")
	q.Set("events", "div,splits")
	if lookback.IsZero() {
		q.Set("range", "max")
	} else {
		end := y.now()
		q.Set("period1", fmt.Sprintf("%d", lookback.Start(end).Unix()))
		q.Set("period2", fmt.Sprintf("%d", end.Unix()))
	}
	return fmt.Sprintf("%s/%s?%s", y.baseURL, url.PathEscape(y.toYahooSymbol(symbol)), q.Encode())
}

// toCandles keeps rows with all four prices present and collapses repeated
// calendar dates to the last row seen. Timestamps are shifted by the
// exchange offset so each candle lands on its trading date.
func toCandles(symbol string, r chartResult) []core.OHLCV {
	quotes := r.Indicators.Quote[0]
	offset := time.Duration(r.Meta.GMTOffset) * time.Second

	data := make([]core.OHLCV, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		open, high, low, closePrice := at(quotes.Open, i), at(quotes.High, i), at(quotes.Low, i), at(quotes.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue // Skip missing data
		}
		var volume int64
		if v := atInt(quotes.Volume, i); v != nil {
			volume = int64(*v)
		}

		c := core.OHLCV{
			Symbol:   symbol,
			Interval: "1d",
			Open:     *open,
			High:     *high,
			Low:      *low,
			Close:    *closePrice,
			Volume:   volume,
			Time:     core.DateOf(time.Unix(int64(ts), 0).UTC().Add(offset)),
		}
		if n := len(data); n > 0 && data[n-1].Time.Equal(c.Time) {
			data[n-1] = c
			continue
		}
		data = append(data, c)
	}
	return data
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func atInt(values []*int64, i int) *int64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

// Yahoo API response types
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta       chartMeta  `json:"meta"`
	Timestamp  []int64    `json:"timestamp"`
	Indicators indicators `json:"indicators"`
}

type chartMeta struct {
	Symbol       string `json:"symbol"`
	Currency     string `json:"currency"`
	ExchangeName string `json:"exchangeName"`
	GMTOffset    int    `json:"gmtoffset"`
}

type indicators struct {
	Quote []quoteIndicator `json:"quote"`
}

type quoteIndicator struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}
