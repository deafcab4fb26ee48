package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"SectorSentinel/internal/model"
)

const yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource reads weekly history from the Yahoo Finance chart API.
type YahooSource struct {
	HTTP      *HTTPClient
	BaseURL   string
	MinPoints int
	Now       func() time.Time
}

func NewYahooSource(client *HTTPClient, minPoints int) *YahooSource {
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}
	return &YahooSource{HTTP: client, BaseURL: yahooBaseURL, MinPoints: minPoints, Now: time.Now}
}

func (y *YahooSource) Name() string { return "yahoo" }

// yahooChart is the subset of the chart response that is used. Nullable
// arrays decode to nil pointers.
type yahooChart struct {
	Chart *struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *YahooSource) endpoint(ticker string, lookbackYears int) string {
	end := y.Now().Unix()
	start := end - int64(float64(lookbackYears)*365.25*24*60*60)
	return fmt.Sprintf("%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1wk&includeAdjustedClose=true",
		y.BaseURL, url.PathEscape(ticker), start, end)
}

func (y *YahooSource) Fetch(ctx context.Context, route Route, ticker string, lookbackYears int) ([]model.PricePoint, error) {
	body, err := y.HTTP.get(ctx, y.Name(), route.URL(y.endpoint(ticker, lookbackYears)), "application/json")
	if err != nil {
		return nil, err
	}
	points, err := parseYahoo(body)
	if err != nil {
		return nil, err
	}
	if err := checkLength(y.Name(), ticker, points, y.MinPoints); err != nil {
		return nil, err
	}
	return points, nil
}

func parseYahoo(body []byte) ([]model.PricePoint, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil, &FormatError{Source: "yahoo", Reason: "non-JSON body (rate limit or proxy page)"}
	}

	var chart yahooChart
	if err := json.Unmarshal(trimmed, &chart); err != nil {
		return nil, &FormatError{Source: "yahoo", Reason: "decode: " + err.Error()}
	}
	if chart.Chart == nil {
		return nil, &FormatError{Source: "yahoo", Reason: "missing chart"}
	}
	if e := chart.Chart.Error; e != nil {
		reason := e.Description
		if reason == "" {
			reason = e.Code
		}
		return nil, &FormatError{Source: "yahoo", Reason: "api error: " + reason}
	}
	if len(chart.Chart.Result) == 0 {
		return nil, &FormatError{Source: "yahoo", Reason: "missing chart.result[0]"}
	}

	result := chart.Chart.Result[0]
	var closes []*float64
	if adj := result.Indicators.AdjClose; len(adj) > 0 && len(adj[0].AdjClose) > 0 {
		closes = adj[0].AdjClose
	} else if q := result.Indicators.Quote; len(q) > 0 {
		closes = q[0].Close
	}

	points := make([]model.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		points = append(points, model.PricePoint{Date: model.Day(time.Unix(ts, 0)), Close: *closes[i]})
	}
	return normalize(points), nil
}
