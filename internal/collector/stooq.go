package collector

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"SectorSentinel/internal/model"
)

const stooqBaseURL = "https://stooq.com"

// StooqSource reads weekly history from Stooq's CSV download endpoint.
type StooqSource struct {
	HTTP      *HTTPClient
	BaseURL   string
	MinPoints int
	Now       func() time.Time
}

func NewStooqSource(client *HTTPClient, minPoints int) *StooqSource {
	if minPoints <= 0 {
		minPoints = DefaultMinPoints
	}
	return &StooqSource{HTTP: client, BaseURL: stooqBaseURL, MinPoints: minPoints, Now: time.Now}
}

func (s *StooqSource) Name() string { return "stooq" }

// stooqSymbol maps a US ticker to Stooq's lowercase symbol with exchange suffix.
func stooqSymbol(ticker string) string {
	t := strings.ToLower(strings.TrimSpace(ticker))
	if strings.Contains(t, ".") {
		return t
	}
	return t + ".us"
}

func (s *StooqSource) endpoint(ticker string, lookbackYears int) string {
	end := s.Now().UTC()
	start := end.AddDate(-lookbackYears, 0, 0)
	return fmt.Sprintf("%s/q/d/l/?s=%s&i=w&d1=%s&d2=%s",
		s.BaseURL, url.QueryEscape(stooqSymbol(ticker)), start.Format("20060102"), end.Format("20060102"))
}

func (s *StooqSource) Fetch(ctx context.Context, route Route, ticker string, lookbackYears int) ([]model.PricePoint, error) {
	body, err := s.HTTP.get(ctx, s.Name(), route.URL(s.endpoint(ticker, lookbackYears)), "")
	if err != nil {
		return nil, err
	}
	points, err := parseStooq(body)
	if err != nil {
		return nil, err
	}
	if err := checkLength(s.Name(), ticker, points, s.MinPoints); err != nil {
		return nil, err
	}
	return points, nil
}

func parseStooq(body []byte) ([]model.PricePoint, error) {
	csv := string(bytes.TrimSpace(body))
	if !strings.HasPrefix(csv, "Date,") {
		return nil, &FormatError{Source: "stooq", Reason: "missing Date header"}
	}

	lines := strings.Split(csv, "\n")
	header := strings.Split(strings.TrimRight(lines[0], "\r"), ",")
	iDate, iClose := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "Date":
			iDate = i
		case "Close":
			iClose = i
		}
	}
	if iDate < 0 || iClose < 0 {
		return nil, &FormatError{Source: "stooq", Reason: "header lacks Date or Close column"}
	}

	points := make([]model.PricePoint, 0, len(lines)-1)
	for _, line := range lines[1:] {
		cols := strings.Split(strings.TrimRight(line, "\r"), ",")
		if len(cols) <= iDate || len(cols) <= iClose || cols[iDate] == "" {
			continue
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(cols[iDate]))
		if err != nil {
			continue
		}
		c, err := strconv.ParseFloat(strings.TrimSpace(cols[iClose]), 64)
		if err != nil || c <= 0 || math.IsNaN(c) || math.IsInf(c, 0) {
			continue
		}
		points = append(points, model.PricePoint{Date: d, Close: c})
	}
	return normalize(points), nil
}
