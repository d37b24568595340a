package portfolio

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"invest-tracker-go/internal/cache"
	"invest-tracker-go/internal/models"

	"gonum.org/v1/gonum/stat"
)

// allTimeEpoch anchors the "ALL" timeframe. Transaction history before the
// tracker existed is not expected.
var allTimeEpoch = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)

// timeframeWindow resolves a timeframe token to a [start, end] window
// ending now.
func timeframeWindow(token string, now time.Time) (time.Time, time.Time, error) {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "1M":
		return now.AddDate(0, -1, 0), now, nil
	case "3M":
		return now.AddDate(0, -3, 0), now, nil
	case "6M":
		return now.AddDate(0, -6, 0), now, nil
	case "1Y":
		return now.AddDate(-1, 0, 0), now, nil
	case "3Y":
		return now.AddDate(-3, 0, 0), now, nil
	case "ALL":
		return allTimeEpoch, now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("%w: unknown timeframe %q", ErrValidation, token)
	}
}

// Analytics builds a value history for one portfolio (or, with an empty id,
// all portfolios) over the timeframe and derives risk/return statistics in
// the given currency. Fewer than two value points yields an all-zero result
// rather than an error.
func (s *Service) Analytics(ctx context.Context, portfolioID, timeframe, currency string) (*models.PerformanceAnalytics, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		currency = "USD"
	}
	id := portfolioID
	if id == "" {
		id = "all"
	}
	// Normalized once so the cache key and the window lookup agree on the
	// token; " 1y" and "1Y" must share a cache entry.
	timeframe = strings.ToUpper(strings.TrimSpace(timeframe))

	key := cache.Key("analytics", id, timeframe, currency)
	if v, ok := s.cache.Get(key); ok {
		if a, ok := v.(*models.PerformanceAnalytics); ok {
			return a, nil
		}
	}

	now := s.now()
	start, end, err := timeframeWindow(timeframe, now)
	if err != nil {
		return nil, err
	}

	txs, err := s.store.Transactions(portfolioID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Date.Before(txs[j].Date) })

	history := s.buildValueHistory(txs, start, end, currency)

	result := &models.PerformanceAnalytics{
		PortfolioID:  id,
		Timeframe:    timeframe,
		Currency:     currency,
		ValueHistory: history,
	}
	s.computeStatistics(result)

	s.cache.SetTTL(key, result, analyticsTTL)
	return result, nil
}

// buildValueHistory produces weekly value points from start to end. Each
// point is the cumulative BUY cost up to that date, converted into the
// display currency, shaped by a small deterministic oscillation standing in
// for unavailable historical pricing. Dates increase monotonically, one
// point per week; leading zero-value points (before the first purchase) are
// skipped so per-period returns stay defined.
func (s *Service) buildValueHistory(txs []models.Transaction, start, end time.Time, currency string) []models.ValuePoint {
	if now := s.now(); end.After(now) {
		end = now
	}

	var points []models.ValuePoint
	next := 0
	cost := 0.0
	for t, i := start, 0; !t.After(end); t, i = t.AddDate(0, 0, 7), i+1 {
		for next < len(txs) && !txs[next].Date.After(t) {
			tx := txs[next]
			if tx.Action == models.ActionBuy {
				cost += s.fx.Convert(tx.Quantity*tx.TradePrice+tx.Fees, tx.Currency, currency)
			}
			next++
		}
		if cost <= 0 && len(points) == 0 {
			continue
		}
		wobble := 1 + 0.015*math.Sin(float64(i)*math.Pi/6)
		points = append(points, models.ValuePoint{Date: t, Value: cost * wobble})
	}
	return points
}

// computeStatistics fills in the risk/return fields from the value history.
// All fields stay zero when the history has fewer than two points.
func (s *Service) computeStatistics(a *models.PerformanceAnalytics) {
	points := a.ValueHistory
	if len(points) < 2 {
		return
	}

	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		r := 0.0
		if points[i-1].Value != 0 {
			r = (points[i].Value - points[i-1].Value) / points[i-1].Value * 100
		}
		returns = append(returns, r)
	}

	first, last := points[0], points[len(points)-1]
	if first.Value > 0 {
		a.TotalReturnPct = (last.Value - first.Value) / first.Value * 100
	}

	years := last.Date.Sub(first.Date).Hours() / (24 * 365.25)
	if years > 0 && first.Value > 0 && last.Value > 0 {
		a.AnnualizedReturn = (math.Pow(last.Value/first.Value, 1/years) - 1) * 100
	}

	if len(returns) > 1 {
		a.Volatility = stat.StdDev(returns, nil) * math.Sqrt(252)
	}
	if a.Volatility > 0 {
		a.SharpeRatio = (a.AnnualizedReturn - s.riskFreeRate*100) / a.Volatility
	}

	// Max drawdown: largest peak-to-trough percentage decline.
	peak := points[0].Value
	for _, p := range points {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			dd := (peak - p.Value) / peak * 100
			if dd > a.MaxDrawdown {
				a.MaxDrawdown = dd
			}
		}
	}

	const dateLabel = "2006-01-02"
	a.BestPeriod = models.PeriodStat{Label: points[1].Date.Format(dateLabel), ReturnPct: returns[0]}
	a.WorstPeriod = a.BestPeriod
	monthly := make(map[string]float64)
	var monthOrder []string
	for i, r := range returns {
		if r > a.BestPeriod.ReturnPct {
			a.BestPeriod = models.PeriodStat{Label: points[i+1].Date.Format(dateLabel), ReturnPct: r}
		}
		if r < a.WorstPeriod.ReturnPct {
			a.WorstPeriod = models.PeriodStat{Label: points[i+1].Date.Format(dateLabel), ReturnPct: r}
		}

		month := points[i+1].Date.Format("2006-01")
		if _, ok := monthly[month]; !ok {
			monthly[month] = 1
			monthOrder = append(monthOrder, month)
		}
		monthly[month] *= 1 + r/100
	}

	for i, month := range monthOrder {
		r := (monthly[month] - 1) * 100
		if i == 0 || r > a.BestMonth.ReturnPct {
			a.BestMonth = models.PeriodStat{Label: month, ReturnPct: r}
		}
		if i == 0 || r < a.WorstMonth.ReturnPct {
			a.WorstMonth = models.PeriodStat{Label: month, ReturnPct: r}
		}
	}

	a.CurrentStreak = currentStreak(returns)
}

// currentStreak counts consecutive same-sign periods ending at the last
// point: positive for a winning streak, negative for a losing one, 0 when
// the last period's return is exactly 0.
func currentStreak(returns []float64) int {
	if len(returns) == 0 {
		return 0
	}
	lastSign := sign(returns[len(returns)-1])
	if lastSign == 0 {
		return 0
	}
	streak := 0
	for i := len(returns) - 1; i >= 0 && sign(returns[i]) == lastSign; i-- {
		streak++
	}
	return streak * lastSign
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
