package engine

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExitReason records how a position was closed.
type ExitReason string

const (
	ExitSignal       ExitReason = "Signal Exit"
	ExitStopGap      ExitReason = "Stop Loss (Gap)"
	ExitStopIntraday ExitReason = "Stop Loss (Intraday)"
)

// Trade is a completed round trip. ExitDate is always strictly after
// EntryDate: entries fill at the next bar's open and exits at a later bar.
type Trade struct {
	EntryDate  time.Time
	ExitDate   time.Time
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	PnlPct     decimal.Decimal
	Result     string // "Win" or "Loss"
	Reason     ExitReason
}

// SimulatorConfig controls the execution model. Zero values fall back to the
// standard defaults.
type SimulatorConfig struct {
	InitialCapital decimal.Decimal // default 100000
	RiskPerTrade   decimal.Decimal // fraction of equity risked per trade, default 0.02
	ATRMultiplier  float64         // trailing stop distance in ATRs, default 3.0; <=0 disables stops
	TaxRate        decimal.Decimal // tax/slippage rate applied to both sides, default 0.002

	// Optional simulation window. Zero bounds are open.
	StartDate time.Time
	EndDate   time.Time
}

func (c SimulatorConfig) withDefaults() SimulatorConfig {
	if c.InitialCapital.IsZero() {
		c.InitialCapital = decimal.NewFromInt(100000)
	}
	if c.RiskPerTrade.IsZero() {
		c.RiskPerTrade = decimal.NewFromFloat(0.02)
	}
	if c.ATRMultiplier == 0 {
		c.ATRMultiplier = 3.0
	}
	if c.TaxRate.IsZero() {
		c.TaxRate = decimal.NewFromFloat(0.002)
	}
	return c
}

// SimResult is the raw output of one simulation run.
type SimResult struct {
	Trades []Trade
	// Equity is the mark-to-market portfolio value per bar, preceded by the
	// pre-trade initial capital: len(Equity) == window length + 1.
	Equity []decimal.Decimal
	// Window is the sub-series actually simulated.
	Window *Series
	Config SimulatorConfig
}

var two = decimal.NewFromInt(2)
var hundred = decimal.NewFromInt(100)

// Simulate replays the signal sequence against the bar series. Decisions read
// bar t (close, signal, ATR, trailing high); fills happen on bar t+1 (open,
// low). Exactly one position may be open at a time and a buy that cannot be
// fully funded is rejected outright.
func Simulate(f *IndicatorFrame, signals []int, cfg SimulatorConfig) (*SimResult, error) {
	cfg = cfg.withDefaults()

	window := f.Series.Slice(cfg.StartDate, cfg.EndDate)
	if window.Len() == 0 {
		return nil, ErrEmptyRange
	}
	if window.Len() < 2 {
		return nil, ErrInsufficientData
	}
	// Offset of the window inside the full frame, for signal/ATR lookups.
	base := 0
	for base < f.Series.Len() && !f.Series.Bars[base].Date.Equal(window.Bars[0].Date) {
		base++
	}

	cash := cfg.InitialCapital
	shares := decimal.Zero
	onePlusTax := decimal.NewFromInt(1).Add(cfg.TaxRate)

	var entryPrice decimal.Decimal
	var entryDate time.Time
	highestSinceEntry := decimal.Zero

	equity := make([]decimal.Decimal, 0, window.Len()+1)
	equity = append(equity, cfg.InitialCapital)
	var trades []Trade

	n := window.Len()
	for i := 0; i < n-1; i++ {
		today := window.Bars[i]
		next := window.Bars[i+1]

		// Mark to market on today's close.
		currentVal := cash.Add(shares.Mul(decimal.NewFromFloat(today.Close)))
		equity = append(equity, currentVal)

		signal := signals[base+i]
		long := shares.IsPositive()

		var exitPrice decimal.Decimal
		var exitReason ExitReason

		// Trailing ATR stop, checked against tomorrow's open and low.
		if long && cfg.ATRMultiplier > 0 {
			high := decimal.NewFromFloat(today.High)
			if high.GreaterThan(highestSinceEntry) {
				highestSinceEntry = high
			}
			if atr, ok := f.ValidATR(base + i); ok {
				stopPrice := highestSinceEntry.Sub(decimal.NewFromFloat(atr * cfg.ATRMultiplier))
				nextOpen := decimal.NewFromFloat(next.Open)
				if nextOpen.LessThan(stopPrice) {
					exitPrice = nextOpen
					exitReason = ExitStopGap
				} else if decimal.NewFromFloat(next.Low).LessThan(stopPrice) {
					exitPrice = stopPrice
					exitReason = ExitStopIntraday
				}
			}
		}

		// A signal exit fills at the open. It replaces an intraday stop
		// (which uses an estimated stop price) but never a gap exit, which
		// already reflects the worse realized open.
		if long && signal == 0 {
			if exitReason == "" || exitReason == ExitStopIntraday {
				exitPrice = decimal.NewFromFloat(next.Open)
				exitReason = ExitSignal
			}
		}

		if long && exitReason != "" {
			revenue := shares.Mul(exitPrice)
			cost := revenue.Mul(cfg.TaxRate)
			cash = cash.Add(revenue.Sub(cost))

			pnlPct := exitPrice.Sub(entryPrice).Div(entryPrice).Mul(hundred)
			result := "Loss"
			if pnlPct.IsPositive() {
				result = "Win"
			}
			trades = append(trades, Trade{
				EntryDate:  entryDate,
				ExitDate:   next.Date,
				EntryPrice: entryPrice,
				ExitPrice:  exitPrice,
				PnlPct:     pnlPct,
				Result:     result,
				Reason:     exitReason,
			})

			shares = decimal.Zero
			highestSinceEntry = decimal.Zero
			continue
		}

		if !long && signal == 1 && next.Open > 0 {
			execPrice := decimal.NewFromFloat(next.Open)
			// RoundDown so the division result never overshoots the cash
			// actually available once fees are added back.
			maxAffordable := cash.Div(execPrice.Mul(onePlusTax)).RoundDown(8)

			// Volatility sizing: risk a fixed fraction of equity against a
			// 2*ATR stop distance. Without a valid ATR, deploy full equity.
			var toBuy decimal.Decimal
			if atr, ok := f.ValidATR(base + i); ok {
				riskBudget := currentVal.Mul(cfg.RiskPerTrade)
				stopDistance := decimal.NewFromFloat(atr).Mul(two)
				toBuy = riskBudget.Div(stopDistance)
				if toBuy.GreaterThan(maxAffordable) {
					toBuy = maxAffordable
				}
			} else {
				toBuy = maxAffordable
			}

			costBasis := toBuy.Mul(execPrice)
			fees := costBasis.Mul(cfg.TaxRate)
			if toBuy.IsPositive() && cash.GreaterThanOrEqual(costBasis.Add(fees)) {
				cash = cash.Sub(costBasis.Add(fees))
				shares = toBuy
				entryPrice = execPrice
				entryDate = next.Date
				highestSinceEntry = execPrice
			}
		}
	}

	last := window.Bars[n-1]
	equity = append(equity, cash.Add(shares.Mul(decimal.NewFromFloat(last.Close))))

	return &SimResult{
		Trades: trades,
		Equity: equity,
		Window: window,
		Config: cfg,
	}, nil
}
