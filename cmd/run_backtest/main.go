package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"stratlab/services/clickhouse"
	"stratlab/services/config"
	"stratlab/services/data"
	"stratlab/services/engine"
	"stratlab/strategies"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	csvPath := flag.String("csv", "", "Path to local daily-bar CSV; if set, skip ClickHouse")
	symbol := flag.String("symbol", "", "Symbol to load from ClickHouse when -csv is unset")
	strategyName := flag.String("strategy", "composite", "Strategy name")
	from := flag.String("from", "", "Simulation start date (YYYY-MM-DD)")
	to := flag.String("to", "", "Simulation end date (YYYY-MM-DD)")
	capital := flag.Float64("capital", cfg.InitialCapital, "Initial capital")
	risk := flag.Float64("risk", cfg.RiskPerTrade, "Risk fraction per trade")
	atrMult := flag.Float64("atr-mult", cfg.ATRMultiplier, "ATR trailing stop multiplier (0 disables stops)")
	tax := flag.Float64("tax", cfg.TaxRate, "Tax/slippage rate per side")
	tradesOut := flag.String("trades-out", "trades.csv", "Output CSV for trades")
	flag.Parse()

	strat, err := strategies.Parse(*strategyName)
	if err != nil {
		log.Fatalf("%v (valid: %v)", err, strategies.Names())
	}

	series := loadSeries(cfg, *csvPath, *symbol)
	frame := engine.ComputeIndicators(series, engine.IndicatorConfig{})
	signals := strat.Signals(frame)

	simCfg := engine.SimulatorConfig{
		InitialCapital: decimal.NewFromFloat(*capital),
		RiskPerTrade:   decimal.NewFromFloat(*risk),
		ATRMultiplier:  *atrMult,
		TaxRate:        decimal.NewFromFloat(*tax),
		StartDate:      parseDateFlag(*from),
		EndDate:        parseDateFlag(*to),
	}
	res, err := engine.Simulate(frame, signals, simCfg)
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	report := engine.Analyze(res)
	report.Strategy = strat.Kind.String()

	fmt.Println("=== Backtest Summary ===")
	fmt.Printf("Run: %s  Strategy: %s  Bars: %d\n", report.RunID, report.Strategy, res.Window.Len())
	fmt.Printf("Final value: %.2f (buy&hold %.2f)\n", report.FinalPortfolioValue, report.MarketBuyHoldValue)
	fmt.Printf("Return: %.2f%% (market %.2f%%)\n", report.StrategyReturnPct, report.MarketReturnPct)
	fmt.Printf("Sharpe: %.3f  MaxDD: %.2f%%  Trades: %d\n", report.SharpeRatio, report.MaxDrawdownPct, report.NumTrades)

	if err := writeTradesCSV(*tradesOut, res.Trades); err != nil {
		log.Fatalf("write trades: %v", err)
	}
	log.Printf("wrote %d trades to %s", len(res.Trades), *tradesOut)
}

func loadSeries(cfg *config.Config, csvPath, symbol string) *engine.Series {
	if csvPath != "" {
		series, err := data.LoadCSV(csvPath)
		if err != nil {
			log.Fatalf("load csv: %v", err)
		}
		return series
	}
	if symbol == "" {
		log.Fatal("either -csv or -symbol is required")
	}
	ctx := context.Background()
	store, err := clickhouse.Open(ctx, clickhouse.Options{
		Addr:     cfg.ClickHouseAddr,
		Database: cfg.ClickHouseDatabase,
		Table:    cfg.ClickHouseTable,
		User:     cfg.ClickHouseUser,
		Password: cfg.ClickHousePassword,
	})
	if err != nil {
		log.Fatalf("clickhouse: %v", err)
	}
	defer store.Close()
	series, err := store.LoadBars(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		log.Fatalf("load bars: %v", err)
	}
	return series
}

func parseDateFlag(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		log.Fatalf("invalid date %q: %v", s, err)
	}
	return t.UTC()
}

func writeTradesCSV(path string, trades []engine.Trade) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"entry_date", "entry_price", "exit_date", "exit_price", "pnl_pct", "result", "reason"}); err != nil {
		return err
	}
	for _, t := range trades {
		if err := w.Write([]string{
			t.EntryDate.Format("2006-01-02"),
			t.EntryPrice.String(),
			t.ExitDate.Format("2006-01-02"),
			t.ExitPrice.String(),
			t.PnlPct.StringFixed(4),
			t.Result,
			string(t.Reason),
		}); err != nil {
			return err
		}
	}
	return nil
}
