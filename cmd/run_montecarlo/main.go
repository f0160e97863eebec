package main

import (
	"context"
	"encoding/json"
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
	"stratlab/services/montecarlo"
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
	sims := flag.Int("sims", cfg.NumSimulations, "Number of Monte Carlo trials across all methods")
	seed := flag.Int64("seed", 0, "Random seed (0 = generate and record)")
	jsonOut := flag.String("out", "", "Write full analysis JSON to file (default stdout)")
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
	log.Printf("backtest: return %.2f%%, %d trades", report.StrategyReturnPct, report.NumTrades)

	mc := montecarlo.NewEngine(*seed)
	mc.SetTrades(res.Trades)
	mc.SetDailyReturns(res.Window.DailyReturns())

	analysis, err := mc.RunAnalysis(montecarlo.SimulationConfig{
		NumSimulations: *sims,
		Seed:           mc.Seed(),
		InitialCapital: *capital,
		RiskPerTrade:   *risk,
		ATRMultiplier:  *atrMult,
		TaxRate:        *tax,
	})
	if err != nil {
		log.Fatalf("monte carlo: %v", err)
	}
	analysis.ApplyOriginal(report.StrategyReturnPct, report.SharpeRatio, report.MaxDrawdownPct)

	out, err := json.MarshalIndent(analysis, "", "  ")
	if err != nil {
		log.Fatalf("marshal analysis: %v", err)
	}
	if *jsonOut != "" {
		if err := os.WriteFile(*jsonOut, out, 0o644); err != nil {
			log.Fatalf("write analysis: %v", err)
		}
		log.Printf("wrote analysis %s (%d trials, seed %d) to %s",
			analysis.AnalysisID, analysis.NumTrials, analysis.SeedUsed, *jsonOut)
	} else {
		fmt.Println(string(out))
	}
	log.Printf("verdict: %s (%s), p=%.1f%%", analysis.RiskRating, analysis.Interpretation, analysis.PValueVsRandom)
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
