// One-shot installer: daily-bar CSV files -> ClickHouse with dedup guarantees.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"stratlab/services/clickhouse"
	"stratlab/services/config"
	"stratlab/services/data"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	csvPath := flag.String("csv", "", "Path to daily-bar CSV to ingest")
	symbol := flag.String("symbol", "", "Symbol the CSV belongs to")
	flag.Parse()

	if *csvPath == "" || *symbol == "" {
		log.Fatal("-csv and -symbol are required")
	}
	sym := strings.ToUpper(strings.TrimSpace(*symbol))

	series, err := data.LoadCSV(*csvPath)
	if err != nil {
		log.Fatalf("load csv: %v", err)
	}
	if series.Len() == 0 {
		log.Fatalf("no bars in %s", *csvPath)
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

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	if err := store.InsertBars(ctx, sym, series.Bars); err != nil {
		log.Fatalf("insert bars: %v", err)
	}
	log.Printf("ingested %d bars for %s (%s .. %s)",
		series.Len(), sym,
		series.Bars[0].Date.Format("2006-01-02"),
		series.Bars[series.Len()-1].Date.Format("2006-01-02"))
}
