// Command fetch resolves one request through the provider chains and prints
// the JSON the server would answer with.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"cambioproxy/internal/aggregate"
	"cambioproxy/internal/app"
	"cambioproxy/internal/config"
	"cambioproxy/internal/logging"
	"cambioproxy/internal/metrics"
	"cambioproxy/internal/quotes"
	"cambioproxy/internal/series"
)

func main() {
	var mode string
	var currencies string
	var days int
	var from, to int
	var seriesName, bucket string
	var timeout int
	var configPath string

	flag.StringVar(&mode, "mode", getenv("FETCH_MODE", "latest"), "latest, history, annual or series")
	flag.StringVar(&currencies, "currencies", getenv("CURRENCIES", strings.Join(quotes.DefaultPairs, ",")), "comma-separated pairs (history and annual use the first)")
	flag.IntVar(&days, "days", getenvInt("DAYS", 30), "history window in days")
	flag.IntVar(&from, "from", quotes.DefaultAnnualFrom, "first year for annual mode")
	flag.IntVar(&to, "to", time.Now().Year()-1, "last year for annual mode")
	flag.StringVar(&seriesName, "series", series.DefaultSeries, "indicator name for series mode")
	flag.StringVar(&bucket, "bucket", "", "optional series bucket: year or month")
	flag.IntVar(&timeout, "timeout", getenvInt("REQUEST_TIMEOUT_SEC", 30), "overall timeout seconds")
	flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to a config file (optional)")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	// Logs go to stderr so stdout stays valid JSON.
	logger, flush, err := logging.New(cfg.Server.LogLevel, "text")
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer func() { _ = flush() }()

	svc, err := app.Build(cfg, logger, metrics.New())
	if err != nil {
		log.Fatalf("build: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
	defer cancel()

	pairs := splitCSV(currencies)
	first := quotes.DefaultPairs[0]
	if len(pairs) > 0 {
		first = pairs[0]
	}

	var out any
	switch mode {
	case "latest":
		out, err = svc.Quotes.Latest(ctx, pairs)
	case "history":
		out, err = svc.Quotes.History(ctx, first, aggregate.LastDays(days, time.Now()))
	case "annual":
		out, err = svc.Quotes.Annual(ctx, first, from, to)
	case "series":
		out, err = svc.Series.Fetch(ctx, series.Request{Series: seriesName, Bucket: bucket})
	default:
		log.Fatalf("unknown mode %q", mode)
	}
	if err != nil {
		logger.Error("fetch failed", "mode", mode, "error", err)
		_ = flush()
		os.Exit(1)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("encode: %v", err)
	}
	fmt.Println(string(b))
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		var x int
		_, _ = fmt.Sscanf(v, "%d", &x)
		if x != 0 {
			return x
		}
	}
	return def
}
