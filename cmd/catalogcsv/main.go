package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"catalogcsv/internal"
	"catalogcsv/internal/app"
	"catalogcsv/internal/config"
	"catalogcsv/internal/pipeline"
	"catalogcsv/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cmd := os.Args[1]
	switch cmd {
	case "extract":
		runner, err := app.NewRunner(offline(cfg), db, logger)
		must(err)
		res, err := runner.Extract(ctx)
		must(err)
		fmt.Printf("extract done products=%d descriptions=%d tags=%d template=%d output=%s\n",
			res.Products, res.ByKind[internal.SourceDescriptions], res.ByKind[internal.SourceTags], res.ByKind[internal.SourceTemplate], cfg.CatalogJSON)
	case "images":
		runner, err := app.NewRunner(withoutPush(cfg), db, logger)
		must(err)
		res, err := runner.Images(ctx)
		must(err)
		fmt.Printf("images done provider=%s withImages=%d imageEntries=%d\n", cfg.ImageProvider, res.WithImages, res.ImageEntries)
	case "generate":
		runner, err := app.NewRunner(offline(cfg), db, logger)
		must(err)
		res, err := runner.Generate(ctx)
		must(err)
		fmt.Printf("generate done rows=%d imageRows=%d metafields=%d output=%s\n",
			res.MainRows+res.ImageRows, res.ImageRows, res.Metafields, cfg.ProductsCSV)
	case "push":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		csvPath := fs.String("csv", cfg.ProductsCSV, "product csv to import")
		_ = fs.Parse(os.Args[2:])
		cfg = offline(cfg)
		cfg.PushEnabled = true
		cfg.ProductsCSV = *csvPath
		runner, err := app.NewRunner(cfg, db, logger)
		must(err)
		must(runner.Push(ctx))
		fmt.Printf("push done store=%s csv=%s\n", cfg.ShopifyStore, cfg.ProductsCSV)
	case "run":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		noPush := fs.Bool("no-push", false, "skip the store import")
		_ = fs.Parse(os.Args[2:])
		if *noPush {
			cfg = withoutPush(cfg)
		}
		runner, err := app.NewRunner(cfg, db, logger)
		must(err)
		res, err := runner.Run(ctx, nil)
		must(err)
		fmt.Printf("run done trace=%s products=%d rows=%d withImages=%d metafields=%d output=%s\n",
			res.TraceID, res.Counts.Products, res.Counts.Rows, res.Counts.WithImages, res.Counts.Metafields, cfg.ProductsCSV)
	case "runs":
		fs := flag.NewFlagSet(cmd, flag.ExitOnError)
		limit := fs.Int("limit", 10, "number of runs")
		_ = fs.Parse(os.Args[2:])
		runs, err := db.ListRuns(*limit)
		must(err)
		for _, r := range runs {
			finished := "-"
			if r.FinishedAt != nil {
				finished = *r.FinishedAt
			}
			fmt.Printf("id=%d trace=%s status=%s started=%s finished=%s products=%d rows=%d\n",
				r.ID, r.TraceID, r.Status, r.StartedAt, finished, r.Counts.Products, r.Counts.Rows)
			if r.Error != nil {
				fmt.Printf("  error=%s\n", *r.Error)
			}
		}
		last, err := db.GetMetadata(pipeline.LastCSVKey)
		must(err)
		if last != nil {
			fmt.Printf("last csv=%s\n", *last)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func withoutPush(cfg config.Config) config.Config {
	cfg.PushEnabled = false
	return cfg
}

// offline disables the remote collaborators for steps that never call them.
func offline(cfg config.Config) config.Config {
	cfg.PushEnabled = false
	cfg.ImageProvider = "none"
	return cfg
}

func usage() {
	fmt.Println("usage: catalogcsv <command>")
	fmt.Println("commands:")
	fmt.Println("  extract               merge input sources into the catalog json")
	fmt.Println("  images                add image urls from IMAGE_PROVIDER=drive|local|none")
	fmt.Println("  generate              write the product csv")
	fmt.Println("  push [--csv=...]      import the product csv into the store")
	fmt.Println("  run [--no-push]       all of the above")
	fmt.Println("  runs [--limit=10]     list recent runs")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
