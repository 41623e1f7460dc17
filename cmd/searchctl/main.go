// searchctl filters the stored program catalog with saved or inline
// queries and writes the matching records as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"aircheck/internal/cache"
	"aircheck/internal/config"
	"aircheck/internal/domain"
	"aircheck/internal/search"
	"aircheck/internal/storage"
	"aircheck/internal/storage/postgres"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	queriesPath := flag.String("queries", "", "path to a saved query list (JSON)")
	queryJSON := flag.String("query", "", "inline query as JSON, e.g. '{\"program_name\": {\"$regex\": \"JUNK\"}}'")
	sourceID := flag.String("source", "", "restrict to one source")
	all := flag.Bool("all", false, "include programs whose broadcast window has not elapsed")
	output := flag.String("o", "", "output file (default stdout)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := run(*configPath, *queriesPath, *queryJSON, *sourceID, *all, *output, logger); err != nil {
		fmt.Fprintln(os.Stderr, "searchctl:", err)
		os.Exit(1)
	}
}

func run(configPath, queriesPath, queryJSON, sourceID string, all bool, output string, logger *slog.Logger) error {
	queries, err := loadQueries(queriesPath, queryJSON)
	if err != nil {
		return err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	db, err := sqlx.Connect("postgres", cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	var catalog storage.CatalogLister = postgres.NewProgramStore(db)
	if cfg.Redis.URL != "" {
		redis, err := cache.New(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer redis.Close()
		catalog = storage.NewCachedCatalog(catalog, redis, cfg.Redis.CatalogTTL, logger)
	}

	programs, err := catalog.ListBySource(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	matches := search.Search(programs, queries, !all)

	return writeMatches(matches, output)
}

func loadQueries(queriesPath, queryJSON string) (search.ProgramQueryList, error) {
	switch {
	case queriesPath != "" && queryJSON != "":
		return nil, fmt.Errorf("use either -queries or -query, not both")
	case queriesPath != "":
		return search.LoadQueries(queriesPath)
	case queryJSON != "":
		var mapping map[string]any
		if err := json.Unmarshal([]byte(queryJSON), &mapping); err != nil {
			return nil, fmt.Errorf("parse inline query: %w", err)
		}
		q, err := search.ProgramQueryFromMapping(mapping)
		if err != nil {
			return nil, err
		}
		return search.ProgramQueryList{q}, nil
	default:
		return nil, fmt.Errorf("a query is required: -queries FILE or -query JSON")
	}
}

func writeMatches(matches []domain.Program, output string) error {
	mappings := make([]map[string]any, len(matches))
	for i, p := range matches {
		mappings[i] = p.ToMapping(true)
	}

	data, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
