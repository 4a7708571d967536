// cmd/restock/main.go
package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/plateiq/restock/internal/cache"
	"github.com/plateiq/restock/internal/config"
	"github.com/plateiq/restock/internal/engine"
	"github.com/plateiq/restock/internal/forecast"
	"github.com/plateiq/restock/internal/repository"
	"github.com/plateiq/restock/internal/repository/postgres"
	"github.com/plateiq/restock/internal/service"
	"github.com/plateiq/restock/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newRestaurantFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "restaurant",
		Usage:    "Restaurant id",
		Required: true,
	}
}

func newIngredientFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "ingredient",
		Usage:    "Ingredient id",
		Required: true,
	}
}

// app bundles the wired services for one command invocation.
type app struct {
	db              *postgres.DB
	inventory       *service.InventoryService
	recommendations *service.RecommendationService
	logs            repository.DailyLogRepository
	ingredients     repository.IngredientRepository
}

func buildApp(c *cli.Context) (*app, error) {
	sqlDB, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := postgres.Wrap(sqlx.NewDb(sqlDB, "pgx"))

	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	recCache, err := cache.NewRecommendationCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, continuing without it")
		recCache = cache.NewNoopRecommendationCache()
	}

	batches := postgres.NewBatchRepository(db)
	logs := postgres.NewDailyLogRepository(db)
	forecasts := postgres.NewForecastRepository(db)

	aggregator := forecast.NewAggregator(forecasts, logs)
	eng := engine.New(cfg.Engine.SafetyFactor, engine.RelativeBand{
		Pct: cfg.Engine.BandPct,
		Z:   cfg.Engine.BandZ,
	})

	return &app{
		db:              db,
		inventory:       service.NewInventoryService(batches, logs, recCache),
		recommendations: service.NewRecommendationService(aggregator, batches, eng, recCache),
		logs:            logs,
		ingredients:     postgres.NewIngredientRepository(db),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		logger.Log.Warn().Err(err).Msg("failed to close database")
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := godotenv.Load(); err == nil {
		logger.Log.Debug().Msg("loaded .env")
	}

	cliApp := &cli.App{
		Name:  "restock",
		Usage: "Operate the restaurant ingredient ledgers and restock engine",
		Commands: []*cli.Command{
			{
				Name:  "receive",
				Usage: "Record a delivered batch and post the restock to the daily log",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(), newIngredientFlag(),
					&cli.StringFlag{Name: "qty", Usage: "Quantity received", Required: true},
					&cli.StringFlag{Name: "supplier", Usage: "Supplier name"},
					&cli.StringFlag{Name: "contact", Usage: "Supplier contact"},
					&cli.StringFlag{Name: "cost", Usage: "Purchase cost per unit", Value: "0"},
					&cli.TimestampFlag{Name: "expires", Usage: "Expiration date (YYYY-MM-DD)", Layout: "2006-01-02"},
				},
				Action: runReceive,
			},
			{
				Name:  "use",
				Usage: "Post usage to the daily log and deduct batches FIFO",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(), newIngredientFlag(),
					&cli.StringFlag{Name: "qty", Usage: "Quantity used", Required: true},
				},
				Action: runUse,
			},
			{
				Name:  "restock",
				Usage: "Post an on-order quantity to the daily log without a batch",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(), newIngredientFlag(),
					&cli.StringFlag{Name: "qty", Usage: "Quantity ordered", Required: true},
				},
				Action: runRestock,
			},
			{
				Name:  "sweep",
				Usage: "Mark batches past their expiration date as expired",
				Flags: []cli.Flag{newDBURLFlag(), newRestaurantFlag()},
				Action: runSweep,
			},
			{
				Name:  "expiring",
				Usage: "List active batches expiring soon",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(),
					&cli.IntFlag{Name: "days", Usage: "Horizon in days", Value: 3},
				},
				Action: runExpiring,
			},
			{
				Name:  "levels",
				Usage: "Show the latest reconciliation row per ingredient",
				Flags: []cli.Flag{newDBURLFlag(), newRestaurantFlag()},
				Action: runLevels,
			},
			{
				Name:  "history",
				Usage: "Show the daily log for one ingredient",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(), newIngredientFlag(),
					&cli.IntFlag{Name: "days", Usage: "Days of history", Value: 30},
				},
				Action: runHistory,
			},
			{
				Name:  "catalog",
				Usage: "List catalog ingredients, or one restaurant's stocked ingredients",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.Int64Flag{Name: "restaurant", Usage: "Restrict to one restaurant's stocked ingredients"},
				},
				Action: runCatalog,
			},
			{
				Name:  "attach",
				Usage: "Start stocking an ingredient at a restaurant",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(), newIngredientFlag(),
					&cli.IntFlag{Name: "lead", Usage: "Order lead time in days", Value: 2},
					&cli.IntFlag{Name: "safety", Usage: "Safety stock in days", Value: 2},
				},
				Action: runAttach,
			},
			{
				Name:   "detach",
				Usage:  "Stop stocking an ingredient at a restaurant",
				Flags:  []cli.Flag{newDBURLFlag(), newRestaurantFlag(), newIngredientFlag()},
				Action: runDetach,
			},
			{
				Name:  "forecasts",
				Usage: "Show the merged forecast view",
				Flags: []cli.Flag{newDBURLFlag(), newRestaurantFlag()},
				Action: runForecasts,
			},
			{
				Name:  "recommend",
				Usage: "Run the restock decision engine",
				Flags: []cli.Flag{
					newDBURLFlag(), newRestaurantFlag(),
					&cli.BoolFlag{Name: "json", Usage: "Emit JSON instead of a table"},
				},
				Action: runRecommend,
			},
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func runReceive(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	qty, err := decimal.NewFromString(c.String("qty"))
	if err != nil {
		return fmt.Errorf("invalid qty: %w", err)
	}
	cost, err := decimal.NewFromString(c.String("cost"))
	if err != nil {
		return fmt.Errorf("invalid cost: %w", err)
	}

	params := repository.ReceiveParams{
		RestaurantID: c.Int64("restaurant"),
		IngredientID: c.Int64("ingredient"),
		Qty:          qty,
		CostPerUnit:  cost,
	}
	if supplier := c.String("supplier"); supplier != "" {
		params.SupplierName = &supplier
	}
	if contact := c.String("contact"); contact != "" {
		params.SupplierContact = &contact
	}
	if expires := c.Timestamp("expires"); expires != nil {
		params.ExpirationDate = expires
	}

	batch, row, err := a.inventory.ReceiveDelivery(c.Context, params)
	if err != nil {
		return err
	}

	fmt.Printf("batch %d received: %s remaining, balance now %s\n",
		batch.ID, batch.QtyRemaining, row.InventoryEnd)
	return nil
}

func runUse(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	qty, err := decimal.NewFromString(c.String("qty"))
	if err != nil {
		return fmt.Errorf("invalid qty: %w", err)
	}

	row, result, err := a.inventory.RecordUsage(c.Context, c.Int64("restaurant"), c.Int64("ingredient"), qty)
	if err != nil {
		return err
	}

	fmt.Printf("usage posted: used today %s, balance %s\n", row.QtyUsed, row.InventoryEnd)
	if result != nil {
		fmt.Printf("batches deducted: %d, total %s, shortfall %s\n",
			len(result.Affected), result.TotalDeducted, result.Shortfall)
	}
	return nil
}

func runRestock(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	qty, err := decimal.NewFromString(c.String("qty"))
	if err != nil {
		return fmt.Errorf("invalid qty: %w", err)
	}

	row, err := a.logs.PostRestock(c.Context, c.Int64("restaurant"), c.Int64("ingredient"), qty)
	if err != nil {
		return err
	}

	fmt.Printf("restock posted: on order today %s, balance %s\n", row.OnOrderQty, row.InventoryEnd)
	return nil
}

func runSweep(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	ids, err := a.inventory.SweepExpired(c.Context, c.Int64("restaurant"))
	if err != nil {
		return err
	}

	fmt.Printf("%d batches marked expired\n", len(ids))
	return nil
}

func runExpiring(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	batches, err := a.inventory.ExpiringAlerts(c.Context, c.Int64("restaurant"), c.Int("days"))
	if err != nil {
		return err
	}

	for _, b := range batches {
		expiry := "-"
		if b.ExpirationDate != nil {
			expiry = b.ExpirationDate.Format("2006-01-02")
		}
		fmt.Printf("batch %-6d ingredient %-6d remaining %-10s expires %s\n",
			b.ID, b.IngredientID, b.QtyRemaining, expiry)
	}
	return nil
}

func runLevels(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	levels, err := a.logs.CurrentLevels(c.Context, c.Int64("restaurant"))
	if err != nil {
		return err
	}
	return printJSON(levels)
}

func runHistory(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	rows, err := a.logs.History(c.Context, c.Int64("restaurant"), c.Int64("ingredient"), c.Int("days"))
	if err != nil {
		return err
	}
	return printJSON(rows)
}

func runCatalog(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	if restaurantID := c.Int64("restaurant"); restaurantID != 0 {
		stocked, err := a.ingredients.ListForRestaurant(c.Context, restaurantID)
		if err != nil {
			return err
		}
		return printJSON(stocked)
	}

	ingredients, err := a.ingredients.ListCatalog(c.Context)
	if err != nil {
		return err
	}
	return printJSON(ingredients)
}

func runAttach(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	row, err := a.ingredients.Attach(c.Context,
		c.Int64("restaurant"), c.Int64("ingredient"), c.Int("lead"), c.Int("safety"))
	if err != nil {
		return err
	}

	fmt.Printf("ingredient %d attached to restaurant %d (lead %dd, safety %dd)\n",
		row.IngredientID, row.RestaurantID, row.LeadTimeDays, row.SafetyStockDays)
	return nil
}

func runDetach(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.ingredients.Detach(c.Context, c.Int64("restaurant"), c.Int64("ingredient")); err != nil {
		return err
	}

	fmt.Printf("ingredient %d detached from restaurant %d\n",
		c.Int64("ingredient"), c.Int64("restaurant"))
	return nil
}

func runForecasts(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.recommendations.Forecasts(c.Context, c.Int64("restaurant"))
	if err != nil {
		return err
	}
	return printJSON(result)
}

func runRecommend(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return err
	}
	defer a.close()

	start := time.Now()
	recommendations, err := a.recommendations.Recommend(c.Context, c.Int64("restaurant"))
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(recommendations)
	}

	fmt.Printf("%d recommendations (%.0fms)\n\n", len(recommendations), time.Since(start).Seconds()*1000)
	for i, rec := range recommendations {
		stockout := "never"
		if !math.IsInf(rec.DaysUntilStockout, 1) {
			stockout = fmt.Sprintf("%.1fd", rec.DaysUntilStockout)
		}
		order := "-"
		if rec.RestockNeeded {
			order = fmt.Sprintf("%.1f", rec.SuggestedOrderQty)
		}
		fmt.Printf("%2d. [%-8s] %-28s %-14s stockout %-7s spoilage %.1fd  order %s\n",
			i+1, rec.Priority, rec.IngredientName, rec.Category, stockout, rec.DaysUntilSpoilage, order)
		if rec.WasteRisk {
			fmt.Printf("    waste risk: stock %.1f exceeds two days of usage\n", rec.CurrentInventory)
		}
	}
	return nil
}
