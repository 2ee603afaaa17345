package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/mwidjaja/procura/internal/calendar"
	"github.com/mwidjaja/procura/internal/registry"
	"github.com/mwidjaja/procura/internal/repository/postgres"
	"github.com/mwidjaja/procura/internal/storage"
	"github.com/mwidjaja/procura/pkg/logger"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newRegistryDirFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "registry-dir",
		Usage:   "Directory holding reference data CSVs",
		Value:   "./data/registry",
		EnvVars: []string{"APP_REGISTRY_DIR"},
	}
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		logger.Log.Debug().Msg("no .env file loaded")
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Install reference data and demand history",
		Commands: []*cli.Command{
			{
				Name:  "registries",
				Usage: "Install and validate reference CSVs (MOQ, dimensions, suppliers, reserves)",
				Flags: []cli.Flag{
					newRegistryDirFlag(),
					&cli.StringFlag{
						Name:  "from",
						Usage: "Copy reference CSVs from this directory before validating",
					},
				},
				Action: seedRegistries,
			},
			{
				Name:  "closures",
				Usage: "Normalize a supplier closure calendar into the registry directory",
				Flags: []cli.Flag{
					newRegistryDirFlag(),
					&cli.StringFlag{
						Name:     "file",
						Usage:    "Source CSV with date,name closure rows",
						Required: true,
					},
				},
				Action: seedClosures,
			},
			{
				Name:  "history",
				Usage: "Seed sales and stock history into Postgres",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{
						Name:    "data-dir",
						Usage:   "Directory containing sales.csv and stock.csv",
						Value:   "./data/seeds/history",
						EnvVars: []string{"SEED_DATA_DIR"},
					},
				},
				Action: seedHistory,
			},
			{
				Name:  "pull",
				Usage: "Download export CSVs from object storage",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "storage-endpoint",
						Usage:    "Object storage endpoint",
						Required: true,
						EnvVars:  []string{"STORAGE_ENDPOINT"},
					},
					&cli.StringFlag{
						Name:    "storage-access-key",
						Usage:   "Object storage access key",
						EnvVars: []string{"STORAGE_ACCESS_KEY"},
					},
					&cli.StringFlag{
						Name:    "storage-secret-key",
						Usage:   "Object storage secret key",
						EnvVars: []string{"STORAGE_SECRET_KEY"},
					},
					&cli.StringFlag{
						Name:    "storage-bucket",
						Usage:   "Object storage bucket",
						Value:   "procura-exports",
						EnvVars: []string{"STORAGE_BUCKET"},
					},
					&cli.StringFlag{
						Name:    "storage-region",
						Usage:   "Object storage region",
						EnvVars: []string{"STORAGE_REGION"},
					},
					&cli.BoolFlag{
						Name:    "storage-use-ssl",
						Usage:   "Use TLS when talking to object storage",
						Value:   true,
						EnvVars: []string{"STORAGE_USE_SSL"},
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Object key prefix to list",
						Value: "exports/",
					},
					&cli.StringFlag{
						Name:  "key",
						Usage: "Download a single object key instead of listing the prefix",
					},
					&cli.StringFlag{
						Name:  "data-dir",
						Usage: "Directory to download into",
						Value: "./data/exports/pulled",
					},
				},
				Action: pullExports,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("seed failed")
	}
}

// referenceFiles are the CSVs the registry understands plus the closure
// calendar consumed by the planner.
var referenceFiles = []string{"moq.csv", "dimensions.csv", "suppliers.csv", "reserves.csv", "closures.csv"}

func seedRegistries(c *cli.Context) error {
	registryDir := c.String("registry-dir")
	if err := os.MkdirAll(registryDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure registry dir %s: %w", registryDir, err)
	}

	if from := c.String("from"); from != "" {
		copied := 0
		for _, name := range referenceFiles {
			src := filepath.Join(from, name)
			if _, err := os.Stat(src); os.IsNotExist(err) {
				continue
			}
			if err := copyFile(src, filepath.Join(registryDir, name)); err != nil {
				return fmt.Errorf("failed to copy %s: %w", name, err)
			}
			copied++
		}
		if copied == 0 {
			return fmt.Errorf("no reference CSVs found in %s", from)
		}
		logger.Log.Info().Int("files", copied).Str("dir", registryDir).Msg("reference data installed")
	}

	reg := registry.New()
	if err := reg.LoadDir(registryDir); err != nil {
		return err
	}
	logger.Log.Info().Int("products", len(reg.ProductIDs())).Msg("reference data validated")
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func seedClosures(c *cli.Context) error {
	registryDir := c.String("registry-dir")
	if err := os.MkdirAll(registryDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure registry dir %s: %w", registryDir, err)
	}

	source := c.String("file")
	file, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("failed to open closure file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	type closure struct {
		date time.Time
		name string
	}
	var closures []closure
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read closure row: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		date, err := time.Parse("2006-01-02", strings.TrimSpace(record[0]))
		if err != nil {
			// Header or junk row.
			continue
		}
		name := ""
		if len(record) > 1 {
			name = strings.TrimSpace(record[1])
		}
		if name == "" {
			name = "closure"
		}
		closures = append(closures, closure{date: date, name: name})
	}
	if len(closures) == 0 {
		return fmt.Errorf("no closure dates found in %s", source)
	}

	sort.Slice(closures, func(i, j int) bool { return closures[i].date.Before(closures[j].date) })

	dest := filepath.Join(registryDir, "closures.csv")
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	writer := csv.NewWriter(out)
	_ = writer.Write([]string{"date", "name"})
	for _, cl := range closures {
		_ = writer.Write([]string{cl.date.Format("2006-01-02"), cl.name})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		return err
	}

	// Round-trip through the calendar to confirm the planner can read it.
	if _, err := calendar.NewCNY().LoadCSV(dest); err != nil {
		return fmt.Errorf("written closure file failed validation: %w", err)
	}

	logger.Log.Info().Int("closures", len(closures)).Str("file", dest).Msg("closure calendar written")
	return nil
}

func seedHistory(c *cli.Context) error {
	db, err := sql.Open("pgx", c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	if err := postgres.EnsureSchemaOn(ctx, db); err != nil {
		return err
	}

	dataDir := c.String("data-dir")
	started := time.Now().UTC()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	salesRows, err := seedSales(ctx, tx, filepath.Join(dataDir, "sales.csv"))
	if err != nil {
		return fmt.Errorf("failed to seed sales history: %w", err)
	}
	stockRows, err := seedStock(ctx, tx, filepath.Join(dataDir, "stock.csv"))
	if err != nil {
		return fmt.Errorf("failed to seed stock history: %w", err)
	}

	// One audit row per seeded file, same shape the ingest service writes.
	finished := time.Now().UTC()
	for _, run := range []struct {
		file string
		rows int
	}{
		{"sales.csv", salesRows},
		{"stock.csv", stockRows},
	} {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ingest_runs (source, file_name, rows_ingested, status, started_at, finished_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			"seed", run.file, run.rows, "ok", started, finished)
		if err != nil {
			return fmt.Errorf("failed to record ingest run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	logger.Log.Info().
		Int("sales_rows", salesRows).
		Int("stock_rows", stockRows).
		Msg("history seeded")
	return nil
}

func seedSales(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	productIdx := columnIndex(header, "product_id")
	dateIdx := columnIndex(header, "date")
	qtyIdx := columnIndex(header, "quantity")
	revenueIdx := columnIndex(header, "revenue")
	if productIdx < 0 || dateIdx < 0 || qtyIdx < 0 {
		return 0, fmt.Errorf("%s must have product_id, date and quantity columns", path)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO sales_history (product_id, sale_date, quantity, revenue)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (product_id, sale_date)
		 DO UPDATE SET quantity = EXCLUDED.quantity, revenue = EXCLUDED.revenue`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare sales insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) <= productIdx || len(record) <= dateIdx || len(record) <= qtyIdx {
			return rows, fmt.Errorf("short row in %s", path)
		}

		day, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return rows, fmt.Errorf("bad date %q in %s", record[dateIdx], path)
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(record[qtyIdx]), 64)
		if err != nil {
			return rows, fmt.Errorf("bad quantity %q in %s", record[qtyIdx], path)
		}
		revenue := 0.0
		if revenueIdx >= 0 && revenueIdx < len(record) && strings.TrimSpace(record[revenueIdx]) != "" {
			revenue, err = strconv.ParseFloat(strings.TrimSpace(record[revenueIdx]), 64)
			if err != nil {
				return rows, fmt.Errorf("bad revenue %q in %s", record[revenueIdx], path)
			}
		}

		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(record[productIdx]), day, quantity, revenue); err != nil {
			return rows, fmt.Errorf("failed to insert sales row: %w", err)
		}
		rows++
	}
	return rows, nil
}

func seedStock(ctx context.Context, tx *sql.Tx, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	productIdx := columnIndex(header, "product_id")
	dateIdx := columnIndex(header, "date")
	qtyIdx := columnIndex(header, "quantity")
	if productIdx < 0 || dateIdx < 0 || qtyIdx < 0 {
		return 0, fmt.Errorf("%s must have product_id, date and quantity columns", path)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stock_history (product_id, stock_date, quantity)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (product_id, stock_date)
		 DO UPDATE SET quantity = EXCLUDED.quantity`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare stock insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read CSV record: %w", err)
		}
		if len(record) <= productIdx || len(record) <= dateIdx || len(record) <= qtyIdx {
			return rows, fmt.Errorf("short row in %s", path)
		}

		day, err := time.Parse("2006-01-02", strings.TrimSpace(record[dateIdx]))
		if err != nil {
			return rows, fmt.Errorf("bad date %q in %s", record[dateIdx], path)
		}
		quantity, err := strconv.ParseFloat(strings.TrimSpace(record[qtyIdx]), 64)
		if err != nil {
			return rows, fmt.Errorf("bad quantity %q in %s", record[qtyIdx], path)
		}

		if _, err := stmt.ExecContext(ctx, strings.TrimSpace(record[productIdx]), day, quantity); err != nil {
			return rows, fmt.Errorf("failed to insert stock row: %w", err)
		}
		rows++
	}
	return rows, nil
}

func columnIndex(header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), column) {
			return i
		}
	}
	return -1
}

func pullExports(c *cli.Context) error {
	client, err := storage.NewMinioClient(storage.Config{
		Endpoint:  c.String("storage-endpoint"),
		AccessKey: c.String("storage-access-key"),
		SecretKey: c.String("storage-secret-key"),
		Bucket:    c.String("storage-bucket"),
		Region:    c.String("storage-region"),
		UseSSL:    c.Bool("storage-use-ssl"),
	})
	if err != nil {
		return err
	}

	destDir := c.String("data-dir")
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("failed to ensure download dir %s: %w", destDir, err)
	}

	ctx := context.Background()
	prefix := strings.TrimSpace(c.String("prefix"))

	var keys []string
	if key := strings.TrimSpace(c.String("key")); key != "" {
		keys = []string{key}
	} else {
		objects, err := client.ListObjects(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to list objects for prefix %s: %w", prefix, err)
		}
		for _, obj := range objects {
			if strings.HasSuffix(strings.ToLower(obj.Key), ".csv") {
				keys = append(keys, obj.Key)
			}
		}
	}
	if len(keys) == 0 {
		return fmt.Errorf("no CSV files found for prefix %s", prefix)
	}

	sort.Strings(keys)
	for _, key := range keys {
		localPath := filepath.Join(destDir, filepath.Base(key))
		if err := client.DownloadObject(ctx, key, localPath); err != nil {
			return err
		}
		logger.Log.Info().Str("key", key).Str("path", localPath).Msg("export downloaded")
	}

	logger.Log.Info().Int("files", len(keys)).Str("dir", destDir).Msg("pull complete")
	return nil
}
