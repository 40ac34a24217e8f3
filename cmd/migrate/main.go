package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/db"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/migrate"
)

const serviceName = "migrate"

type options struct {
	dir     string
	name    string
	version string
}

// offline commands never open a database connection.
var offline = map[string]func(context.Context, options) error{
	"create": func(_ context.Context, o options) error {
		if strings.TrimSpace(o.name) == "" {
			return errors.New("-name is required for create")
		}
		path, err := migrate.CreateSQLMigration(o.dir, o.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	},
	"validate": func(_ context.Context, o options) error {
		if err := migrate.ValidateDir(o.dir); err != nil {
			return err
		}
		fmt.Println("migrations valid:", o.dir)
		return nil
	},
}

// goose commands run the SQL migrations against postgres.
var goose = map[string]func(context.Context, *sql.DB, options) error{
	"up":     gooseRun("up"),
	"down":   gooseRun("down"),
	"status": gooseRun("status"),
	"version": func(ctx context.Context, conn *sql.DB, o options) error {
		if o.version == "" {
			return errors.New("-version is required for version")
		}
		return migrate.MigrateToVersion(ctx, conn, o.dir, o.version)
	},
}

func gooseRun(command string) func(context.Context, *sql.DB, options) error {
	return func(ctx context.Context, conn *sql.DB, o options) error {
		return migrate.Run(ctx, conn, o.dir, command)
	}
}

func main() {
	_ = godotenv.Load()

	var opts options
	cmd := flag.String("cmd", "up", "one of: "+strings.Join(commandNames(), "|"))
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name for create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":       cfg.App.Env,
		"cmd":       *cmd,
		"dir":       opts.dir,
		"db_driver": cfg.DB.Driver,
	})

	if err := run(ctx, logg, cfg, *cmd, opts); err != nil {
		logg.Error(ctx, "migrate failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate finished")
}

func run(ctx context.Context, logg *logger.Logger, cfg *config.Config, cmd string, opts options) error {
	if fn, ok := offline[cmd]; ok {
		return fn(ctx, opts)
	}
	gooseFn, isGoose := goose[cmd]
	if !isGoose && cmd != "auto" {
		return fmt.Errorf("unknown -cmd %q", cmd)
	}

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer dbClient.Close()

	// mysql and sqlite carry no SQL migrations; their schema comes from the models
	if cmd == "auto" || !migrate.UsesGoose(dbClient.Driver()) {
		if cmd != "auto" && cmd != "up" {
			return fmt.Errorf("-cmd=%s needs postgres; use -cmd=auto on %s", cmd, dbClient.Driver())
		}
		return migrate.AutoMigrate(ctx, dbClient.DB())
	}

	conn, err := dbClient.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	return gooseFn(ctx, conn, opts)
}

func commandNames() []string {
	names := []string{"auto"}
	for name := range offline {
		names = append(names, name)
	}
	for name := range goose {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
