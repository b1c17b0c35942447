// Command migrate manages the order core schema.
//
// Without -dir it applies the migrations compiled into the binary, the same set the
// server runs on start when database.auto_migrate is set.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/garmentflow/backend/internal/infrastructure/config"
	"github.com/garmentflow/backend/internal/infrastructure/logger"
	"github.com/garmentflow/backend/internal/infrastructure/migration"
	"github.com/garmentflow/backend/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

const usage = `usage: migrate [-dir path] [-log-level level] <command> [args]

commands that touch the database:
  up                 apply every pending migration
  down               roll everything back
  step <n>           apply n migrations, negative n rolls back
  goto <version>     migrate to version
  version            print the applied version
  force <version>    mark version applied and clear the dirty flag
  drop -confirm      drop every object in the database

commands on files only:
  create <name> [description]   write an empty up/down pair into -dir (default ./migrations)
  list                          list the known migrations
  check                         fail when an up migration has no rollback

connection settings come from GF_DATABASE_* (see config)`

type options struct {
	dir      string
	logLevel string
	args     []string
}

func main() {
	opts := options{}
	flag.StringVar(&opts.dir, "dir", "", "migrations directory; empty uses the embedded set")
	flag.StringVar(&opts.logLevel, "log-level", "info", "debug, info, warn or error")
	flag.Usage = func() { fmt.Fprintln(flag.CommandLine.Output(), usage) }
	flag.Parse()
	opts.args = flag.Args()

	if len(opts.args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	log := logger.New(logger.Config{Level: opts.logLevel, Format: "console", Output: "stdout"})
	defer func() { _ = log.Sync() }()

	if err := run(opts, log); err != nil {
		log.Error("migrate failed", zap.String("command", opts.args[0]), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
}

func (o options) source() fs.FS {
	if o.dir == "" {
		return migrations.FS
	}
	return os.DirFS(o.dir)
}

func (o options) arg(i int, what string) (string, error) {
	if len(o.args) <= i {
		return "", fmt.Errorf("%s: missing %s", o.args[0], what)
	}
	return o.args[i], nil
}

func run(o options, log *zap.Logger) error {
	switch o.args[0] {
	case "create":
		return create(o, log)
	case "list":
		names, err := migration.ListMigrations(o.source())
		if err != nil {
			return err
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	case "check":
		missing, err := migration.MissingRollbacks(o.source())
		if err != nil {
			return err
		}
		if len(missing) > 0 {
			return fmt.Errorf("migrations without rollback: %v", missing)
		}
		log.Info("Every migration has a rollback")
		return nil
	}

	m, closeDB, err := connect(o, log)
	if err != nil {
		return err
	}
	defer closeDB()
	defer func() { _ = m.Close() }()

	switch cmd := o.args[0]; cmd {
	case "up":
		return m.Up()
	case "down":
		return m.Down()
	case "step":
		raw, err := o.arg(1, "step count")
		if err != nil {
			return err
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("step count %q: %w", raw, err)
		}
		return m.Steps(n)
	case "goto", "force":
		raw, err := o.arg(1, "version")
		if err != nil {
			return err
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("version %q: %w", raw, err)
		}
		if cmd == "goto" {
			return m.GoTo(uint(v))
		}
		return m.Force(int(v))
	case "version":
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Schema version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	case "drop":
		if confirm, _ := o.arg(1, "confirmation"); confirm != "-confirm" && confirm != "--confirm" {
			return errors.New("drop needs -confirm")
		}
		return m.Drop()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func create(o options, log *zap.Logger) error {
	name, err := o.arg(1, "name")
	if err != nil {
		return err
	}
	desc, _ := o.arg(2, "description")
	dir := o.dir
	if dir == "" {
		dir = "migrations"
	}
	mf, err := migration.CreateMigration(dir, name, desc)
	if err != nil {
		return err
	}
	log.Info("Migration created", zap.String("up", mf.UpPath), zap.String("down", mf.DownPath))
	return nil
}

func connect(o options, log *zap.Logger) (*migration.Migrator, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	closeDB := func() { _ = db.Close() }

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("reach database %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	var m *migration.Migrator
	if o.dir == "" {
		m, err = migration.NewFromFS(db, migrations.FS, log)
	} else {
		m, err = migration.New(db, o.dir, log)
	}
	if err != nil {
		closeDB()
		return nil, nil, err
	}
	return m, closeDB, nil
}
