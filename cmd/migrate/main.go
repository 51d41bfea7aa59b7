package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"

	"clinic-scheduler/internal/configs"
	"clinic-scheduler/migrations"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

var (
	configPath = flag.String("config", "", "Config file path")
	down       = flag.Bool("down", false, "Revert all migrations instead of applying them")
)

func main() {
	flag.Parse()
	if *configPath == "" {
		log.Fatal("no config file path was given")
	}
	config := configs.MustLoad(*configPath)

	db, err := sql.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		log.Fatalf("could not open the database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()
	if err = db.Ping(); err != nil {
		log.Fatalf("database is not reachable: %v", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatalf("could not create the database driver: %v", err)
	}
	srcDriver, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatalf("could not read the embedded migrations: %v", err)
	}
	migrator, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		log.Fatalf("could not create the migrator: %v", err)
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if *down {
		if err = migrator.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			log.Fatalf("could not revert the migrations: %v", err)
		}
		fmt.Println("migrations reverted")
		return
	}

	if err = migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("could not apply the migrations: %v", err)
	}
	fmt.Println("migrations applied")
}
