package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pressly/goose/v3"

	"magasin/internal/config"
	"magasin/internal/infrastructure/mysql"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("goose: loading config: %v", err)
	}

	var migrationsDir string
	flag.StringVar(&migrationsDir, "dir", "./migrations", "directory with migration files")
	flag.Parse()

	db, err := mysql.NewConnection(cfg.Database)
	if err != nil {
		log.Fatalf("goose: failed to connect to DB: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Fatalf("goose: failed to close DB: %v", err)
		}
	}()

	if err := goose.SetDialect("mysql"); err != nil {
		log.Fatalf("goose: setting dialect: %v", err)
	}

	arguments := flag.Args()
	if len(arguments) == 0 {
		arguments = []string{"up"}
	}

	command := arguments[0]
	var args []string
	if len(arguments) > 1 {
		args = arguments[1:]
	}

	if err := goose.Run(command, db, migrationsDir, args...); err != nil {
		log.Fatalf("goose %v: %v", command, err)
	}

	fmt.Printf("goose %s success\n", command)
}
