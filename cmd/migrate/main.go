package main

import (
	"errors"
	"flag"
	"log"

	"bookameal/internal/env"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	dbPath := flag.String("db", env.GetEnv(env.EnvDatabasePath, "./internal/databases/meals.db"), "path to the database file")
	down := flag.Bool("down", false, "roll back every migration instead of applying them")
	flag.Parse()

	m, err := migrate.New(
		"file://internal/database/migrations",
		"sqlite3://"+*dbPath+"?_foreign_keys=on",
	)
	if err != nil {
		log.Fatal(err)
	}

	if *down {
		err = m.Down()
	} else {
		err = m.Up()
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal(err)
	}
	log.Println("Database migration complete for:", *dbPath)
}

/*
Book-A-Meal API. Backend for caterers publishing daily menus and customers ordering from them.
API Copyright (C) 2025 The Book-A-Meal Authors
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
