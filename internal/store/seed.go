package store

import (
	"context"
	"database/sql"
	"fmt"
)

type seedBook struct {
	id         int64
	name       string
	author     string
	priceCents int64
	image      string
	genreID    int64
}

var seedGenres = []struct {
	id   int64
	name string
}{
	{1, "Fiction"},
	{2, "Science"},
	{3, "History"},
	{4, "Programming"},
}

var seedBooks = []seedBook{
	{1, "Cien años de soledad", "Gabriel García Márquez", 5990000, "/img/cien-anos.jpg", 1},
	{2, "El amor en los tiempos del cólera", "Gabriel García Márquez", 4850000, "/img/amor-colera.jpg", 1},
	{3, "A Brief History of Time", "Stephen Hawking", 6200000, "/img/brief-history.jpg", 2},
	{4, "Sapiens", "Yuval Noah Harari", 7490000, "/img/sapiens.jpg", 3},
	{5, "The Go Programming Language", "Alan Donovan, Brian Kernighan", 15900000, "/img/gopl.jpg", 4},
	{6, "Cosmos", "Carl Sagan", 5500000, "/img/cosmos.jpg", 2},
}

// Seed loads a small catalog for local runs. Rows that already exist are
// left untouched so it is safe to call on every start.
func Seed(ctx context.Context, db *sql.DB, driver string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	genreStmt := Rebind(driver, `INSERT INTO genres(id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`)
	for _, g := range seedGenres {
		if _, err := tx.ExecContext(ctx, genreStmt, g.id, g.name); err != nil {
			return fmt.Errorf("seed genre %d: %w", g.id, err)
		}
	}

	bookStmt := Rebind(driver, `
		INSERT INTO books(id, name, author, price_cents, image, genre_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`)
	for _, b := range seedBooks {
		if _, err := tx.ExecContext(ctx, bookStmt, b.id, b.name, b.author, b.priceCents, b.image, b.genreID); err != nil {
			return fmt.Errorf("seed book %d: %w", b.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit: %w", err)
	}
	return nil
}
