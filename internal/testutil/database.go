package testutil

import (
	"database/sql"
	"fmt"
	"testing"

	_ "github.com/go-sql-driver/mysql"
)

// SetupTestDB opens the integration test database. It expects a MySQL
// instance on localhost:3306 with a database named 'magasin_test' and skips
// the test when none is reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	dsn := "root:@tcp(localhost:3306)/magasin_test?parseTime=true"
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties the test tables in FK order and closes the handle.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	if db == nil {
		return
	}

	tables := []string{
		"notifications", "alertes",
		"commande_produits", "commandes",
		"demande_exceptionnelle_produits", "demandes_exceptionnelles",
		"demande_produits", "demandes",
		"produits", "fournisseurs", "categories", "users",
	}
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables creates the schema the tests need.
func SetupTestTables(t *testing.T, db *sql.DB) {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			role VARCHAR(20) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS categories (
			id VARCHAR(36) PRIMARY KEY,
			nom VARCHAR(255) NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS fournisseurs (
			id VARCHAR(36) PRIMARY KEY,
			nom VARCHAR(255) NOT NULL,
			email VARCHAR(255),
			telephone VARCHAR(50),
			adresse VARCHAR(255)
		)`,
		`CREATE TABLE IF NOT EXISTS produits (
			id VARCHAR(36) PRIMARY KEY,
			nom VARCHAR(255) NOT NULL,
			marque VARCHAR(255) NOT NULL,
			quantite INT NOT NULL DEFAULT 0,
			quantite_minimale INT NOT NULL DEFAULT 0,
			statut VARCHAR(20) NOT NULL DEFAULT 'NORMAL',
			categorie_id VARCHAR(36) NOT NULL,
			remarque TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demandes (
			id VARCHAR(36) PRIMARY KEY,
			demandeur_id VARCHAR(36) NOT NULL,
			statut VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			approbateur_id VARCHAR(36),
			approved_at DATETIME,
			raison_rejet TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demande_produits (
			id VARCHAR(36) PRIMARY KEY,
			demande_id VARCHAR(36) NOT NULL,
			produit_id VARCHAR(36) NOT NULL,
			quantite INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demandes_exceptionnelles (
			id VARCHAR(36) PRIMARY KEY,
			demandeur_id VARCHAR(36) NOT NULL,
			statut VARCHAR(20) NOT NULL DEFAULT 'PENDING',
			approbateur_id VARCHAR(36),
			approved_at DATETIME,
			raison_rejet TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS demande_exceptionnelle_produits (
			id VARCHAR(36) PRIMARY KEY,
			demande_id VARCHAR(36) NOT NULL,
			nom VARCHAR(255) NOT NULL,
			marque VARCHAR(255) NOT NULL,
			description TEXT,
			quantite INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS commandes (
			id VARCHAR(36) PRIMARY KEY,
			statut VARCHAR(20) NOT NULL DEFAULT 'UNVALIDATED',
			fournisseur_id VARCHAR(36) NOT NULL,
			demandeur_id VARCHAR(36) NOT NULL,
			validateur_id VARCHAR(36),
			date_prevue DATETIME NOT NULL,
			date_livraison DATETIME,
			facture VARCHAR(255),
			raison_retour TEXT,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS commande_produits (
			id VARCHAR(36) PRIMARY KEY,
			commande_id VARCHAR(36) NOT NULL,
			produit_id VARCHAR(36) NOT NULL,
			quantite INT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alertes (
			id VARCHAR(36) PRIMARY KEY,
			produit_id VARCHAR(36) NOT NULL,
			type_alerte VARCHAR(20) NOT NULL,
			description TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id VARCHAR(36) PRIMARY KEY,
			user_id VARCHAR(36) NOT NULL,
			message VARCHAR(512) NOT NULL,
			lu BOOLEAN NOT NULL DEFAULT FALSE,
			date_envoi DATETIME NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("failed to create test table: %v", err)
		}
	}
}
