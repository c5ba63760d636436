// backend/database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/gewnthar/faresight/backend/config"
	_ "github.com/go-sql-driver/mysql" // MariaDB driver
)

var DB *sql.DB

// dbtx is satisfied by both *sql.DB and *sql.Tx so store functions can run
// either standalone or inside the collector's state-lock transaction.
type dbtx interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// InitDB initializes the database connection pool.
func InitDB(cfg config.DatabaseConfig) error {
	var err error
	// DSN: username:password@protocol(address)/dbname?param=value
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
	)

	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool settings
	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	// Ping the database to verify connection
	err = DB.Ping()
	if err != nil {
		DB.Close() // Close the connection if ping fails
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database!")
	return nil
}

// CloseDB closes the database connection pool.
// Typically called on application shutdown.
func CloseDB() {
	if DB != nil {
		DB.Close()
		log.Println("Database connection closed.")
	}
}

// schema is applied idempotently at startup so a fresh environment can run
// end to end. routes_master carries a separate AUTO_INCREMENT seq column as
// the stable insertion-order key the rotation relies on; the uuid primary
// key alone would not order routes by discovery time.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS routes_master (
		id CHAR(36) NOT NULL PRIMARY KEY,
		seq BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		origin VARCHAR(3) NOT NULL,
		destination VARCHAR(3) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		discovered_from_hub VARCHAR(3) NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_routes_seq (seq),
		UNIQUE KEY uq_origin_destination (origin, destination),
		KEY idx_routes_active (active)
	)`,
	`CREATE TABLE IF NOT EXISTS flight_offers (
		id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		offer_hash CHAR(64) NOT NULL,
		origin VARCHAR(3) NOT NULL,
		destination VARCHAR(3) NOT NULL,
		departure_date DATETIME NOT NULL,
		return_date DATETIME NULL,
		price DOUBLE NOT NULL,
		currency VARCHAR(3) NOT NULL,
		airline VARCHAR(100) NOT NULL,
		departure_time DATETIME NOT NULL,
		arrival_time DATETIME NOT NULL,
		stops INT NOT NULL DEFAULT 0,
		duration VARCHAR(20) NOT NULL,
		distance_km DOUBLE NULL,
		number_of_bookable_seats INT NULL,
		cabin_class VARCHAR(50) NULL,
		fare_basis VARCHAR(50) NULL,
		provider_name VARCHAR(30) NOT NULL,
		scraped_at DATETIME NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_offer_hash (offer_hash),
		KEY idx_origin_destination_dep (origin, destination, departure_date),
		KEY idx_route_provider_price (origin, destination, provider_name, price)
	)`,
	`CREATE TABLE IF NOT EXISTS collector_state (
		id INT NOT NULL AUTO_INCREMENT PRIMARY KEY,
		last_route_offset INT NOT NULL DEFAULT 0,
		api_calls_today INT NOT NULL DEFAULT 0,
		last_run_date DATE NOT NULL DEFAULT (CURRENT_DATE),
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	)`,
}

// InitSchema creates the collector tables if they do not exist yet.
func InitSchema() error {
	if DB == nil {
		return fmt.Errorf("database connection is not initialized")
	}
	for _, stmt := range schema {
		if _, err := DB.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
