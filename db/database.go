package db

import (
	"database/sql"
	"fmt"
	"log"

	"dropfm/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the database.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	if err := createTracksTable(); err != nil {
		return err
	}
	if err := createTrackLikesTable(); err != nil {
		return err
	}

	log.Println("Database initialization completed.")
	return nil
}

func createTracksTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS tracks (
		id CHAR(36) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL,
		artist_id BIGINT NOT NULL,
		cover_art VARCHAR(767) NOT NULL,
		genre VARCHAR(100),
		tags VARCHAR(500),
		file_url VARCHAR(767) NOT NULL,
		rating INT NOT NULL DEFAULT 0,
		explicit BOOLEAN NOT NULL DEFAULT FALSE,
		is_expired BOOLEAN NOT NULL DEFAULT FALSE,
		expirable BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		INDEX idx_artist_active (artist_id, is_expired),
		INDEX idx_genre_rating (genre, is_expired, rating)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}
	log.Println("Tracks table initialized successfully (or already exists).")
	return nil
}

func createTrackLikesTable() error {
	// The composite primary key is what makes a like a set-membership write:
	// a duplicate (track_id, user_id) insert affects zero rows.
	query := `
	CREATE TABLE IF NOT EXISTS track_likes (
		track_id CHAR(36) NOT NULL,
		user_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (track_id, user_id),
		INDEX idx_user_likes (user_id)
	);
	`
	if _, err := DB.Exec(query); err != nil {
		return fmt.Errorf("failed to create track_likes table: %w", err)
	}
	log.Println("Track likes table initialized successfully (or already exists).")
	return nil
}
