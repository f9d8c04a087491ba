package database

import (
	"database/sql"
	"log"
	"sync"

	"github.com/pkg/errors"

	"github.com/davidenwere/kobo/internal/cache"

	"github.com/davidenwere/kobo/config"
)

// Declare a package-level variable to hold the singleton instance.
// Ensure the instance is not accessible outside the package.
var instance *Datasource
var once sync.Once

type Datasource struct {
	Conn  *sql.DB
	Cache cache.Cache
}

func NewDataSource(configuration *config.Configuration) (IDataSource, error) {
	con, err := GetDBConnection(configuration)
	if err != nil {
		return nil, err
	}
	return con, nil
}

// GetDBConnection provides a global access point to the instance and initializes it if it's not already.
func GetDBConnection(configuration *config.Configuration) (*Datasource, error) {
	var err error
	once.Do(func() {
		con, errConn := ConnectDB(configuration.DataSource.Dns)
		if errConn != nil {
			err = errConn
			return
		}
		cch, errCache := cache.NewCache([]string{configuration.Redis.Dns})
		if errCache != nil {
			log.Printf("cache initialization error, continuing without cache: %v", errCache)
		}
		instance = &Datasource{Conn: con, Cache: cch}
	})
	if err != nil {
		return nil, err
	}
	return instance, nil
}

func ConnectDB(dns string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dns)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	err = db.Ping()
	if err != nil {
		log.Printf("database Connection error ❌: %v", err)
		return nil, errors.Wrap(err, "failed to ping database")
	}
	err = createUserTable(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create users table")
	}
	err = createAccountTable(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create accounts table")
	}
	err = createTransactionTable(db)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create transactions table")
	}
	return db, nil
}

// createUserTable creates a PostgreSQL table for the User struct
func createUserTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE,
			first_name TEXT NOT NULL,
			last_name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			password TEXT NOT NULL,
			roles TEXT[] NOT NULL DEFAULT '{USER}',
			enabled BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createAccountTable creates a PostgreSQL table for the Account struct
func createAccountTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS accounts (
			id SERIAL PRIMARY KEY,
			account_id TEXT NOT NULL UNIQUE,
			number TEXT NOT NULL UNIQUE,
			account_type TEXT NOT NULL,
			balance NUMERIC(20, 4) NOT NULL DEFAULT 0,
			user_id TEXT NOT NULL REFERENCES users(user_id),
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// createTransactionTable creates a PostgreSQL table for the Transaction struct
func createTransactionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id SERIAL PRIMARY KEY,
			transaction_id TEXT NOT NULL UNIQUE,
			reference TEXT NOT NULL UNIQUE,
			source_account_id TEXT REFERENCES accounts(account_id),
			destination_account_id TEXT REFERENCES accounts(account_id),
			amount NUMERIC(20, 4) NOT NULL,
			transaction_type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}
