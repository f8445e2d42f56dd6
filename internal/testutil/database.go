package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacart/internal/infrastructure/mysql"
)

const defaultTestDSN = "root:@tcp(localhost:3306)/pharmacart_test?parseTime=true&loc=UTC"

// SetupTestDB opens the integration database named by TEST_MYSQL_DSN and skips the
// test when it is not reachable.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		dsn = defaultTestDSN
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("test database not available: %v", err)
	}

	return db
}

// CleanupTestDB empties every table and closes the pool.
func CleanupTestDB(t *testing.T, db *sql.DB) {
	t.Helper()

	if db == nil {
		return
	}

	tables := []string{"OrderItems", "Orders", "Medicines", "Users"}
	for _, table := range tables {
		_, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}

	db.Close()
}

// SetupTestTables applies the production schema.
func SetupTestTables(t *testing.T, db *sql.DB) {
	t.Helper()

	if err := mysql.RunMigrations(context.Background(), db); err != nil {
		t.Fatalf("failed to create tables: %v", err)
	}
}

// SeedUser inserts a user with the given wallet balance and returns its id.
func SeedUser(t *testing.T, db *sql.DB, fullName string, balance decimal.Decimal) int {
	t.Helper()

	email := fmt.Sprintf("%s@example.com", uuid.NewString())
	result, err := db.Exec(
		`INSERT INTO Users (fullname, email, role, walletBalance) VALUES (?, ?, 'user', ?)`,
		fullName, email, balance,
	)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read user id: %v", err)
	}

	return int(id)
}

// SeedMedicine inserts an active medicine and returns its id.
func SeedMedicine(t *testing.T, db *sql.DB, name string, price decimal.Decimal) int {
	t.Helper()

	result, err := db.Exec(
		`INSERT INTO Medicines (name, price, stock, isActive) VALUES (?, ?, 100, 1)`,
		name, price,
	)
	if err != nil {
		t.Fatalf("failed to seed medicine: %v", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		t.Fatalf("failed to read medicine id: %v", err)
	}

	return int(id)
}

// WalletBalance reads a user's balance directly, bypassing the repositories.
func WalletBalance(t *testing.T, db *sql.DB, userID int) decimal.Decimal {
	t.Helper()

	var balance decimal.Decimal
	if err := db.QueryRow(`SELECT walletBalance FROM Users WHERE id = ?`, userID).Scan(&balance); err != nil {
		t.Fatalf("failed to read wallet balance: %v", err)
	}

	return balance
}

// CountOrders returns how many orders a user has.
func CountOrders(t *testing.T, db *sql.DB, userID int) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM Orders WHERE userId = ?`, userID).Scan(&n); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}

	return n
}
