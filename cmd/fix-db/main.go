package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

// Maintenance tool for operators. Runs direct SQL against the database:
//
//	fix-db -recompute       recompute identity aggregate scores from factors
//	fix-db -expire          expire overdue pending link requests
//	fix-db -force-version N clean a dirty migration state
func main() {
	recompute := flag.Bool("recompute", false, "recompute identity confidence scores from confidence factors")
	expire := flag.Bool("expire", false, "mark overdue pending link requests as expired")
	forceVersion := flag.Int("force-version", -1, "force the schema migration version to clean a dirty state")
	flag.Parse()

	if !*recompute && !*expire && *forceVersion < 0 {
		flag.Usage()
		os.Exit(2)
	}

	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		envOr("DATABASE_HOST", "localhost"),
		envOr("DATABASE_PORT", "5432"),
		envOr("DATABASE_USER", "postgres"),
		envOr("DATABASE_PASSWORD", "postgres"),
		envOr("DATABASE_DBNAME", "identity_graph"),
		envOr("DATABASE_SSLMODE", "disable"),
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	if *forceVersion >= 0 {
		forceMigrationVersion(db, *forceVersion)
	}
	if *expire {
		expireOverdueRequests(db)
	}
	if *recompute {
		recomputeAggregates(db)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func forceMigrationVersion(db *sql.DB, version int) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		log.Fatal(err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Forcing migration version to %d to clean dirty state...\n", version)
	if err := m.Force(version); err != nil {
		log.Fatalf("Failed to force version: %v", err)
	}
	fmt.Println("Migration state cleaned.")
}

func expireOverdueRequests(db *sql.DB) {
	res, err := db.Exec(`
		UPDATE link_requests
		SET status = 'expired', updated_at = NOW()
		WHERE status = 'pending' AND expires_at <= NOW()`)
	if err != nil {
		log.Fatalf("Failed to expire link requests: %v", err)
	}
	rows, _ := res.RowsAffected()
	fmt.Printf("Expired %d overdue link requests.\n", rows)
}

func recomputeAggregates(db *sql.DB) {
	// LEFT JOIN over all identities so one whose factors were all
	// deleted gets its stale score reset to 0 as well.
	res, err := db.Exec(`
		UPDATE identities i
		SET confidence_score = COALESCE(f.avg_value, 0), updated_at = NOW()
		FROM identities i2
		LEFT JOIN (
			SELECT identity_id, AVG(value) AS avg_value
			FROM confidence_factors
			GROUP BY identity_id
		) f ON f.identity_id = i2.id
		WHERE i2.id = i.id
		  AND i.confidence_score IS DISTINCT FROM COALESCE(f.avg_value, 0)`)
	if err != nil {
		log.Fatalf("Failed to recompute aggregates: %v", err)
	}
	rows, _ := res.RowsAffected()
	fmt.Printf("Recomputed confidence scores for %d identities.\n", rows)
}
