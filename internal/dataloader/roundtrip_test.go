package dataloader

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Runs against a live warehouse, e.g.
// REDSHIFT_TEST_DSN="host=localhost port=5432 user=postgres dbname=postgres sslmode=disable"
func TestRoundTrip(t *testing.T) {
	dsn := os.Getenv("REDSHIFT_TEST_DSN")
	if dsn == "" {
		t.Skip("REDSHIFT_TEST_DSN not set")
	}
	ctx := context.Background()
	table := fmt.Sprintf("roundtrip_%d", time.Now().UnixNano())

	d := &DataLoader{
		Open:   PostgresOpener(dsn),
		Logger: log.NewNopLogger(),
		S3Svc:  &mockS3{objects: map[string]string{table + ".csv": "x,y\n1,2\n3,4\n"}},
	}
	result, err := d.LoadObject(ctx, Target{Bucket: "b", Key: table + ".csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Inserted != 2 {
		t.Fatalf("want 2 rows inserted, got %d", result.Inserted)
	}

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer db.Close()
	defer db.ExecContext(ctx, "DROP TABLE "+pq.QuoteIdentifier(table))

	var got []struct {
		X string `db:"x"`
		Y string `db:"y"`
	}
	if err := db.SelectContext(ctx, &got, "SELECT x, y FROM "+pq.QuoteIdentifier(table)+" ORDER BY x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].X != "1" || got[0].Y != "2" || got[1].X != "3" || got[1].Y != "4" {
		t.Errorf("want [[1 2] [3 4]], got: %+v", got)
	}
}
