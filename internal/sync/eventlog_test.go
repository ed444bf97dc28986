package syncx

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/mind-engage/mindengage-iq/internal/db"
)

func TestAppendAndSince(t *testing.T) {
	ctx := context.Background()
	dsn := "file:" + filepath.Join(t.TempDir(), "events.db")
	dbh, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer dbh.Close()

	repo := NewEventRepo(dbh)
	for i := 0; i < 3; i++ {
		if err := repo.Append(ctx, Event{Type: "AttemptCompleted", Key: fmt.Sprintf("a%d", i), DataJSON: "{}"}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.Since(ctx, 0, 0)
	if err != nil {
		t.Fatalf("since: %v", err)
	}
	if len(all) != 3 || all[0].Key != "a0" || all[0].SiteID != "local" {
		t.Fatalf("events = %+v", all)
	}

	rest, _ := repo.Since(ctx, all[0].Seq, 1)
	if len(rest) != 1 || rest[0].Key != "a1" {
		t.Fatalf("page = %+v", rest)
	}
}
