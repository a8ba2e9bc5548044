package river_test

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	goriver "github.com/riverqueue/river"

	_ "modernc.org/sqlite"

	riveradapter "github.com/neomorfeo/fleetsignup/internal/adapter/river"
	"github.com/neomorfeo/fleetsignup/internal/domain"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbPath := t.TempDir() + "/river_test.db"
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		t.Fatalf("setting WAL: %v", err)
	}

	return db
}

func setupClient(t *testing.T, db *sql.DB, sweep riveradapter.SweepConfig) *riveradapter.Client {
	t.Helper()

	client, err := riveradapter.Setup(context.Background(), db, sweep)
	if err != nil {
		t.Fatalf("river setup: %v", err)
	}

	return client
}

func startClient(t *testing.T, client *riveradapter.Client) {
	t.Helper()

	if err := client.Start(context.Background()); err != nil {
		t.Fatalf("river start: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Stop(stopCtx); err != nil {
			t.Errorf("river stop: %v", err)
		}
	})
}

func TestPublisher_Publish_EnqueuesJob(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db, riveradapter.SweepConfig{})
	ctx := context.Background()

	// Subscribe to job completions before starting so we don't miss events.
	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	session := domain.NewSession("s-1")

	if err := pub.Publish(ctx, domain.EventAdvance, session); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		if event.Job.Kind != "signup.event" {
			t.Errorf("job kind = %q, want %q", event.Job.Kind, "signup.event")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}

func TestPublisher_Publish_OmitsFormValues(t *testing.T) {
	db := setupTestDB(t)
	client := setupClient(t, db, riveradapter.SweepConfig{})
	ctx := context.Background()

	subscribeChan, subscribeCancel := client.Subscribe(goriver.EventKindJobCompleted)
	defer subscribeCancel()

	startClient(t, client)

	pub := riveradapter.NewPublisher(client)
	session := domain.NewSession("s-42")
	session.State = domain.StateSecurity
	session.SetField(domain.FieldEmail, "jane@x.com")
	session.SetField(domain.FieldPassword, "secret1")

	if err := pub.Publish(ctx, domain.EventRetreat, session); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	select {
	case event := <-subscribeChan:
		args := string(event.Job.EncodedArgs)
		for _, want := range []string{`"event":"retreat"`, `"session_id":"s-42"`, `"state":"security"`, `"step":3`} {
			if !strings.Contains(args, want) {
				t.Errorf("encoded args missing %s, got: %s", want, args)
			}
		}
		for _, secret := range []string{"jane@x.com", "secret1"} {
			if strings.Contains(args, secret) {
				t.Errorf("encoded args leak %q: %s", secret, args)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job completion")
	}
}
