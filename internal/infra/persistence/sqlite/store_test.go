package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"reefcore/pkg/domain"
)

func TestSnapshotPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reefcore.db")

	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	var event domain.OutplantingEvent
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		var txErr error
		event, txErr = tx.CreateOutplantingEvent(domain.OutplantingEvent{
			OwnerID: "u1",
			Rows:    []domain.PlantedRow{{Tag: "AC101", Quantity: 10}},
		})
		if txErr != nil {
			return txErr
		}
		_, txErr = tx.CreateMonitoringSubmission(domain.MonitoringSubmission{
			OwnerID: "u1",
			EventID: event.ID,
			Rows: []domain.MonitoringRow{{
				Survived: domain.NumberField(7),
				Aux:      map[string]domain.FieldValue{"tag": domain.StringField("AC101")},
			}},
		})
		return txErr
	}); err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()

	got, ok := reopened.GetOutplantingEvent(event.ID)
	if !ok {
		t.Fatalf("expected event to survive reopen")
	}
	if got.Rows[0].Tag != "AC101" || got.Rows[0].Quantity != 10 {
		t.Fatalf("unexpected restored rows: %+v", got.Rows)
	}
	subs := reopened.ListMonitoringSubmissions(domain.Scope{Unrestricted: true})
	if len(subs) != 1 {
		t.Fatalf("expected 1 restored submission, got %d", len(subs))
	}
	if n, ok := subs[0].Rows[0].Survived.AsCount(); !ok || n != 7 {
		t.Fatalf("field value lost in round trip: %+v", subs[0].Rows[0].Survived)
	}
	if key, ok := subs[0].Rows[0].Aux["tag"].AsString(); !ok || key != "AC101" {
		t.Fatalf("aux cell lost in round trip: %+v", subs[0].Rows[0].Aux)
	}
}

func TestFailedTransactionNotPersisted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reefcore.db")
	store, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if _, err := store.RunInTransaction(context.Background(), func(tx domain.Transaction) error {
		if _, err := tx.CreateUser(domain.User{Name: "Dana"}); err != nil {
			return err
		}
		return context.Canceled
	}); err == nil {
		t.Fatalf("expected transaction error")
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path, nil)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	if got := reopened.ListUsers(); len(got) != 0 {
		t.Fatalf("failed transaction must not persist, got %d users", len(got))
	}
}

func TestDefaultPath(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "nested", "dir", "state.db"), nil)
	if err != nil {
		t.Fatalf("expected parent directories created: %v", err)
	}
	if store.Path() == "" {
		t.Fatalf("expected path reported")
	}
	_ = store.Close()
}
