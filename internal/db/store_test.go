package db

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/sghctoma/sst/telemetry/internal/psst"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gosst.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBuiltinMethodsAreSeeded(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gosst.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		cms, err := s.CalibrationMethods(context.Background())
		s.Close()
		if err != nil {
			t.Fatalf("CalibrationMethods failed: %v", err)
		}
		if len(cms) != len(psst.BuiltinMethods()) {
			t.Errorf("got %d methods after opening %d times", len(cms), i+1)
		}
	}
}

func TestCalibrationMethods(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	for _, b := range psst.BuiltinMethods() {
		cm, err := s.CalibrationMethod(ctx, b.Id)
		if err != nil {
			t.Fatalf("CalibrationMethod(%s) failed: %v", b.Name, err)
		}
		if cm.Name != b.Name || cm.Expression != b.Expression || len(cm.Intermediates) != len(b.Intermediates) {
			t.Errorf("stored method %+v differs from %+v", cm, b)
		}
	}

	cm := psst.CalibrationMethod{Name: "offset"}
	cm.Inputs = []string{"zero"}
	cm.Intermediates = psst.Intermediates{{Name: "scale", Expression: "MAX_STROKE / 4096"}}
	cm.Expression = "(sample - zero) * scale"
	if err := s.InsertCalibrationMethod(ctx, &cm); err != nil {
		t.Fatalf("InsertCalibrationMethod failed: %v", err)
	}
	if cm.Id == uuid.Nil {
		t.Fatal("no id was assigned")
	}
	got, err := s.CalibrationMethod(ctx, cm.Id)
	if err != nil {
		t.Fatalf("CalibrationMethod failed: %v", err)
	}
	if got.Expression != cm.Expression || got.Intermediates[0] != cm.Intermediates[0] {
		t.Errorf("stored method = %+v", got)
	}

	bad := psst.CalibrationMethod{Name: "bad"}
	bad.Expression = "sample * unknown"
	var ve *psst.ValidationError
	if err := s.InsertCalibrationMethod(ctx, &bad); !errors.As(err, &ve) {
		t.Errorf("error = %v, expected *psst.ValidationError", err)
	}

	if err := s.DeleteCalibrationMethod(ctx, cm.Id); err != nil {
		t.Fatalf("DeleteCalibrationMethod failed: %v", err)
	}
	if _, err := s.CalibrationMethod(ctx, cm.Id); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, expected ErrNotFound", err)
	}
	if err := s.DeleteCalibrationMethod(ctx, cm.Id); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, expected ErrNotFound", err)
	}
}

func TestSessions(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	session := Session{Name: "morning ride", Timestamp: 1680000000, Description: "wet", Data: []byte{0x81, 0xa1, 0x61, 0x01}}
	id, err := s.InsertSession(ctx, &session)
	if err != nil {
		t.Fatalf("InsertSession failed: %v", err)
	}

	sessions, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions failed: %v", err)
	}
	if len(sessions) != 1 || sessions[0].Id != id || sessions[0].Name != "morning ride" || sessions[0].Data != nil {
		t.Errorf("Sessions = %+v", sessions)
	}

	name, data, err := s.SessionData(ctx, int64(id))
	if err != nil {
		t.Fatalf("SessionData failed: %v", err)
	}
	if name != "morning ride" || string(data) != string(session.Data) {
		t.Errorf("SessionData = %q, %v", name, data)
	}

	if err := s.UpdateSession(ctx, int64(id), "evening ride", "dry"); err != nil {
		t.Fatalf("UpdateSession failed: %v", err)
	}
	got, err := s.Session(ctx, int64(id))
	if err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	if got.Name != "evening ride" || got.Description != "dry" || got.Timestamp != 1680000000 {
		t.Errorf("Session = %+v", got)
	}

	if err := s.DeleteSession(ctx, int64(id)); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := s.Session(ctx, int64(id)); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, expected ErrNotFound", err)
	}
	if _, _, err := s.SessionData(ctx, int64(id)); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, expected ErrNotFound", err)
	}
}

func TestTokens(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	for _, token := range []string{"a", "b", "a"} {
		if err := s.InsertToken(ctx, token); err != nil {
			t.Fatalf("InsertToken failed: %v", err)
		}
	}
	tokens, err := s.Tokens(ctx)
	if err != nil {
		t.Fatalf("Tokens failed: %v", err)
	}
	if len(tokens) != 2 {
		t.Errorf("Tokens = %v", tokens)
	}
}
