package logger

import "testing"

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"db_password", "hunter2", "project_id", "p1", "client_ip", "10.0.0.1", "dangling"})
	if len(out) != 7 {
		t.Fatalf("len: want=7 got=%d", len(out))
	}
	if out[1] != "[REDACTED]" {
		t.Fatalf("password: want=[REDACTED] got=%v", out[1])
	}
	if out[3] != "p1" {
		t.Fatalf("project_id: want=p1 got=%v", out[3])
	}
	if s, ok := out[5].(string); !ok || len(s) != len("hash:")+12 {
		t.Fatalf("client_ip: want hashed value got=%v", out[5])
	}
	if out[6] != "dangling" {
		t.Fatalf("dangling key: want=dangling got=%v", out[6])
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	l := Nop().With("component", "test")
	l.Info("hello", "k", "v")
	l.Warn("warn")
	l.Sync()
}
