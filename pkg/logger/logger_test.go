package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewAttachesServiceField(t *testing.T) {
	log := New("catalog", LoggingConfig{Level: "debug", Format: "json"})

	var buf bytes.Buffer
	log.Logger.SetOutput(&buf)

	log.WithField("book_id", "b1").Info("Book created")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["service"] != "catalog" {
		t.Fatalf("service = %v", line["service"])
	}
	if line["book_id"] != "b1" {
		t.Fatalf("book_id = %v", line["book_id"])
	}
}

func TestNewFallsBackToInfoLevel(t *testing.T) {
	log := New("catalog", LoggingConfig{Level: "nonsense"})
	if log.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("level = %v, want info", log.Logger.GetLevel())
	}
}
