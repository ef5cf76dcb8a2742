package mongo

import (
	"math"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"torrentstream/bridge/internal/domain"
)

func TestToDocFromDocRoundtrip(t *testing.T) {
	started := time.Date(2026, 2, 19, 10, 0, 0, 0, time.UTC)
	cycle := domain.Cycle{
		Seq:       7,
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Torrents:  2,
		Report:    "🎬 a..: 50.0%\n🎬 b..: 10.0%\n",
		Command:   domain.CommandShutdown,
	}

	got := fromDoc(toDoc(cycle))
	if got != cycle {
		t.Fatalf("roundtrip mismatch:\n got  %+v\n want %+v", got, cycle)
	}
}

func TestToDocTruncatesDurationToMillis(t *testing.T) {
	doc := toDoc(domain.Cycle{Duration: 1234567 * time.Microsecond})
	if doc.DurationMs != 1234 {
		t.Fatalf("DurationMs = %d, want 1234", doc.DurationMs)
	}
}

func TestToDocStoresUTC(t *testing.T) {
	loc := time.FixedZone("MSK", 3*3600)
	doc := toDoc(domain.Cycle{StartedAt: time.Date(2026, 1, 1, 3, 0, 0, 0, loc)})
	if doc.StartedAt.Location() != time.UTC || doc.StartedAt.Hour() != 0 {
		t.Fatalf("expected UTC midnight, got %v", doc.StartedAt)
	}
}

func TestCycleDocOmitsEmptyFields(t *testing.T) {
	raw, err := bson.Marshal(toDoc(domain.Cycle{Seq: 1}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"report", "command", "error"} {
		if _, ok := m[key]; ok {
			t.Errorf("expected %q to be omitted", key)
		}
	}
}

func TestIndexModels(t *testing.T) {
	models := indexModels(0)
	if len(models) != 2 {
		t.Fatalf("expected 2 indexes, got %d", len(models))
	}
	if models[0].Options != nil {
		t.Fatal("no retention should mean no TTL")
	}

	models = indexModels(7 * 24 * time.Hour)
	ttl := models[0].Options
	if ttl == nil || ttl.ExpireAfterSeconds == nil {
		t.Fatal("expected TTL index on startedAt")
	}
	if *ttl.ExpireAfterSeconds != 7*24*3600 {
		t.Fatalf("ExpireAfterSeconds = %d", *ttl.ExpireAfterSeconds)
	}
}

func TestExpireAfterSecondsRoundsUp(t *testing.T) {
	tests := []struct {
		retention time.Duration
		want      int32
	}{
		{500 * time.Millisecond, 1},
		{time.Second, 1},
		{1500 * time.Millisecond, 2},
		{time.Hour, 3600},
		{time.Duration(1<<62) * time.Nanosecond, math.MaxInt32},
	}
	for _, tt := range tests {
		if got := expireAfterSeconds(tt.retention); got != tt.want {
			t.Errorf("expireAfterSeconds(%s) = %d, want %d", tt.retention, got, tt.want)
		}
	}
}
