package simulator

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultZones(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	zs := DefaultZones(now)
	if len(zs) != 2 {
		t.Fatalf("want 2 zones, got %d", len(zs))
	}
	if zs[0].ID != "z1" || zs[0].CurrentReading.PH != 6.2 {
		t.Fatalf("zone A: %+v", zs[0])
	}
	if zs[1].ID != "z2" || zs[1].CurrentReading.PH != 5.4 || zs[1].CurrentReading.TemperatureC != 22.1 {
		t.Fatalf("zone B: %+v", zs[1])
	}
	if !zs[1].LastSync.Equal(now) {
		t.Fatalf("last sync %v", zs[1].LastSync)
	}
}

func TestLoadZonesAcceptsAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	body := `[
	  {"id":"a","name":"Rack A","crop":"Kale","stage":"Seedling",
	   "currentData":{"pH":"6,1","temp":21.5,"humidity":60,"light":12000,"ec":1.4}},
	  {"id":"b","name":"Rack B","crop_name":"Mint",
	   "current_reading":{"ph":5.9,"temperature_c":23}}
	]`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	zs, err := LoadZones(path, time.Now())
	if err != nil {
		t.Fatalf("LoadZones: %v", err)
	}
	if len(zs) != 2 {
		t.Fatalf("got %d zones", len(zs))
	}
	if zs[0].CropName != "Kale" || zs[0].GrowthStage != "Seedling" || zs[0].CurrentReading.PH != 6.1 {
		t.Fatalf("zone a: %+v", zs[0])
	}
	if zs[1].CropName != "Mint" || zs[1].CurrentReading.TemperatureC != 23 {
		t.Fatalf("zone b: %+v", zs[1])
	}
}

func TestLoadZonesRejectsMissingID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	if err := os.WriteFile(path, []byte(`[{"name":"x"}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadZones(path, time.Now()); err == nil {
		t.Fatal("expected error for zone without id")
	}
}

func TestLoadZonesRejectsOutOfScalePH(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zones.json")
	if err := os.WriteFile(path, []byte(`[{"id":"x","reading":{"ph":15}}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadZones(path, time.Now()); err == nil {
		t.Fatal("expected error for pH 15")
	}
}
