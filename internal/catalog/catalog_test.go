package catalog

import "testing"

func TestLookup(t *testing.T) {
	k, ok := Lookup("workshop")
	if !ok {
		t.Fatal("workshop missing")
	}
	if k.Capacity != 4 || k.HourlyRate != 99 {
		t.Fatalf("workshop = %+v", k)
	}

	k, ok = Lookup("crusher")
	if !ok {
		t.Fatal("crusher missing")
	}
	if k.Capacity != 1 || k.HourlyRate != 20000 {
		t.Fatalf("crusher = %+v", k)
	}

	if _, ok := Lookup("teleporter"); ok {
		t.Fatal("unknown kind resolved")
	}
}

func TestKindsComplete(t *testing.T) {
	want := map[string]bool{
		"workshop": true, "microvac": true, "irradiator": true,
		"extruder": true, "crusher": true, "harvester": true,
	}
	kinds := Kinds()
	if len(kinds) != len(want) {
		t.Fatalf("Kinds returned %d entries, want %d", len(kinds), len(want))
	}
	for _, k := range kinds {
		if !want[k] {
			t.Fatalf("unexpected kind %q", k)
		}
	}
}
