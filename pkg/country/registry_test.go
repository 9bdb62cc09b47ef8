package country

import "testing"

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()
	if got := reg.String(); got != "CA,US" {
		t.Errorf("codes = %q, want CA,US", got)
	}

	us, ok := reg.Get("US")
	if !ok {
		t.Fatal("US not registered")
	}
	if us.ArchiveEntry != "US.txt" || us.LocalFile != "US.txt" {
		t.Errorf("US params = %+v", us)
	}
	ca, _ := reg.Get("CA")
	if ca.SourceURL != "https://download.geonames.org/export/zip/CA_full.csv.zip" {
		t.Errorf("CA url = %q", ca.SourceURL)
	}
}

func TestRegistry_CaseInsensitive(t *testing.T) {
	reg := DefaultRegistry()
	for _, code := range []string{"us", "Us", " us ", "u s"} {
		if _, ok := reg.Get(code); !ok {
			t.Errorf("Get(%q) not found", code)
		}
	}
	if _, ok := reg.Get("FR"); ok {
		t.Error("FR should not be registered")
	}
}

func TestRegistry_NormalizesKeys(t *testing.T) {
	reg := NewRegistry(map[string]Params{"gb ": {SourceURL: "u"}})
	if _, ok := reg.Get("GB"); !ok {
		t.Error("lowercase key not normalized")
	}
}

func TestRegistry_Restrict(t *testing.T) {
	reg := DefaultRegistry().Restrict([]string{"ca", "FR"})
	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
	if _, ok := reg.Get("US"); ok {
		t.Error("US should be filtered out")
	}
	if _, ok := reg.Get("CA"); !ok {
		t.Error("CA should remain")
	}

	if DefaultRegistry().Restrict(nil).Len() != 2 {
		t.Error("empty allow list should keep every country")
	}
}

func TestRegistry_DoesNotAliasInput(t *testing.T) {
	in := map[string]Params{"US": {SourceURL: "a"}}
	reg := NewRegistry(in)
	in["US"] = Params{SourceURL: "b"}
	if p, _ := reg.Get("US"); p.SourceURL != "a" {
		t.Errorf("registry mutated through input map: %q", p.SourceURL)
	}
}
