package config

import (
	"errors"
	"reflect"
	"testing"
)

func TestProfileOps(t *testing.T) {
	base := sampleProfiles()
	p := Profile{Name: "home", ProxyConfig: ProxyConfig{Protocol: ProtocolHTTP, Host: "192.168.1.2", Port: 3128}}

	added, err := Add(base, p)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if len(added) != len(base)+1 || added[len(added)-1].Name != "home" {
		t.Fatalf("Add did not append: %#v", added)
	}
	if got, ok := Find(added, "home"); !ok || got != p {
		t.Fatalf("Find after Add: ok=%v got=%#v", ok, got)
	}

	removed, err := Remove(added, "home")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !reflect.DeepEqual(removed, base) {
		t.Fatalf("add then remove should restore original:\n got=%#v\nwant=%#v", removed, base)
	}
}

func TestRemovePreservesOrder(t *testing.T) {
	base := sampleProfiles()
	out, err := Remove(base, base[1].Name)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	want := []Profile{base[0], base[2]}
	if !reflect.DeepEqual(out, want) {
		t.Fatalf("got %#v want %#v", out, want)
	}
	if !reflect.DeepEqual(base, sampleProfiles()) {
		t.Fatalf("Remove modified its input: %#v", base)
	}
}

func TestUpdateConfig(t *testing.T) {
	base := sampleProfiles()
	cfg := ProxyConfig{Protocol: ProtocolSOCKS5, Host: "10.0.0.9", Port: 1081}

	out, err := UpdateConfig(base, "work", cfg)
	if err != nil {
		t.Fatalf("UpdateConfig: %v", err)
	}
	if out[0].Name != "work" || out[0].ProxyConfig != cfg {
		t.Fatalf("UpdateConfig did not update in place: %#v", out[0])
	}
	if base[0].ProxyConfig == cfg {
		t.Fatalf("UpdateConfig modified its input")
	}

	t.Run("missing name leaves sequence unchanged", func(t *testing.T) {
		got, err := UpdateConfig(base, "nope", cfg)
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if !reflect.DeepEqual(got, sampleProfiles()) {
			t.Fatalf("sequence changed: %#v", got)
		}
	})

	t.Run("invalid config rejected", func(t *testing.T) {
		_, err := UpdateConfig(base, "work", ProxyConfig{Protocol: ProtocolHTTP, Host: "h", Port: 0})
		if !errors.Is(err, ErrInvalidProfile) {
			t.Fatalf("expected ErrInvalidProfile, got %v", err)
		}
	})
}

func TestAddErrors(t *testing.T) {
	base := sampleProfiles()

	if _, err := Add(base, Profile{Name: " work ", ProxyConfig: base[1].ProxyConfig}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := Add(base, Profile{Name: "  ", ProxyConfig: base[1].ProxyConfig}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for blank name, got %v", err)
	}
	if _, err := Add(base, Profile{Name: "x", ProxyConfig: ProxyConfig{Protocol: "ftp", Host: "h", Port: 1}}); !errors.Is(err, ErrInvalidProfile) {
		t.Fatalf("expected ErrInvalidProfile for bad protocol, got %v", err)
	}
}

func TestRename(t *testing.T) {
	base := sampleProfiles()

	out, err := Rename(base, "work", "office")
	if err != nil {
		t.Fatalf("Rename: %v", err)
	}
	if out[0].Name != "office" || out[0].ProxyConfig != base[0].ProxyConfig {
		t.Fatalf("unexpected rename result: %#v", out[0])
	}
	if _, err := Rename(base, "work", "legacy"); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if _, err := Rename(base, "missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := Rename(base, "work", "work"); err != nil {
		t.Fatalf("renaming to the same name should succeed: %v", err)
	}
}

func TestFindIsExactAfterTrim(t *testing.T) {
	base := sampleProfiles()
	if _, ok := Find(base, "  work "); !ok {
		t.Fatalf("expected trimmed lookup to match")
	}
	if _, ok := Find(base, "WORK"); ok {
		t.Fatalf("expected lookup to be case-sensitive")
	}
	if _, ok := Find(base, ""); ok {
		t.Fatalf("expected empty name to miss")
	}
}
