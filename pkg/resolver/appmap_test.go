package resolver

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/devicelab-dev/recognizer/pkg/core"
)

func TestParseAppMap(t *testing.T) {
	m, err := ParseAppMap([]byte(appMapYAML), "test.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := m.Windows(); !reflect.DeepEqual(got, []string{"Blog", "Shop"}) {
		t.Errorf("expected [Blog Shop], got %v", got)
	}
	rs, ok := m.WindowRecognition("SHOP")
	if !ok || rs != "Type=Window;Caption={Shop*}" {
		t.Errorf("unexpected window recognition %q ok=%v", rs, ok)
	}
	rs, ok = m.ComponentRecognition("shop", "SUBMIT")
	if !ok || rs != `Type=HTMLFrame;name=content;\;Type=PushButton;text=Sign in` {
		t.Errorf("unexpected component recognition %q ok=%v", rs, ok)
	}
	if _, ok := m.ComponentRecognition("Shop", "Nope"); ok {
		t.Error("expected unknown component")
	}
	if _, ok := m.WindowRecognition("Nope"); ok {
		t.Error("expected unknown window")
	}
}

func TestParseAppMap_Errors(t *testing.T) {
	tests := map[string]string{
		"bad yaml":          "windows: [",
		"missing recognize": "windows:\n  Shop:\n    components:\n      A: Type=HTMLLink;text=A\n",
	}
	for name, data := range tests {
		_, err := ParseAppMap([]byte(data), "bad.yaml")
		if !errors.Is(err, core.ErrInvalidConfig) {
			t.Errorf("%s: expected invalid config, got %v", name, err)
		}
	}
}

func TestLoadAppMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	if err := os.WriteFile(path, []byte(appMapYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadAppMap(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.WindowRecognition("Blog"); !ok {
		t.Error("expected Blog window")
	}

	if _, err := LoadAppMap(filepath.Join(dir, "missing.yaml")); !errors.Is(err, core.ErrInvalidConfig) {
		t.Errorf("expected invalid config for a missing file, got %v", err)
	}
}

func TestAppMap_LocatorCache(t *testing.T) {
	m := NewAppMap()
	m.AddWindow("Main", "Type=Window;Caption=Main")
	m.AddComponent("Main", "OK", "Type=PushButton;text=OK")

	loc := &core.ElementLocator{Path: "//HTML/BODY/BUTTON", ComponentType: "PushButton", WindowID: "w1"}
	m.SetComponent("Main", "OK", loc)

	got := m.CachedComponent("main", "ok")
	if got == nil || got.Path != loc.Path {
		t.Fatalf("expected cached locator, got %v", got)
	}
	got.Path = "changed"
	if m.CachedComponent("Main", "OK").Path != loc.Path {
		t.Error("mutating a returned locator changed the cache")
	}

	m.SetWindow("Main", &core.ElementLocator{Path: WindowPath, WindowID: "w1"})
	m.SetComponent("Main", "OK", nil)
	if m.CachedComponent("Main", "OK") != nil {
		t.Error("expected nil to clear the entry")
	}

	m.Clear()
	if m.CachedWindow("Main") != nil {
		t.Error("expected Clear to drop window locators")
	}
	if _, ok := m.ComponentRecognition("Main", "OK"); !ok {
		t.Error("Clear must keep recognition strings")
	}
}
