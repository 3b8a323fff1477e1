package registry

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
}

func TestLoadDirFindsModelsAndVersions(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "resnet/1", "resnet/10", "resnet/2", "resnet/notes", "bert", ".cache/1")
	if err := os.WriteFile(filepath.Join(dir, "resnet", "config.yaml"), []byte("name: resnet\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "README.md"), []byte(""), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %+v", models)
	}
	byName := map[string]int{}
	for i, m := range models {
		byName[m.Name] = i
	}
	resnet := models[byName["resnet"]]
	if diff := cmp.Diff([]int64{1, 2, 10}, resnet.Versions); diff != "" {
		t.Fatalf("versions (-want +got):\n%s", diff)
	}
	if resnet.Latest != 10 || resnet.ConfigFile != filepath.Join(dir, "resnet", "config.yaml") {
		t.Fatalf("resnet = %+v", resnet)
	}
	bert := models[byName["bert"]]
	if bert.Latest != DefaultVersion || bert.ConfigFile != "" {
		t.Fatalf("bert = %+v", bert)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	mkdirs(t, dir, "m/3")
	m, ok, err := Find(dir, "m")
	if err != nil || !ok || m.Latest != 3 || m.Path != filepath.Join(dir, "m") {
		t.Fatalf("find = %+v %v %v", m, ok, err)
	}
	if _, ok, err := Find(dir, "missing"); ok || err != nil {
		t.Fatalf("missing model found: %v %v", ok, err)
	}
	if _, _, err := Find(filepath.Join(dir, "nope"), "m"); err == nil {
		t.Fatalf("expected error for missing repository")
	}
}

func TestLoadDirExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir on this platform: %v", err)
	}
	hTmp, err := os.MkdirTemp(home, "modelcore-registry-*")
	if err != nil {
		t.Skipf("cannot create temp under home: %v", err)
	}
	defer os.RemoveAll(hTmp)
	mkdirs(t, hTmp, "x/1")
	var tildePath string
	if runtime.GOOS == "windows" {
		tildePath = filepath.Join("~", filepath.Base(hTmp))
	} else {
		tildePath = "~/" + filepath.Base(hTmp)
	}
	models, err := LoadDir(tildePath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(models) != 1 || models[0].Name != "x" {
		t.Fatalf("unexpected models: %+v", models)
	}
}
