package model

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modelcore/internal/status"
)

func TestSearchPathsOrder(t *testing.T) {
	got := SearchPaths("/models/m", 3, "/opt/backends", "tensorflow2")
	want := []string{"/models/m/3", "/models/m", "/opt/backends/tensorflow2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("paths (-want +got):\n%s", diff)
	}
}

func TestResolveBackendLibrary(t *testing.T) {
	root := t.TempDir()
	versionDir := filepath.Join(root, "m", "1")
	modelDir := filepath.Join(root, "m")
	backendDir := filepath.Join(root, "backends", "x")
	touch(t, filepath.Join(versionDir, "custom.so"))
	touch(t, filepath.Join(modelDir, "custom.so"))
	touch(t, filepath.Join(backendDir, LibraryName("x")))
	paths := []string{versionDir, modelDir, backendDir}

	tests := []struct {
		name    string
		runtime string
		wantDir string
		wantLib string
		code    status.Code
	}{
		{"default name from backend directory", "", backendDir, LibraryName("x"), status.Success},
		{"runtime found in version directory first", "custom.so", versionDir, "custom.so", status.Success},
		{"missing runtime", "other.so", "", "", status.InvalidArgument},
		{"missing default library", "", "", "", status.InvalidArgument},
		{"escaping runtime", "../../backends/x/" + LibraryName("x"), "", "", status.InvalidArgument},
	}
	for _, tt := range tests {
		specialized := "x"
		if tt.name == "missing default library" {
			specialized = "y"
		}
		dir, path, lib, err := ResolveBackendLibrary("m", "x", specialized, tt.runtime, paths)
		if status.CodeOf(err) != tt.code {
			t.Fatalf("%s: err = %v", tt.name, err)
		}
		if err != nil {
			if msg := status.Message(err); !strings.Contains(msg, "model 'm'") || !strings.Contains(msg, "'"+versionDir+"'") {
				t.Fatalf("%s: error does not name the model and search paths: %s", tt.name, msg)
			}
			continue
		}
		if dir != tt.wantDir || lib != tt.wantLib || path != filepath.Join(tt.wantDir, tt.wantLib) {
			t.Fatalf("%s: got dir=%s path=%s lib=%s", tt.name, dir, path, lib)
		}
	}
}
