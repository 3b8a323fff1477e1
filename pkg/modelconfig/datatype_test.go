package modelconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"modelcore/internal/status"
)

func TestDataTypeHelpers(t *testing.T) {
	if TypeFP16.ByteSize() != 2 || TypeString.ByteSize() != 0 || TypeInvalid.Valid() {
		t.Fatalf("unexpected datatype info")
	}
	if TypeString.ProtocolString() != "BYTES" || DataTypeFromProtocol("FP32") != TypeFP32 || DataTypeFromProtocol("nope") != TypeInvalid {
		t.Fatalf("protocol mapping broken")
	}
	if ElementCount([]int64{2, 3, 4}) != 24 || ElementCount([]int64{2, -1}) != -1 {
		t.Fatalf("element count broken")
	}
	if ByteSize(TypeFP32, []int64{2, 3}) != 24 || ByteSize(TypeString, []int64{1}) != -1 {
		t.Fatalf("byte size broken")
	}
	if BatchByteSize(4, TypeInt16, []int64{3}) != 24 || BatchByteSize(4, TypeInt16, nil) != 8 {
		t.Fatalf("batch byte size broken")
	}
	if !CompareDimsWithWildcard([]int64{-1, 3}, []int64{5, 3}) || CompareDims([]int64{-1, 3}, []int64{5, 3}) {
		t.Fatalf("dims comparison broken")
	}
	if DimsString([]int64{1, -1}) != "[1,-1]" {
		t.Fatalf("dims string = %s", DimsString([]int64{1, -1}))
	}
}

func TestLoadFileFormats(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.yaml": "name: m\nbackend: x\nmax_batch_size: 4\ninstance_group:\n  - kind: KIND_GPU\n    gpus: [0]\n",
		"b.json": `{"name":"m","backend":"x","max_batch_size":4,"instance_group":[{"kind":"KIND_GPU","gpus":[0]}]}`,
		"c.toml": "name = \"m\"\nbackend = \"x\"\nmax_batch_size = 4\n[[instance_group]]\nkind = \"KIND_GPU\"\ngpus = [0]\n",
	}
	want := ModelConfig{Name: "m", Backend: "x", MaxBatchSize: 4, InstanceGroup: []InstanceGroup{{Kind: KindGPU, GPUs: []int32{0}}}}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
		got, err := LoadFile(p)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s (-want +got):\n%s", name, diff)
		}
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !status.IsNotFound(err) {
		t.Fatalf("missing file: %v", err)
	}
	p := filepath.Join(dir, "config.ini")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(p); !status.IsInvalidArgument(err) {
		t.Fatalf("bad extension: %v", err)
	}
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	if _, ok := FindConfigFile(dir); ok {
		t.Fatalf("empty dir should have no config")
	}
	if err := os.WriteFile(filepath.Join(dir, "config.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("name: m"), 0o644); err != nil {
		t.Fatal(err)
	}
	p, ok := FindConfigFile(dir)
	if !ok || filepath.Base(p) != "config.yaml" {
		t.Fatalf("got %q %v", p, ok)
	}
}
