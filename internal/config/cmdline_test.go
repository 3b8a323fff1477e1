package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolveBackendConfigs(t *testing.T) {
	m := CmdlineConfigMap{}
	m.Add("", "b", "global")
	m.Add("", "a", "1")
	m.Add("x", "b", "specific")
	m.Add("y", "c", "other")
	got := ResolveBackendConfigs(m, "x")
	want := CmdlineConfig{{Key: "a", Value: "1"}, {Key: "b", Value: "specific"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resolved (-want +got):\n%s", diff)
	}
}

func TestSetBackendConfigDefaults(t *testing.T) {
	got := SetBackendConfigDefaults(CmdlineConfig{{Key: "a", Value: "1"}})
	want := CmdlineConfig{{Key: "a", Value: "1"}, {Key: KeyDefaultMaxBatchSize, Value: "4"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("defaults (-want +got):\n%s", diff)
	}
	kept := SetBackendConfigDefaults(CmdlineConfig{{Key: KeyDefaultMaxBatchSize, Value: "16"}})
	if len(kept) != 1 || kept[0].Value != "16" {
		t.Fatalf("explicit setting overridden: %v", kept)
	}
}

func TestGlobalSettings(t *testing.T) {
	m := CmdlineConfigMap{}
	if GlobalBackendsDirectory(m) != DefaultBackendDirectory {
		t.Fatalf("default dir not applied")
	}
	if mcc, err := MinComputeCapability(m); err != nil || mcc != 0 {
		t.Fatalf("mcc = %v %v", mcc, err)
	}
	if acc, err := AutoCompleteConfig(m); err != nil || acc {
		t.Fatalf("acc = %v %v", acc, err)
	}
	m.Add("", KeyMinComputeCapability, "6.1")
	m.Add("", KeyAutoCompleteConfig, "on")
	if mcc, err := MinComputeCapability(m); err != nil || mcc != 6.1 {
		t.Fatalf("mcc = %v %v", mcc, err)
	}
	if acc, err := AutoCompleteConfig(m); err != nil || !acc {
		t.Fatalf("acc = %v %v", acc, err)
	}
	m.Add("", KeyMinComputeCapability, "fast")
	if _, err := MinComputeCapability(m); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSpecializeBackendName(t *testing.T) {
	m := CmdlineConfigMap{}
	if n, _ := SpecializeBackendName(m, "onnxruntime"); n != "onnxruntime" {
		t.Fatalf("got %s", n)
	}
	if n, _ := SpecializeBackendName(m, "tensorflow"); n != "tensorflow2" {
		t.Fatalf("got %s", n)
	}
	m.Add("tensorflow", KeyVersion, "1")
	if n, _ := SpecializeBackendName(m, "tensorflow"); n != "tensorflow1" {
		t.Fatalf("got %s", n)
	}
	m.Add("tensorflow", KeyVersion, "3")
	if _, err := SpecializeBackendName(m, "tensorflow"); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestParseSetting(t *testing.T) {
	cases := []struct {
		in                  string
		backend, key, value string
		wantErr             bool
	}{
		{"onnxruntime,threads=4", "onnxruntime", "threads", "4", false},
		{"backend-directory=/b", "", "backend-directory", "/b", false},
		{"x,k=a=b", "x", "k", "a=b", false},
		{"nokey", "", "", "", true},
		{"x,=1", "", "", "", true},
	}
	for _, c := range cases {
		b, k, v, err := ParseSetting(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("%q: err=%v", c.in, err)
		}
		if b != c.backend || k != c.key || v != c.value {
			t.Fatalf("%q: got %q %q %q", c.in, b, k, v)
		}
	}
}

func TestModelLoadGPUFraction(t *testing.T) {
	m := CmdlineConfigMap{}
	if _, ok, err := ModelLoadGPUFraction(m, 0); ok || err != nil {
		t.Fatalf("expected no limit")
	}
	m.Add("", "model-load-gpu-limit-1", "0.5")
	if f, ok, err := ModelLoadGPUFraction(m, 1); !ok || err != nil || f != 0.5 {
		t.Fatalf("got %v %v %v", f, ok, err)
	}
}

func TestDefaultCPUInstanceCounts(t *testing.T) {
	c := DefaultCPUInstanceCounts()
	c["tensorflow"] = 9
	if DefaultCPUInstanceCounts()["tensorflow"] != 2 {
		t.Fatalf("defaults should not be shared")
	}
}
