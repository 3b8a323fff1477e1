package modelconfig

import (
	"strings"
	"testing"

	"modelcore/internal/status"
)

func TestValidateModelConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     ModelConfig
		wantErr string
	}{
		{"ok backend", ModelConfig{Name: "m", Backend: "x"}, ""},
		{"ok platform", ModelConfig{Name: "m", Platform: PlatformOnnxRuntime}, ""},
		{"ok both", ModelConfig{Name: "m", Platform: PlatformPyTorch, Backend: BackendPyTorch}, ""},
		{"unknown backend tolerated", ModelConfig{Name: "m", Platform: PlatformPyTorch, Backend: "custom"}, ""},
		{"no name", ModelConfig{Backend: "x"}, "must specify 'name'"},
		{"no backend", ModelConfig{Name: "m"}, "must specify 'platform' or 'backend' for 'm'"},
		{"mismatch", ModelConfig{Name: "m", Platform: PlatformPyTorch, Backend: BackendOnnxRuntime}, "pytorch_libtorch, onnxruntime"},
	}
	for _, c := range cases {
		err := ValidateModelConfig(c.cfg)
		if c.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", c.name, err)
			}
			continue
		}
		if !status.IsInvalidArgument(err) || !strings.Contains(err.Error(), c.wantErr) {
			t.Fatalf("%s: got %v, want invalid argument containing %q", c.name, err, c.wantErr)
		}
	}
}

func TestValidateModelIOConfig(t *testing.T) {
	good := ModelInput{Name: "in", DataType: TypeFP32, Dims: []int64{-1, 3}}
	cases := []struct {
		name    string
		cfg     ModelConfig
		wantErr string
	}{
		{"ok", ModelConfig{Name: "m", Input: []ModelInput{good}, Output: []ModelOutput{{Name: "o", DataType: TypeInt64, Dims: []int64{1}}}}, ""},
		{"input no name", ModelConfig{Name: "m", Input: []ModelInput{{DataType: TypeFP32, Dims: []int64{1}}}}, "model input must specify 'name' for m"},
		{"input invalid type", ModelConfig{Name: "m", Input: []ModelInput{{Name: "i", DataType: TypeInvalid, Dims: []int64{1}}}}, "model input must specify 'data_type' for m"},
		{"input no dims", ModelConfig{Name: "m", Input: []ModelInput{{Name: "i", DataType: TypeFP32}}}, "model input must specify 'dims' for m"},
		{"input zero dim", ModelConfig{Name: "m", Input: []ModelInput{{Name: "i", DataType: TypeFP32, Dims: []int64{0}}}}, "dimension must be integer >= 1"},
		{"input image format", ModelConfig{Name: "m", Input: []ModelInput{{Name: "i", DataType: TypeUint8, Format: FormatNHWC, Dims: []int64{224, 224}}}}, "NHWC/NCHW require 3 dims for m"},
		{"output bad dim", ModelConfig{Name: "m", Output: []ModelOutput{{Name: "o", DataType: TypeFP32, Dims: []int64{-2}}}}, "model output dimension"},
	}
	for _, c := range cases {
		err := ValidateModelIOConfig(c.cfg)
		if c.wantErr == "" {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", c.name, err)
			}
			continue
		}
		if !status.IsInvalidArgument(err) || !strings.Contains(err.Error(), c.wantErr) {
			t.Fatalf("%s: got %v, want invalid argument containing %q", c.name, err, c.wantErr)
		}
	}
}

func TestValidateInstanceGroup(t *testing.T) {
	cases := []struct {
		name      string
		groups    []InstanceGroup
		supported []int
		code      status.Code
		wantErr   string
	}{
		{"ok", []InstanceGroup{{Name: "g", Kind: KindGPU, Count: 1, GPUs: []int32{1}}, {Name: "c", Kind: KindCPU, Count: 1}}, []int{0, 1}, status.Success, ""},
		{"none", nil, []int{0}, status.InvalidArgument, "one or more 'instance group's for m"},
		{"gpu no devices available", []InstanceGroup{{Name: "g", Kind: KindGPU}}, nil, status.InvalidArgument, "no GPUs are available"},
		{"gpu no devices listed", []InstanceGroup{{Name: "g", Kind: KindGPU}}, []int{0}, status.InvalidArgument, "specifies no GPUs"},
		{"gpu unsupported", []InstanceGroup{{Name: "g", Kind: KindGPU, GPUs: []int32{0, 7}}}, []int{0, 1}, status.InvalidArgument, "unsupported gpu id 7. GPUs with at least the minimum required compute capability of 6.5 are: 0, 1"},
		{"cpu with gpus", []InstanceGroup{{Name: "c", Kind: KindCPU, GPUs: []int32{0}}}, []int{0}, status.InvalidArgument, "KIND_CPU but specifies one or more GPUs"},
		{"auto left over", []InstanceGroup{{Name: "a"}}, []int{0}, status.Internal, "unexpected kind KIND_AUTO"},
	}
	for _, c := range cases {
		err := ValidateInstanceGroup(ModelConfig{Name: "m", InstanceGroup: c.groups}, c.supported, 6.5)
		if got := status.CodeOf(err); got != c.code {
			t.Fatalf("%s: code %s, want %s (%v)", c.name, got, c.code, err)
		}
		if c.wantErr != "" && !strings.Contains(err.Error(), c.wantErr) {
			t.Fatalf("%s: %q does not contain %q", c.name, err.Error(), c.wantErr)
		}
	}
}
