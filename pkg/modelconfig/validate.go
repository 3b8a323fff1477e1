package modelconfig

import (
	"slices"
	"strconv"
	"strings"

	"modelcore/internal/status"
)

// Well-known platform and backend names.
const (
	PlatformQualcomm     = "qualcomm"
	PlatformPyTorch      = "pytorch_libtorch"
	PlatformOnnxRuntime  = "onnxruntime_onnx"
	PlatformTFGraphDef   = "tensorflow_graphdef"
	PlatformTFSavedModel = "tensorflow_savedmodel"
	PlatformTensorRTPlan = "tensorrt_plan"
	BackendQNN           = "qnn"
	BackendPyTorch       = "pytorch"
	BackendOnnxRuntime   = "onnxruntime"
	BackendTensorFlow    = "tensorflow"
	BackendTensorRT      = "tensorrt"
	BackendOpenVINO      = "openvino"
	BackendPython        = "python"
)

const backendTypeUnknown = ""

// backendTypeOfPlatform maps a platform name to the backend family it runs
// on; unknown platforms map to "".
func backendTypeOfPlatform(platform string) string {
	switch platform {
	case PlatformQualcomm:
		return BackendQNN
	case PlatformPyTorch:
		return BackendPyTorch
	case PlatformOnnxRuntime:
		return BackendOnnxRuntime
	}
	return backendTypeUnknown
}

func backendTypeOfBackend(backend string) string {
	switch backend {
	case BackendQNN, BackendPyTorch, BackendOnnxRuntime:
		return backend
	}
	return backendTypeUnknown
}

// ValidateModelConfig checks the model-level fields of cfg.
func ValidateModelConfig(cfg ModelConfig) error {
	if cfg.Name == "" {
		return status.New(status.InvalidArgument, "model configuration must specify 'name'")
	}
	if cfg.Platform == "" && cfg.Backend == "" {
		return status.Newf(status.InvalidArgument, "must specify 'platform' or 'backend' for '%s'", cfg.Name)
	}
	if cfg.Platform != "" && cfg.Backend != "" {
		bt := backendTypeOfBackend(cfg.Backend)
		if bt != backendTypeUnknown && bt != backendTypeOfPlatform(cfg.Platform) {
			return status.Newf(status.InvalidArgument,
				"unexpected 'platform' and 'backend' for '%s', got: %s, %s", cfg.Name, cfg.Platform, cfg.Backend)
		}
	}
	return nil
}

// ValidateModelIOConfig checks every input and output of cfg.
func ValidateModelIOConfig(cfg ModelConfig) error {
	for _, in := range cfg.Input {
		if err := validateInput(in); err != nil {
			return status.Suffix(err, " for "+cfg.Name)
		}
	}
	for _, out := range cfg.Output {
		if err := validateIOShape(out.Name, out.DataType, out.Dims, "model output "); err != nil {
			return status.Suffix(err, " for "+cfg.Name)
		}
	}
	return nil
}

func validateInput(in ModelInput) error {
	if err := validateIOShape(in.Name, in.DataType, in.Dims, "model input "); err != nil {
		return err
	}
	if (in.Format == FormatNHWC || in.Format == FormatNCHW) && len(in.Dims) != 3 {
		return status.New(status.InvalidArgument, "model input NHWC/NCHW require 3 dims")
	}
	return nil
}

func validateIOShape(name string, dt DataType, dims []int64, prefix string) error {
	if name == "" {
		return status.New(status.InvalidArgument, prefix+"must specify 'name'")
	}
	if dt == "" || dt == TypeInvalid {
		return status.New(status.InvalidArgument, prefix+"must specify 'data_type'")
	}
	if len(dims) == 0 {
		return status.New(status.InvalidArgument, prefix+"must specify 'dims'")
	}
	for _, d := range dims {
		if d < 1 && d != WildcardDim {
			return status.New(status.InvalidArgument,
				prefix+"dimension must be integer >= 1, or -1 to indicate a variable-size dimension")
		}
	}
	return nil
}

// ValidateInstanceGroup checks normalized instance groups against the
// supported device ids. It must run after NormalizeInstanceGroup.
func ValidateInstanceGroup(cfg ModelConfig, supported []int, minComputeCapability float64) error {
	if len(cfg.InstanceGroup) == 0 {
		return status.Newf(status.InvalidArgument, "must specify one or more 'instance group's for %s", cfg.Name)
	}
	for _, g := range cfg.InstanceGroup {
		switch g.Kind {
		case KindGPU:
			if len(g.GPUs) == 0 {
				if len(supported) == 0 {
					return status.Newf(status.InvalidArgument,
						"instance group %s of model %s has kind KIND_GPU but no GPUs are available", g.Name, cfg.Name)
				}
				return status.Newf(status.InvalidArgument,
					"instance group %s of model %s has kind KIND_GPU but specifies no GPUs", g.Name, cfg.Name)
			}
			for _, id := range g.GPUs {
				if !slices.Contains(supported, int(id)) {
					return status.Newf(status.InvalidArgument,
						"instance group %s of model %s specifies invalid or unsupported gpu id %d. "+
							"GPUs with at least the minimum required compute capability of %s are: %s",
						g.Name, cfg.Name, id, strconv.FormatFloat(minComputeCapability, 'f', -1, 64), joinInts(supported))
				}
			}
		case KindCPU:
			if len(g.GPUs) > 0 {
				return status.Newf(status.InvalidArgument,
					"instance group %s of model %s has kind KIND_CPU but specifies one or more GPUs", g.Name, cfg.Name)
			}
		default:
			return status.Newf(status.Internal,
				"instance group %s of model %s has unexpected kind %s", g.Name, cfg.Name, g.Kind.Resolved())
		}
	}
	return nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
