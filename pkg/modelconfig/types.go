// Package modelconfig holds the model configuration schema served by the
// core along with its validation, instance-group normalization and
// equivalence helpers. Configurations are plain structs so they can be
// decoded from YAML, JSON or TOML model files.
package modelconfig

// Kind is the device kind of an instance group.
type Kind string

const (
	KindAuto Kind = "KIND_AUTO"
	KindGPU  Kind = "KIND_GPU"
	KindCPU  Kind = "KIND_CPU"
)

// Resolved returns k with the empty value treated as KindAuto.
func (k Kind) Resolved() Kind {
	if k == "" {
		return KindAuto
	}
	return k
}

// Format is the declared layout of an image-like input.
type Format string

const (
	FormatNone Format = "FORMAT_NONE"
	FormatNHWC Format = "FORMAT_NHWC"
	FormatNCHW Format = "FORMAT_NCHW"
)

// ModelConfig is the configuration of one served model.
type ModelConfig struct {
	Name                 string              `json:"name" yaml:"name" toml:"name"`
	Platform             string              `json:"platform,omitempty" yaml:"platform,omitempty" toml:"platform,omitempty"`
	Backend              string              `json:"backend,omitempty" yaml:"backend,omitempty" toml:"backend,omitempty"`
	Runtime              string              `json:"runtime,omitempty" yaml:"runtime,omitempty" toml:"runtime,omitempty"`
	MaxBatchSize         int32               `json:"max_batch_size,omitempty" yaml:"max_batch_size,omitempty" toml:"max_batch_size,omitempty"`
	DefaultModelFilename string              `json:"default_model_filename,omitempty" yaml:"default_model_filename,omitempty" toml:"default_model_filename,omitempty"`
	Input                []ModelInput        `json:"input,omitempty" yaml:"input,omitempty" toml:"input,omitempty"`
	Output               []ModelOutput       `json:"output,omitempty" yaml:"output,omitempty" toml:"output,omitempty"`
	InstanceGroup        []InstanceGroup     `json:"instance_group,omitempty" yaml:"instance_group,omitempty" toml:"instance_group,omitempty"`
	Parameters           map[string]string   `json:"parameters,omitempty" yaml:"parameters,omitempty" toml:"parameters,omitempty"`
	ModelWarmup          []ModelWarmup       `json:"model_warmup,omitempty" yaml:"model_warmup,omitempty" toml:"model_warmup,omitempty"`
	EnsembleScheduling   *EnsembleScheduling `json:"ensemble_scheduling,omitempty" yaml:"ensemble_scheduling,omitempty" toml:"ensemble_scheduling,omitempty"`
}

// ModelInput describes one input tensor.
type ModelInput struct {
	Name     string   `json:"name" yaml:"name" toml:"name"`
	DataType DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	Format   Format   `json:"format,omitempty" yaml:"format,omitempty" toml:"format,omitempty"`
	Dims     []int64  `json:"dims" yaml:"dims" toml:"dims"`
	Optional bool     `json:"optional,omitempty" yaml:"optional,omitempty" toml:"optional,omitempty"`
}

// ModelOutput describes one output tensor.
type ModelOutput struct {
	Name          string   `json:"name" yaml:"name" toml:"name"`
	DataType      DataType `json:"data_type" yaml:"data_type" toml:"data_type"`
	Dims          []int64  `json:"dims" yaml:"dims" toml:"dims"`
	LabelFilename string   `json:"label_filename,omitempty" yaml:"label_filename,omitempty" toml:"label_filename,omitempty"`
}

// InstanceGroup describes how many execution instances of a model to create
// and where to place them.
type InstanceGroup struct {
	Name             string            `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Kind             Kind              `json:"kind,omitempty" yaml:"kind,omitempty" toml:"kind,omitempty"`
	Count            int32             `json:"count,omitempty" yaml:"count,omitempty" toml:"count,omitempty"`
	GPUs             []int32           `json:"gpus,omitempty" yaml:"gpus,omitempty" toml:"gpus,omitempty"`
	SecondaryDevices []SecondaryDevice `json:"secondary_devices,omitempty" yaml:"secondary_devices,omitempty" toml:"secondary_devices,omitempty"`
	Profile          []string          `json:"profile,omitempty" yaml:"profile,omitempty" toml:"profile,omitempty"`
	Passive          bool              `json:"passive,omitempty" yaml:"passive,omitempty" toml:"passive,omitempty"`
	HostPolicy       string            `json:"host_policy,omitempty" yaml:"host_policy,omitempty" toml:"host_policy,omitempty"`
	RateLimiter      *RateLimiter      `json:"rate_limiter,omitempty" yaml:"rate_limiter,omitempty" toml:"rate_limiter,omitempty"`
}

// SecondaryDevice is an additional device an instance may use.
type SecondaryDevice struct {
	Kind     string `json:"kind" yaml:"kind" toml:"kind"`
	DeviceID int64  `json:"device_id" yaml:"device_id" toml:"device_id"`
}

// RateLimiter holds the resources and priority an instance needs before it
// may execute.
type RateLimiter struct {
	Resources []RateLimiterResource `json:"resources,omitempty" yaml:"resources,omitempty" toml:"resources,omitempty"`
	Priority  uint32                `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority,omitempty"`
}

// RateLimiterResource is one named resource requirement.
type RateLimiterResource struct {
	Name   string `json:"name" yaml:"name" toml:"name"`
	Global bool   `json:"global,omitempty" yaml:"global,omitempty" toml:"global,omitempty"`
	Count  uint32 `json:"count" yaml:"count" toml:"count"`
}

// ModelWarmup is a synthetic request sent to each instance before it serves.
type ModelWarmup struct {
	Name      string `json:"name" yaml:"name" toml:"name"`
	BatchSize uint32 `json:"batch_size,omitempty" yaml:"batch_size,omitempty" toml:"batch_size,omitempty"`
	Count     uint32 `json:"count,omitempty" yaml:"count,omitempty" toml:"count,omitempty"`
}

// EnsembleScheduling marks a model as a pipeline of other models. Instance
// groups do not apply to ensembles.
type EnsembleScheduling struct {
	Step []EnsembleStep `json:"step" yaml:"step" toml:"step"`
}

// EnsembleStep is one model invocation inside an ensemble.
type EnsembleStep struct {
	ModelName    string `json:"model_name" yaml:"model_name" toml:"model_name"`
	ModelVersion int64  `json:"model_version" yaml:"model_version" toml:"model_version"`
}

// Clone returns a deep copy of c.
func (c ModelConfig) Clone() ModelConfig {
	out := c
	out.Input = make([]ModelInput, len(c.Input))
	for i, in := range c.Input {
		in.Dims = append([]int64(nil), in.Dims...)
		out.Input[i] = in
	}
	out.Output = make([]ModelOutput, len(c.Output))
	for i, o := range c.Output {
		o.Dims = append([]int64(nil), o.Dims...)
		out.Output[i] = o
	}
	if c.InstanceGroup != nil {
		out.InstanceGroup = make([]InstanceGroup, len(c.InstanceGroup))
		for i, g := range c.InstanceGroup {
			out.InstanceGroup[i] = g.Clone()
		}
	}
	if c.Parameters != nil {
		out.Parameters = make(map[string]string, len(c.Parameters))
		for k, v := range c.Parameters {
			out.Parameters[k] = v
		}
	}
	out.ModelWarmup = append([]ModelWarmup(nil), c.ModelWarmup...)
	if c.EnsembleScheduling != nil {
		es := EnsembleScheduling{Step: append([]EnsembleStep(nil), c.EnsembleScheduling.Step...)}
		out.EnsembleScheduling = &es
	}
	return out
}

// Clone returns a deep copy of g.
func (g InstanceGroup) Clone() InstanceGroup {
	out := g
	out.GPUs = append([]int32(nil), g.GPUs...)
	out.SecondaryDevices = append([]SecondaryDevice(nil), g.SecondaryDevices...)
	out.Profile = append([]string(nil), g.Profile...)
	if g.RateLimiter != nil {
		rl := RateLimiter{
			Resources: append([]RateLimiterResource(nil), g.RateLimiter.Resources...),
			Priority:  g.RateLimiter.Priority,
		}
		out.RateLimiter = &rl
	}
	return out
}
