package types

// ModelsResponse wraps the models returned by GET /v2/models.
type ModelsResponse struct {
	// Models found in the repository, loaded or not.
	Models []ModelStatus `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model 'resnet50' is not loaded
	Error string `json:"error" example:"model 'resnet50' is not loaded"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// InstanceStatus describes one execution instance of a loaded model.
type InstanceStatus struct {
	// example: resnet50_0_gpu0
	Name string `json:"name" example:"resnet50_0_gpu0"`
	// Instance group the instance belongs to.
	// example: resnet50
	Group string `json:"group" example:"resnet50"`
	// example: KIND_GPU
	Kind string `json:"kind" example:"KIND_GPU"`
	// example: 0
	DeviceID int `json:"device_id" example:"0"`
	// example: gpu_0
	HostPolicy string `json:"host_policy" example:"gpu_0"`
	Passive    bool   `json:"passive,omitempty"`
	// Lifecycle state (warmed_up, running, stopping, stopped).
	// example: running
	State string `json:"state" example:"running"`
}

// ModelStatus describes one model known to the server.
type ModelStatus struct {
	// example: resnet50
	Name string `json:"name" example:"resnet50"`
	// Lifecycle state: unavailable, loading, ready, draining or error.
	// example: ready
	State string `json:"state" example:"ready"`
	// example: 1
	Version int64 `json:"version,omitempty" example:"1"`
	// example: onnxruntime
	Backend string `json:"backend,omitempty" example:"onnxruntime"`
	// Backend library serving the model.
	// example: /opt/modelcore/backends/onnxruntime/libtriton_onnxruntime.so
	Library string `json:"library,omitempty"`
	// Instance set generation; bumps on every instance-group change.
	// example: 2
	Generation uint64 `json:"generation,omitempty" example:"2"`
	// Requests queued or executing.
	// example: 0
	Inflight  int              `json:"inflight" example:"0"`
	Instances []InstanceStatus `json:"instances,omitempty"`
	// Last load or reload failure.
	Error string `json:"error,omitempty"`
	// Time the current model was loaded (unix seconds).
	// example: 1700000000
	LoadedAt int64 `json:"loaded_at_unix,omitempty" example:"1700000000"`
}

// BackendStatus describes one loaded backend library.
type BackendStatus struct {
	// example: onnxruntime
	Name string `json:"name" example:"onnxruntime"`
	// example: /opt/modelcore/backends/onnxruntime
	Directory string `json:"directory"`
	// example: /opt/modelcore/backends/onnxruntime/libtriton_onnxruntime.so
	LibraryPath string `json:"library_path"`
	// Configuration document handed to the backend.
	// example: {"cmdline":{"default-max-batch-size":"4"}}
	Config string `json:"config"`
	// example: initialized
	State string `json:"state" example:"initialized"`
	// Models holding the backend.
	// example: 2
	References int `json:"references" example:"2"`
	// example: BLOCKING
	ExecutionPolicy         string `json:"execution_policy" example:"BLOCKING"`
	PreferredInstanceGroups int    `json:"preferred_instance_groups"`
	ParallelInstanceLoading bool   `json:"parallel_instance_loading"`
}

// BackendsResponse is returned by GET /v2/backends.
type BackendsResponse struct {
	Backends []BackendStatus `json:"backends"`
}

// OperationStatus describes an asynchronous reload.
type OperationStatus struct {
	// example: 5f0c5a4e-3a5b-4bc1-a1c2-8d3f1d8e9f10
	ID string `json:"operation_id"`
	// example: resnet50
	Model string `json:"model"`
	// pending, running, done or failed.
	// example: done
	State string `json:"state" example:"done"`
	Error string `json:"error,omitempty"`
}

// StatusResponse is a summary of the whole server.
type StatusResponse struct {
	Models []ModelStatus `json:"models"`
	// example: 3
	LoadedCount int `json:"loaded_count" example:"3"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// example: 4
	ReloadsTotal uint64 `json:"reloads_total" example:"4"`
	// example: 1
	UnloadsTotal uint64 `json:"unloads_total" example:"1"`
	LastError    string `json:"last_error,omitempty"`
}
