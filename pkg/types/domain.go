package types

// RepositoryModel is a model directory found in the model repository.
type RepositoryModel struct {
	// Model name; the directory name.
	// example: resnet50
	Name string `json:"name" example:"resnet50"`
	// Absolute path of the model directory.
	// example: /srv/models/resnet50
	Path string `json:"path" example:"/srv/models/resnet50"`
	// Configuration file inside the model directory, if any.
	// example: /srv/models/resnet50/config.yaml
	ConfigFile string `json:"config_file,omitempty" example:"/srv/models/resnet50/config.yaml"`
	// Numeric version directories, ascending.
	Versions []int64 `json:"versions,omitempty"`
	// Version served when the model is loaded.
	// example: 3
	Latest int64 `json:"latest_version" example:"3"`
}
