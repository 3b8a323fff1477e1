package manager

import (
	"time"

	"modelcore/internal/model"
	"modelcore/pkg/types"
)

// State is the lifecycle state of a model known to the manager.
type State string

const (
	StateUnavailable State = "unavailable"
	StateLoading     State = "loading"
	StateReady       State = "ready"
	StateDraining    State = "draining"
	StateError       State = "error"
)

// entry tracks one model name. model is set only while the model is
// ready or draining.
type entry struct {
	state    State
	model    *model.Model
	repo     types.RepositoryModel
	loadedAt time.Time
	err      string
}
