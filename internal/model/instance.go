package model

import (
	"context"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
	"modelcore/pkg/modelconfig"
)

// InstanceState is where an instance is in its lifecycle.
type InstanceState int

const (
	InstanceConstructed InstanceState = iota
	InstanceWarmedUp
	InstanceRunning
	InstanceStopping
	InstanceStopped
)

func (s InstanceState) String() string {
	switch s {
	case InstanceConstructed:
		return "constructed"
	case InstanceWarmedUp:
		return "warmed_up"
	case InstanceRunning:
		return "running"
	case InstanceStopping:
		return "stopping"
	case InstanceStopped:
		return "stopped"
	}
	return "unknown"
}

// Signature identifies an instance across reconfigurations: two instances
// with equal signatures are interchangeable.
type Signature struct {
	deviceID int
	group    modelconfig.InstanceGroup
	hash     uint64
}

// NewSignature returns the signature of an instance of group on deviceID.
func NewSignature(group modelconfig.InstanceGroup, deviceID int) Signature {
	g := group.Clone()
	return Signature{
		deviceID: deviceID,
		group:    g,
		hash:     xxhash.Sum64String(strconv.Itoa(deviceID) + modelconfig.InstanceConfigSignature(g)),
	}
}

func (s Signature) Hash() uint64  { return s.hash }
func (s Signature) DeviceID() int { return s.deviceID }

// Equal reports whether s and o describe the same instance placement.
func (s Signature) Equal(o Signature) bool {
	return s.deviceID == o.deviceID && modelconfig.EquivalentInInstanceConfig(s.group, o.group)
}

// instanceSpec is everything needed to build one instance.
type instanceSpec struct {
	name           string
	sig            Signature
	kind           modelconfig.Kind
	deviceID       int
	hostPolicyName string
	hostPolicy     map[string]string
	group          modelconfig.InstanceGroup
}

// Instance is one execution unit of a Model. Non-passive instances own a
// thread that serves work from the model's scheduler. It satisfies
// backendapi.Instance.
type Instance struct {
	backendapi.StateBox

	model *Model
	spec  instanceSpec
	log   zerolog.Logger

	mu    sync.Mutex
	state InstanceState

	activated    chan struct{}
	activateOnce sync.Once
	cancel       context.CancelFunc
	done         chan struct{}
	stopOnce     sync.Once
	stopErr      error
}

var _ backendapi.Instance = (*Instance)(nil)

func (i *Instance) Name() string            { return i.spec.name }
func (i *Instance) Kind() modelconfig.Kind  { return i.spec.kind }
func (i *Instance) DeviceID() int           { return i.spec.deviceID }
func (i *Instance) HostPolicy() string      { return i.spec.hostPolicyName }
func (i *Instance) Passive() bool           { return i.spec.group.Passive }
func (i *Instance) Model() backendapi.Model { return i.model }
func (i *Instance) Signature() Signature    { return i.spec.sig }
func (i *Instance) Group() string           { return i.spec.group.Name }

// HostPolicySettings returns the host policy settings bound to the
// instance.
func (i *Instance) HostPolicySettings() map[string]string {
	out := make(map[string]string, len(i.spec.hostPolicy))
	for k, v := range i.spec.hostPolicy {
		out[k] = v
	}
	return out
}

func (i *Instance) ProfileNames() []string {
	return append([]string(nil), i.spec.group.Profile...)
}

func (i *Instance) SecondaryDevices() []modelconfig.SecondaryDevice {
	return append([]modelconfig.SecondaryDevice(nil), i.spec.group.SecondaryDevices...)
}

// RateLimiter returns the rate limiter settings of the instance's group.
func (i *Instance) RateLimiter() *modelconfig.RateLimiter {
	if i.spec.group.RateLimiter == nil {
		return nil
	}
	rl := *i.spec.group.RateLimiter
	rl.Resources = append([]modelconfig.RateLimiterResource(nil), rl.Resources...)
	return &rl
}

// LifecycleState reports where the instance is in its lifecycle.
func (i *Instance) LifecycleState() InstanceState {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

func (i *Instance) setState(s InstanceState) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

// newInstance initializes an instance in the backend, warms it up and,
// unless it is passive, starts its thread. The thread waits for activate
// before taking work.
func (m *Model) newInstance(spec instanceSpec) (*Instance, error) {
	inst := &Instance{
		model:     m,
		spec:      spec,
		activated: make(chan struct{}),
		log: m.log.With().Str("instance", spec.name).Str("kind", string(spec.kind)).
			Int("device", spec.deviceID).Logger(),
	}
	if err := m.backend.InstanceInitialize(inst); err != nil {
		return nil, status.Prefix(err, "failed to initialize instance '"+spec.name+"' of model '"+m.Name()+"': ")
	}
	if err := inst.warmup(m.Config().ModelWarmup); err != nil {
		_ = inst.finalize()
		return nil, err
	}
	inst.setState(InstanceWarmedUp)
	if !spec.group.Passive {
		ctx, cancel := context.WithCancel(context.Background())
		inst.cancel = cancel
		inst.done = make(chan struct{})
		go inst.run(ctx)
	}
	inst.log.Debug().Bool("passive", spec.group.Passive).Msg("instance created")
	return inst, nil
}

// warmupRequest is a synthetic request used during warm-up.
type warmupRequest struct {
	id    string
	batch uint32
}

func (r warmupRequest) ID() string        { return r.id }
func (r warmupRequest) BatchSize() uint32 { return r.batch }

func (i *Instance) warmup(samples []modelconfig.ModelWarmup) error {
	for _, s := range samples {
		n := s.Count
		if n == 0 {
			n = 1
		}
		batch := s.BatchSize
		if batch == 0 {
			batch = 1
		}
		for c := uint32(0); c < n; c++ {
			req := warmupRequest{id: "warmup_" + s.Name + "_" + strconv.FormatUint(uint64(c), 10), batch: batch}
			if err := i.execute([]backendapi.Request{req}); err != nil {
				return status.Prefix(err, "failed to warm up instance '"+i.spec.name+"' with sample '"+s.Name+"': ")
			}
		}
		i.log.Debug().Str("sample", s.Name).Uint32("count", n).Msg("warm-up sample done")
	}
	return nil
}

// execute runs reqs on the instance, holding the device lock when the
// backend blocks the whole device.
func (i *Instance) execute(reqs []backendapi.Request) error {
	if l := i.model.deviceLock(i.spec.kind, i.spec.deviceID); l != nil {
		l.Lock()
		defer l.Unlock()
	}
	return i.model.backend.Execute(i, reqs)
}

// activate lets the instance thread start taking work.
func (i *Instance) activate() {
	if i.spec.group.Passive {
		return
	}
	i.activateOnce.Do(func() {
		i.setState(InstanceRunning)
		close(i.activated)
	})
}

// Stop cancels the thread, waits for the work in hand to finish and
// finalizes the instance. Later calls return the first result.
func (i *Instance) Stop() error {
	i.stopOnce.Do(func() {
		i.setState(InstanceStopping)
		if i.cancel != nil {
			i.cancel()
			<-i.done
		}
		i.stopErr = i.finalize()
		i.setState(InstanceStopped)
		i.log.Debug().Msg("instance stopped")
	})
	return i.stopErr
}

func (i *Instance) finalize() error {
	err := i.model.backend.InstanceFinalize(i)
	if err != nil {
		i.log.Error().Err(err).Msg("instance finalize failed")
	}
	return err
}
