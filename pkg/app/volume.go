package app

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/deploymenttheory/go-linearcache/internal/device"
	"github.com/deploymenttheory/go-linearcache/internal/interfaces"
	"github.com/deploymenttheory/go-linearcache/internal/storage"
	"github.com/deploymenttheory/go-linearcache/internal/types"
)

// OpenOptions controls how a cache image is opened
type OpenOptions struct {
	ReadOnly bool
	// InMemory loads the image into a RAM disk; writes never reach it.
	InMemory bool
}

// Volume is a cache image registered as the linear cache volume
type Volume struct {
	Device   interfaces.RawDevice
	Storage  *storage.Manager
	Registry *prometheus.Registry

	file *device.FileDevice
}

// MetricSample is one gathered counter or gauge value
type MetricSample struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Value  float64           `json:"value" yaml:"value"`
}

// OpenVolume opens the image of target and registers it for the linear
// cache role.
func OpenVolume(ctx *Context, target ImageTarget, opts OpenOptions) (*Volume, error) {
	v := &Volume{Registry: prometheus.NewRegistry()}

	if opts.InMemory {
		mem, err := device.LoadMemory(target.Path)
		if err != nil {
			return nil, NewError(ErrCodeImageAccess, "cannot load image", err)
		}
		v.Device = mem
	} else {
		f, err := device.OpenFile(target.Path, opts.ReadOnly, ctx.Logger)
		if err != nil {
			return nil, NewError(ErrCodeImageAccess, "cannot open image", err)
		}
		v.Device = f
		v.file = f
	}

	v.Storage = storage.NewManager(
		storage.WithMetrics(storage.NewMetrics(v.Registry)),
		storage.WithLogger(ctx.Logger),
	)
	if err := v.Storage.RegisterVolume(types.RoleLinearCache, v.Device, target.Partition); err != nil {
		_ = v.Close()
		return nil, NewError(ErrCodeVolumeNotFound, "no linear cache volume on "+target.String(), err)
	}

	return v, nil
}

// Close syncs and closes a file backed volume
func (v *Volume) Close() error {
	if v.file == nil {
		return nil
	}
	err := v.file.Close()
	v.file = nil
	return err
}

// Metrics gathers the storage counters of this volume
func (v *Volume) Metrics() ([]MetricSample, error) {
	families, err := v.Registry.Gather()
	if err != nil {
		return nil, errors.Wrap(err, "gather metrics")
	}

	var samples []MetricSample
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			s := MetricSample{Name: mf.GetName()}
			for _, lp := range m.GetLabel() {
				if s.Labels == nil {
					s.Labels = make(map[string]string)
				}
				s.Labels[lp.GetName()] = lp.GetValue()
			}
			switch {
			case m.GetCounter() != nil:
				s.Value = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				s.Value = m.GetGauge().GetValue()
			default:
				continue
			}
			samples = append(samples, s)
		}
	}

	sort.SliceStable(samples, func(i, j int) bool {
		return strings.Compare(samples[i].Name, samples[j].Name) < 0
	})
	return samples, nil
}
