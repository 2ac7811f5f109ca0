// Package api implements the deployment-facing surface of spec.md §8:
// DesignConfigurator composes a program.Database at design time,
// DeploymentConfigurator turns a config file into a running kyron.Runtime,
// and Run ties the two together.
package api

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EngineConfig describes one kyron Engine's build parameters, the
// deployment-time knobs spec.md §4.4 leaves to configuration: worker
// counts, priority, affinity, dedicated workers, and whether an I/O
// event loop backs this engine.
type EngineConfig struct {
	ID               string                `yaml:"id" json:"id"`
	AsyncWorkers     int                   `yaml:"async_workers" json:"async_workers"`
	TaskQueueSize    int                   `yaml:"task_queue_size" json:"task_queue_size"`
	Priority         int                   `yaml:"priority" json:"priority"`
	Affinity         []uint32              `yaml:"affinity" json:"affinity"`
	IODriver         bool                  `yaml:"io_driver" json:"io_driver"`
	DedicatedWorkers []DedicatedWorkerSpec `yaml:"dedicated_workers" json:"dedicated_workers"`
}

// DedicatedWorkerSpec mirrors kyron.DedicatedWorkerSpec in config-file form.
type DedicatedWorkerSpec struct {
	ID       string   `yaml:"id" json:"id"`
	Priority int      `yaml:"priority" json:"priority"`
	Affinity []uint32 `yaml:"affinity" json:"affinity"`
}

// InvocableBinding assigns a registered invocable tag to a worker at
// deployment time (spec.md §4.8: "Deployment binds ... each invocable to
// a worker"). An empty WorkerID routes to EngineID's async pool instead
// of a specific dedicated worker.
type InvocableBinding struct {
	Name     string `yaml:"name" json:"name"`
	EngineID string `yaml:"engine" json:"engine"`
	WorkerID string `yaml:"worker" json:"worker"`
}

// EventBinding assigns a registered event tag to a local or global
// transport at deployment time. Global bindings need a live
// eventbus.Transport, which isn't a file-serializable value — a
// deployment that uses global events wires those through
// program.Database.BindGlobalEvent directly instead of this config
// section.
type EventBinding struct {
	Name string `yaml:"name" json:"name"`
	Kind string `yaml:"kind" json:"kind"` // "local" (only kind this loader can bind)
}

// DeploymentConfig is the on-disk shape of a deployment (spec.md §6: YAML
// or JSON, selected by file extension). It describes the Runtime
// topology the design is deployed onto, plus which registered invocable
// and event tags bind to which concrete worker or transport.
type DeploymentConfig struct {
	Engines          []EngineConfig     `yaml:"engines" json:"engines"`
	DefaultEngine    string             `yaml:"default_engine" json:"default_engine"`
	ShutdownDeadline string             `yaml:"shutdown_deadline" json:"shutdown_deadline"`
	Invocables       []InvocableBinding `yaml:"invocables" json:"invocables"`
	Events           []EventBinding     `yaml:"events" json:"events"`
}

// ShutdownDuration parses ShutdownDeadline, defaulting to 5s if unset or
// unparseable rather than failing deployment over a cosmetic field.
func (c DeploymentConfig) ShutdownDuration() time.Duration {
	if c.ShutdownDeadline == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(c.ShutdownDeadline)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// LoadConfig reads a DeploymentConfig from path, dispatching on its
// extension (.yaml/.yml or .json). An unrecognized extension is an
// error: guessing a format silently is worse than failing loudly at
// deployment time.
func LoadConfig(path string) (DeploymentConfig, error) {
	var cfg DeploymentConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("api: reading config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("api: parsing yaml config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("api: parsing json config %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("api: unrecognized config extension %q for %s", ext, path)
	}
	return cfg, nil
}
