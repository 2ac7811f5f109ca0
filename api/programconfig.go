package api

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/program"
)

// NodeConfig is the on-disk shape of one action-tree node (spec.md §6):
// a discriminated union keyed by Type, resolved against a Database's
// registries rather than carrying live values itself. Only the fields
// relevant to Type are read; the rest are ignored.
type NodeConfig struct {
	Type string `yaml:"type" json:"type"`
	Name string `yaml:"name" json:"name"`

	// "ref": an already-registered action, looked up by Name.
	// sequence/concurrency/select: composed from Children.
	Children []NodeConfig `yaml:"children" json:"children"`

	// ifelse
	Cond string      `yaml:"cond" json:"cond"`
	Then *NodeConfig `yaml:"then" json:"then"`
	Else *NodeConfig `yaml:"else" json:"else"`

	// switch
	Discriminator string                `yaml:"discriminator" json:"discriminator"`
	Cases         map[string]NodeConfig `yaml:"cases" json:"cases"`
	Default       *NodeConfig           `yaml:"default" json:"default"`

	// invoke
	Invocable string `yaml:"invocable" json:"invocable"`

	// trigger / sync
	Event string `yaml:"event" json:"event"`

	// catch
	Child     *NodeConfig `yaml:"child" json:"child"`
	Filter    string      `yaml:"filter" json:"filter"`
	Handler   string      `yaml:"handler" json:"handler"`
	Recovers  bool        `yaml:"recovers" json:"recovers"`

	// local_graph
	Nodes []GraphNodeConfig `yaml:"nodes" json:"nodes"`
}

// GraphNodeConfig is one LocalGraph node: a NodeConfig plus the names of
// the nodes it depends on (spec.md §4.7's "edges").
type GraphNodeConfig struct {
	NodeConfig `yaml:",inline"`
	DependsOn  []string `yaml:"depends_on" json:"depends_on"`
}

// LoadProgramConfig reads a NodeConfig tree from path (YAML or JSON,
// dispatched by extension, matching LoadConfig's convention).
func LoadProgramConfig(path string) (NodeConfig, error) {
	var cfg NodeConfig

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("api: reading program config %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("api: parsing yaml program config %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("api: parsing json program config %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("api: unrecognized program config extension %q for %s", ext, path)
	}
	return cfg, nil
}

// BuildAction turns a NodeConfig tree into a live orchestration.Action,
// resolving every name it references — actions, invocables, conditions,
// discriminators — against db (spec.md §6's config loader). An
// unrecognized Type, or a name that fails to resolve, fails with
// orchestration.ErrUnknownTag naming the offending tag, never a panic.
func BuildAction(cfg NodeConfig, db *program.Database) (orchestration.Action, error) {
	switch cfg.Type {
	case "ref":
		action, ok := db.LookupActionByName(cfg.Name)
		if !ok {
			return nil, fmt.Errorf("%w: action %q", orchestration.ErrUnknownTag, cfg.Name)
		}
		return action, nil

	case "sequence":
		children, err := buildChildren(cfg.Children, db)
		if err != nil {
			return nil, err
		}
		return orchestration.NewSequence(cfg.Name, children...), nil

	case "concurrency":
		children, err := buildChildren(cfg.Children, db)
		if err != nil {
			return nil, err
		}
		return orchestration.NewConcurrency(cfg.Name, children...), nil

	case "select":
		children, err := buildChildren(cfg.Children, db)
		if err != nil {
			return nil, err
		}
		return orchestration.NewSelect(cfg.Name, children...), nil

	case "ifelse":
		cond, ok := db.LookupConditionByName(cfg.Cond)
		if !ok {
			return nil, fmt.Errorf("%w: condition %q", orchestration.ErrUnknownTag, cfg.Cond)
		}
		then, err := buildOptionalChild(cfg.Then, db)
		if err != nil {
			return nil, err
		}
		els, err := buildOptionalChild(cfg.Else, db)
		if err != nil {
			return nil, err
		}
		return orchestration.NewIfElse(cfg.Name, cond, then, els), nil

	case "switch":
		disc, ok := db.LookupDiscriminatorByName(cfg.Discriminator)
		if !ok {
			return nil, fmt.Errorf("%w: discriminator %q", orchestration.ErrUnknownTag, cfg.Discriminator)
		}
		sw := orchestration.NewSwitch(cfg.Name, disc)
		for key, caseCfg := range cfg.Cases {
			k, err := strconv.ParseUint(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("api: switch %q: case key %q: %w", cfg.Name, key, err)
			}
			caseAction, err := BuildAction(caseCfg, db)
			if err != nil {
				return nil, err
			}
			sw.AddCase(k, caseAction)
		}
		if cfg.Default != nil {
			def, err := BuildAction(*cfg.Default, db)
			if err != nil {
				return nil, err
			}
			sw.SetDefault(def)
		}
		return sw, nil

	case "invoke":
		inv, ok := db.LookupInvocableByName(cfg.Invocable)
		if !ok {
			return nil, fmt.Errorf("%w: invocable %q", orchestration.ErrUnknownTag, cfg.Invocable)
		}
		return orchestration.NewInvoke(cfg.Name, inv), nil

	case "trigger":
		return orchestration.NewTrigger(cfg.Name, db.Events(), cfg.Event), nil

	case "sync":
		return orchestration.NewSync(cfg.Name, db.Events(), cfg.Event), nil

	case "catch":
		if cfg.Child == nil {
			return nil, fmt.Errorf("api: catch %q: missing child", cfg.Name)
		}
		child, err := BuildAction(*cfg.Child, db)
		if err != nil {
			return nil, err
		}
		matcher, err := buildMatcher(cfg.Filter)
		if err != nil {
			return nil, err
		}
		handler, err := buildHandler(cfg, db)
		if err != nil {
			return nil, err
		}
		return orchestration.NewCatch(cfg.Name, child, matcher, handler), nil

	case "local_graph":
		graph := orchestration.NewLocalGraph(cfg.Name)
		for _, n := range cfg.Nodes {
			node, err := BuildAction(n.NodeConfig, db)
			if err != nil {
				return nil, err
			}
			deps := make([]orchestration.Name, len(n.DependsOn))
			copy(deps, n.DependsOn)
			graph.AddNode(node, deps...)
		}
		if err := graph.Build(); err != nil {
			return nil, err
		}
		return graph, nil

	default:
		return nil, fmt.Errorf("%w: node type %q", orchestration.ErrUnknownTag, cfg.Type)
	}
}

func buildChildren(cfgs []NodeConfig, db *program.Database) ([]orchestration.Action, error) {
	children := make([]orchestration.Action, len(cfgs))
	for i, c := range cfgs {
		child, err := BuildAction(c, db)
		if err != nil {
			return nil, err
		}
		children[i] = child
	}
	return children, nil
}

func buildOptionalChild(cfg *NodeConfig, db *program.Database) (orchestration.Action, error) {
	if cfg == nil {
		return nil, nil
	}
	return BuildAction(*cfg, db)
}

// buildMatcher resolves a Catch filter name to an ErrorMatcher. An empty
// filter, or "any", matches every error; any other name fails with
// ErrUnknownTag, since only "any" is recognized from config — a design
// that needs MatchSentinel composes Catch directly instead.
func buildMatcher(filter string) (orchestration.ErrorMatcher, error) {
	switch filter {
	case "", "any":
		return orchestration.MatchAny, nil
	default:
		return nil, fmt.Errorf("%w: catch filter %q (only \"any\" is loadable from config)", orchestration.ErrUnknownTag, filter)
	}
}

func buildHandler(cfg NodeConfig, db *program.Database) (*orchestration.CatchHandler, error) {
	if cfg.Handler == "" {
		return nil, nil
	}
	inv, ok := db.LookupInvocableByName(cfg.Handler)
	if !ok {
		return nil, fmt.Errorf("%w: catch handler invocable %q", orchestration.ErrUnknownTag, cfg.Handler)
	}
	fn := func(ctx context.Context, _ error) error { return inv.Call(ctx) }
	if cfg.Recovers {
		return orchestration.RecoverableHandler(cfg.Handler, fn), nil
	}
	return orchestration.NonRecoverableHandler(cfg.Handler, fn), nil
}
