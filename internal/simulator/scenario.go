// Package simulator replays a YAML scenario against an in-memory world and
// checks the derived effects each actor ends up with.
package simulator

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/host/memory"
	"github.com/KirkDiggler/auras/internal/scene"
)

// Action names a scenario step
type Action string

const (
	ActionMove    Action = "move"
	ActionPath    Action = "path"
	ActionStop    Action = "stop"
	ActionHide    Action = "hide"
	ActionReveal  Action = "reveal"
	ActionDisable Action = "disable"
	ActionEnable  Action = "enable"
	ActionDelete  Action = "delete"
	ActionCombat  Action = "combat"
	ActionPeace   Action = "peace"
)

// Scenario is a world plus the steps played against it
type Scenario struct {
	Name  string         `yaml:"name"`
	World memory.Fixture `yaml:"world"`
	Steps []*Step        `yaml:"steps"`
}

// Step is one host mutation followed by optional expectations
type Step struct {
	Action Action `yaml:"action"`
	// User defaults to the simulator's user
	User   string        `yaml:"user"`
	Scene  string        `yaml:"scene"`
	Token  string        `yaml:"token"`
	To     scene.Point   `yaml:"to"`
	Path   []scene.Point `yaml:"path"`
	Effect string        `yaml:"effect"`
	// Expect maps actor UUIDs to the names of the derived effects they should
	// carry after the step, in any order
	Expect map[string][]string `yaml:"expect"`
}

// ParseScenario decodes and validates a YAML scenario
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse scenario")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return nil, errors.Wrapf(err, "step %d", i+1)
		}
	}
	return &s, nil
}

// LoadScenarioFile reads a scenario from disk
func LoadScenarioFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read scenario %s", path)
	}
	return ParseScenario(data)
}

func (s *Step) validate() error {
	switch s.Action {
	case ActionMove, ActionStop, ActionHide, ActionReveal:
		if s.Scene == "" || s.Token == "" {
			return errors.Validationf("%s needs scene and token", s.Action)
		}
	case ActionPath:
		if s.Scene == "" || s.Token == "" || len(s.Path) == 0 {
			return errors.Validationf("path needs scene, token and at least one waypoint")
		}
	case ActionDisable, ActionEnable, ActionDelete:
		if s.Effect == "" {
			return errors.Validationf("%s needs an effect uuid", s.Action)
		}
	case ActionCombat, ActionPeace:
		if s.Scene == "" {
			return errors.Validationf("%s needs a scene", s.Action)
		}
	default:
		return errors.Validationf("unknown action %q", s.Action)
	}
	return nil
}
