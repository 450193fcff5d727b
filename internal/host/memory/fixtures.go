package memory

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/errors"
	"github.com/KirkDiggler/auras/internal/scene"
)

// SceneFixture describes one scene of a fixture
type SceneFixture struct {
	ID     string         `yaml:"id"`
	Grid   scene.Grid     `yaml:"grid"`
	Walls  []scene.Wall   `yaml:"walls"`
	Tokens []*scene.Token `yaml:"tokens"`
}

// Fixture is a YAML description of a world. Token actor references may be
// bare actor IDs.
type Fixture struct {
	Combat bool            `yaml:"combat"`
	Actors []*actor.Actor  `yaml:"actors"`
	Items  []*actor.Item   `yaml:"items"`
	Packs  []*Pack         `yaml:"packs"`
	Scenes []*SceneFixture `yaml:"scenes"`
}

// ParseFixture decodes a YAML fixture
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapWithCode(err, errors.CodeInvalidArgument, "failed to parse fixture")
	}
	return &f, nil
}

// LoadFixtureFile reads and decodes a YAML fixture from disk
func LoadFixtureFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fixture %s", path)
	}
	return ParseFixture(data)
}

// Load populates the world from a fixture without emitting events
func (w *World) Load(f *Fixture) error {
	for _, a := range f.Actors {
		if err := validateEffects(a); err != nil {
			return err
		}
		w.AddActor(a)
	}
	for _, item := range f.Items {
		w.AddItem(item)
	}
	for _, p := range f.Packs {
		w.AddPack(p)
	}
	for _, sf := range f.Scenes {
		w.AddScene(NewScene(sf.ID, sf.Grid, sf.Walls...))
		for _, t := range sf.Tokens {
			if err := w.AddToken(sf.ID, t); err != nil {
				return err
			}
		}
	}

	w.mu.Lock()
	w.combat = f.Combat
	w.mu.Unlock()
	return nil
}

func validateEffects(a *actor.Actor) error {
	for _, e := range a.AllEffects() {
		if e.System == nil {
			continue
		}
		if err := e.System.Validate(); err != nil {
			return errors.Wrapf(err, "actor %s effect %s", a.ID, e.ID)
		}
	}
	return nil
}
