// uuid generates document IDs and composes the dotted document UUIDs used as
// weak references between effects, actors and tokens.
package uuid

//go:generate mockgen -destination=mocks/mock_generator.go -package=mocks -source=uuid.go

import (
	"strings"

	"github.com/google/uuid"
)

const idLength = 16

// Generator is an interface for generating document IDs
type Generator interface {
	New() string
}

// GoogleUUIDGenerator implements the Generator interface using Google's UUID package
type GoogleUUIDGenerator struct{}

// New generates a 16 character document ID
func (g *GoogleUUIDGenerator) New() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")[:idLength]
}

// NewGoogleUUIDGenerator creates a new GoogleUUIDGenerator
func NewGoogleUUIDGenerator() *GoogleUUIDGenerator {
	return &GoogleUUIDGenerator{}
}

// Actor returns the UUID of a world actor.
func Actor(id string) string {
	return "Actor." + id
}

// Item returns the UUID of an item embedded in the given parent.
func Item(parentUUID, id string) string {
	return parentUUID + ".Item." + id
}

// Effect returns the UUID of an active effect embedded in the given parent.
func Effect(parentUUID, id string) string {
	return parentUUID + ".ActiveEffect." + id
}

// Parent strips the last embedded collection segment, e.g.
// "Actor.a.Item.i.ActiveEffect.e" -> "Actor.a.Item.i".
func Parent(docUUID string) string {
	parts := strings.Split(docUUID, ".")
	if len(parts) < 4 {
		return ""
	}
	return strings.Join(parts[:len(parts)-2], ".")
}

// OwningActor walks up embedded collections until it reaches an actor UUID.
func OwningActor(docUUID string) string {
	parts := strings.Split(docUUID, ".")
	for i := len(parts) - 2; i >= 0; i -= 2 {
		if parts[i] == "Actor" {
			return strings.Join(parts[:i+2], ".")
		}
	}
	return ""
}
