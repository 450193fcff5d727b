package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/KirkDiggler/auras/internal/actor"
	"github.com/KirkDiggler/auras/internal/aura"
	"github.com/KirkDiggler/auras/internal/coordinator"
	coordmocks "github.com/KirkDiggler/auras/internal/coordinator/mocks"
	"github.com/KirkDiggler/auras/internal/effects"
	"github.com/KirkDiggler/auras/internal/engine"
	"github.com/KirkDiggler/auras/internal/formula"
	"github.com/KirkDiggler/auras/internal/host/memory"
	"github.com/KirkDiggler/auras/internal/notify"
	notifymocks "github.com/KirkDiggler/auras/internal/notify/mocks"
	"github.com/KirkDiggler/auras/internal/scene"
	"github.com/KirkDiggler/auras/internal/script"
)

const (
	gm      = "gm"
	player  = "player"
	sceneID = "keep"

	clericUUID  = "Actor.cleric"
	paladinUUID = "Actor.paladin"
	fighterUUID = "Actor.fighter"
	rogueUUID   = "Actor.rogue"
)

// recordingHandle forwards to the local registry and records procedure names
type recordingHandle struct {
	mu    sync.Mutex
	inner coordinator.Handle
	calls []string
}

func (h *recordingHandle) Call(ctx context.Context, procedure string, payload []byte) ([]byte, error) {
	h.mu.Lock()
	h.calls = append(h.calls, procedure)
	h.mu.Unlock()
	return h.inner.Call(ctx, procedure, payload)
}

func (h *recordingHandle) called(procedure string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == procedure {
			n++
		}
	}
	return n
}

type EngineTestSuite struct {
	suite.Suite
	ctx    context.Context
	world  *memory.World
	scene  *memory.Scene
	handle *recordingHandle
	engine *engine.Engine
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}

func (s *EngineTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.world = memory.NewWorld(nil)
	s.scene = memory.NewScene(sceneID, scene.Grid{Distance: 1})
	s.world.AddScene(s.scene)

	formulas := formula.NewEvaluator(nil)
	model := aura.NewModel(&aura.Config{Documents: s.world, Formulas: formulas})
	registry := coordinator.NewRegistry()
	coordinator.RegisterProcedures(registry, coordinator.NewService(&coordinator.ServiceConfig{
		Documents: s.world,
		Model:     model,
		Formulas:  formulas,
	}))
	s.handle = &recordingHandle{inner: coordinator.NewLocalHandle(registry)}

	s.engine = engine.New(&engine.Config{
		Session:   engine.NewSession(gm),
		Documents: s.world,
		Elector:   coordinator.NewStaticElector(s.handle),
		Model:     model,
		Scripts:   script.NewEvaluator(),
	})
	s.engine.Bind(s.world.Bus())
	s.world.SetSettle(s.engine.Wait)

	s.world.AddActor(&actor.Actor{ID: "fighter", Name: "Fighter"})
	s.world.AddActor(&actor.Actor{ID: "rogue", Name: "Rogue"})
}

func (s *EngineTestSuite) TearDownTest() {
	s.engine.Close()
}

func (s *EngineTestSuite) addSource(actorID string, rollData map[string]any, sources ...*effects.Effect) {
	s.world.AddActor(&actor.Actor{ID: actorID, Name: actorID, RollData: rollData, Effects: sources})
}

// place puts a 1x1 token for the actor at a cell
func (s *EngineTestSuite) place(actorID string, col, row float64, disposition scene.Disposition) {
	s.Require().NoError(s.world.AddToken(sceneID, &scene.Token{
		ID:          actorID,
		ActorUUID:   actorID,
		X:           col * 100,
		Y:           row * 100,
		Disposition: disposition,
	}))
}

func (s *EngineTestSuite) move(userID, tokenID string, col, row float64) {
	s.Require().NoError(s.world.MoveToken(s.ctx, userID, sceneID, tokenID, scene.Point{X: col * 100, Y: row * 100}))
}

func (s *EngineTestSuite) derived(actorUUID string) effects.List {
	a, ok := s.world.Actor(s.ctx, actorUUID)
	s.Require().True(ok)
	return a.Effects.Derived()
}

func bless() *effects.Effect {
	return effects.NewAuraBuilder(clericUUID, "bless", "Bless").
		WithDistance("10").
		Stacking().
		AddStatus("blessed").
		Build()
}

func (s *EngineTestSuite) TestTargetMovesIntoRange() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 9)

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(clericUUID+".ActiveEffect.bless", d[0].Origin)
	s.Empty(s.derived(clericUUID))
}

func (s *EngineTestSuite) TestSourceMovesInAndOutOfRange() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 20, scene.DispositionFriendly)
	s.place("fighter", 0, 0, scene.DispositionFriendly)

	s.move(gm, "cleric", 0, 5)
	s.Len(s.derived(fighterUUID), 1)

	s.move(gm, "cleric", 0, 30)
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestIgnoresOtherUsersUpdates() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(player, "fighter", 0, 9)

	s.Empty(s.derived(fighterUUID))
	s.Zero(s.handle.called(coordinator.ProcedureApplyAuraEffects))
}

func (s *EngineTestSuite) TestRepeatedMovesStayIdempotent() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 9)
	s.move(gm, "fighter", 1, 8)
	s.move(gm, "fighter", 2, 7)

	s.Len(s.derived(fighterUUID), 1)
	s.Equal(1, s.handle.called(coordinator.ProcedureApplyAuraEffects))
}

func (s *EngineTestSuite) TestRangeBoundary() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 11)
	s.Empty(s.derived(fighterUUID))

	s.move(gm, "fighter", 0, 10)
	s.Len(s.derived(fighterUUID), 1)
}

func (s *EngineTestSuite) TestDisablingSourceRemovesDerived() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	s.Require().NoError(s.world.SetEffectDisabled(s.ctx, gm, clericUUID+".ActiveEffect.bless", true))
	s.engine.Wait()
	s.Empty(s.derived(fighterUUID))

	s.Require().NoError(s.world.SetEffectDisabled(s.ctx, gm, clericUUID+".ActiveEffect.bless", false))
	s.engine.Wait()
	s.Len(s.derived(fighterUUID), 1)
}

func (s *EngineTestSuite) TestDisabledSourceCleanedUpByNextMovement() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	// toggled by another client, so this session does not react to it
	s.Require().NoError(s.world.SetEffectDisabled(s.ctx, player, clericUUID+".ActiveEffect.bless", true))
	s.engine.Wait()
	s.Require().Len(s.derived(fighterUUID), 1)

	s.move(gm, "cleric", 1, 0)
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestOrphanedDerivedRemovedWhenTargetMoves() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	s.Require().NoError(s.world.DeleteEffect(s.ctx, player, clericUUID+".ActiveEffect.bless"))
	s.engine.Wait()
	s.Require().Len(s.derived(fighterUUID), 1)

	s.move(gm, "fighter", 0, 8)
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestDeletingSourceRemovesDerived() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	s.Require().NoError(s.world.DeleteEffect(s.ctx, gm, clericUUID+".ActiveEffect.bless"))
	s.engine.Wait()
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestBestOfStackKeepsHighestScore() {
	weak := effects.NewAuraBuilder(clericUUID, "weak", "Protection").
		WithDistance("10").
		NonStacking("@abilities.wis.mod").
		AddChange("system.attributes.ac.bonus", effects.ModeAdd, "@abilities.wis.mod").
		Build()
	strong := effects.NewAuraBuilder(paladinUUID, "strong", "Protection").
		WithDistance("10").
		NonStacking("@abilities.cha.mod").
		AddChange("system.attributes.ac.bonus", effects.ModeAdd, "@abilities.cha.mod").
		Build()
	s.addSource("cleric", map[string]any{"abilities": map[string]any{"wis": map[string]any{"mod": 5}}}, weak)
	s.addSource("paladin", map[string]any{"abilities": map[string]any{"cha": map[string]any{"mod": 8}}}, strong)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("paladin", 4, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 2, 5)

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(paladinUUID+".ActiveEffect.strong", d[0].Origin)
	s.Equal("8", d[0].Changes[0].Value)
}

func (s *EngineTestSuite) protectionAuras() {
	weak := effects.NewAuraBuilder(clericUUID, "weak", "Protection").
		WithDistance("10").
		NonStacking("@abilities.wis.mod").
		AddChange("system.attributes.ac.bonus", effects.ModeAdd, "@abilities.wis.mod").
		Build()
	strong := effects.NewAuraBuilder(paladinUUID, "strong", "Protection").
		WithDistance("10").
		NonStacking("@abilities.cha.mod").
		AddChange("system.attributes.ac.bonus", effects.ModeAdd, "@abilities.cha.mod").
		Build()
	s.addSource("cleric", map[string]any{"abilities": map[string]any{"wis": map[string]any{"mod": 5}}}, weak)
	s.addSource("paladin", map[string]any{"abilities": map[string]any{"cha": map[string]any{"mod": 8}}}, strong)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("paladin", 4, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 2, 5)
	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Require().Equal(paladinUUID+".ActiveEffect.strong", d[0].Origin)
}

func (s *EngineTestSuite) TestStackMateTakesOverWhenWinnerLeaves() {
	s.protectionAuras()

	s.move(gm, "paladin", 60, 0)

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(clericUUID+".ActiveEffect.weak", d[0].Origin)
	s.Equal("5", d[0].Changes[0].Value)
}

func (s *EngineTestSuite) TestStackMateTakesOverWhenWinnerDisabled() {
	s.protectionAuras()

	s.Require().NoError(s.world.SetEffectDisabled(s.ctx, gm, paladinUUID+".ActiveEffect.strong", true))
	s.engine.Wait()

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(clericUUID+".ActiveEffect.weak", d[0].Origin)
}

func (s *EngineTestSuite) TestStackMateTakesOverWhenWinnerDeleted() {
	s.protectionAuras()

	s.Require().NoError(s.world.DeleteEffect(s.ctx, gm, paladinUUID+".ActiveEffect.strong"))
	s.engine.Wait()

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(clericUUID+".ActiveEffect.weak", d[0].Origin)
}

func (s *EngineTestSuite) TestStackMateOutOfRangeIsNotApplied() {
	s.protectionAuras()
	s.move(gm, "cleric", 0, 40)

	s.move(gm, "paladin", 60, 0)
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestHiddenSourceIsWithdrawn() {
	sanctuary := effects.NewAuraBuilder(clericUUID, "sanctuary", "Sanctuary").
		WithDistance("10").
		WithDisableOnHidden(true).
		Build()
	s.addSource("cleric", nil, sanctuary)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	s.Require().NoError(s.world.SetHidden(gm, sceneID, "cleric", true))
	s.engine.Wait()
	s.Empty(s.derived(fighterUUID))

	s.Require().NoError(s.world.SetHidden(gm, sceneID, "cleric", false))
	s.engine.Wait()
	s.Len(s.derived(fighterUUID), 1)
}

func (s *EngineTestSuite) TestHiddenSourceWithdrawnByTargetMovement() {
	sanctuary := effects.NewAuraBuilder(clericUUID, "sanctuary", "Sanctuary").
		WithDistance("10").
		WithDisableOnHidden(true).
		Build()
	s.addSource("cleric", nil, sanctuary)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	s.Require().Len(s.derived(fighterUUID), 1)

	s.Require().NoError(s.world.SetHidden(player, sceneID, "cleric", true))
	s.engine.Wait()
	s.Require().Len(s.derived(fighterUUID), 1)

	s.move(gm, "fighter", 0, 8)
	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestWallBlocksMatchingCollisionType() {
	ward := effects.NewAuraBuilder(clericUUID, "ward", "Ward").
		WithDistance("10").
		WithCollisionTypes(scene.CollisionMove).
		Build()
	glow := effects.NewAuraBuilder(clericUUID, "glow", "Glow").
		WithDistance("10").
		WithCollisionTypes(scene.CollisionSight).
		Build()
	s.addSource("cleric", nil, ward, glow)
	s.scene.AddWall(scene.Wall{
		ID:       "portcullis",
		A:        scene.Point{X: -1000, Y: 500},
		B:        scene.Point{X: 1000, Y: 500},
		Restrict: []scene.CollisionType{scene.CollisionMove},
	})
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 9)

	d := s.derived(fighterUUID)
	s.Require().Len(d, 1)
	s.Equal(clericUUID+".ActiveEffect.glow", d[0].Origin)
}

func (s *EngineTestSuite) TestDispositionFilter() {
	rally := effects.NewAuraBuilder(clericUUID, "rally", "Rally").
		WithDistance("10").
		WithDisposition(effects.DispositionFriendly).
		Build()
	s.addSource("cleric", nil, rally)
	s.place("fighter", 0, 3, scene.DispositionFriendly)
	s.place("rogue", 0, 4, scene.DispositionHostile)
	s.place("cleric", 0, 20, scene.DispositionFriendly)

	s.move(gm, "cleric", 0, 0)

	s.Len(s.derived(fighterUUID), 1)
	s.Empty(s.derived(rogueUUID))
}

func (s *EngineTestSuite) TestScriptFiltersTargets() {
	mark := effects.NewAuraBuilder(clericUUID, "mark", "Mark").
		WithDistance("10").
		WithScript(`actor.name ~= "Rogue"`).
		Build()
	s.addSource("cleric", nil, mark)
	s.place("fighter", 0, 3, scene.DispositionFriendly)
	s.place("rogue", 0, 4, scene.DispositionFriendly)
	s.place("cleric", 0, 20, scene.DispositionFriendly)

	s.move(gm, "cleric", 0, 0)

	s.Len(s.derived(fighterUUID), 1)
	s.Empty(s.derived(rogueUUID))
}

func (s *EngineTestSuite) TestZeroRadiusIsInactive() {
	dud := effects.NewAuraBuilder(clericUUID, "dud", "Dud").
		WithDistance("@missing").
		Build()
	s.addSource("cleric", nil, dud)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 0, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 1)

	s.Empty(s.derived(fighterUUID))
}

func (s *EngineTestSuite) TestIntermediateSegmentsOnlyRemove() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.Require().NoError(s.world.MovePath(s.ctx, gm, sceneID, "fighter", []scene.Point{
		{X: 0, Y: 800},
		{X: 0, Y: 2500},
	}))

	s.Empty(s.derived(fighterUUID))
	s.Zero(s.handle.called(coordinator.ProcedureApplyAuraEffects))
}

func (s *EngineTestSuite) TestLeavingMidPathRemovesThenFinalSegmentAdds() {
	s.addSource("cleric", nil, bless())
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)
	s.move(gm, "fighter", 0, 9)
	first := s.derived(fighterUUID)
	s.Require().Len(first, 1)

	s.Require().NoError(s.world.MovePath(s.ctx, gm, sceneID, "fighter", []scene.Point{
		{X: 0, Y: 2500},
		{X: 0, Y: 700},
	}))

	again := s.derived(fighterUUID)
	s.Require().Len(again, 1)
	s.NotEqual(first[0].ID, again[0].ID)
}

func (s *EngineTestSuite) TestCombatOnlySourceFollowsCombat() {
	rage := effects.NewAuraBuilder(clericUUID, "rage", "Battle Cry").
		WithDistance("10").
		CombatOnly().
		Build()
	s.addSource("cleric", nil, rage)
	s.place("cleric", 0, 0, scene.DispositionFriendly)
	s.place("fighter", 0, 20, scene.DispositionFriendly)

	s.move(gm, "fighter", 0, 9)
	s.Empty(s.derived(fighterUUID))

	s.world.SetCombat(gm, sceneID, true)
	s.engine.Wait()
	s.Len(s.derived(fighterUUID), 1)

	s.world.SetCombat(gm, sceneID, false)
	s.engine.Wait()
	s.Empty(s.derived(fighterUUID))
}

func TestNoCoordinatorWarnsOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	elector := coordmocks.NewMockElector(ctrl)
	notifier := notifymocks.NewMockNotifier(ctrl)
	elector.EXPECT().Active(gomock.Any()).Return(nil, false).Times(2)
	notifier.EXPECT().Notify(gomock.Any(), notify.LevelWarn, notify.MessageNoCoordinator).Return(nil).Times(1)

	ctx := context.Background()
	world := memory.NewWorld(nil)
	world.AddScene(memory.NewScene(sceneID, scene.Grid{Distance: 1}))
	formulas := formula.NewEvaluator(nil)
	eng := engine.New(&engine.Config{
		Session:   engine.NewSession(gm),
		Documents: world,
		Elector:   elector,
		Model:     aura.NewModel(&aura.Config{Documents: world, Formulas: formulas}),
		Scripts:   script.NewEvaluator(),
		Notifier:  notifier,
	})
	defer eng.Close()
	eng.Bind(world.Bus())
	world.SetSettle(eng.Wait)

	world.AddActor(&actor.Actor{ID: "cleric", Effects: effects.List{bless()}})
	world.AddActor(&actor.Actor{ID: "fighter"})
	for _, tok := range []*scene.Token{
		{ID: "cleric", ActorUUID: "cleric"},
		{ID: "fighter", ActorUUID: "fighter", Y: 2000},
	} {
		if err := world.AddToken(sceneID, tok); err != nil {
			t.Fatal(err)
		}
	}

	for _, y := range []float64{900, 800} {
		if err := world.MoveToken(ctx, gm, sceneID, "fighter", scene.Point{Y: y}); err != nil {
			t.Fatal(err)
		}
	}

	fighter, ok := world.Actor(ctx, fighterUUID)
	if !ok {
		t.Fatal("fighter missing")
	}
	if len(fighter.Effects) != 0 {
		t.Fatalf("expected no derived effects, got %d", len(fighter.Effects))
	}
}
