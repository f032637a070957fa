package engine

import (
	"testing"

	"tradecore/pkg/domain"
)

func researchCard(name, tech string, costs ...domain.Items) *domain.Factory {
	return &domain.Factory{
		Name:       name,
		Owner:      domain.OwnerNone,
		Feature:    &domain.ResearchFeature{Tech: tech, Level: 1},
		Converters: []domain.Converter{{Inputs: costs, Outputs: domain.Items{}, Stage: domain.ConverterTrading}},
	}
}

func colonyCard(name string, out domain.Items) *domain.Factory {
	return &domain.Factory{
		Name:       name,
		Owner:      domain.OwnerNone,
		Feature:    &domain.ColonyFeature{Climate: domain.ItemJungle},
		Converters: []domain.Converter{domain.NewConverter(domain.Items{}, out, domain.ConverterProduction)},
	}
}

func TestRemoveItemsAllOrNothing(t *testing.T) {
	cases := []struct {
		name   string
		remove domain.Items
		ok     bool
		want   domain.Items
	}{
		{"exact", domain.Items{domain.ItemFood: 3}, true, domain.Items{domain.ItemCulture: 2}},
		{"partial", domain.Items{domain.ItemFood: 1, domain.ItemCulture: 1}, true, domain.Items{domain.ItemFood: 2, domain.ItemCulture: 1}},
		{"one short", domain.Items{domain.ItemFood: 1, domain.ItemCulture: 3}, false, domain.Items{domain.ItemFood: 3, domain.ItemCulture: 2}},
		{"missing resource", domain.Items{domain.ItemShip: 1}, false, domain.Items{domain.ItemFood: 3, domain.ItemCulture: 2}},
		{"negative", domain.Items{domain.ItemFood: -1}, false, domain.Items{domain.ItemFood: 3, domain.ItemCulture: 2}},
		{"empty", domain.Items{}, true, domain.Items{domain.ItemFood: 3, domain.ItemCulture: 2}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newPlayer("p", domain.SpeciesEni, "", domain.SpeciesTraits{})
			setStorage(p, domain.Items{domain.ItemFood: 3, domain.ItemCulture: 2})
			err := p.RemoveItems(tc.remove)
			if (err == nil) != tc.ok {
				t.Fatalf("err = %v, want ok=%v", err, tc.ok)
			}
			if !sameStorage(p.Storage(), tc.want) {
				t.Fatalf("storage = %v, want %v", p.Storage(), tc.want)
			}
		})
	}
}

func TestLedgerScoreAndDonations(t *testing.T) {
	p := newPlayer("p", domain.SpeciesUnity, "", domain.SpeciesTraits{})
	p.AddItems(domain.Items{domain.ItemScore: 2, domain.ItemScore + domain.DonationSuffix: 1, domain.ItemEnergy: 2, domain.ItemFood: 1})
	if p.Score() != 3 {
		t.Fatalf("score = %d", p.Score())
	}
	if p.ItemValue() != 4 {
		t.Fatalf("item value = %v", p.ItemValue())
	}
	p.ReceiveItems(domain.Items{domain.ItemCulture + domain.DonationSuffix: 2})
	if p.Amount(domain.ItemCulture) != 2 || p.Amount(domain.ItemCulture+domain.DonationSuffix) != 0 {
		t.Fatalf("donation not folded: %v", p.Storage())
	}
	if err := p.AddFactory(colonyCard("Rock", nil)); err != nil {
		t.Fatalf("add: %v", err)
	}
	wantKind(t, p.AddFactory(colonyCard("Rock", nil)), domain.KindLegality)
	if _, err := p.RemoveFactory("Rok"); err == nil || !domain.IsKind(err, domain.KindIdentity) {
		t.Fatalf("expected identity error, got %v", err)
	}
}

func TestUsedConverterLocksUntilReset(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	cay := mustPlayer(t, g, "p1")
	setStorage(cay, domain.Items{domain.ItemFood: 4})

	wantKind(t, g.Produce("p1", "Caylion_Trade Hub", 0, ProduceExtra{}), domain.KindStage)
	agreeAll(t, g)
	if g.Stage() != domain.StageProduction {
		t.Fatalf("stage = %q", g.Stage())
	}
	if err := g.Produce("p1", "Caylion_Trade Hub", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	wantKind(t, g.Produce("p1", "Caylion_Trade Hub", 0, ProduceExtra{}), domain.KindSequencing)
	if cay.Amount(domain.ItemFood) != 2 || cay.Amount(domain.ItemEnergy) != 0 {
		t.Fatalf("production output should be staged: %v", cay.Storage())
	}
	if cay.Pending()[domain.ItemEnergy] != 1 {
		t.Fatalf("pending = %v", cay.Pending())
	}
	wantKind(t, g.Produce("p1", "Caylion_Trade Hub", 1, ProduceExtra{}), domain.KindIdentity)
	wantKind(t, g.Produce("p1", "Caylion_Trade Hubb", 0, ProduceExtra{}), domain.KindIdentity)

	finishRound(t, g)
	if cay.Amount(domain.ItemEnergy) != 1 {
		t.Fatalf("staged output not materialized: %v", cay.Storage())
	}
	f, _ := cay.Factory("Caylion_Trade Hub")
	if !f.Converters[0].Used {
		t.Fatalf("converter should stay locked until the next production window")
	}
	agreeAll(t, g)
	if f.Converters[0].Used {
		t.Fatalf("converter not reset on entering production")
	}
	if err := g.Produce("p1", "Caylion_Trade Hub", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce after reset: %v", err)
	}
}

func TestProduceFailureLeavesStateUntouched(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	agreeAll(t, g)
	cay := mustPlayer(t, g, "p1")
	setStorage(cay, domain.Items{domain.ItemFood: 1})
	wantKind(t, g.Produce("p1", "Caylion_Trade Hub", 0, ProduceExtra{}), domain.KindResource)
	f, _ := cay.Factory("Caylion_Trade Hub")
	if f.Converters[0].Used || cay.Amount(domain.ItemFood) != 1 || len(cay.Pending()) != 0 {
		t.Fatalf("failed produce mutated state: used=%v storage=%v", f.Converters[0].Used, cay.Storage())
	}
}

func TestMustLendFactoryRejectsOwner(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	eni := mustPlayer(t, g, "p2")
	cay := mustPlayer(t, g, "p1")
	if err := g.Gift("p2", "p1", domain.Bundle{Factories: []string{"Eni_Xeno Library"}}); err != nil {
		t.Fatalf("lend: %v", err)
	}
	agreeAll(t, g)
	setStorage(cay, domain.Items{domain.ItemHypertech: 1})
	if err := g.Produce("p1", "Eni_Xeno Library", 0, ProduceExtra{}); err != nil {
		t.Fatalf("borrower produce: %v", err)
	}
	finishRound(t, g)
	if cay.Score() != 2 {
		t.Fatalf("borrower score = %d", cay.Score())
	}
	if !eni.HasFactory("Eni_Xeno Library") || cay.HasFactory("Eni_Xeno Library") {
		t.Fatalf("lent factory not returned at end of round")
	}
	agreeAll(t, g)
	setStorage(eni, domain.Items{domain.ItemHypertech: 1})
	wantKind(t, g.Produce("p2", "Eni_Xeno Library", 0, ProduceExtra{}), domain.KindLegality)
}

func TestResearchAlternativeCost(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	eni := mustPlayer(t, g, "p2")
	card := researchCard("Splicing Bench", "Genetics",
		domain.Items{domain.ItemFood: 2}, domain.Items{domain.ItemCulture: 2})
	if err := g.addResearch(eni, card); err != nil {
		t.Fatalf("add research: %v", err)
	}
	if len(card.Preview) == 0 {
		t.Fatalf("research card should preview its tech factory")
	}
	setStorage(eni, domain.Items{domain.ItemFood: 1, domain.ItemCulture: 2})

	wantKind(t, g.Produce("p2", "Splicing Bench", 0, ProduceExtra{CostType: 0}), domain.KindResource)
	wantKind(t, g.Produce("p2", "Splicing Bench", 0, ProduceExtra{CostType: 5}), domain.KindLegality)
	if err := g.Produce("p2", "Splicing Bench", 0, ProduceExtra{CostType: 1}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if eni.Amount(domain.ItemFood) != 1 || eni.Amount(domain.ItemCulture) != 0 {
		t.Fatalf("storage after research = %v", eni.Storage())
	}
	if eni.Score() != 6 {
		t.Fatalf("share bonus for 3 players in round 1 = %d, want 6", eni.Score())
	}
	if !eni.HasTech("Genetics") || !eni.HasInvented("Genetics") || !eni.HasFactory("Eni_Genetics") {
		t.Fatalf("tech not developed: %v %v", eni.Techs(), eni.FactoryNames())
	}
	if got := g.TechSchedule(1); len(got) != 1 || got[0] != "Genetics" {
		t.Fatalf("tech schedule = %v", got)
	}

	agreeAll(t, g)
	if eni.HasFactory("Splicing Bench") {
		t.Fatalf("used research card should be discarded at reset")
	}
	finishRound(t, g)
	cay := mustPlayer(t, g, "p1")
	yen := mustPlayer(t, g, "p3")
	if !cay.HasTech("Genetics") || !cay.HasFactory("Caylion_Genetics") {
		t.Fatalf("tech did not spread to Caylion: %v", cay.FactoryNames())
	}
	if !yen.HasFactory("Yengii_Genetics") {
		t.Fatalf("Yengii should receive its own Genetics factory")
	}
	if cay.HasInvented("Genetics") {
		t.Fatalf("spread tech must not count as invented")
	}
}

func TestResearchRunsAfterTechSpread(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	eni := mustPlayer(t, g, "p2")
	cay := mustPlayer(t, g, "p1")
	if err := g.addResearch(eni, researchCard("Bench A", "Genetics", domain.Items{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Produce("p2", "Bench A", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	agreeAll(t, g)
	finishRound(t, g)
	if !cay.HasTech("Genetics") {
		t.Fatalf("tech did not spread")
	}

	if err := g.addResearch(cay, researchCard("Bench B", "Genetics", domain.Items{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	before, techs := cay.Score(), len(cay.Techs())
	if err := g.Produce("p1", "Bench B", 0, ProduceExtra{}); err != nil {
		t.Fatalf("research of a held tech: %v", err)
	}
	if cay.Score() <= before {
		t.Fatalf("share bonus not awarded: %d -> %d", before, cay.Score())
	}
	if len(cay.Techs()) != techs || !cay.HasInvented("Genetics") {
		t.Fatalf("techs = %v, invented = %v", cay.Techs(), cay.HasInvented("Genetics"))
	}
	agreeAll(t, g)
	if cay.HasFactory("Bench B") {
		t.Fatalf("used research card should be discarded at reset")
	}
}

func TestExemptSpeciesDoesNotSpread(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	yen := mustPlayer(t, g, "p3")
	if err := g.addResearch(yen, researchCard("Quiet Lab", "Robotics", domain.Items{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	before := yen.Score()
	if err := g.Produce("p3", "Quiet Lab", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if yen.Score()-before != 3 {
		t.Fatalf("reduced share bonus = %d, want 3", yen.Score()-before)
	}
	if len(g.TechSchedule(1)) != 0 {
		t.Fatalf("exempt species scheduled a spread: %v", g.TechSchedule(1))
	}
}

func TestTechSpreadDelay(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	g.techSpreadDelay = 1
	eni := mustPlayer(t, g, "p2")
	if err := g.addResearch(eni, researchCard("Slow Lab", "Fusion", domain.Items{})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Produce("p2", "Slow Lab", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	agreeAll(t, g)
	finishRound(t, g)
	cay := mustPlayer(t, g, "p1")
	if cay.HasTech("Fusion") {
		t.Fatalf("tech spread one round early")
	}
	agreeAll(t, g)
	finishRound(t, g)
	if !cay.HasTech("Fusion") {
		t.Fatalf("tech did not spread after the delay")
	}
}

func TestInterestCombination(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	agreeAll(t, g)
	eni := mustPlayer(t, g, "p2")
	setStorage(eni, domain.Items{domain.ItemWildBig: 1, domain.ItemInformation: 1})

	bad := []ProduceExtra{
		{OutputType: domain.ItemFood, InputCombination: domain.Items{domain.ItemWildBig: 1}},
		{OutputType: domain.ItemEnergy, InputCombination: domain.Items{domain.ItemInformation: 1}},
		{OutputType: domain.ItemEnergy, InputCombination: domain.Items{domain.ItemWildBig: 2}},
		{OutputType: domain.ItemEnergy, InputCombination: domain.Items{domain.ItemWildBig: 2, domain.ItemEnergy: -1}},
	}
	for i, extra := range bad {
		wantKind(t, g.Produce("p2", "Eni_Mutual Understanding", 0, extra), domain.KindLegality)
		if !sameStorage(eni.Storage(), domain.Items{domain.ItemWildBig: 1, domain.ItemInformation: 1}) {
			t.Fatalf("case %d mutated storage: %v", i, eni.Storage())
		}
	}
	wantKind(t, g.Produce("p2", "Eni_Mutual Understanding", 0, ProduceExtra{
		OutputType: domain.ItemEnergy, InputCombination: domain.Items{domain.ItemEnergy: 1},
	}), domain.KindResource)

	if err := g.Produce("p2", "Eni_Mutual Understanding", 0, ProduceExtra{
		OutputType: domain.ItemEnergy, InputCombination: domain.Items{domain.ItemWildBig: 1},
	}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if !sameStorage(eni.Pending(), domain.Items{domain.ItemWildBig: 1, domain.ItemEnergy: 1}) {
		t.Fatalf("pending = %v", eni.Pending())
	}
	if !sameStorage(eni.Storage(), domain.Items{domain.ItemInformation: 1}) {
		t.Fatalf("storage = %v", eni.Storage())
	}
}

func TestDoubleRunColony(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	cay := mustPlayer(t, g, "p1")
	eni := mustPlayer(t, g, "p2")
	if err := cay.addColony(colonyCard("Twin Valley", domain.Items{domain.ItemFood: 1})); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := eni.addColony(colonyCard("Lone Valley", domain.Items{domain.ItemFood: 1})); err != nil {
		t.Fatalf("add: %v", err)
	}
	agreeAll(t, g)
	for i := 0; i < 2; i++ {
		if err := g.Produce("p1", "Twin Valley", 0, ProduceExtra{}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	wantKind(t, g.Produce("p1", "Twin Valley", 0, ProduceExtra{}), domain.KindSequencing)
	if cay.Pending()[domain.ItemFood] != 2 {
		t.Fatalf("pending = %v", cay.Pending())
	}
	if err := g.Produce("p2", "Lone Valley", 0, ProduceExtra{}); err != nil {
		t.Fatalf("single run: %v", err)
	}
	wantKind(t, g.Produce("p2", "Lone Valley", 0, ProduceExtra{}), domain.KindSequencing)
}

func TestMetaFactoryUnlocks(t *testing.T) {
	g := newStartedGame(t, 6, domain.SpeciesCaylion, domain.SpeciesEni, domain.SpeciesYengii)
	cay := mustPlayer(t, g, "p1")
	setStorage(cay, domain.Items{domain.ItemEnergy: 2})
	if err := g.Produce("p1", "Caylion_Embassy Launch", 0, ProduceExtra{}); err != nil {
		t.Fatalf("produce: %v", err)
	}
	if cay.HasFactory("Caylion_Embassy Launch") || !cay.HasFactory("Caylion_Embassy") {
		t.Fatalf("meta unlock failed: %v", cay.FactoryNames())
	}
	if cay.Amount(domain.ItemEnergy) != 0 {
		t.Fatalf("energy = %d", cay.Amount(domain.ItemEnergy))
	}
}
