package engine

// Score awarded for completing research, by table size (3..9+) and round.
var (
	shareTable = [7][6]int{
		{6, 5, 4, 4, 3, 2},
		{6, 5, 4, 4, 3, 2},
		{6, 6, 5, 4, 3, 1},
		{6, 6, 5, 4, 2, 1},
		{7, 6, 5, 4, 2, 0},
		{7, 6, 5, 4, 2, 0},
		{7, 6, 5, 4, 2, 0},
	}
	reducedShareTable = [7][6]int{
		{3, 2, 2, 1, 1, 0},
		{3, 2, 2, 1, 1, 0},
		{3, 2, 1, 1, 1, 0},
		{3, 2, 1, 1, 0, 0},
		{2, 2, 1, 1, 0, 0},
		{2, 2, 1, 1, 0, 0},
		{2, 2, 1, 1, 0, 0},
	}
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// shareBonus is the score granted to p for research completed this round.
func (g *Game) shareBonus(p *Player) int {
	row := clamp(g.playerNum()-3, 0, len(shareTable)-1)
	col := clamp(g.round-1, 0, len(shareTable[0])-1)
	if p.traits.ReducedShare {
		return reducedShareTable[row][col]
	}
	return shareTable[row][col]
}

// developTech grants tech to its inventor and schedules it to reach every
// other player.
func (g *Game) developTech(p *Player, tech string) {
	g.grantTech(p, tech)
	if !p.HasInvented(tech) {
		p.invented = append(p.invented, tech)
	}
	if p.traits.TechSpreadExempt {
		return
	}
	due := g.round + g.techSpreadDelay
	if !containsString(g.techSpread[due], tech) {
		g.techSpread[due] = append(g.techSpread[due], tech)
	}
}

// spreadTech hands out every technology due in round.
func (g *Game) spreadTech(round int) {
	techs, ok := g.techSpread[round]
	if !ok {
		return
	}
	for _, tech := range techs {
		for _, p := range g.players {
			g.grantTech(p, tech)
		}
	}
	delete(g.techSpread, round)
}

// TechSchedule returns the technologies due to spread at the end of round.
func (g *Game) TechSchedule(round int) []string {
	return append([]string(nil), g.techSpread[round]...)
}
