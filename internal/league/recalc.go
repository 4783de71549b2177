package league

// Recalculate rebuilds every player's derived counters from the full slots.
// It is the only place derived statistics are made trustworthy, and calling
// it twice in a row changes nothing.
func (f *Flight) Recalculate() {
	for _, p := range f.Players {
		p.GameCount = 0
		p.Days = make(map[int]int)
		p.Weeks = make(map[int]int)
		p.History = make(map[string]int)
		p.CaptainCount = 0
	}

	for _, id := range f.SlotOrder {
		s := f.Slots[id]
		if !s.Full {
			continue
		}
		for _, pid := range s.Players {
			p := f.Players[pid]
			p.GameCount++
			p.Days[s.Day]++
			p.Weeks[s.Week]++
			for _, other := range s.Players {
				if other != pid {
					p.History[other]++
				}
			}
		}
		if c, ok := f.Players[s.Captain]; ok && s.Has(s.Captain) {
			c.CaptainCount++
		}
	}

	for _, p := range f.Players {
		p.Satisfied = p.GameCount >= p.Rules.MinGamesTotal && Within(p.GameCount, p.Rules.MaxGamesTotal)
	}
}

// DoubleHeaders counts the days on which a player has more than one game.
func (p *Player) DoubleHeaders() int {
	n := 0
	for _, c := range p.Days {
		if c > 1 {
			n++
		}
	}
	return n
}

// AtMax reports whether the player has reached their maximum total games.
func (p *Player) AtMax() bool {
	return p.Rules.MaxGamesTotal > 0 && p.GameCount >= p.Rules.MaxGamesTotal
}

// Under reports whether the player still needs games.
func (p *Player) Under() bool {
	return p.GameCount < p.Rules.MinGamesTotal
}

// HistoryWith returns how often two players have shared a full slot.
func (f *Flight) HistoryWith(a, b string) int {
	if p, ok := f.Players[a]; ok {
		return p.History[b]
	}
	return 0
}

// AverageGames returns the mean game count of the given players, or 0 for none.
func AverageGames(players []*Player) float64 {
	if len(players) == 0 {
		return 0
	}
	total := 0
	for _, p := range players {
		total += p.GameCount
	}
	return float64(total) / float64(len(players))
}

// CaptaincyWithin reports whether the captain count lies in
// [MinCaptained, MaxCaptained), with MaxCaptained 0 meaning no cap.
func (p *Player) CaptaincyWithin() bool {
	if p.CaptainCount < p.Rules.MinCaptained {
		return false
	}
	return p.Rules.MaxCaptained == 0 || p.CaptainCount < p.Rules.MaxCaptained
}
