package league

// Pool is the set of candidate games for one timeslot.
type Pool struct {
	Timeslot       Timeslot
	All            []string
	Filtered       []string
	Games          [][]string
	AvailableSlots int
}

// TimeslotPool enumerates every player combination that could form a match
// in the timeslot. Fully available players are preferred when there are
// more of them than one match needs.
func (f *Flight) TimeslotPool(ts Timeslot) Pool {
	pool := Pool{Timeslot: ts, AvailableSlots: f.Capacity(ts)}
	for _, id := range f.PlayerOrder {
		switch f.Players[id].StatusAt(ts.ID) {
		case Available, Unknown:
			pool.All = append(pool.All, id)
			pool.Filtered = append(pool.Filtered, id)
		case AvailableLowPref:
			pool.All = append(pool.All, id)
		}
	}

	k := f.Rules.PlayersPerMatch
	if len(pool.Filtered) > k {
		pool.Games = Combinations(pool.Filtered, k)
	} else {
		pool.Games = Combinations(pool.All, k)
	}
	return pool
}

// Combinations returns all k-element subsets of ids in lexicographic index order.
func Combinations(ids []string, k int) [][]string {
	n := len(ids)
	if k <= 0 || k > n {
		return nil
	}
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	var out [][]string
	for {
		combo := make([]string, k)
		for i, j := range idx {
			combo[i] = ids[j]
		}
		out = append(out, combo)

		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return out
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
