package strategy

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/derekprior/flightsched/internal/league"
)

func testSlots(scores ...float64) []*league.GameSlot {
	var slots []*league.GameSlot
	for i, s := range scores {
		id := string(rune('a' + i))
		slots = append(slots, &league.GameSlot{ID: id, TimeslotID: id, AvailabilityScore: s})
	}
	return slots
}

func ids(slots []*league.GameSlot) []string {
	var out []string
	for _, s := range slots {
		out = append(out, s.ID)
	}
	return out
}

func TestGet(t *testing.T) {
	t.Run("named orderings", func(t *testing.T) {
		for _, name := range []string{ScoreShift, Interlace, Shuffle} {
			o, err := Get(name, 0, 4)
			require.NoError(t, err)
			assert.Equal(t, name, o.Name())
		}
	})

	t.Run("auto follows mutation number", func(t *testing.T) {
		o, err := Get(Auto, 3, 4)
		require.NoError(t, err)
		assert.Equal(t, ScoreShift, o.Name())

		o, err = Get("", 4, 4)
		require.NoError(t, err)
		assert.Equal(t, ScoreShift, o.Name())

		assert.Equal(t, Interlace, ForMutation(5, 4).Name())
		assert.Equal(t, Interlace, ForMutation(8, 4).Name())
		assert.Equal(t, Shuffle, ForMutation(9, 4).Name())
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Get("round_robin", 0, 4)
		assert.Error(t, err)
	})
}

func TestScoreShift(t *testing.T) {
	slots := testSlots(3, 1, 2, 1, 3)

	t.Run("mutation zero sorts scarcest first", func(t *testing.T) {
		got := (&ScoreShiftOrdering{}).Order(slots, nil)
		assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids(got))
	})

	t.Run("reverses the first groups", func(t *testing.T) {
		got := (&ScoreShiftOrdering{Mutate: 2}).Order(slots, nil)
		assert.Equal(t, []string{"c", "b", "d", "a", "e"}, ids(got))

		got = (&ScoreShiftOrdering{Mutate: 1}).Order(slots, nil)
		assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids(got), "a single group has nothing to swap with")
	})

	t.Run("wraps around the group count", func(t *testing.T) {
		got := (&ScoreShiftOrdering{Mutate: 3}).Order(slots, nil)
		assert.Equal(t, []string{"b", "d", "c", "a", "e"}, ids(got), "three groups, nothing reversed")

		a := (&ScoreShiftOrdering{Mutate: 5}).Order(slots, nil)
		b := (&ScoreShiftOrdering{Mutate: 2}).Order(slots, nil)
		assert.Equal(t, ids(b), ids(a))
	})

	t.Run("input untouched", func(t *testing.T) {
		(&ScoreShiftOrdering{Mutate: 1}).Order(slots, nil)
		assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids(slots))
	})
}

func TestInterlace(t *testing.T) {
	slots := testSlots(0, 0, 0, 0, 0, 0)

	t.Run("zips halves", func(t *testing.T) {
		got := (&InterlaceOrdering{}).Order(slots, nil)
		assert.Equal(t, []string{"a", "f", "b", "e", "c", "d"}, ids(got))
	})

	t.Run("rotates by mutation", func(t *testing.T) {
		got := (&InterlaceOrdering{Mutate: 8}).Order(slots, nil)
		assert.Equal(t, []string{"b", "e", "c", "d", "a", "f"}, ids(got))
	})

	t.Run("odd length keeps every slot", func(t *testing.T) {
		got := (&InterlaceOrdering{}).Order(testSlots(0, 0, 0, 0, 0), nil)
		assert.Equal(t, []string{"a", "e", "b", "d", "c"}, ids(got))
	})

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, (&InterlaceOrdering{Mutate: 3}).Order(nil, nil))
	})
}

func TestShuffle(t *testing.T) {
	slots := testSlots(0, 1, 2, 3, 4, 5, 6, 7)

	a := (&ShuffleOrdering{}).Order(slots, rand.New(rand.NewSource(42)))
	b := (&ShuffleOrdering{}).Order(slots, rand.New(rand.NewSource(42)))
	assert.Equal(t, ids(a), ids(b), "same seed, same permutation")
	assert.ElementsMatch(t, ids(slots), ids(a))
}

func TestTimeslotOrder(t *testing.T) {
	slots := []*league.GameSlot{
		{TimeslotID: "t2"}, {TimeslotID: "t1"}, {TimeslotID: "t2"}, {TimeslotID: "t3"},
	}
	assert.Equal(t, []string{"t2", "t1", "t3"}, TimeslotOrder(slots))
}
