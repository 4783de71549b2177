package league

// Event is one proposed match, ready for the caller to persist.
type Event struct {
	TimeslotID string
	FacilityID string
	CaptainID  string
	PlayerIDs  []string
}

// Events materializes the full slots in slot order.
func (f *Flight) Events() []Event {
	var out []Event
	for _, s := range f.FullSlots() {
		out = append(out, Event{
			TimeslotID: s.TimeslotID,
			FacilityID: s.FacilityID,
			CaptainID:  s.Captain,
			PlayerIDs:  append([]string(nil), s.Players...),
		})
	}
	return out
}

// ApplyEvents replaces the arena's assignments with the given events and
// recalculates. Slots not mentioned end up empty.
func (f *Flight) ApplyEvents(events []Event) error {
	f.Clear()
	for _, e := range events {
		id := SlotID(e.TimeslotID, e.FacilityID)
		s, ok := f.Slots[id]
		if !ok {
			return invalidf("no slot for timeslot %q at facility %q", e.TimeslotID, e.FacilityID)
		}
		if len(s.Players) > 0 {
			return invalidf("slot %q appears twice", id)
		}
		for _, pid := range e.PlayerIDs {
			if _, ok := f.Players[pid]; !ok {
				return invalidf("unknown player %q in slot %q", pid, id)
			}
			if !f.ForceAdd(id, pid) {
				return invalidf("cannot place player %q in slot %q", pid, id)
			}
		}
		if e.CaptainID != "" {
			if !s.Has(e.CaptainID) {
				return invalidf("captain %q is not playing in slot %q", e.CaptainID, id)
			}
			s.Captain = e.CaptainID
		}
	}
	f.Recalculate()
	return nil
}
