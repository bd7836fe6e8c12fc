package disposal

// RecentOutcome reports the most recent Result recorded for a unit ID, if
// it is still in the bounded outcome cache. Direct-mode disposals are not
// recorded.
func (c *Coordinator) RecentOutcome(unitID string) (Result, bool) {
	return c.outcomes.Get(unitID)
}

// InFlight lists the disposals currently holding an admission slot. The
// returned slice is a snapshot; it does not track later changes.
func (c *Coordinator) InFlight() []OperationInfo {
	return c.inFlight.infos()
}
