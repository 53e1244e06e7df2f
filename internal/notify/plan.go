package notify

// Planner decides the channel order for one delivery. It is a named,
// swappable function so alternate orderings can be tested without
// touching the pipeline.
type Planner func(userInitiated bool) []string

// FixedPlan is the current policy: HUD first as the least intrusive
// primary signal, then the system notification and the toast as
// visible-even-when-not-foregrounded fallbacks. The launch origin does
// not change the order today; the parameter stays so a future policy
// can use it without changing the pipeline.
func FixedPlan(userInitiated bool) []string {
	_ = userInitiated
	return []string{ChannelHUD, ChannelDesktop, ChannelToast}
}
