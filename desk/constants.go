package desk

// EventBus topics shared by the desk modules.
const (
	// A refetch should run against the current FilterState. Published by the
	// prompt on user actions, by the live update channel on push hints, and
	// once at startup for the initial load.
	TopicRefreshRequest = "refresh.request"

	// One atomic {news, health, retry} view replacement, or a surfaced fetch
	// error. Published by the synchronizer, consumed by the renderer.
	TopicViewSnapshot = "view.snapshot"

	// Outcome of one synchronizer run, consumed by the reporter.
	TopicRunResult = "run.result"
)

// Refresh triggers, used as metric tags.
const (
	TriggerFilter = "filter"
	TriggerPush   = "push"
	TriggerManual = "manual"
)
