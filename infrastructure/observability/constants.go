package observability

// Metric name prefixes
const (
	MetricPrefix = "stickybot"
)

// Metric names
const (
	// Repost metrics
	RepostsTotal     = MetricPrefix + ".reposts.total"
	RepostDuration   = MetricPrefix + ".reposts.duration"
	StickyDebouncing = MetricPrefix + ".stickies.debouncing"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Storage metrics
	StorageOperationsTotal   = MetricPrefix + ".storage.operations_total"
	StorageOperationDuration = MetricPrefix + ".storage.operation_duration"
)

// Label keys
const (
	LabelStatus    = "status"
	LabelEventType = "event_type"
	LabelTable     = "table"
	LabelOperation = "operation"
)
