package messaging

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

// HeaderEventType carries the topic the payload was produced for, so a
// consumer reading a shared topic can still route by type.
const HeaderEventType = "x-event-type"
