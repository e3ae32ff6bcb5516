package ports

// Metrics receives business-level measurements from the services.
type Metrics interface {
	ObserveSessionInit(outcome string)
	ObserveNodesRemoved(n int)
}
