package entities

// TimelineGroup is a vis-timeline group. Class groups carry an order and the
// ids of their nested body groups.
type TimelineGroup struct {
	ID           string   `json:"id"`
	Content      string   `json:"content"`
	Order        *int     `json:"order,omitempty"`
	NestedGroups []string `json:"nestedGroups,omitempty"`
}

// TimelineItem is a vis-timeline item for one event.
type TimelineItem struct {
	ID        string `json:"id"`
	Group     string `json:"group"`
	Start     int64  `json:"start"`
	ClassName string `json:"className"`
	Subgroup  string `json:"subgroup"`
}

// Timeline is the payload of the log operation.
type Timeline struct {
	Groups []TimelineGroup `json:"groups"`
	Items  []TimelineItem  `json:"items"`
}
