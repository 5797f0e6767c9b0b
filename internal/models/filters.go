package models

// FilterType distinguishes the two renderable filter kinds.
type FilterType string

const (
	FilterCheckbox FilterType = "checkbox"
	FilterRange    FilterType = "range"
)

// FilterNode is one node of a (possibly nested) checkbox option tree: a leaf
// carries Options, a group carries Label and Children. A node is exactly one
// of the two, so recursive rendering terminates structurally.
type FilterNode struct {
	Label    string       `json:"label,omitempty"`
	Options  []string     `json:"options,omitempty"`
	Children []FilterNode `json:"children,omitempty"`
}

// IsGroup reports whether the node is a labelled group of child nodes.
func (n FilterNode) IsGroup() bool { return len(n.Children) > 0 }

// OptionCount counts every selectable option under the node.
func (n FilterNode) OptionCount() int {
	total := len(n.Options)
	for _, c := range n.Children {
		total += c.OptionCount()
	}
	return total
}

// FilterDescriptor describes one renderable filter section. Checkbox filters
// carry an option tree; range filters carry Min/Max/Step.
type FilterDescriptor struct {
	ID      string       `json:"id"`
	Label   string       `json:"label"`
	Type    FilterType   `json:"type"`
	Options []FilterNode `json:"options,omitempty"`
	Min     float64      `json:"min,omitempty"`
	Max     float64      `json:"max,omitempty"`
	Step    float64      `json:"step,omitempty"`
}
