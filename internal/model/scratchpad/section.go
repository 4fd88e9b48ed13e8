// Package scratchpad models the fixed set of labeled prompt slots. Slots are
// seeded once at startup and only their content changes at runtime.
package scratchpad

// Labels of the seeded slots, in prompt order.
const (
	LabelGlobalInstructions = "Global Instructions"
	LabelProjectState       = "Project State"
	LabelContext            = "Context"
	LabelTask               = "Task to Perform"
)

// Section is one labeled slot and its current content.
type Section struct {
	Label   string `json:"label"`
	Content string `json:"content"`
}

// SeedLabels returns the slot labels in their fixed prompt order.
func SeedLabels() []string {
	return []string{
		LabelGlobalInstructions,
		LabelProjectState,
		LabelContext,
		LabelTask,
	}
}
