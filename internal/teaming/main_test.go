package teaming

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func orderedStudents(values ...int) []Student {
	students := make([]Student, len(values))
	for i, v := range values {
		students[i] = Student{
			ID:              int64(i + 1),
			Attributes:      [][]int{{v}},
			ScheduleUnknown: true,
		}
	}
	return students
}

func orderedConfig() ScoringConfig {
	cfg := DefaultScoringConfig()
	cfg.ScheduleWeight = 0
	cfg.Attributes = []AttributeRule{{Kind: KindOrdered, Weight: 1, Diversity: Heterogeneous}}
	return cfg
}

func isPermutation(g Genome) bool {
	seen := make([]bool, len(g))
	for _, member := range g {
		if member < 0 || member >= len(g) || seen[member] {
			return false
		}
		seen[member] = true
	}
	return true
}
