package hooks

import "fmt"

// Stage names a point in the pipeline lifecycle at which hooks run.
type Stage string

const (
	BeforeClean    Stage = "before-clean"
	AfterClean     Stage = "after-clean"
	BeforeGenerate Stage = "before-generate"
	AfterGenerate  Stage = "after-generate"
)

// Stages returns the recognized stages in pipeline order.
func Stages() []Stage {
	return []Stage{BeforeClean, AfterClean, BeforeGenerate, AfterGenerate}
}

// IsValid reports whether s is a recognized stage.
func (s Stage) IsValid() bool {
	switch s {
	case BeforeClean, AfterClean, BeforeGenerate, AfterGenerate:
		return true
	}
	return false
}

// ParseStage converts a configured stage name.
func ParseStage(name string) (Stage, error) {
	s := Stage(name)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown hook stage %q", name)
	}
	return s, nil
}
