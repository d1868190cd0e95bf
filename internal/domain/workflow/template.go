package workflow

import (
	"fmt"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

// StageSpec is one entry of a stage template
type StageSpec struct {
	SequenceNumber int
	Department     entity.Department
	Optional       bool
}

// Template is the ordered list of departments a request passes through.
// Sequence numbers are labels; traversal is by list position only.
type Template struct {
	specs []StageSpec
}

// DefaultTemplate returns the institution's clearance route. The hostel
// warden stage is the only optional one.
func DefaultTemplate() Template {
	return Template{specs: []StageSpec{
		{SequenceNumber: 1, Department: entity.DepartmentFaculty},
		{SequenceNumber: 2, Department: entity.DepartmentClassCoordinator},
		{SequenceNumber: 3, Department: entity.DepartmentHOD},
		{SequenceNumber: 4, Department: entity.DepartmentHostelWarden, Optional: true},
		{SequenceNumber: 5, Department: entity.DepartmentLibrary},
		{SequenceNumber: 6, Department: entity.DepartmentWorkshopLab},
		{SequenceNumber: 7, Department: entity.DepartmentTrainingPlacement},
		{SequenceNumber: 8, Department: entity.DepartmentGeneralOffice},
		{SequenceNumber: 9, Department: entity.DepartmentAccountsOffice},
	}}
}

// NewTemplate validates and copies specs. Sequence numbers must be strictly
// increasing and departments unique.
func NewTemplate(specs []StageSpec) (Template, error) {
	seen := make(map[entity.Department]bool, len(specs))
	for i, s := range specs {
		if s.Department == entity.DepartmentNone {
			return Template{}, fmt.Errorf("stage %d has no department", i)
		}
		if seen[s.Department] {
			return Template{}, fmt.Errorf("department %q appears twice", s.Department)
		}
		seen[s.Department] = true
		if i > 0 && s.SequenceNumber <= specs[i-1].SequenceNumber {
			return Template{}, fmt.Errorf("sequence number %d at index %d is not increasing", s.SequenceNumber, i)
		}
	}
	return Template{specs: append([]StageSpec(nil), specs...)}, nil
}

// Stages materializes the route for a request. Optional stages are dropped
// when includeOptional is false; the remaining sequence numbers are kept as-is.
func (t Template) Stages(includeOptional bool) []StageSpec {
	out := make([]StageSpec, 0, len(t.specs))
	for _, s := range t.specs {
		if s.Optional && !includeOptional {
			continue
		}
		out = append(out, s)
	}
	return out
}

// Departments returns every department the template can route to
func (t Template) Departments() []entity.Department {
	out := make([]entity.Department, len(t.specs))
	for i, s := range t.specs {
		out[i] = s.Department
	}
	return out
}
