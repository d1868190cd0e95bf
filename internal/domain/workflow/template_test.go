package workflow

import (
	"testing"

	"github.com/garyjia/nodue-clearance/internal/domain/entity"
)

func TestDefaultTemplate_WithOptionalStage(t *testing.T) {
	stages := DefaultTemplate().Stages(true)
	if len(stages) != 9 {
		t.Fatalf("len(Stages(true)) = %d, want 9", len(stages))
	}
	for i, s := range stages {
		if s.SequenceNumber != i+1 {
			t.Errorf("stage %d sequence = %d, want %d", i, s.SequenceNumber, i+1)
		}
	}
	if stages[3].Department != entity.DepartmentHostelWarden {
		t.Errorf("stage 3 department = %s, want %s", stages[3].Department, entity.DepartmentHostelWarden)
	}
}

func TestDefaultTemplate_WithoutOptionalStage(t *testing.T) {
	stages := DefaultTemplate().Stages(false)
	if len(stages) != 8 {
		t.Fatalf("len(Stages(false)) = %d, want 8", len(stages))
	}

	want := []int{1, 2, 3, 5, 6, 7, 8, 9}
	for i, s := range stages {
		if s.SequenceNumber != want[i] {
			t.Errorf("stage %d sequence = %d, want %d", i, s.SequenceNumber, want[i])
		}
		if s.Department == entity.DepartmentHostelWarden {
			t.Errorf("optional department present at index %d", i)
		}
	}
}

func TestDefaultTemplate_Deterministic(t *testing.T) {
	tmpl := DefaultTemplate()
	a, b := tmpl.Stages(true), tmpl.Stages(true)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("Stages() differs at %d: %+v vs %+v", i, a[i], b[i])
		}
	}

	a[0].Department = entity.DepartmentHOD
	if tmpl.Stages(true)[0].Department != entity.DepartmentFaculty {
		t.Error("mutating a materialized list must not change the template")
	}
}

func TestNewTemplate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		specs   []StageSpec
		wantErr bool
	}{
		{"valid", []StageSpec{{1, entity.DepartmentFaculty, false}, {3, entity.DepartmentHOD, false}}, false},
		{"empty department", []StageSpec{{1, entity.DepartmentNone, false}}, true},
		{"duplicate department", []StageSpec{{1, entity.DepartmentHOD, false}, {2, entity.DepartmentHOD, false}}, true},
		{"decreasing sequence", []StageSpec{{2, entity.DepartmentFaculty, false}, {1, entity.DepartmentHOD, false}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTemplate(tt.specs)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewTemplate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
