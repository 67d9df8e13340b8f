package models

import "fmt"

// ProjectColumns is the persisted column order of the project_dis table.
var ProjectColumns = []string{"project_no", "description"}

// Project is immutable once written.
type Project struct {
	ProjectNo   string `json:"project_no"`
	Description string `json:"description"`
}

func (p *Project) ToRecord() []string {
	return []string{p.ProjectNo, p.Description}
}

func ProjectFromRecord(rec []string) (Project, error) {
	if len(rec) != len(ProjectColumns) {
		return Project{}, fmt.Errorf("%w: project row has %d fields, want %d", ErrMalformedRecord, len(rec), len(ProjectColumns))
	}
	return Project{ProjectNo: rec[0], Description: rec[1]}, nil
}
