package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/learning-assessment/internal/repositories"
)

func TestImportExportService_ExportCourseResults(t *testing.T) {
	env := newTestEnv(t, nil)
	seedDrivingCourse(env)
	ctx := context.Background()

	env.completeModule(t, "learner-1", "c1", "rs", 80)
	env.completeModule(t, "learner-1", "c1", "m2", 55)
	env.completeModule(t, "learner-2", "c1", "rs", 95)
	// started attempts are not results
	if _, err := env.services.Attempt().StartModule(ctx, &StartModuleAttemptRequest{CourseID: "c1", ModuleID: "m3"}, "learner-1"); err != nil {
		t.Fatalf("StartModule failed: %v", err)
	}

	learner := "learner-1"
	tests := []struct {
		name      string
		learnerID *string
		rows      int
	}{
		{name: "whole course", rows: 3},
		{name: "one learner", learnerID: &learner, rows: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := env.services.ImportExport().ExportCourseResults(ctx, "c1", tt.learnerID)
			if err != nil {
				t.Fatalf("ExportCourseResults failed: %v", err)
			}

			f, err := excelize.OpenReader(buf)
			if err != nil {
				t.Fatalf("OpenReader failed: %v", err)
			}
			defer f.Close()

			rows, err := f.GetRows(resultsSheet)
			if err != nil {
				t.Fatalf("GetRows failed: %v", err)
			}
			if len(rows) != tt.rows+1 {
				t.Fatalf("expected %d data rows, got %d", tt.rows, len(rows)-1)
			}
			if rows[0][0] != "Learner ID" {
				t.Errorf("unexpected header %v", rows[0])
			}
			for _, row := range rows[1:] {
				if row[5] != "submitted" {
					t.Errorf("expected only submitted rows, got %v", row)
				}
				if tt.learnerID != nil && row[0] != *tt.learnerID {
					t.Errorf("row of another learner exported: %v", row)
				}
			}
		})
	}
}

func TestImportExportService_ExportPagesPastListLimit(t *testing.T) {
	env := newTestEnv(t, nil)
	seedDrivingCourse(env)

	learners := repositories.MaxListLimit + 5
	for i := 0; i < learners; i++ {
		env.completeModule(t, fmt.Sprintf("learner-%03d", i), "c1", "rs", 70)
	}

	buf, err := env.services.ImportExport().ExportCourseResults(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("ExportCourseResults failed: %v", err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("OpenReader failed: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(resultsSheet)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows)-1 != learners {
		t.Fatalf("expected %d data rows, got %d", learners, len(rows)-1)
	}

	seen := make(map[string]bool, learners)
	for _, row := range rows[1:] {
		if seen[row[0]] {
			t.Errorf("learner %s exported twice", row[0])
		}
		seen[row[0]] = true
	}
}
