package services

import (
	"strings"
	"testing"
)

func TestParseActivityRowsAliasHeaders(t *testing.T) {
	content := strings.Join([]string{
		"Scope,Activity Type,Amount,Units,Start Date,End Date,Category,Quality",
		"3,cloud_compute_hours,1200,hours,2025-01-01,2025-01-31,cloud,estimated",
	}, "\n")

	rows, rowErrors := ParseActivityRows([]byte(content))
	if len(rowErrors) != 0 {
		t.Fatalf("unexpected row errors: %+v", rowErrors)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}

	row := rows[0]
	if row.Scope != 3 {
		t.Errorf("Scope = %d, want 3", row.Scope)
	}
	if row.ActivityType != "cloud_compute_hours" {
		t.Errorf("ActivityType = %q", row.ActivityType)
	}
	if row.Quantity.String() != "1200" {
		t.Errorf("Quantity = %s, want 1200", row.Quantity)
	}
	if row.Unit != "hours" {
		t.Errorf("Unit = %q, want hours", row.Unit)
	}
	if row.Scope3Category == nil || *row.Scope3Category != "cloud" {
		t.Errorf("Scope3Category = %v, want cloud", row.Scope3Category)
	}
	if row.DataQuality != "estimated" {
		t.Errorf("DataQuality = %q, want estimated", row.DataQuality)
	}
}

func TestParseActivityRowsStripsByteOrderMark(t *testing.T) {
	content := "\uFEFF" + strings.Join([]string{
		"scope,activity_type,quantity,unit,period_start,period_end",
		"1,fleet_fuel_liters,250,liters,2025-02-01,2025-02-28",
	}, "\n")

	rows, rowErrors := ParseActivityRows([]byte(content))
	if len(rowErrors) != 0 {
		t.Fatalf("unexpected row errors: %+v", rowErrors)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Scope != 1 {
		t.Errorf("Scope = %d, want 1", rows[0].Scope)
	}
}

func TestParseActivityRowsRequiredFieldErrorsCarryRowNumbers(t *testing.T) {
	content := strings.Join([]string{
		"scope,activity_type,quantity,unit,period_start,period_end",
		"3,,100,hours,2025-01-01,2025-01-31",
		"3,cloud_compute_hours,100,,2025-01-01,2025-01-31",
		"3,cloud_compute_hours,100,hours,,2025-01-31",
		"3,cloud_compute_hours,100,hours,2025-01-01,",
	}, "\n")

	rows, rowErrors := ParseActivityRows([]byte(content))
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
	if len(rowErrors) != 4 {
		t.Fatalf("row errors = %d, want 4: %+v", len(rowErrors), rowErrors)
	}

	wantMessages := []string{
		"activity_type is required",
		"unit is required",
		"period_start is required",
		"period_end is required",
	}
	for i, want := range wantMessages {
		if rowErrors[i].Row != i+2 {
			t.Errorf("error %d row = %d, want %d", i, rowErrors[i].Row, i+2)
		}
		if rowErrors[i].Message != want {
			t.Errorf("error %d message = %q, want %q", i, rowErrors[i].Message, want)
		}
	}
}

func TestParseActivityRowsPartialAccept(t *testing.T) {
	content := strings.Join([]string{
		"scope,activity_type,quantity,unit,period_start,period_end",
		"1,fleet_fuel_liters,250,liters,2025-02-01,2025-02-28",
		"9,fleet_fuel_liters,250,liters,2025-02-01,2025-02-28",
		"1,fleet_fuel_liters,abc,liters,2025-02-01,2025-02-28",
		"1,fleet_fuel_liters,-800,liters,2025-02-01,2025-02-28",
		"1,fleet_fuel_liters,250,liters,2025-02-28,2025-02-01",
		"2,purchased_electricity_kwh,5400,kWh,2025-02-01,2025-02-28",
	}, "\n")

	rows, rowErrors := ParseActivityRows([]byte(content))
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if len(rowErrors) != 4 {
		t.Fatalf("row errors = %d, want 4: %+v", len(rowErrors), rowErrors)
	}
	if rowErrors[0].Message != "scope must be 1, 2, or 3" {
		t.Errorf("error 0 = %q", rowErrors[0].Message)
	}
	if rowErrors[1].Message != "quantity must be a number" {
		t.Errorf("error 1 = %q", rowErrors[1].Message)
	}
	if rowErrors[2].Message != "quantity must not be negative" {
		t.Errorf("error 2 = %q", rowErrors[2].Message)
	}
	if rowErrors[3].Message != "period_end must not be before period_start" {
		t.Errorf("error 3 = %q", rowErrors[3].Message)
	}
}

func TestParseActivityRowsDefaults(t *testing.T) {
	content := strings.Join([]string{
		"activity_type,unit,period_start,period_end",
		"remote_work_days,days,2025-03-01,2025-03-31",
	}, "\n")

	rows, rowErrors := ParseActivityRows([]byte(content))
	if len(rowErrors) != 0 {
		t.Fatalf("unexpected row errors: %+v", rowErrors)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0].Scope != 3 {
		t.Errorf("default scope = %d, want 3", rows[0].Scope)
	}
	if !rows[0].Quantity.IsZero() {
		t.Errorf("default quantity = %s, want 0", rows[0].Quantity)
	}
	if rows[0].DataQuality != "manual" {
		t.Errorf("default quality = %q, want manual", rows[0].DataQuality)
	}
}

func TestParseActivityRowsEmptyFile(t *testing.T) {
	rows, rowErrors := ParseActivityRows(nil)
	if rows != nil {
		t.Fatalf("rows = %+v, want nil", rows)
	}
	if len(rowErrors) != 1 || rowErrors[0].Row != 0 {
		t.Fatalf("row errors = %+v, want one file-level error", rowErrors)
	}
}

func TestSampleActivityCSVRoundTrips(t *testing.T) {
	rows, rowErrors := ParseActivityRows(SampleActivityCSV())
	if len(rowErrors) != 0 {
		t.Fatalf("sample template produced errors: %+v", rowErrors)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}
