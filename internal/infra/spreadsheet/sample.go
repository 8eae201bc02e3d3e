package spreadsheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/bryanwahyu/automaton-tod/internal/domain/controls"
)

// SampleControls are four demo controls covering manual, automated and semi-automated designs.
var SampleControls = []controls.ControlRecord{
	{
		RiskID:             "R001",
		RiskDescription:    "Risk of unauthorized access to sensitive financial data resulting in data breaches, fraud, or regulatory violations",
		ControlID:          "C001",
		ControlDescription: "The IT Security Manager performs monthly comprehensive review of user access privileges including role verification, dormant account identification, access rights validation, and segregation of duties compliance in the SAP financial system",
		AutomationLevel:    "Manual",
		ControlType:        "Detective",
		Frequency:          "Monthly",
	},
	{
		RiskID:             "R002",
		RiskDescription:    "Risk of erroneous financial reporting due to manual data entry errors, system glitches, and lack of validation controls",
		ControlID:          "C002",
		ControlDescription: "Automated system validation checks are performed in real-time on all financial entries with exception reporting to the Finance Manager, including data type validation, range checks, duplicate detection, and business rule verification",
		AutomationLevel:    "Automated",
		ControlType:        "Preventive",
		Frequency:          "Real-time",
	},
	{
		RiskID:             "R003",
		RiskDescription:    "Risk of incomplete expense approvals leading to unauthorized payments, budget overruns, and fraud",
		ControlID:          "C003",
		ControlDescription: "Department heads review and approve all expenses above $1,000 using digital approval workflow with dual authorization requirement, documented business justification, and budget availability verification",
		AutomationLevel:    "Semi-Auto",
		ControlType:        "Preventive",
		Frequency:          "As needed",
	},
	{
		RiskID:             "R004",
		RiskDescription:    "Risk of inadequate data backup and recovery procedures resulting in data loss during system failures or cyber attacks",
		ControlID:          "C004",
		ControlDescription: "IT team performs weekly automated backups of critical financial data with monthly restore testing, quarterly disaster recovery drills, and annual business continuity plan review",
		AutomationLevel:    "Automated",
		ControlType:        "Preventive",
		Frequency:          "Weekly",
	},
}

// WriteInput writes records as an input workbook with the required header row.
func WriteInput(path string, records []controls.ControlRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for col, header := range controls.RequiredColumns {
		if err := setCell(f, sheet, col+1, 1, header); err != nil {
			return err
		}
	}
	for i, c := range records {
		values := inputValues(c)
		for col, v := range values {
			if err := setCell(f, sheet, col+1, i+2, v); err != nil {
				return err
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// WriteSample writes the demo workbook.
func WriteSample(path string) error {
	return WriteInput(path, SampleControls)
}

// inputValues returns the record fields in RequiredColumns order.
func inputValues(c controls.ControlRecord) []string {
	return []string{
		c.RiskID,
		c.RiskDescription,
		c.ControlID,
		c.ControlDescription,
		c.AutomationLevel,
		c.ControlType,
		c.Frequency,
	}
}

func setCell(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
