package analytics

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// WriteXLSX renders the report as a spreadsheet with an overview sheet and
// one sheet per skill frequency table.
func (rep *Report) WriteXLSX(w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	const overview = "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Candidates", rep.Candidates},
		{"Postings", rep.Postings},
		{"Active postings", rep.ActivePostings},
		{"Failed candidates", rep.FailedCandidates},
		{"Avg skills per profile", rep.AvgSkillsPerProfile},
	}
	for lang, n := range rep.Languages {
		rows = append(rows, []interface{}{"CVs in " + lang, n})
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(overview, cell, &row); err != nil {
			return fmt.Errorf("write overview row: %w", err)
		}
	}

	if err := writeSkillSheet(f, "Candidate Skills", rep.TopCandidateSkills); err != nil {
		return err
	}
	if err := writeSkillSheet(f, "Required Skills", rep.TopRequiredSkills); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSkillSheet(f *excelize.File, name string, skills []SkillCount) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("create sheet %s: %w", name, err)
	}
	header := []interface{}{"Skill", "Count"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, sc := range skills {
		row := []interface{}{sc.Skill, sc.Count}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("write skill row: %w", err)
		}
	}
	return nil
}
