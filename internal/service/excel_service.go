package service

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"results-web/internal/models"
)

type ExcelService struct{}

func NewExcelService() *ExcelService {
	return &ExcelService{}
}

// GenerateStudentTemplate creates a template Excel file for roster uploads
func (s *ExcelService) GenerateStudentTemplate(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Students"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Set headers
	headers := []string{
		"roll_no", "first_name", "last_name", "display_name",
		"official_email", "recovery_email", "batch_code", "status",
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	// Add sample data
	sampleData := [][]interface{}{
		{"PMC-1001", "Ayesha", "Khan", "Ayesha Khan", "ayesha.khan@pmc.edu.pk", "ayesha.k@gmail.com", "2024-A", "active"},
		{"PMC-1002", "Bilal", "Ahmed", "Bilal Ahmed", "bilal.ahmed@pmc.edu.pk", "", "2024-A", "active"},
		{"PMC-1003", "Fatima", "Raza", "Fatima Raza", "fatima.raza@pmc.edu.pk", "", "2024-B", "inactive"},
	}

	// Write sample data
	for rowIdx, rowData := range sampleData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Set column widths
	f.SetColWidth(sheetName, "A", "A", 15)
	f.SetColWidth(sheetName, "B", "B", 18)
	f.SetColWidth(sheetName, "C", "C", 18)
	f.SetColWidth(sheetName, "D", "D", 25)
	f.SetColWidth(sheetName, "E", "F", 30)
	f.SetColWidth(sheetName, "G", "H", 12)

	// Add instructions
	instructionsStartRow := len(sampleData) + 4
	instructions := []string{
		"Instructions:",
		"1. roll_no: Unique roll number (letters, digits, dash, underscore)",
		"2. first_name / last_name / display_name: Student names",
		"3. official_email: Must belong to the institutional domain",
		"4. recovery_email and batch_code are optional",
		"5. status: active, inactive, graduated or suspended (blank defaults to active)",
		"",
		"Note: Do not modify the header row. Fill data starting from row 2.",
		"Save as CSV before uploading.",
	}

	for i, instruction := range instructions {
		cell := fmt.Sprintf("A%d", instructionsStartRow+i)
		f.SetCellValue(sheetName, cell, instruction)
	}

	// Style instructions
	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F8FF"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", instructionsStartRow), fmt.Sprintf("A%d", instructionsStartRow), instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// GenerateResultTemplate creates a template Excel file for exam result uploads
func (s *ExcelService) GenerateResultTemplate(outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Results"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Set headers
	headers := []string{
		"roll_no", "name", "block", "year", "subject",
		"written_marks", "viva_marks", "total_marks", "grade", "exam_date",
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	// Add sample data
	sampleData := [][]interface{}{
		{"PMC-1001", "Ayesha Khan", "Block A", 2026, "Anatomy", 52.5, 18.0, 70.5, "B", "2026-06-15"},
		{"PMC-1002", "Bilal Ahmed", "Block A", 2026, "Anatomy", 61.0, 24.0, 85.0, "A", "2026-06-15"},
		{"PMC-1001", "Ayesha Khan", "Block A", 2026, "Physiology", 48.0, 15.5, 63.5, "C", "2026-06-18"},
	}

	// Write sample data
	for rowIdx, rowData := range sampleData {
		row := rowIdx + 2
		for colIdx, value := range rowData {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Set column widths
	f.SetColWidth(sheetName, "A", "A", 15)
	f.SetColWidth(sheetName, "B", "B", 25)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 8)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "I", 14)
	f.SetColWidth(sheetName, "J", "J", 14)

	// Add instructions
	instructionsStartRow := len(sampleData) + 4
	instructions := []string{
		"Instructions:",
		"1. roll_no: Must match an existing student",
		"2. exam_date: YYYY-MM-DD format",
		"3. written_marks + viva_marks must equal total_marks",
		"4. A student can have one row per subject and exam date",
		"",
		"Note: Do not modify the header row. Fill data starting from row 2.",
		"Save as CSV before uploading.",
	}

	for i, instruction := range instructions {
		cell := fmt.Sprintf("A%d", instructionsStartRow+i)
		f.SetCellValue(sheetName, cell, instruction)
	}

	// Style instructions
	instructionStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 10},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#F0F8FF"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", instructionsStartRow), fmt.Sprintf("A%d", instructionsStartRow), instructionStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// GenerateImportErrorReport creates an Excel report with the rows an
// import batch rejected
func (s *ExcelService) GenerateImportErrorReport(summary *models.ImportSummary, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Import Errors"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Set headers
	headers := []string{
		"Row Number", "Action", "Errors",
	}

	// Write headers
	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFE6E6"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	// Write error rows
	errorStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFFFCC"}, Pattern: 1},
	})

	row := 2
	for _, rr := range summary.RowResults {
		if !rr.HasErrors() {
			continue
		}
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), rr.RowNumber)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), string(rr.Action))
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), strings.Join(rr.Errors, "; "))
		f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", getColumnName(len(headers)-1), row), errorStyle)
		row++
	}

	// Set column widths
	f.SetColWidth(sheetName, "A", "A", 12)
	f.SetColWidth(sheetName, "B", "B", 12)
	f.SetColWidth(sheetName, "C", "C", 70)

	// Add summary section
	summaryStartRow := row + 2
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow), "Import Summary")
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+1), "Total Rows Processed:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+1), summary.RowCount())
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+2), "Created:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+2), summary.Created)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+3), "Updated:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+3), summary.Updated)
	f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryStartRow+4), "Skipped:")
	f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryStartRow+4), summary.Skipped)

	// Style summary section
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryStartRow), fmt.Sprintf("A%d", summaryStartRow), summaryStyle)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// ExportResults exports published results for a subject/exam sitting to
// an Excel file
func (s *ExcelService) ExportResults(results []models.Result, students map[int64]models.Student, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Published Results"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}

	// Set headers
	headers := []string{
		"Roll No", "Student", "Block", "Year", "Subject",
		"Theory", "Practical", "Total", "Grade", "Exam Date",
	}

	for i, header := range headers {
		cell := fmt.Sprintf("%s1", getColumnName(i))
		f.SetCellValue(sheetName, cell, header)
	}

	// Set header style
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	f.SetCellStyle(sheetName, "A1", fmt.Sprintf("%s1", getColumnName(len(headers)-1)), headerStyle)

	// Write data
	for i, result := range results {
		row := i + 2
		var rollNo, name string
		if student, ok := students[result.StudentID]; ok {
			rollNo = student.RollNumber
			name = student.DisplayName
		}

		values := []interface{}{
			rollNo,
			name,
			result.Block,
			result.Year,
			result.Subject,
			result.TheoryMarks.StringFixed(2),
			result.PracticalMarks.StringFixed(2),
			result.TotalMarks.StringFixed(2),
			result.Grade,
			result.ExamDate.Format("2006-01-02"),
		}

		for colIdx, value := range values {
			cell := fmt.Sprintf("%s%d", getColumnName(colIdx), row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	// Set column widths
	f.SetColWidth(sheetName, "A", "A", 15)
	f.SetColWidth(sheetName, "B", "B", 25)
	f.SetColWidth(sheetName, "C", "C", 12)
	f.SetColWidth(sheetName, "D", "D", 8)
	f.SetColWidth(sheetName, "E", "E", 20)
	f.SetColWidth(sheetName, "F", "J", 12)

	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	return f.SaveAs(outputPath)
}

// Helper functions
func getColumnName(index int) string {
	result := ""
	for index >= 0 {
		result = string(rune('A'+(index%26))) + result
		index = index/26 - 1
	}
	return result
}
