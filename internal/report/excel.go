package report

import (
	"fmt"
	"time"

	"wisefido-eegstaging/internal/models"
	"wisefido-eegstaging/internal/staging"

	"github.com/xuri/excelize/v2"
)

// 报表工作表
const (
	SummarySheet   = "Summary"
	HypnogramSheet = "Hypnogram"
)

// 分期标签在汇总页中的展示顺序
var summaryStageOrder = []staging.Stage{
	staging.StageWake,
	staging.StageN1,
	staging.StageN2,
	staging.StageN3,
	staging.StageREM,
}

var stageDisplayNames = map[staging.Stage]string{
	staging.StageWake: "Wake",
	staging.StageN1:   "N1",
	staging.StageN2:   "N2",
	staging.StageN3:   "N3",
	staging.StageREM:  "REM",
}

// GenerateStagingReport 生成分期结果 Excel 报表
//
// Summary 页：记录信息、睡眠占比、各分期的 epoch 数和分钟数；
// Hypnogram 页：逐 epoch 的起始时间和共识分期标签。
func GenerateStagingReport(result *models.StagingResult) ([]byte, error) {
	f := excelize.NewFile()
	// Note: Don't defer Close() here, because WriteToBuffer needs the file to be open

	summaryIndex, err := f.NewSheet(SummarySheet)
	if err != nil {
		f.Close() // Close on error
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if _, err := f.NewSheet(HypnogramSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create hypnogram sheet: %w", err)
	}

	// 删除默认的 Sheet1
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(summaryIndex)

	// 表头样式
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeSummary(f, result, headerStyle); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeHypnogram(f, result, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	f.Close()

	return buf.Bytes(), nil
}

func writeSummary(f *excelize.File, result *models.StagingResult, headerStyle int) error {
	rows := [][]interface{}{
		{"Recording", result.RecordingName},
		{"Recording ID", result.RecordingID},
		{"Request ID", result.RequestID},
		{"Epochs (30 s)", result.EpochCount},
		{"Sleep Percentage", fmt.Sprintf("%.1f%%", result.SleepPercentage)},
		{"Annotations", result.AnnotationCount},
		{"Generated", time.Unix(result.Timestamp, 0).UTC().Format("2006-01-02 15:04:05 UTC")},
	}

	for i, row := range rows {
		cell := fmt.Sprintf("A%d", i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	if err := f.SetCellStyle(SummarySheet, "A1", fmt.Sprintf("A%d", len(rows)), headerStyle); err != nil {
		return fmt.Errorf("failed to style summary: %w", err)
	}

	// 分期统计
	counts := make(map[staging.Stage]int)
	for _, label := range result.Stages {
		counts[staging.Stage(label)]++
	}

	startRow := len(rows) + 2
	header := []interface{}{"Stage", "Epochs", "Minutes"}
	if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", startRow), &header); err != nil {
		return fmt.Errorf("failed to write stage header: %w", err)
	}
	if err := f.SetCellStyle(SummarySheet, fmt.Sprintf("A%d", startRow), fmt.Sprintf("C%d", startRow), headerStyle); err != nil {
		return fmt.Errorf("failed to style stage header: %w", err)
	}

	for i, stage := range summaryStageOrder {
		row := []interface{}{
			stageDisplayNames[stage],
			counts[stage],
			float64(counts[stage]) * staging.EpochSeconds / 60,
		}
		if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", startRow+1+i), &row); err != nil {
			return fmt.Errorf("failed to write stage row: %w", err)
		}
	}

	// 列宽（让标签和时间戳完整可见）
	if err := f.SetColWidth(SummarySheet, "A", "A", 20); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	if err := f.SetColWidth(SummarySheet, "B", "B", 28); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}

	return nil
}

func writeHypnogram(f *excelize.File, result *models.StagingResult, headerStyle int) error {
	header := []interface{}{"Epoch", "Onset (s)", "Stage"}
	if err := f.SetSheetRow(HypnogramSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write hypnogram header: %w", err)
	}
	if err := f.SetCellStyle(HypnogramSheet, "A1", "C1", headerStyle); err != nil {
		return fmt.Errorf("failed to style hypnogram header: %w", err)
	}

	for i, label := range result.Stages {
		row := []interface{}{
			i,
			float64(i) * staging.EpochSeconds,
			label,
		}
		if err := f.SetSheetRow(HypnogramSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write hypnogram row: %w", err)
		}
	}

	return nil
}
