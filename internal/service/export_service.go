package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

var bookingStatusNames = map[string]string{
	"pending":   "待审核",
	"confirmed": "已确认",
}

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportRoster 导出课程有效预约名单（pending + confirmed）
	ExportRoster(ctx context.Context, courseID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, opts Options, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, opts: opts.withDefaults(), logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRoster 导出课程名单为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 标题行：课程代码 课程名称 上课时间
//   - 表头：序号 | 学号 | 姓名 | 邮箱 | 电话 | 状态 | 预约时间
//   - 末行：合计人数 / 名额上限
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportRoster(ctx context.Context, courseID string) (*bytes.Buffer, string, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	// 1. 课程
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, "", storageError(err)
	}

	// 2. 有效预约
	bookings, err := s.repo.Booking.ListActiveByCourse(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课程名单失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, "", storageError(err)
	}

	entries := make([]dto.RosterEntry, 0, len(bookings))
	for i := range bookings {
		b := &bookings[i]
		entry := dto.RosterEntry{
			Status:      bookingStatusNames[string(b.Status)],
			BookingDate: b.BookingDate.In(s.opts.Location).Format("2006-01-02 15:04"),
		}
		if b.User != nil {
			entry.StudentID = b.User.StudentID
			entry.Name = b.User.Name
			entry.Email = b.User.Email
			entry.Phone = b.User.Phone
		}
		entries = append(entries, entry)
	}

	// 3. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	widths := []float64{6, 14, 14, 28, 16, 10, 18}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	start := course.StartTime.In(s.opts.Location)
	title := fmt.Sprintf("%s %s  %s-%s", course.Code, course.Name,
		start.Format("2006-01-02 15:04"), course.EndTime.In(s.opts.Location).Format("15:04"))
	f.SetCellValue(sheetName, "A1", title)
	f.MergeCell(sheetName, "A1", cell(colName(len(widths)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	headers := []string{"序号", "学号", "姓名", "邮箱", "电话", "状态", "预约时间"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	row := 3
	for i, e := range entries {
		values := []interface{}{i + 1, e.StudentID, e.Name, e.Email, e.Phone, e.Status, e.BookingDate}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	// 合计
	f.SetCellValue(sheetName, cell("A", row), "合计")
	f.SetCellValue(sheetName, cell("B", row), fmt.Sprintf("%d / %d", len(entries), course.MaxStudents))

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("名单_%s_%s.xlsx", course.Code, start.Format("20060102"))
	return buf, filename, nil
}

// ── 辅助函数 ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
