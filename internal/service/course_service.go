package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// ── 课程模块业务错误 ──

var (
	ErrInvalidCategory = errors.New("课程类别无效")
)

// 审计记录列表上限
const adjustmentListLimit = 50

// CourseService 课程查询、名额查询与人工调整
type CourseService interface {
	List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error)
	GetByID(ctx context.Context, id string) (*dto.CourseResponse, error)
	GetOccupancy(ctx context.Context, id string) (*dto.OccupancyResponse, error)
	AdjustCapacity(ctx context.Context, courseID, operatorID string, req *dto.AdjustCapacityRequest) (*dto.CapacityAdjustmentResponse, error)
	ListAdjustments(ctx context.Context, courseID string) ([]dto.CapacityAdjustmentResponse, error)
	// AuditOccupancy 对比未结束课程的 current_students 与有效预约数，只报告不修复
	AuditOccupancy(ctx context.Context, now time.Time) ([]dto.OccupancyDrift, error)
}

type courseService struct {
	repo   *repository.Repository
	opts   Options
	ledger CapacityLedger
	cache  OccupancyCache
	logger *zap.Logger
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, opts Options, ledger CapacityLedger, cache OccupancyCache, logger *zap.Logger) CourseService {
	if cache == nil {
		cache = nopOccupancyCache{}
	}
	return &courseService{repo: repo, opts: opts.withDefaults(), ledger: ledger, cache: cache, logger: logger}
}

// ────────────────────── 查询 ──────────────────────

func (s *courseService) List(ctx context.Context, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	filters := &repository.CourseListFilters{Category: req.Category}
	if req.Category != "" && !model.CourseCategory(req.Category).Valid() {
		return nil, 0, ErrInvalidCategory
	}
	if req.From != "" {
		from, err := time.ParseInLocation(model.DateLayout, req.From, s.opts.Location)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		filters.From = &from
	}
	if req.To != "" {
		to, err := time.ParseInLocation(model.DateLayout, req.To, s.opts.Location)
		if err != nil {
			return nil, 0, ErrInvalidDate
		}
		// 含当日
		to = to.AddDate(0, 0, 1)
		filters.To = &to
	}

	courses, total, err := s.repo.Course.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, storageError(err)
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, *toCourseResponse(&courses[i]))
	}
	return result, total, nil
}

func (s *courseService) GetByID(ctx context.Context, id string) (*dto.CourseResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("course_id", id), zap.Error(err))
		return nil, storageError(err)
	}
	return toCourseResponse(course), nil
}

// GetOccupancy 先读缓存，未命中再读库并回填
func (s *courseService) GetOccupancy(ctx context.Context, id string) (*dto.OccupancyResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	current, capacity, found, err := s.cache.GetOccupancy(ctx, id)
	if err != nil {
		s.logger.Warn("读取名额缓存失败", zap.String("course_id", id), zap.Error(err))
		found = false
	}

	if !found {
		// 代号须在读库之前取得，读库后若有失效则放弃回填
		gen, genErr := s.cache.OccupancyGeneration(ctx, id)
		if genErr != nil {
			s.logger.Warn("读取名额缓存代号失败", zap.String("course_id", id), zap.Error(genErr))
		}

		current, capacity, err = s.repo.Capacity.GetOccupancy(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrCourseNotFound
			}
			s.logger.Error("查询课程名额失败", zap.String("course_id", id), zap.Error(err))
			return nil, storageError(err)
		}

		if genErr == nil {
			stored, err := s.cache.SetOccupancy(ctx, id, gen, current, capacity, s.opts.OccupancyCacheTTL)
			switch {
			case err != nil:
				s.logger.Warn("写入名额缓存失败", zap.String("course_id", id), zap.Error(err))
			case !stored:
				s.logger.Debug("名额缓存已失效，跳过回填", zap.String("course_id", id))
			}
		}
	}

	available := capacity - current
	if available < 0 {
		available = 0
	}
	return &dto.OccupancyResponse{
		CourseID:    id,
		Current:     current,
		MaxStudents: capacity,
		Available:   available,
		Full:        current >= capacity,
	}, nil
}

// ────────────────────── 人工调整 ──────────────────────

func (s *courseService) AdjustCapacity(ctx context.Context, courseID, operatorID string, req *dto.AdjustCapacityRequest) (*dto.CapacityAdjustmentResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	adj, err := s.ledger.Adjust(ctx, courseID, req.Delta, LedgerOverride{
		OperatorID: operatorID,
		Reason:     req.Reason,
	})
	if err != nil {
		return nil, err
	}
	return toAdjustmentResponse(adj), nil
}

func (s *courseService) ListAdjustments(ctx context.Context, courseID string) ([]dto.CapacityAdjustmentResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	adjustments, err := s.repo.Capacity.ListAdjustments(ctx, courseID, adjustmentListLimit)
	if err != nil {
		s.logger.Error("列出名额调整记录失败", zap.String("course_id", courseID), zap.Error(err))
		return nil, storageError(err)
	}

	result := make([]dto.CapacityAdjustmentResponse, 0, len(adjustments))
	for i := range adjustments {
		result = append(result, *toAdjustmentResponse(&adjustments[i]))
	}
	return result, nil
}

// ────────────────────── 一致性巡检 ──────────────────────

func (s *courseService) AuditOccupancy(ctx context.Context, now time.Time) ([]dto.OccupancyDrift, error) {
	courses, err := s.repo.Course.ListUpcoming(ctx, now)
	if err != nil {
		return nil, storageError(err)
	}
	counts, err := s.repo.Booking.CountActiveByCourse(ctx)
	if err != nil {
		return nil, storageError(err)
	}

	var drifts []dto.OccupancyDrift
	for i := range courses {
		c := &courses[i]
		active := counts[c.CourseID]
		if active == c.CurrentStudents {
			continue
		}
		drifts = append(drifts, dto.OccupancyDrift{
			CourseID:        c.CourseID,
			CurrentStudents: c.CurrentStudents,
			ActiveBookings:  active,
		})
		s.logger.Warn("名额账本与有效预约数不一致",
			zap.String("course_id", c.CourseID),
			zap.Int("current_students", c.CurrentStudents),
			zap.Int("active_bookings", active),
		)
	}
	return drifts, nil
}

func toAdjustmentResponse(a *model.CapacityAdjustment) *dto.CapacityAdjustmentResponse {
	return &dto.CapacityAdjustmentResponse{
		ID:          a.AdjustmentID,
		CourseID:    a.CourseID,
		Delta:       a.Delta,
		BeforeCount: a.BeforeCount,
		AfterCount:  a.AfterCount,
		Reason:      a.Reason,
		OperatorID:  a.OperatorID,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}
