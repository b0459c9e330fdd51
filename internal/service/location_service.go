package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
)

// ── 场地模块业务错误 ──

var (
	ErrLocationNotFound    = errors.New("场地不存在")
	ErrLocationNameTaken   = errors.New("已存在同名的启用场地")
	ErrVenueNotHostingType = errors.New("该场地不承接此活动类型")
)

// LocationService 活动场地维护
// 活动时段以场地名称为键，启用中的场地名称必须唯一
type LocationService interface {
	Create(ctx context.Context, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error)
	GetByID(ctx context.Context, id string) (*dto.LocationResponse, error)
	List(ctx context.Context, req *dto.LocationListRequest) ([]dto.LocationResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type locationService struct {
	repo   *repository.Repository
	opts   Options
	logger *zap.Logger
}

// NewLocationService 创建 LocationService 实例
func NewLocationService(repo *repository.Repository, opts Options, logger *zap.Logger) LocationService {
	return &locationService{repo: repo, opts: opts.withDefaults(), logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *locationService) Create(ctx context.Context, req *dto.CreateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	name := strings.TrimSpace(req.Name)
	if err := s.ensureNameFree(ctx, name, ""); err != nil {
		return nil, err
	}

	loc := &model.Location{
		Name:          name,
		Address:       strings.TrimSpace(req.Address),
		ActivityTypes: normalizeActivityTypes(req.ActivityTypes),
		IsDefault:     req.IsDefault,
		IsActive:      true,
	}
	loc.CreatedBy = &callerID
	loc.UpdatedBy = &callerID

	if err := s.repo.Location.Create(ctx, loc); err != nil {
		s.logger.Error("创建场地失败", zap.String("name", name), zap.Error(err))
		return nil, storageError(err)
	}

	s.logger.Info("场地已创建",
		zap.String("location_id", loc.LocationID),
		zap.String("name", name),
		zap.Strings("activity_types", loc.ActivityTypes),
	)
	return toLocationResponse(loc), nil
}

// ────────────────────── GetByID / List ──────────────────────

func (s *locationService) GetByID(ctx context.Context, id string) (*dto.LocationResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	loc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return toLocationResponse(loc), nil
}

func (s *locationService) List(ctx context.Context, req *dto.LocationListRequest) ([]dto.LocationResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	locations, err := s.repo.Location.List(ctx, req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出场地失败", zap.Error(err))
		return nil, storageError(err)
	}

	want := model.ActivityType(req.ActivityType)
	result := make([]dto.LocationResponse, 0, len(locations))
	for i := range locations {
		if want != "" && !locations[i].Hosts(want) {
			continue
		}
		result = append(result, *toLocationResponse(&locations[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *locationService) Update(ctx context.Context, id string, req *dto.UpdateLocationRequest, callerID string) (*dto.LocationResponse, error) {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	loc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name != loc.Name {
			if err := s.ensureNameFree(ctx, name, loc.LocationID); err != nil {
				return nil, err
			}
		}
		loc.Name = name
	}
	if req.Address != nil {
		loc.Address = strings.TrimSpace(*req.Address)
	}
	if req.ActivityTypes != nil {
		loc.ActivityTypes = normalizeActivityTypes(*req.ActivityTypes)
	}
	if req.IsDefault != nil {
		loc.IsDefault = *req.IsDefault
	}
	if req.IsActive != nil {
		loc.IsActive = *req.IsActive
	}
	loc.UpdatedBy = &callerID

	if err := s.repo.Location.Update(ctx, loc); err != nil {
		s.logger.Error("更新场地失败", zap.String("location_id", id), zap.Error(err))
		return nil, storageError(err)
	}
	return toLocationResponse(loc), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 软删除并停用；已有活动预约不受影响，只是不能再预约该场地
func (s *locationService) Delete(ctx context.Context, id string, callerID string) error {
	ctx, cancel := withStorageTimeout(ctx, s.opts.StorageTimeout)
	defer cancel()

	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Location.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除场地失败", zap.String("location_id", id), zap.Error(err))
		return storageError(err)
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *locationService) get(ctx context.Context, id string) (*model.Location, error) {
	loc, err := s.repo.Location.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		s.logger.Error("查询场地失败", zap.String("location_id", id), zap.Error(err))
		return nil, storageError(err)
	}
	return loc, nil
}

func (s *locationService) ensureNameFree(ctx context.Context, name, selfID string) error {
	existing, err := s.repo.Location.GetActiveByName(ctx, name)
	if err == nil && existing.LocationID != selfID {
		return ErrLocationNameTaken
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return storageError(err)
	}
	return nil
}

// normalizeActivityTypes 去重并保持提交顺序，返回非 nil 切片以满足 NOT NULL 列
func normalizeActivityTypes(types []string) model.StringArray {
	out := make(model.StringArray, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

func toLocationResponse(loc *model.Location) *dto.LocationResponse {
	types := []string(loc.ActivityTypes)
	if types == nil {
		types = []string{}
	}
	return &dto.LocationResponse{
		ID:            loc.LocationID,
		Name:          loc.Name,
		Address:       loc.Address,
		ActivityTypes: types,
		IsDefault:     loc.IsDefault,
		IsActive:      loc.IsActive,
		CreatedAt:     formatTime(loc.CreatedAt),
		UpdatedAt:     formatTime(loc.UpdatedAt),
	}
}
