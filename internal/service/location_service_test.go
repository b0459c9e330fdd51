package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

func TestLocationService_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: " 模拟机房 ", Address: "航站楼 2F"}, "admin")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if created.Name != "模拟机房" || !created.IsActive {
		t.Errorf("创建结果不符: %+v", created)
	}

	if _, err := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: "模拟机房"}, "admin"); !errors.Is(err, ErrLocationNameTaken) {
		t.Errorf("期望 ErrLocationNameTaken，实际: %v", err)
	}

	inactive := false
	updated, err := f.svc.Location.Update(ctx, created.ID, &dto.UpdateLocationRequest{IsActive: &inactive}, "admin")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if updated.IsActive {
		t.Error("期望已停用")
	}

	list, _ := f.svc.Location.List(ctx, &dto.LocationListRequest{})
	if len(list) != 0 {
		t.Errorf("默认只列出启用场地，实际=%d", len(list))
	}
	list, _ = f.svc.Location.List(ctx, &dto.LocationListRequest{IncludeInactive: true})
	if len(list) != 1 {
		t.Errorf("期望 1 个场地，实际=%d", len(list))
	}

	// 停用后同名场地可重新创建
	if _, err := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: "模拟机房"}, "admin"); err != nil {
		t.Errorf("停用后应允许同名创建: %v", err)
	}

	if err := f.svc.Location.Delete(ctx, created.ID, "admin"); err != nil {
		t.Fatalf("Delete 应成功: %v", err)
	}
	if _, err := f.svc.Location.GetByID(ctx, created.ID); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("期望 ErrLocationNotFound，实际: %v", err)
	}
	if err := f.svc.Location.Delete(ctx, "missing", "admin"); !errors.Is(err, ErrLocationNotFound) {
		t.Errorf("期望 ErrLocationNotFound，实际: %v", err)
	}
}

func TestLocationService_RenameConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: "一号机房"}, "admin")
	_, _ = f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: "二号机房"}, "admin")

	name := "二号机房"
	if _, err := f.svc.Location.Update(ctx, a.ID, &dto.UpdateLocationRequest{Name: &name}, "admin"); !errors.Is(err, ErrLocationNameTaken) {
		t.Errorf("期望 ErrLocationNameTaken，实际: %v", err)
	}
	same := "一号机房"
	if _, err := f.svc.Location.Update(ctx, a.ID, &dto.UpdateLocationRequest{Name: &same}, "admin"); err != nil {
		t.Errorf("保持原名不应报错: %v", err)
	}
}

func TestLocationService_ActivityTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	simulator := string(model.ActivitySimulator)
	vision := string(model.ActivityVisionBox)

	hangar, err := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{
		Name:          "模拟机房",
		ActivityTypes: []string{simulator, simulator, vision},
	}, "admin")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if len(hangar.ActivityTypes) != 2 || hangar.ActivityTypes[0] != simulator || hangar.ActivityTypes[1] != vision {
		t.Errorf("活动类型应去重并保持顺序，实际: %v", hangar.ActivityTypes)
	}

	open, err := f.svc.Location.Create(ctx, &dto.CreateLocationRequest{Name: "综合教室"}, "admin")
	if err != nil {
		t.Fatalf("Create 应成功: %v", err)
	}
	if open.ActivityTypes == nil || len(open.ActivityTypes) != 0 {
		t.Errorf("未指定类型时应返回空数组，实际: %#v", open.ActivityTypes)
	}

	// 空列表表示承接全部类型
	list, _ := f.svc.Location.List(ctx, &dto.LocationListRequest{ActivityType: string(model.ActivityUltralight)})
	if len(list) != 1 || list[0].ID != open.ID {
		t.Errorf("輕航機只应匹配综合教室，实际: %+v", list)
	}
	list, _ = f.svc.Location.List(ctx, &dto.LocationListRequest{ActivityType: simulator})
	if len(list) != 2 {
		t.Errorf("大型模擬機应匹配两个场地，实际=%d", len(list))
	}

	only := []string{vision}
	updated, err := f.svc.Location.Update(ctx, hangar.ID, &dto.UpdateLocationRequest{ActivityTypes: &only}, "admin")
	if err != nil {
		t.Fatalf("Update 应成功: %v", err)
	}
	if len(updated.ActivityTypes) != 1 || updated.ActivityTypes[0] != vision {
		t.Errorf("更新后类型不符: %v", updated.ActivityTypes)
	}
	list, _ = f.svc.Location.List(ctx, &dto.LocationListRequest{ActivityType: simulator})
	if len(list) != 1 || list[0].ID != open.ID {
		t.Errorf("更新后大型模擬機只应匹配综合教室，实际: %+v", list)
	}

	// 未传 activity_types 时保留原值
	addr := "航站楼 3F"
	updated, _ = f.svc.Location.Update(ctx, hangar.ID, &dto.UpdateLocationRequest{Address: &addr}, "admin")
	if len(updated.ActivityTypes) != 1 {
		t.Errorf("未传类型不应清空，实际: %v", updated.ActivityTypes)
	}
}
