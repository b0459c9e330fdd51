package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Benjamindev1111/pilot-course-system/internal/dto"
	"github.com/Benjamindev1111/pilot-course-system/internal/model"
)

func TestCourseList_Filters(t *testing.T) {
	f := newFixture(t)
	f.addCourse("c1", courseStart, 120, 10, false)
	f.addCourse("c2", courseStart.Add(72*time.Hour), 120, 10, false)

	list, total, err := f.svc.Course.List(context.Background(), &dto.CourseListRequest{From: "2026-03-11", To: "2026-03-11"})
	if err != nil {
		t.Fatalf("List 应成功: %v", err)
	}
	if total != 1 || list[0].ID != "c1" {
		t.Errorf("期望仅 c1，实际 total=%d", total)
	}

	if _, _, err := f.svc.Course.List(context.Background(), &dto.CourseListRequest{Category: "滑翔"}); !errors.Is(err, ErrInvalidCategory) {
		t.Errorf("期望 ErrInvalidCategory，实际: %v", err)
	}
	if _, _, err := f.svc.Course.List(context.Background(), &dto.CourseListRequest{From: "11/03/2026"}); !errors.Is(err, ErrInvalidDate) {
		t.Errorf("期望 ErrInvalidDate，实际: %v", err)
	}
}

func TestGetOccupancy(t *testing.T) {
	f := newFixture(t)
	f.addStudent("u1", "2026-01-01", "2026-06-30")
	f.addCourse("c1", courseStart, 120, 2, false)
	_, _ = f.svc.Booking.CreateBooking(context.Background(), "u1", "c1", "")

	occ, err := f.svc.Course.GetOccupancy(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetOccupancy 应成功: %v", err)
	}
	if occ.Current != 1 || occ.MaxStudents != 2 || occ.Available != 1 || occ.Full {
		t.Errorf("名额不符: %+v", occ)
	}
	if _, ok := f.cache.entries["c1"]; !ok {
		t.Error("读库后应回填缓存")
	}

	if _, err := f.svc.Course.GetOccupancy(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestGetOccupancy_ServesFromCache(t *testing.T) {
	f := newFixture(t)
	f.addCourse("c1", courseStart, 120, 10, false)
	_, _ = f.cache.SetOccupancy(context.Background(), "c1", 0, 7, 10, time.Minute)

	occ, err := f.svc.Course.GetOccupancy(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetOccupancy 应成功: %v", err)
	}
	if occ.Current != 7 {
		t.Errorf("缓存命中时应返回缓存值，实际=%d", occ.Current)
	}
}

func TestGetOccupancy_SkipsBackfillAfterConcurrentInvalidation(t *testing.T) {
	f := newFixture(t)
	f.addCourse("c1", courseStart, 120, 10, false)

	// 读库之后、回填之前有预约提交并失效缓存
	f.cache.beforeSet = func() {
		f.db.mu.Lock()
		f.db.courses["c1"].CurrentStudents = 1
		f.db.mu.Unlock()
		_ = f.cache.InvalidateOccupancy(context.Background(), "c1")
	}

	occ, err := f.svc.Course.GetOccupancy(context.Background(), "c1")
	if err != nil {
		t.Fatalf("GetOccupancy 应成功: %v", err)
	}
	if occ.Current != 0 {
		t.Errorf("本次读取返回读库时的值，实际=%d", occ.Current)
	}
	if f.cache.cached("c1") {
		t.Fatal("失效之后不应回填旧值")
	}

	f.cache.beforeSet = nil
	occ, _ = f.svc.Course.GetOccupancy(context.Background(), "c1")
	if occ.Current != 1 {
		t.Errorf("下一次读取应看到新值，实际=%d", occ.Current)
	}
	if !f.cache.cached("c1") {
		t.Error("代号未变时应回填缓存")
	}
}

func TestAdjustCapacity(t *testing.T) {
	f := newFixture(t)
	f.addCourse("c1", courseStart, 120, 10, false)

	if _, err := f.svc.Course.AdjustCapacity(context.Background(), "c1", "admin", &dto.AdjustCapacityRequest{Delta: 2, Reason: "  "}); !errors.Is(err, ErrOverrideReasonRequired) {
		t.Errorf("期望 ErrOverrideReasonRequired，实际: %v", err)
	}

	adj, err := f.svc.Course.AdjustCapacity(context.Background(), "c1", "admin", &dto.AdjustCapacityRequest{Delta: 2, Reason: "线下报名补录"})
	if err != nil {
		t.Fatalf("AdjustCapacity 应成功: %v", err)
	}
	if adj.BeforeCount != 0 || adj.AfterCount != 2 || adj.OperatorID != "admin" {
		t.Errorf("调整记录不符: %+v", adj)
	}
	if f.occupancy("c1") != 2 {
		t.Errorf("期望 current_students=2，实际=%d", f.occupancy("c1"))
	}

	// 越界
	if _, err := f.svc.Course.AdjustCapacity(context.Background(), "c1", "admin", &dto.AdjustCapacityRequest{Delta: -3, Reason: "修正"}); !errors.Is(err, ErrAdjustmentRejected) {
		t.Errorf("期望 ErrAdjustmentRejected，实际: %v", err)
	}
	if _, err := f.svc.Course.AdjustCapacity(context.Background(), "missing", "admin", &dto.AdjustCapacityRequest{Delta: 1, Reason: "修正"}); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}

	list, err := f.svc.Course.ListAdjustments(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ListAdjustments 应成功: %v", err)
	}
	if len(list) != 1 || list[0].Reason != "线下报名补录" {
		t.Errorf("期望 1 条审计记录，实际=%d", len(list))
	}
}

func TestAuditOccupancy_ReportsDrift(t *testing.T) {
	f := newFixture(t)
	f.addStudent("u1", "2026-01-01", "2026-06-30")
	f.addCourse("c1", courseStart, 120, 10, false)
	f.addCourse("c2", courseStart.Add(24*time.Hour), 120, 10, false)
	_, _ = f.svc.Booking.CreateBooking(context.Background(), "u1", "c1", "")
	_, _ = f.svc.Course.AdjustCapacity(context.Background(), "c2", "admin", &dto.AdjustCapacityRequest{Delta: 1, Reason: "测试偏差"})

	drifts, err := f.svc.Course.AuditOccupancy(context.Background(), testNow)
	if err != nil {
		t.Fatalf("AuditOccupancy 应成功: %v", err)
	}
	if len(drifts) != 1 || drifts[0].CourseID != "c2" || drifts[0].ActiveBookings != 0 || drifts[0].CurrentStudents != 1 {
		t.Errorf("期望仅 c2 偏差，实际: %+v", drifts)
	}
	// 只报告不修复
	if f.occupancy("c2") != 1 {
		t.Error("巡检不应修改计数")
	}
}

// ── 账本 ──

func TestCapacityLedger_ReleaseFloorsAtZero(t *testing.T) {
	f := newFixture(t)
	f.addCourse("c1", courseStart, 120, 1, false)
	ledger := NewCapacityLedger(f.repo, f.cache, zap.NewNop())

	if err := ledger.Release(context.Background(), "c1"); err != nil {
		t.Fatalf("空释放不应返回错误: %v", err)
	}
	if f.occupancy("c1") != 0 {
		t.Errorf("计数不应低于 0，实际=%d", f.occupancy("c1"))
	}

	ok, err := ledger.Reserve(context.Background(), "c1")
	if err != nil || !ok {
		t.Fatalf("Reserve 应成功: ok=%v err=%v", ok, err)
	}
	ok, err = ledger.Reserve(context.Background(), "c1")
	if err != nil || ok {
		t.Errorf("满员时 Reserve 应返回 false，ok=%v err=%v", ok, err)
	}
	if _, err := ledger.Reserve(context.Background(), "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestCapacityLedger_SlotIsBinary(t *testing.T) {
	f := newFixture(t)
	ledger := NewCapacityLedger(f.repo, nil, zap.NewNop())
	key := model.SlotKey{ActivityType: model.ActivityVienna, Date: date("2026-03-12"), TimeSlot: "09:00-10:00", Location: "A"}

	ok, _ := ledger.SlotReserve(context.Background(), key, "h1")
	if !ok {
		t.Fatal("首次占用应成功")
	}
	if ok, _ := ledger.SlotReserve(context.Background(), key, "h2"); ok {
		t.Error("已占用时段不应再次占用")
	}
	if err := ledger.SlotRelease(context.Background(), key); err != nil {
		t.Fatalf("SlotRelease 应成功: %v", err)
	}
	if err := ledger.SlotRelease(context.Background(), key); err != nil {
		t.Errorf("重复释放不应返回错误: %v", err)
	}
	if ok, _ := ledger.SlotReserve(context.Background(), key, "h2"); !ok {
		t.Error("释放后应可再次占用")
	}
}

// ── 会员校验与冲突检测 ──

func TestMembershipValidator_PrefersAnyCoveringMembership(t *testing.T) {
	f := newFixture(t)
	f.addStudent("u1", "2025-01-01", "2025-12-31")
	f.db.memberships["u1"] = append(f.db.memberships["u1"], f.db.memberships["u1"][0])
	f.db.memberships["u1"][1].StartDate = date("2026-03-01")
	f.db.memberships["u1"][1].EndDate = date("2026-03-31")
	// 存储的 status 列不参与判断
	f.db.memberships["u1"][1].Status = model.MembershipExpired

	v := NewMembershipValidator(f.repo, testLoc, zap.NewNop())
	d, err := v.Validate(context.Background(), "u1", testNow)
	if err != nil {
		t.Fatalf("Validate 应成功: %v", err)
	}
	if !d.Authorized {
		t.Errorf("存在覆盖当前时刻的会员资格时应授权，实际 reason=%s", d.Reason)
	}
}

func TestMembershipValidator_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.addStudent("u1", "2026-01-01", "2026-06-30")
	f.db.failOn("membership.list", context.DeadlineExceeded)

	v := NewMembershipValidator(f.repo, testLoc, zap.NewNop())
	if _, err := v.Validate(context.Background(), "u1", testNow); !errors.Is(err, ErrStorageUnavailable) {
		t.Errorf("期望 ErrStorageUnavailable，实际: %v", err)
	}
}

func TestConflictDetector_HalfOpen(t *testing.T) {
	f := newFixture(t)
	f.addStudent("u1", "2026-01-01", "2026-06-30")
	f.addCourse("c1", courseStart, 120, 10, false)
	b, _ := f.svc.Booking.CreateBooking(context.Background(), "u1", "c1", "")
	d := NewConflictDetector(f.repo, testLoc, zap.NewNop())

	end := courseStart.Add(2 * time.Hour)
	tests := []struct {
		name       string
		start, end time.Time
		exclude    string
		want       bool
	}{
		{"完全包含", courseStart.Add(30 * time.Minute), courseStart.Add(time.Hour), "", true},
		{"部分重叠", courseStart.Add(-time.Hour), courseStart.Add(time.Minute), "", true},
		{"紧接其后", end, end.Add(time.Hour), "", false},
		{"紧接其前", courseStart.Add(-time.Hour), courseStart, "", false},
		{"排除自身", courseStart, end, b.ID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.HasConflict(context.Background(), "u1", tt.start, tt.end, tt.exclude)
			if err != nil {
				t.Fatalf("HasConflict 应成功: %v", err)
			}
			if got != tt.want {
				t.Errorf("期望 %v，实际 %v", tt.want, got)
			}
		})
	}
}
