//go:build integration

package repository_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	"github.com/Benjamindev1111/pilot-course-system/pkg/database"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

var testDB *gorm.DB

func TestMain(m *testing.M) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost port=5433 user=pilot password=pilot_password dbname=pilot_test sslmode=disable TimeZone=Asia/Shanghai"
	}

	var err error
	testDB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "无法连接测试数据库: %v\n", err)
		os.Exit(1)
	}

	sqlDB, err := testDB.DB()
	if err != nil {
		fmt.Fprintf(os.Stderr, "获取 sql.DB 失败: %v\n", err)
		os.Exit(1)
	}
	sqlDB.SetMaxOpenConns(30)
	if err := database.RunMigrations(sqlDB, zap.NewNop()); err != nil {
		fmt.Fprintf(os.Stderr, "数据库迁移失败: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func uniq(prefix string) string {
	return fmt.Sprintf("%s%d", prefix, time.Now().UnixNano()%1_000_000_000)
}

func createUser(t *testing.T) *model.User {
	t.Helper()
	u := &model.User{
		Name:         "测试学员",
		StudentID:    uniq("S"),
		Email:        uniq("u") + "@example.com",
		PasswordHash: "x",
		Role:         model.RoleStudent,
	}
	if err := testDB.Create(u).Error; err != nil {
		t.Fatalf("创建用户失败: %v", err)
	}
	return u
}

func createCourse(t *testing.T, start time.Time, capacity int) *model.Course {
	t.Helper()
	c := &model.Course{
		Code:        uniq("C-"),
		Name:        "仪表飞行",
		Category:    model.CategoryC01,
		Teacher:     "王教官",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		Duration:    120,
		Location:    "A101",
		MaxStudents: capacity,
	}
	if err := testDB.Create(c).Error; err != nil {
		t.Fatalf("创建课程失败: %v", err)
	}
	return c
}

func createBooking(t *testing.T, repo *repository.Repository, userID, courseID string, key *string) *model.Booking {
	t.Helper()
	b := &model.Booking{
		UserID:         userID,
		CourseID:       courseID,
		BookingDate:    time.Now(),
		Status:         model.BookingConfirmed,
		QRCode:         uniq("QR"),
		IdempotencyKey: key,
	}
	if err := repo.Booking.Create(context.Background(), b); err != nil {
		t.Fatalf("创建预约失败: %v", err)
	}
	return b
}

// ═══════════════════════════════════════════════════════════
// 名额账本
// ═══════════════════════════════════════════════════════════

func TestShiftOccupancy_ConcurrentReservesNeverOverbook(t *testing.T) {
	repo := repository.NewRepository(testDB)
	course := createCourse(t, time.Now().Add(48*time.Hour), 3)

	var granted int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.Capacity.ShiftOccupancy(context.Background(), course.CourseID, 1)
			if err != nil {
				t.Errorf("ShiftOccupancy 失败: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if granted != 3 {
		t.Errorf("期望恰好 3 次成功，实际 %d", granted)
	}
	current, capacity, err := repo.Capacity.GetOccupancy(context.Background(), course.CourseID)
	if err != nil {
		t.Fatalf("GetOccupancy 失败: %v", err)
	}
	if current != 3 || capacity != 3 {
		t.Errorf("期望 3/3，实际 %d/%d", current, capacity)
	}
}

func TestShiftOccupancy_FloorsAtZero(t *testing.T) {
	repo := repository.NewRepository(testDB)
	course := createCourse(t, time.Now().Add(48*time.Hour), 2)

	ok, err := repo.Capacity.ShiftOccupancy(context.Background(), course.CourseID, -1)
	if err != nil {
		t.Fatalf("ShiftOccupancy 失败: %v", err)
	}
	if ok {
		t.Error("计数为 0 时释放不应生效")
	}
}

func TestOccupySlot_SingleWinner(t *testing.T) {
	repo := repository.NewRepository(testDB)
	key := model.SlotKey{
		ActivityType: model.ActivitySimulator,
		Date:         time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
		TimeSlot:     "14:00-17:00",
		Location:     uniq("机房"),
	}

	var winners int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.Capacity.OccupySlot(context.Background(), key, fmt.Sprintf("holder-%d", i))
			if err != nil {
				t.Errorf("OccupySlot 失败: %v", err)
				return
			}
			if ok {
				atomic.AddInt32(&winners, 1)
			}
		}(i)
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("期望恰好 1 个占用者，实际 %d", winners)
	}

	freed, err := repo.Capacity.FreeSlot(context.Background(), key)
	if err != nil || !freed {
		t.Fatalf("FreeSlot 应成功: freed=%v err=%v", freed, err)
	}
	freed, _ = repo.Capacity.FreeSlot(context.Background(), key)
	if freed {
		t.Error("重复释放不应再次生效")
	}
	ok, err := repo.Capacity.OccupySlot(context.Background(), key, "again")
	if err != nil || !ok {
		t.Errorf("释放后应可再次占用: ok=%v err=%v", ok, err)
	}
}

// ═══════════════════════════════════════════════════════════
// 事务
// ═══════════════════════════════════════════════════════════

func TestTransaction_RollbackReleasesReservation(t *testing.T) {
	repo := repository.NewRepository(testDB)
	course := createCourse(t, time.Now().Add(48*time.Hour), 5)
	boom := errors.New("boom")

	err := repo.Transaction(context.Background(), func(tx *repository.Repository) error {
		if _, err := tx.Capacity.ShiftOccupancy(context.Background(), course.CourseID, 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("期望返回 fn 的错误，实际: %v", err)
	}

	current, _, _ := repo.Capacity.GetOccupancy(context.Background(), course.CourseID)
	if current != 0 {
		t.Errorf("回滚后计数应为 0，实际 %d", current)
	}
}

// ═══════════════════════════════════════════════════════════
// 预约
// ═══════════════════════════════════════════════════════════

func TestBooking_IdempotencyKeyUnique(t *testing.T) {
	repo := repository.NewRepository(testDB)
	user := createUser(t)
	course := createCourse(t, time.Now().Add(48*time.Hour), 5)
	key := uniq("key-")

	createBooking(t, repo, user.UserID, course.CourseID, &key)

	dup := &model.Booking{
		UserID: user.UserID, CourseID: course.CourseID, BookingDate: time.Now(),
		Status: model.BookingConfirmed, QRCode: uniq("QR"), IdempotencyKey: &key,
	}
	if err := repo.Booking.Create(context.Background(), dup); !errors.Is(err, pkgerrors.ErrDuplicateKey) {
		t.Errorf("期望 ErrDuplicateKey，实际: %v", err)
	}

	got, err := repo.Booking.GetByIdempotencyKey(context.Background(), user.UserID, key)
	if err != nil || got == nil {
		t.Fatalf("应能按幂等键查到预约: %v", err)
	}
}

func TestBooking_ListActiveOverlapping_HalfOpen(t *testing.T) {
	repo := repository.NewRepository(testDB)
	user := createUser(t)
	start := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	course := createCourse(t, start, 5)
	createBooking(t, repo, user.UserID, course.CourseID, nil)

	got, err := repo.Booking.ListActiveOverlapping(context.Background(), user.UserID, start.Add(time.Hour), start.Add(3*time.Hour))
	if err != nil {
		t.Fatalf("ListActiveOverlapping 失败: %v", err)
	}
	if len(got) != 1 || got[0].Course == nil {
		t.Errorf("期望 1 条重叠预约并预加载课程，实际 %d", len(got))
	}

	got, _ = repo.Booking.ListActiveOverlapping(context.Background(), user.UserID, start.Add(2*time.Hour), start.Add(3*time.Hour))
	if len(got) != 0 {
		t.Errorf("首尾相接不应视为重叠，实际 %d", len(got))
	}
}

func TestBooking_UpdateStatus_OptimisticLock(t *testing.T) {
	repo := repository.NewRepository(testDB)
	user := createUser(t)
	course := createCourse(t, time.Now().Add(48*time.Hour), 5)
	b := createBooking(t, repo, user.UserID, course.CourseID, nil)

	first, _ := repo.Booking.GetByID(context.Background(), b.BookingID)
	second, _ := repo.Booking.GetByID(context.Background(), b.BookingID)

	first.Status = model.BookingCancelled
	if err := repo.Booking.UpdateStatus(context.Background(), first); err != nil {
		t.Fatalf("首次更新应成功: %v", err)
	}
	second.Status = model.BookingCancelled
	if err := repo.Booking.UpdateStatus(context.Background(), second); !errors.Is(err, pkgerrors.ErrOptimisticLock) {
		t.Errorf("期望 ErrOptimisticLock，实际: %v", err)
	}
}
