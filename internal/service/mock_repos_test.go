package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/Benjamindev1111/pilot-course-system/internal/model"
	"github.com/Benjamindev1111/pilot-course-system/internal/repository"
	pkgerrors "github.com/Benjamindev1111/pilot-course-system/pkg/errors"
)

// ── 内存数据源 ──
//
// 所有 mock repository 共享同一个 memDB，用一把互斥锁模拟行级原子语句。
// 读操作返回副本，避免测试中并发读写同一指针。

type memDB struct {
	mu   sync.Mutex
	txMu sync.Mutex // 事务串行执行，失败时整体回滚

	users       map[string]*model.User
	memberships map[string][]model.Membership
	courses     map[string]*model.Course
	bookings    map[string]*model.Booking
	activities  map[string]*model.ActivityBooking
	slots       map[string]*model.ActivitySlot
	feedbacks   map[string]*model.CourseFeedback // key: booking_id
	adjustments []model.CapacityAdjustment
	locations   map[string]*model.Location

	failures map[string]error // 操作名 → 下一次调用返回的错误
	seq      int
}

func newMemDB() *memDB {
	return &memDB{
		users:       make(map[string]*model.User),
		memberships: make(map[string][]model.Membership),
		courses:     make(map[string]*model.Course),
		bookings:    make(map[string]*model.Booking),
		activities:  make(map[string]*model.ActivityBooking),
		slots:       make(map[string]*model.ActivitySlot),
		feedbacks:   make(map[string]*model.CourseFeedback),
		locations:   make(map[string]*model.Location),
		failures:    make(map[string]error),
	}
}

func (m *memDB) repo() *repository.Repository {
	return &repository.Repository{
		User:            &mockUserRepo{m},
		Membership:      &mockMembershipRepo{m},
		Course:          &mockCourseRepo{m},
		Booking:         &mockBookingRepo{m},
		ActivityBooking: &mockActivityBookingRepo{m},
		Capacity:        &mockCapacityRepo{m},
		Feedback:        &mockFeedbackRepo{m},
		Location:        &mockLocationRepo{m},
		TxRunner:        m.runInTx,
	}
}

// memSnapshot 事务开始前的可变数据副本
type memSnapshot struct {
	courses     map[string]model.Course
	bookings    map[string]model.Booking
	activities  map[string]model.ActivityBooking
	slots       map[string]model.ActivitySlot
	feedbacks   map[string]model.CourseFeedback
	adjustments []model.CapacityAdjustment
}

func (m *memDB) runInTx(_ context.Context, fn func(tx *repository.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	snap := m.snapshot()
	if err := fn(m.repo()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memDB) snapshot() memSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := memSnapshot{
		courses:     make(map[string]model.Course, len(m.courses)),
		bookings:    make(map[string]model.Booking, len(m.bookings)),
		activities:  make(map[string]model.ActivityBooking, len(m.activities)),
		slots:       make(map[string]model.ActivitySlot, len(m.slots)),
		feedbacks:   make(map[string]model.CourseFeedback, len(m.feedbacks)),
		adjustments: append([]model.CapacityAdjustment(nil), m.adjustments...),
	}
	for k, v := range m.courses {
		s.courses[k] = *v
	}
	for k, v := range m.bookings {
		s.bookings[k] = *v
	}
	for k, v := range m.activities {
		s.activities[k] = *v
	}
	for k, v := range m.slots {
		s.slots[k] = *v
	}
	for k, v := range m.feedbacks {
		s.feedbacks[k] = *v
	}
	return s
}

func (m *memDB) restore(s memSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.courses = make(map[string]*model.Course, len(s.courses))
	for k, v := range s.courses {
		v := v
		m.courses[k] = &v
	}
	m.bookings = make(map[string]*model.Booking, len(s.bookings))
	for k, v := range s.bookings {
		v := v
		m.bookings[k] = &v
	}
	m.activities = make(map[string]*model.ActivityBooking, len(s.activities))
	for k, v := range s.activities {
		v := v
		m.activities[k] = &v
	}
	m.slots = make(map[string]*model.ActivitySlot, len(s.slots))
	for k, v := range s.slots {
		v := v
		m.slots[k] = &v
	}
	m.feedbacks = make(map[string]*model.CourseFeedback, len(s.feedbacks))
	for k, v := range s.feedbacks {
		v := v
		m.feedbacks[k] = &v
	}
	m.adjustments = s.adjustments
}

// failOn 让 op 的下一次调用返回 err
func (m *memDB) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = err
}

// failure 调用方须持有锁
func (m *memDB) failure(op string) error {
	if err, ok := m.failures[op]; ok {
		delete(m.failures, op)
		return err
	}
	return nil
}

func (m *memDB) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%04d", prefix, m.seq)
}

func (m *memDB) courseCopy(id string) *model.Course {
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp
	}
	return nil
}

func (m *memDB) userCopy(id string) *model.User {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp
	}
	return nil
}

func (m *memDB) bookingCopy(b *model.Booking) model.Booking {
	cp := *b
	cp.Course = m.courseCopy(b.CourseID)
	cp.User = nil
	return cp
}

// ── Mock UserRepository ──

type mockUserRepo struct{ db *memDB }

func (r *mockUserRepo) Create(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.StudentID == user.StudentID || (user.Email != "" && u.Email == user.Email) {
			return pkgerrors.ErrDuplicateKey
		}
	}
	if user.UserID == "" {
		user.UserID = r.db.nextID("user")
	}
	if user.Version == 0 {
		user.Version = 1
	}
	cp := *user
	r.db.users[user.UserID] = &cp
	return nil
}

func (r *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if u := r.db.userCopy(id); u != nil {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByStudentID(_ context.Context, studentID string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.StudentID == studentID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockUserRepo) Update(_ context.Context, user *model.User) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("user.update"); err != nil {
		return err
	}
	u, ok := r.db.users[user.UserID]
	if !ok || u.Version != user.Version {
		return pkgerrors.ErrOptimisticLock
	}
	user.Version++
	cp := *user
	r.db.users[user.UserID] = &cp
	return nil
}

func (r *mockUserRepo) LockByID(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("user.lock"); err != nil {
		return err
	}
	if _, ok := r.db.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ── Mock MembershipRepository ──

type mockMembershipRepo struct{ db *memDB }

func (r *mockMembershipRepo) ListByUser(_ context.Context, userID string) ([]model.Membership, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("membership.list"); err != nil {
		return nil, err
	}
	return append([]model.Membership(nil), r.db.memberships[userID]...), nil
}

func (r *mockMembershipRepo) RefreshStatuses(_ context.Context, today time.Time) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for userID, list := range r.db.memberships {
		for i := range list {
			status := list[i].EffectiveStatus(today, time.UTC)
			if list[i].Status != status {
				list[i].Status = status
				n++
			}
		}
		r.db.memberships[userID] = list
	}
	return n, nil
}

// ── Mock CourseRepository ──

type mockCourseRepo struct{ db *memDB }

func (r *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if course.CourseID == "" {
		course.CourseID = r.db.nextID("course")
	}
	cp := *course
	r.db.courses[course.CourseID] = &cp
	return nil
}

func (r *mockCourseRepo) GetByID(_ context.Context, id string) (*model.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("course.get"); err != nil {
		return nil, err
	}
	if c := r.db.courseCopy(id); c != nil {
		return c, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockCourseRepo) List(_ context.Context, filters *repository.CourseListFilters, offset, limit int) ([]model.Course, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []model.Course
	for _, c := range r.db.courses {
		if filters != nil {
			if filters.Category != "" && string(c.Category) != filters.Category {
				continue
			}
			if filters.From != nil && c.StartTime.Before(*filters.From) {
				continue
			}
			if filters.To != nil && !c.StartTime.Before(*filters.To) {
				continue
			}
		}
		all = append(all, *c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].StartTime.Before(all[j].StartTime) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (r *mockCourseRepo) ListUpcoming(_ context.Context, from time.Time) ([]model.Course, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []model.Course
	for _, c := range r.db.courses {
		if c.EndTime.After(from) {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartTime.Before(result[j].StartTime) })
	return result, nil
}

// ── Mock BookingRepository ──

type mockBookingRepo struct{ db *memDB }

func (r *mockBookingRepo) Create(_ context.Context, booking *model.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("booking.create"); err != nil {
		return err
	}
	if booking.IdempotencyKey != nil {
		for _, b := range r.db.bookings {
			if b.UserID == booking.UserID && b.IdempotencyKey != nil && *b.IdempotencyKey == *booking.IdempotencyKey {
				return pkgerrors.ErrDuplicateKey
			}
		}
	}
	if booking.BookingID == "" {
		booking.BookingID = r.db.nextID("booking")
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	cp := *booking
	cp.Course, cp.User = nil, nil
	r.db.bookings[booking.BookingID] = &cp
	return nil
}

func (r *mockBookingRepo) GetByID(_ context.Context, id string) (*model.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if b, ok := r.db.bookings[id]; ok {
		cp := r.db.bookingCopy(b)
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockBookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	return r.GetByID(ctx, id)
}

func (r *mockBookingRepo) GetByIdempotencyKey(_ context.Context, userID, key string) (*model.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("booking.idempotency"); err != nil {
		return nil, err
	}
	for _, b := range r.db.bookings {
		if b.UserID == userID && b.IdempotencyKey != nil && *b.IdempotencyKey == key {
			cp := r.db.bookingCopy(b)
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockBookingRepo) ListActiveOverlapping(_ context.Context, userID string, start, end time.Time) ([]model.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []model.Booking
	for _, b := range r.db.bookings {
		if b.UserID != userID || !b.Status.IsActive() {
			continue
		}
		c := r.db.courses[b.CourseID]
		if c == nil || !c.StartTime.Before(end) || !c.EndTime.After(start) {
			continue
		}
		result = append(result, r.db.bookingCopy(b))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Course.StartTime.Before(result[j].Course.StartTime) })
	return result, nil
}

func (r *mockBookingRepo) List(_ context.Context, filters *repository.BookingListFilters, offset, limit int) ([]model.Booking, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []model.Booking
	for _, b := range r.db.bookings {
		if filters != nil {
			if filters.UserID != "" && b.UserID != filters.UserID {
				continue
			}
			if filters.CourseID != "" && b.CourseID != filters.CourseID {
				continue
			}
			if filters.Status != "" && b.Status != filters.Status {
				continue
			}
		}
		cp := r.db.bookingCopy(b)
		cp.User = r.db.userCopy(b.UserID)
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].BookingDate.After(all[j].BookingDate) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (r *mockBookingRepo) ListStalePending(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var ids []string
	for _, b := range r.db.bookings {
		c := r.db.courses[b.CourseID]
		if b.Status == model.BookingPending && c != nil && !c.StartTime.After(now) {
			ids = append(ids, b.BookingID)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (r *mockBookingRepo) ListActiveByCourse(_ context.Context, courseID string) ([]model.Booking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []model.Booking
	for _, b := range r.db.bookings {
		if b.CourseID == courseID && b.Status.IsActive() {
			cp := *b
			cp.User = r.db.userCopy(b.UserID)
			result = append(result, cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].BookingDate.Before(result[j].BookingDate) })
	return result, nil
}

func (r *mockBookingRepo) CountActiveByCourse(_ context.Context) (map[string]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	counts := make(map[string]int)
	for _, b := range r.db.bookings {
		if b.Status.IsActive() {
			counts[b.CourseID]++
		}
	}
	return counts, nil
}

func (r *mockBookingRepo) UpdateStatus(_ context.Context, booking *model.Booking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("booking.update"); err != nil {
		return err
	}
	stored, ok := r.db.bookings[booking.BookingID]
	if !ok || stored.Version != booking.Version {
		return pkgerrors.ErrOptimisticLock
	}
	booking.Version++
	cp := *booking
	cp.Course, cp.User = nil, nil
	r.db.bookings[booking.BookingID] = &cp
	return nil
}

// ── Mock ActivityBookingRepository ──

type mockActivityBookingRepo struct{ db *memDB }

func (r *mockActivityBookingRepo) Create(_ context.Context, booking *model.ActivityBooking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("activity.create"); err != nil {
		return err
	}
	if booking.IdempotencyKey != nil {
		for _, a := range r.db.activities {
			if a.UserID == booking.UserID && a.IdempotencyKey != nil && *a.IdempotencyKey == *booking.IdempotencyKey {
				return pkgerrors.ErrDuplicateKey
			}
		}
	}
	if booking.ActivityBookingID == "" {
		booking.ActivityBookingID = r.db.nextID("activity")
	}
	if booking.Version == 0 {
		booking.Version = 1
	}
	cp := *booking
	r.db.activities[booking.ActivityBookingID] = &cp
	return nil
}

func (r *mockActivityBookingRepo) GetByID(_ context.Context, id string) (*model.ActivityBooking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if a, ok := r.db.activities[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockActivityBookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.ActivityBooking, error) {
	return r.GetByID(ctx, id)
}

func (r *mockActivityBookingRepo) GetByIdempotencyKey(_ context.Context, userID, key string) (*model.ActivityBooking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("activity.idempotency"); err != nil {
		return nil, err
	}
	for _, a := range r.db.activities {
		if a.UserID == userID && a.IdempotencyKey != nil && *a.IdempotencyKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockActivityBookingRepo) ListActiveBetweenDates(_ context.Context, userID string, fromDate, toDate time.Time) ([]model.ActivityBooking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	from, to := fromDate.Format(model.DateLayout), toDate.Format(model.DateLayout)
	var result []model.ActivityBooking
	for _, a := range r.db.activities {
		d := a.Date.Format(model.DateLayout)
		if a.UserID == userID && a.Status.IsActive() && d >= from && d <= to {
			result = append(result, *a)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SlotKey().String() < result[j].SlotKey().String()
	})
	return result, nil
}

func (r *mockActivityBookingRepo) ListByUser(_ context.Context, userID string, offset, limit int) ([]model.ActivityBooking, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []model.ActivityBooking
	for _, a := range r.db.activities {
		if a.UserID == userID {
			all = append(all, *a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Date.After(all[j].Date) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

func (r *mockActivityBookingRepo) UpdateStatus(_ context.Context, booking *model.ActivityBooking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	stored, ok := r.db.activities[booking.ActivityBookingID]
	if !ok || stored.Version != booking.Version {
		return pkgerrors.ErrOptimisticLock
	}
	booking.Version++
	cp := *booking
	r.db.activities[booking.ActivityBookingID] = &cp
	return nil
}

// ── Mock CapacityRepository ──

type mockCapacityRepo struct{ db *memDB }

func (r *mockCapacityRepo) ShiftOccupancy(_ context.Context, courseID string, delta int) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if err := r.db.failure("capacity.shift"); err != nil {
		return false, err
	}
	c, ok := r.db.courses[courseID]
	if !ok {
		return false, nil
	}
	next := c.CurrentStudents + delta
	if next < 0 || next > c.MaxStudents {
		return false, nil
	}
	c.CurrentStudents = next
	c.Version++
	return true, nil
}

func (r *mockCapacityRepo) GetOccupancy(_ context.Context, courseID string) (int, int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.courses[courseID]
	if !ok {
		return 0, 0, gorm.ErrRecordNotFound
	}
	return c.CurrentStudents, c.MaxStudents, nil
}

func (r *mockCapacityRepo) OccupySlot(_ context.Context, key model.SlotKey, holderID string) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	k := key.String()
	if s, ok := r.db.slots[k]; ok && s.Occupied {
		return false, nil
	}
	holder := holderID
	r.db.slots[k] = &model.ActivitySlot{
		ActivityType: key.ActivityType,
		Date:         key.Date,
		TimeSlot:     key.TimeSlot,
		Location:     key.Location,
		Occupied:     true,
		HolderID:     &holder,
	}
	return true, nil
}

func (r *mockCapacityRepo) FreeSlot(_ context.Context, key model.SlotKey) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.slots[key.String()]
	if !ok || !s.Occupied {
		return false, nil
	}
	s.Occupied = false
	s.HolderID = nil
	return true, nil
}

func (r *mockCapacityRepo) CreateAdjustment(_ context.Context, adj *model.CapacityAdjustment) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if adj.AdjustmentID == "" {
		adj.AdjustmentID = r.db.nextID("adj")
	}
	r.db.adjustments = append(r.db.adjustments, *adj)
	return nil
}

func (r *mockCapacityRepo) ListAdjustments(_ context.Context, courseID string, limit int) ([]model.CapacityAdjustment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []model.CapacityAdjustment
	for i := len(r.db.adjustments) - 1; i >= 0 && len(result) < limit; i-- {
		if r.db.adjustments[i].CourseID == courseID {
			result = append(result, r.db.adjustments[i])
		}
	}
	return result, nil
}

// ── Mock FeedbackRepository ──

type mockFeedbackRepo struct{ db *memDB }

func (r *mockFeedbackRepo) Create(_ context.Context, feedback *model.CourseFeedback) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if feedback.FeedbackID == "" {
		feedback.FeedbackID = r.db.nextID("feedback")
	}
	cp := *feedback
	cp.User = nil
	r.db.feedbacks[feedback.BookingID] = &cp
	return nil
}

func (r *mockFeedbackRepo) GetByBooking(_ context.Context, bookingID string) (*model.CourseFeedback, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if f, ok := r.db.feedbacks[bookingID]; ok {
		cp := *f
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockFeedbackRepo) ListByCourse(_ context.Context, courseID string, publicOnly bool, offset, limit int) ([]model.CourseFeedback, int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var all []model.CourseFeedback
	for _, f := range r.db.feedbacks {
		if f.CourseID != courseID || (publicOnly && !f.IsPublic) {
			continue
		}
		cp := *f
		cp.User = r.db.userCopy(f.UserID)
		all = append(all, cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, offset, limit), int64(len(all)), nil
}

// ── Mock LocationRepository ──

type mockLocationRepo struct{ db *memDB }

func (r *mockLocationRepo) Create(_ context.Context, loc *model.Location) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if loc.LocationID == "" {
		loc.LocationID = r.db.nextID("loc")
	}
	cp := *loc
	r.db.locations[loc.LocationID] = &cp
	return nil
}

func (r *mockLocationRepo) GetByID(_ context.Context, id string) (*model.Location, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.locations[id]; ok && l.DeletedAt.Time.IsZero() {
		cp := *l
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockLocationRepo) GetActiveByName(_ context.Context, name string) (*model.Location, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, l := range r.db.locations {
		if l.Name == name && l.IsActive && l.DeletedAt.Time.IsZero() {
			cp := *l
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *mockLocationRepo) List(_ context.Context, includeInactive bool) ([]model.Location, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var result []model.Location
	for _, l := range r.db.locations {
		if !l.DeletedAt.Time.IsZero() || (!includeInactive && !l.IsActive) {
			continue
		}
		result = append(result, *l)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (r *mockLocationRepo) Update(_ context.Context, loc *model.Location) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	cp := *loc
	r.db.locations[loc.LocationID] = &cp
	return nil
}

func (r *mockLocationRepo) Delete(_ context.Context, id string, deletedBy string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if l, ok := r.db.locations[id]; ok {
		l.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		l.DeletedBy = &deletedBy
		l.IsActive = false
	}
	return nil
}

func paginate[T any](all []T, offset, limit int) []T {
	if offset >= len(all) {
		return nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}
