package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	activityrepo "github.com/smallbiznis/lottery/internal/activity/repository"
	activityservice "github.com/smallbiznis/lottery/internal/activity/service"
	"github.com/smallbiznis/lottery/internal/clock"
	"github.com/smallbiznis/lottery/internal/config"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	"github.com/smallbiznis/lottery/internal/drawlock"
	drawrecorddomain "github.com/smallbiznis/lottery/internal/drawrecord/domain"
	drawrecordrepo "github.com/smallbiznis/lottery/internal/drawrecord/repository"
	quotadomain "github.com/smallbiznis/lottery/internal/quota/domain"
	quotarepo "github.com/smallbiznis/lottery/internal/quota/repository"
	quotaservice "github.com/smallbiznis/lottery/internal/quota/service"
	"github.com/smallbiznis/lottery/internal/selector"
	stockrepo "github.com/smallbiznis/lottery/internal/stock/repository"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	userrepo "github.com/smallbiznis/lottery/internal/user/repository"
	userservice "github.com/smallbiznis/lottery/internal/user/service"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

var testNow = time.Date(2025, 6, 1, 4, 0, 0, 0, time.UTC)

type harness struct {
	db     *gorm.DB
	node   *snowflake.Node
	clock  *clock.FakeClock
	locker drawlock.Locker
	params Params
}

type harnessOption func(*Params)

func withLocker(l drawlock.Locker) harnessOption {
	return func(p *Params) { p.Locker = l }
}

func withRecords(r drawrecorddomain.Repository) harnessOption {
	return func(p *Params) { p.Records = r }
}

func withActivities(a activitydomain.Service) harnessOption {
	return func(p *Params) { p.Activities = a }
}

func withSource(src selector.Source) harnessOption {
	return func(p *Params) { p.Selector = selector.New(src) }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	db := setupTestDB(t)
	log := zaptest.NewLogger(t)
	node := mustNode(t)
	fake := clock.NewFakeClock(testNow)

	holder, err := config.NewStaticDrawConfig(config.DefaultDrawConfig())
	if err != nil {
		t.Fatalf("draw config: %v", err)
	}

	p := Params{
		DB:         db,
		Log:        log,
		GenID:      node,
		Clock:      fake,
		Config:     config.Config{Lock: config.LockConfig{KeyPrefix: "lottery:draw"}},
		DrawConfig: holder,
		Activities: activityservice.New(activityservice.Params{
			DB:    db,
			Log:   log,
			Clock: fake,
			Repo:  activityrepo.Provide(),
		}),
		Users: userservice.New(userservice.Params{
			DB:   db,
			Log:  log,
			Repo: userrepo.Provide(),
		}),
		Locker: drawlock.NewMemoryLocker(),
		Quota: quotaservice.New(quotaservice.Params{
			Log:        log,
			GenID:      node,
			Repo:       quotarepo.Provide(),
			DrawConfig: holder,
		}),
		Stock:    stockrepo.Provide(),
		Records:  drawrecordrepo.Provide(),
		Selector: selector.New(func() float64 { return 0 }),
	}
	for _, opt := range opts {
		opt(&p)
	}

	return &harness{db: db, node: node, clock: fake, locker: p.Locker, params: p}
}

func (h *harness) service() drawdomain.Service {
	return New(h.params)
}

type prizeSpec struct {
	name        string
	prizeType   activitydomain.PrizeType
	stock       int
	probability float64
}

func (h *harness) seedActivity(t *testing.T, limit activitydomain.LimitType, maxDraws int, prizes ...prizeSpec) *activitydomain.Activity {
	t.Helper()
	ctx := context.Background()
	repo := activityrepo.Provide()

	activity := &activitydomain.Activity{
		ID:              h.node.Generate(),
		Code:            fmt.Sprintf("act-%d", h.node.Generate()),
		Name:            "Summer Lottery",
		StartTime:       testNow.Add(-24 * time.Hour),
		EndTime:         testNow.Add(30 * 24 * time.Hour),
		Status:          activitydomain.StatusActive,
		LimitType:       limit,
		MaxDrawsPerUser: maxDraws,
		CreatedAt:       testNow,
		UpdatedAt:       testNow,
	}
	if err := repo.Insert(ctx, h.db, activity); err != nil {
		t.Fatalf("insert activity: %v", err)
	}

	for i, spec := range prizes {
		prize := &activitydomain.Prize{
			ID:             h.node.Generate(),
			ActivityID:     activity.ID,
			Name:           spec.name,
			Description:    spec.name + " description",
			PrizeType:      spec.prizeType,
			TotalStock:     spec.stock,
			RemainingStock: spec.stock,
			Probability:    spec.probability,
			SortOrder:      i,
			CreatedAt:      testNow,
			UpdatedAt:      testNow,
		}
		if err := repo.InsertPrize(ctx, h.db, prize); err != nil {
			t.Fatalf("insert prize: %v", err)
		}
		activity.Prizes = append(activity.Prizes, *prize)
	}
	return activity
}

func (h *harness) seedUser(t *testing.T) snowflake.ID {
	t.Helper()
	id := h.node.Generate()
	err := userrepo.Provide().Insert(context.Background(), h.db, &userdomain.User{
		ID:        id,
		Username:  "user-" + id.String(),
		Status:    userdomain.StatusActive,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	})
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func (h *harness) count(t *testing.T, query string, args ...any) int64 {
	t.Helper()
	var n int64
	if err := h.db.Raw(query, args...).Scan(&n).Error; err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

func (h *harness) remainingStock(t *testing.T, prizeID snowflake.ID) int64 {
	t.Helper()
	return h.count(t, `SELECT remaining_stock FROM prizes WHERE id = ?`, prizeID)
}

// failingRecords fails the nth append to simulate a fault mid batch.
type failingRecords struct {
	drawrecorddomain.Repository
	failOn int
	calls  int
}

func (f *failingRecords) Append(ctx context.Context, db *gorm.DB, rec *drawrecorddomain.Record) error {
	f.calls++
	if f.calls == f.failOn {
		return fmt.Errorf("simulated fault on draw %d", f.calls)
	}
	return f.Repository.Append(ctx, db, rec)
}

// fixedActivities serves one prepared activity regardless of storage.
// slowLocker advances the clock while "waiting" for the lock.
type slowLocker struct {
	drawlock.Locker
	clock *clock.FakeClock
	wait  time.Duration
}

func (l *slowLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (drawlock.Unlock, error) {
	l.clock.Advance(l.wait)
	return l.Locker.Acquire(ctx, key, wait, lease)
}

// ceilingQuota reports the storage ceiling as reached on every Consume.
type ceilingQuota struct {
	quotadomain.Tracker
}

func (ceilingQuota) Consume(context.Context, *gorm.DB, snowflake.ID, *activitydomain.Activity, quotadomain.Usage, time.Time) (int, error) {
	return 0, quotadomain.ErrAllowanceExceeded
}

type fixedActivities struct {
	activity *activitydomain.Activity
}

func (f fixedActivities) Get(context.Context, snowflake.ID) (*activitydomain.Activity, error) {
	copied := *f.activity
	return &copied, nil
}

func (f fixedActivities) ListActive(context.Context) ([]activitydomain.Activity, error) {
	return []activitydomain.Activity{*f.activity}, nil
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=auto", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	stmts := []string{
		`PRAGMA busy_timeout = 5000`,
		`CREATE TABLE users (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			display_name TEXT,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE activities (
			id INTEGER PRIMARY KEY,
			code TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			description TEXT,
			start_time DATETIME NOT NULL,
			end_time DATETIME NOT NULL,
			status TEXT NOT NULL,
			limit_type TEXT NOT NULL,
			max_draws_per_user INTEGER NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE prizes (
			id INTEGER PRIMARY KEY,
			activity_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			image_url TEXT,
			prize_type TEXT NOT NULL,
			total_stock INTEGER NOT NULL DEFAULT 0,
			remaining_stock INTEGER NOT NULL DEFAULT 0,
			probability REAL NOT NULL DEFAULT 0,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE user_draw_statistics (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			total_draws INTEGER NOT NULL DEFAULT 0,
			winning_draws INTEGER NOT NULL DEFAULT 0,
			last_draw_time DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (user_id, activity_id)
		)`,
		`CREATE TABLE user_daily_draw_statistics (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			activity_id INTEGER NOT NULL,
			draw_date DATE NOT NULL,
			daily_draws INTEGER NOT NULL DEFAULT 0,
			daily_winning_draws INTEGER NOT NULL DEFAULT 0,
			last_draw_time DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			UNIQUE (user_id, activity_id, draw_date)
		)`,
		`CREATE TABLE draw_records (
			id INTEGER PRIMARY KEY,
			batch_id TEXT NOT NULL,
			activity_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			prize_id INTEGER,
			prize_name TEXT NOT NULL,
			prize_type TEXT,
			is_winning BOOLEAN NOT NULL,
			status TEXT NOT NULL,
			draw_time DATETIME NOT NULL,
			created_at DATETIME NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}
