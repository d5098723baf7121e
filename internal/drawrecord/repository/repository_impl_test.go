package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	drawrecorddomain "github.com/smallbiznis/lottery/internal/drawrecord/domain"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestHistoryMostRecentFirst(t *testing.T) {
	db := setupRecordDB(t)
	repo := Provide()
	ctx := context.Background()
	node := mustNode(t)

	base := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	prizeID := snowflake.ID(77)
	inputs := []struct {
		activity snowflake.ID
		offset   time.Duration
		prize    *snowflake.ID
	}{
		{activity: 1, offset: 0},
		{activity: 1, offset: time.Minute, prize: &prizeID},
		{activity: 2, offset: 2 * time.Minute},
		{activity: 1, offset: 3 * time.Minute},
	}
	for i, in := range inputs {
		rec := &drawrecorddomain.Record{
			ID:         node.Generate(),
			BatchID:    fmt.Sprintf("batch-%d", i),
			ActivityID: in.activity,
			UserID:     9,
			PrizeID:    in.prize,
			PrizeName:  "prize",
			IsWinning:  in.prize != nil,
			Status:     drawrecorddomain.StatusCompleted,
			DrawTime:   base.Add(in.offset),
			CreatedAt:  base.Add(in.offset),
		}
		if err := repo.Append(ctx, db, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := repo.History(ctx, db, drawrecorddomain.HistoryFilter{UserID: 9})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].DrawTime.After(all[i-1].DrawTime) {
			t.Fatalf("history not most recent first at %d", i)
		}
	}

	activityID := snowflake.ID(1)
	scoped, err := repo.History(ctx, db, drawrecorddomain.HistoryFilter{UserID: 9, ActivityID: &activityID, Limit: 2})
	if err != nil {
		t.Fatalf("scoped history: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("expected 2 records, got %d", len(scoped))
	}
	assert.Nil(t, scoped[0].PrizeID)
	if assert.NotNil(t, scoped[1].PrizeID) {
		assert.Equal(t, prizeID, *scoped[1].PrizeID)
	}
	assert.True(t, scoped[1].IsWinning)

	other, err := repo.History(ctx, db, drawrecorddomain.HistoryFilter{UserID: 10})
	if err != nil {
		t.Fatalf("other history: %v", err)
	}
	assert.Empty(t, other)
}

func TestAppendRejectsNil(t *testing.T) {
	db := setupRecordDB(t)
	if err := Provide().Append(context.Background(), db, nil); err == nil {
		t.Fatalf("expected error")
	}
}

func setupRecordDB(t *testing.T) *gorm.DB {
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

	if err := db.Exec(`CREATE TABLE draw_records (
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
	)`).Error; err != nil {
		t.Fatalf("create draw_records: %v", err)
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
