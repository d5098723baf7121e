package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	drawrecorddomain "github.com/smallbiznis/lottery/internal/drawrecord/domain"
	"github.com/smallbiznis/lottery/internal/observability/metrics"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	"github.com/smallbiznis/lottery/pkg/db"
	"go.uber.org/zap"
)

const maxHistoryLimit = 500

func (s *Service) Remaining(ctx context.Context, userID, activityID snowflake.ID) (*drawdomain.RemainingResponse, error) {
	activity, err := s.loadActivity(ctx, activityID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	remaining, err := s.quota.Remaining(ctx, s.db, userID, activity, s.clock.Now())
	if err != nil {
		return nil, s.classify(err, s.log)
	}
	return &drawdomain.RemainingResponse{
		ActivityID:     activity.ID.String(),
		LimitType:      string(activity.LimitType),
		MaxDraws:       activity.MaxDrawsPerUser,
		RemainingDraws: remaining,
	}, nil
}

func (s *Service) History(ctx context.Context, req drawdomain.HistoryRequest) ([]drawdomain.HistoryItem, error) {
	if err := s.ensureUser(ctx, req.UserID); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	records, err := s.records.History(ctx, s.db, drawrecorddomain.HistoryFilter{
		UserID:     req.UserID,
		ActivityID: req.ActivityID,
		Limit:      limit,
	})
	if err != nil {
		return nil, s.classify(err, s.log)
	}

	return toHistoryItems(records), nil
}

// Batch returns the records of one draw call. Batches of other users read as empty.
func (s *Service) Batch(ctx context.Context, userID snowflake.ID, batchID string) ([]drawdomain.HistoryItem, error) {
	if batchID == "" {
		return nil, drawdomain.NewError(drawdomain.KindInvalidRequest, "batch id is required", nil)
	}
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	records, err := s.records.ListByBatch(ctx, s.db, batchID)
	if err != nil {
		return nil, s.classify(err, s.log)
	}

	owned := records[:0]
	for _, rec := range records {
		if rec.UserID == userID {
			owned = append(owned, rec)
		}
	}
	return toHistoryItems(owned), nil
}

func toHistoryItems(records []drawrecorddomain.Record) []drawdomain.HistoryItem {
	items := make([]drawdomain.HistoryItem, 0, len(records))
	for _, rec := range records {
		item := drawdomain.HistoryItem{
			RecordID:   rec.ID.String(),
			BatchID:    rec.BatchID,
			ActivityID: rec.ActivityID.String(),
			PrizeName:  rec.PrizeName,
			PrizeType:  rec.PrizeType,
			IsWinning:  rec.IsWinning,
			Status:     string(rec.Status),
			DrawTime:   rec.DrawTime,
		}
		if rec.PrizeID != nil {
			item.PrizeID = rec.PrizeID.String()
		}
		items = append(items, item)
	}
	return items
}

func (s *Service) loadActivity(ctx context.Context, id snowflake.ID) (*activitydomain.Activity, error) {
	activity, err := s.activities.Get(ctx, id)
	switch {
	case err == nil:
		return activity, nil
	case errors.Is(err, activitydomain.ErrNotFound):
		return nil, drawdomain.NewError(drawdomain.KindActivityNotFound, "activity not found", err)
	case errors.Is(err, activitydomain.ErrInvalidID):
		return nil, drawdomain.NewError(drawdomain.KindInvalidRequest, "invalid activity id", err)
	default:
		return nil, s.classify(err, s.log)
	}
}

func (s *Service) ensureUser(ctx context.Context, id snowflake.ID) error {
	_, err := s.users.Get(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, userdomain.ErrNotFound):
		return drawdomain.NewError(drawdomain.KindUserNotFound, "user not found", err)
	case errors.Is(err, userdomain.ErrInvalidID):
		return drawdomain.NewError(drawdomain.KindInvalidRequest, "invalid user id", err)
	default:
		return s.classify(err, s.log)
	}
}

// classify keeps typed draw errors and sorts storage failures into transient or internal.
func (s *Service) classify(err error, log *zap.Logger) error {
	var de *drawdomain.Error
	if errors.As(err, &de) {
		return err
	}

	metrics.Draw().IncStorageError(err)
	if db.IsTransient(err) || errors.Is(err, context.Canceled) {
		log.Warn("draw storage unavailable", zap.Error(err))
		return drawdomain.NewError(drawdomain.KindTransient, "storage unavailable", err)
	}
	log.Error("draw failed unexpectedly", zap.Error(err))
	return drawdomain.NewError(drawdomain.KindInternal, "internal error", err)
}
