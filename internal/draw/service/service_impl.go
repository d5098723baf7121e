package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	activitydomain "github.com/smallbiznis/lottery/internal/activity/domain"
	"github.com/smallbiznis/lottery/internal/clock"
	"github.com/smallbiznis/lottery/internal/config"
	drawdomain "github.com/smallbiznis/lottery/internal/draw/domain"
	"github.com/smallbiznis/lottery/internal/drawevent"
	"github.com/smallbiznis/lottery/internal/drawlock"
	drawrecorddomain "github.com/smallbiznis/lottery/internal/drawrecord/domain"
	obscontext "github.com/smallbiznis/lottery/internal/observability/context"
	obslogger "github.com/smallbiznis/lottery/internal/observability/logger"
	"github.com/smallbiznis/lottery/internal/observability/metrics"
	"github.com/smallbiznis/lottery/internal/observability/tracing"
	quotadomain "github.com/smallbiznis/lottery/internal/quota/domain"
	"github.com/smallbiznis/lottery/internal/selector"
	stockdomain "github.com/smallbiznis/lottery/internal/stock/domain"
	userdomain "github.com/smallbiznis/lottery/internal/user/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	unlockTimeout  = 5 * time.Second
	publishTimeout = 5 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	DrawConfig *config.DrawConfigHolder

	Activities activitydomain.Service
	Users      userdomain.Service
	Locker     drawlock.Locker
	Quota      quotadomain.Tracker
	Stock      stockdomain.Ledger
	Records    drawrecorddomain.Repository
	Selector   *selector.Selector
	Publisher  drawevent.Publisher `optional:"true"`
	Metrics    *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	lockKey string
	drawCfg *config.DrawConfigHolder

	activities activitydomain.Service
	users      userdomain.Service
	locker     drawlock.Locker
	quota      quotadomain.Tracker
	stock      stockdomain.Ledger
	records    drawrecorddomain.Repository
	selector   *selector.Selector
	publisher  drawevent.Publisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
}

func New(p Params) drawdomain.Service {
	publisher := p.Publisher
	if publisher == nil {
		publisher = drawevent.NopPublisher{}
	}
	sel := p.Selector
	if sel == nil {
		sel = selector.New(nil)
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("draw.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		lockKey:    p.Config.Lock.KeyPrefix,
		drawCfg:    p.DrawConfig,
		activities: p.Activities,
		users:      p.Users,
		locker:     p.Locker,
		quota:      p.Quota,
		stock:      p.Stock,
		records:    p.Records,
		selector:   sel,
		publisher:  publisher,
		metrics:    p.Metrics,
		tracer:     otel.Tracer("lottery/draw"),
	}
}

// Draw runs one batch: lock, quota check, N single draws, quota update, all
// in one transaction. Nothing from a failed batch is persisted.
func (s *Service) Draw(ctx context.Context, req drawdomain.DrawRequest) (*drawdomain.DrawBatchResult, error) {
	ctx, span := s.tracer.Start(ctx, "draw.batch", trace.WithAttributes(tracing.SafeAttributes(
		attribute.Int("draw_count", req.DrawCount),
		attribute.String("activity_id", req.ActivityID.String()),
	)...))
	defer span.End()

	start := time.Now()
	result, err := s.draw(ctx, req)

	outcome := "success"
	if err != nil {
		kind := drawdomain.KindOf(err)
		outcome = string(kind)
		s.metrics.RecordDrawError(ctx, outcome)
		span.RecordError(tracing.SafeError(err))
		span.SetStatus(codes.Error, outcome)
	}
	metrics.Draw().ObserveBatch(outcome, time.Since(start))
	return result, err
}

func (s *Service) draw(ctx context.Context, req drawdomain.DrawRequest) (*drawdomain.DrawBatchResult, error) {
	cfg := s.drawCfg.Get()
	ctx = obscontext.WithActivityID(ctx, req.ActivityID.String())
	log := obslogger.WithContext(ctx, s.log).With(zap.Int("draw_count", req.DrawCount))

	if req.DrawCount < 1 {
		return nil, drawdomain.NewError(drawdomain.KindInvalidRequest, "draw_count must be at least 1", nil)
	}
	if req.DrawCount > cfg.MaxDrawCount {
		return nil, drawdomain.NewError(drawdomain.KindInvalidRequest, "draw_count exceeds the per request maximum", nil)
	}

	activity, err := s.loadActivity(ctx, req.ActivityID)
	if err != nil {
		return nil, err
	}
	if !activity.AvailableAt(s.clock.Now()) {
		return nil, errActivityClosed()
	}
	if err := s.ensureUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	unlock, err := s.acquire(ctx, req.UserID, activity.ID, cfg, log)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, unlock, log)

	// The lock wait can be long; the batch is dated from the moment it is held.
	now := s.clock.Now()
	if !activity.AvailableAt(now) {
		return nil, errActivityClosed()
	}

	var (
		result *drawdomain.DrawBatchResult
		event  drawevent.BatchCompleted
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		remaining, err := s.quota.Hold(ctx, tx, req.UserID, activity, now)
		if err != nil {
			return err
		}
		if remaining < req.DrawCount {
			return drawdomain.InsufficientAllowance(req.DrawCount, remaining)
		}

		batchID := ulid.Make().String()
		results := make([]drawdomain.DrawResult, 0, req.DrawCount)
		wins := 0
		for i := 0; i < req.DrawCount; i++ {
			res, err := s.singleDraw(ctx, tx, batchID, req.UserID, activity, cfg, log)
			if err != nil {
				return err
			}
			if res.IsWinning {
				wins++
			}
			results = append(results, *res)
		}

		after, err := s.quota.Consume(ctx, tx, req.UserID, activity, quotadomain.Usage{
			Draws:        req.DrawCount,
			WinningDraws: wins,
		}, now)
		if errors.Is(err, quotadomain.ErrAllowanceExceeded) {
			left, rerr := s.quota.Remaining(ctx, tx, req.UserID, activity, now)
			if rerr != nil {
				left = 0
			}
			return drawdomain.InsufficientAllowance(req.DrawCount, left)
		}
		if err != nil {
			return err
		}

		result = &drawdomain.DrawBatchResult{
			BatchID:        batchID,
			Results:        results,
			DrawCount:      req.DrawCount,
			RemainingDraws: after,
		}
		event = buildEvent(req, result, wins, s.clock.Now())
		return nil
	})
	if err != nil {
		return nil, s.classify(err, log)
	}

	s.metrics.RecordDrawBatch(ctx, string(activity.LimitType))
	log.Info("draw batch committed",
		zap.String("batch_id", result.BatchID),
		zap.Int("winning", event.WinningCount),
		zap.Int("remaining_draws", result.RemainingDraws),
	)
	s.publish(ctx, event, log)
	return result, nil
}

// singleDraw selects, reserves stock when the prize is scarce, and appends the record.
func (s *Service) singleDraw(ctx context.Context, tx *gorm.DB, batchID string, userID snowflake.ID, activity *activitydomain.Activity, cfg config.DrawConfig, log *zap.Logger) (*drawdomain.DrawResult, error) {
	now := s.clock.Now()
	rec := &drawrecorddomain.Record{
		ID:         s.genID.Generate(),
		BatchID:    batchID,
		ActivityID: activity.ID,
		UserID:     userID,
		Status:     drawrecorddomain.StatusCompleted,
		DrawTime:   now,
		CreatedAt:  now,
	}

	prize := s.selector.Select(activity.Prizes)
	switch {
	case prize == nil:
		rec.PrizeName = cfg.NoPrizeName
	case prize.IsNoPrize():
		setPrize(rec, prize)
	default:
		reserved, err := s.stock.Reserve(ctx, tx, prize.ID, 1)
		if err != nil {
			return nil, err
		}
		switch reserved {
		case stockdomain.Reserved:
			setPrize(rec, prize)
			rec.IsWinning = true
		case stockdomain.OutOfStock:
			log.Info("prize out of stock, draw downgraded",
				zap.String("prize_id", prize.ID.String()),
				zap.String("batch_id", batchID),
			)
			s.metrics.RecordStockDowngrade(ctx, string(prize.PrizeType))
			prize = noPrizeOf(activity)
			if prize != nil {
				setPrize(rec, prize)
			} else {
				rec.PrizeName = cfg.NoPrizeName
			}
		default:
			log.Error("selected prize vanished before reservation",
				zap.String("prize_id", prize.ID.String()),
				zap.String("batch_id", batchID),
			)
			return nil, drawdomain.NewError(drawdomain.KindPrizeInconsistent, "selected prize no longer exists", nil)
		}
	}

	if err := s.records.Append(ctx, tx, rec); err != nil {
		return nil, err
	}
	s.metrics.RecordDrawOutcome(ctx, rec.PrizeType, rec.IsWinning)

	res := &drawdomain.DrawResult{
		RecordID:  rec.ID.String(),
		IsWinning: rec.IsWinning,
		PrizeName: rec.PrizeName,
		PrizeType: rec.PrizeType,
		DrawTime:  rec.DrawTime,
	}
	if rec.PrizeID != nil {
		res.PrizeID = rec.PrizeID.String()
	}
	if prize != nil && rec.PrizeID != nil {
		res.PrizeDescription = prize.Description
		res.ImageURL = prize.ImageURL
	}
	return res, nil
}

func (s *Service) acquire(ctx context.Context, userID, activityID snowflake.ID, cfg config.DrawConfig, log *zap.Logger) (drawlock.Unlock, error) {
	key := drawlock.Key(s.lockKey, userID, activityID)
	start := time.Now()
	unlock, err := s.locker.Acquire(ctx, key, cfg.LockWait, cfg.LockLease)
	metrics.Draw().ObserveLockWait(s.locker.Backend(), time.Since(start))
	if err == nil {
		return unlock, nil
	}

	if errors.Is(err, drawlock.ErrNotAcquired) {
		metrics.Draw().IncLockBusy(s.locker.Backend())
		log.Info("draw lock busy", zap.String("lock_key", key), zap.Duration("wait", cfg.LockWait))
		return nil, drawdomain.NewError(drawdomain.KindSystemBusy, "another draw for this user is in progress", err)
	}
	log.Warn("draw lock backend unavailable", zap.String("backend", s.locker.Backend()), zap.Error(err))
	return nil, drawdomain.NewError(drawdomain.KindTransient, "lock backend unavailable", err)
}

func (s *Service) release(ctx context.Context, unlock drawlock.Unlock, log *zap.Logger) {
	if unlock == nil {
		return
	}
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
	defer cancel()
	if err := unlock(releaseCtx); err != nil {
		// The lease still bounds how long the key stays held.
		log.Warn("draw lock release failed", zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, event drawevent.BatchCompleted, log *zap.Logger) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := s.publisher.PublishBatch(pubCtx, event); err != nil {
		log.Warn("draw event publish failed", zap.String("batch_id", event.BatchID), zap.Error(err))
	}
}

func errActivityClosed() error {
	return drawdomain.NewError(drawdomain.KindActivityNotAvailable, "activity is not open for draws", nil)
}

func setPrize(rec *drawrecorddomain.Record, prize *activitydomain.Prize) {
	id := prize.ID
	rec.PrizeID = &id
	rec.PrizeName = prize.Name
	rec.PrizeType = string(prize.PrizeType)
}

func noPrizeOf(activity *activitydomain.Activity) *activitydomain.Prize {
	for i := len(activity.Prizes) - 1; i >= 0; i-- {
		if activity.Prizes[i].IsNoPrize() {
			return &activity.Prizes[i]
		}
	}
	return nil
}

func buildEvent(req drawdomain.DrawRequest, result *drawdomain.DrawBatchResult, wins int, at time.Time) drawevent.BatchCompleted {
	outcomes := make([]drawevent.Outcome, 0, len(result.Results))
	for _, r := range result.Results {
		outcomes = append(outcomes, drawevent.Outcome{
			RecordID:  r.RecordID,
			PrizeID:   r.PrizeID,
			PrizeName: r.PrizeName,
			PrizeType: r.PrizeType,
			IsWinning: r.IsWinning,
			DrawTime:  r.DrawTime,
		})
	}
	return drawevent.BatchCompleted{
		BatchID:        result.BatchID,
		UserID:         req.UserID.String(),
		ActivityID:     req.ActivityID.String(),
		DrawCount:      result.DrawCount,
		WinningCount:   wins,
		RemainingDraws: result.RemainingDraws,
		Outcomes:       outcomes,
		OccurredAt:     at,
	}
}
