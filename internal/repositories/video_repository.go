package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elevatr/video-processing-service/internal/models/po"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrVideoExists 表示同一 id 的视频记录已存在（幂等拒绝）。
	ErrVideoExists = errors.New("video record already exists")
	// ErrVideoNotFound 表示视频记录不存在。
	ErrVideoNotFound = errors.New("video record not found")
	// ErrStatusConflict 表示记录当前状态与更新前置条件不符（例如已被巡检标记为 failed）。
	ErrStatusConflict = errors.New("video record status changed")
)

const videoColumns = `id, uid, video_type, status, filename, moderation, failure_reason, created_at, checked_at, updated_at`

// VideoRepository 封装 elevatr.videos 表的访问逻辑。
type VideoRepository struct {
	db  *pgxpool.Pool
	log *log.Helper
}

// NewVideoRepository 构造 VideoRepository。
func NewVideoRepository(db *pgxpool.Pool, logger log.Logger) *VideoRepository {
	return &VideoRepository{
		db:  db,
		log: log.NewHelper(logger),
	}
}

// CreateVideoInput 描述创建视频记录所需的字段。
type CreateVideoInput struct {
	ID        string
	UID       string
	VideoType po.Category
	Status    po.VideoStatus
}

// UpdateVideoInput 描述部分更新的字段，nil 字段保持原值。
//
// ExpectedStatus 非空时仅在记录仍处于该状态时更新，否则返回 ErrStatusConflict。
type UpdateVideoInput struct {
	ID             string
	ExpectedStatus *po.VideoStatus
	Status         *po.VideoStatus
	Filename       *string
	Moderation     *po.Moderation
	FailureReason  *string
	CheckedAt      *time.Time
}

// Exists 判断指定 id 的记录是否存在。
func (r *VideoRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM elevatr.videos WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		r.log.WithContext(ctx).Errorf("check video exists failed: id=%s err=%v", id, err)
		return false, fmt.Errorf("check video exists: %w", err)
	}
	return exists, nil
}

// Create 插入新记录；主键冲突返回 ErrVideoExists。
//
// INSERT 本身是并发重复通知之间的唯一裁决点：只有一个调用方能成功。
func (r *VideoRepository) Create(ctx context.Context, input CreateVideoInput) (*po.Video, error) {
	status := input.Status
	if status == "" {
		status = po.VideoStatusProcessing
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO elevatr.videos (id, uid, video_type, status)
		VALUES ($1, $2, $3, $4)
		RETURNING `+videoColumns,
		input.ID, input.UID, string(input.VideoType), string(status),
	)
	video, err := scanVideo(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrVideoExists
		}
		r.log.WithContext(ctx).Errorf("create video failed: id=%s err=%v", input.ID, err)
		return nil, fmt.Errorf("create video: %w", err)
	}
	return video, nil
}

// Update 按非空字段更新记录。
func (r *VideoRepository) Update(ctx context.Context, input UpdateVideoInput) (*po.Video, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE elevatr.videos SET
			status         = COALESCE($2, status),
			filename       = COALESCE($3, filename),
			moderation     = COALESCE($4, moderation),
			failure_reason = COALESCE($5, failure_reason),
			checked_at     = COALESCE($6, checked_at),
			updated_at     = now()
		WHERE id = $1 AND ($7::text IS NULL OR status = $7::text)
		RETURNING `+videoColumns,
		input.ID,
		stringPtr(input.Status),
		input.Filename,
		stringPtr(input.Moderation),
		input.FailureReason,
		input.CheckedAt,
		stringPtr(input.ExpectedStatus),
	)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, r.missingUpdateTarget(ctx, input)
		}
		r.log.WithContext(ctx).Errorf("update video failed: id=%s err=%v", input.ID, err)
		return nil, fmt.Errorf("update video: %w", err)
	}
	return video, nil
}

// missingUpdateTarget 区分记录不存在与状态前置条件不满足。
func (r *VideoRepository) missingUpdateTarget(ctx context.Context, input UpdateVideoInput) error {
	if input.ExpectedStatus == nil {
		return ErrVideoNotFound
	}
	current, err := r.Get(ctx, input.ID)
	if err != nil {
		return err
	}
	r.log.WithContext(ctx).Warnf("update video skipped: id=%s expected_status=%s current_status=%s", input.ID, *input.ExpectedStatus, current.Status)
	return fmt.Errorf("%w: id=%s expected=%s current=%s", ErrStatusConflict, input.ID, *input.ExpectedStatus, current.Status)
}

// Get 查询单条记录。
func (r *VideoRepository) Get(ctx context.Context, id string) (*po.Video, error) {
	row := r.db.QueryRow(ctx, `SELECT `+videoColumns+` FROM elevatr.videos WHERE id = $1`, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVideoNotFound
		}
		r.log.WithContext(ctx).Errorf("get video failed: id=%s err=%v", id, err)
		return nil, fmt.Errorf("get video: %w", err)
	}
	return video, nil
}

// MarkStaleFailed 将 created_at 早于 cutoff 且仍为 processing 的记录标记为 failed，返回被标记的 id。
func (r *VideoRepository) MarkStaleFailed(ctx context.Context, cutoff time.Time, reason string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `
		UPDATE elevatr.videos SET
			status         = 'failed',
			failure_reason = $2,
			updated_at     = now()
		WHERE id IN (
			SELECT id FROM elevatr.videos
			WHERE status = 'processing' AND created_at < $1
			ORDER BY created_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING id`,
		cutoff.UTC(), reason, limit,
	)
	if err != nil {
		r.log.WithContext(ctx).Errorf("mark stale videos failed: cutoff=%s err=%v", cutoff.Format(time.RFC3339), err)
		return nil, fmt.Errorf("mark stale videos: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect stale video ids: %w", err)
	}
	return ids, nil
}

// Ping 供 readiness 探针检查数据库连通性。
func (r *VideoRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func scanVideo(row pgx.Row) (*po.Video, error) {
	var (
		video      po.Video
		videoType  string
		status     string
		moderation *string
	)
	if err := row.Scan(
		&video.ID,
		&video.UID,
		&videoType,
		&status,
		&video.Filename,
		&moderation,
		&video.FailureReason,
		&video.CreatedAt,
		&video.CheckedAt,
		&video.UpdatedAt,
	); err != nil {
		return nil, err
	}
	video.VideoType = po.Category(videoType)
	video.Status = po.VideoStatus(status)
	if moderation != nil {
		m := po.Moderation(*moderation)
		video.Moderation = &m
	}
	return &video, nil
}

func stringPtr[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
