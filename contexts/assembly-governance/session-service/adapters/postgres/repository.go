package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"plenum/contexts/assembly-governance/session-service/domain/entities"
	domainerrors "plenum/contexts/assembly-governance/session-service/domain/errors"
	"plenum/contexts/assembly-governance/session-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) SaveMeeting(ctx context.Context, meeting entities.Meeting) error {
	row := meetingModelFromEntity(meeting)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "meeting_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":            row.Title,
			"status":           row.Status,
			"convocation_no":   row.ConvocationNo,
			"quorum_policy_id": row.QuorumPolicyID,
			"vote_policy_id":   row.VotePolicyID,
			"open_motion_id":   row.OpenMotionID,
			"opened_at":        row.OpenedAt,
			"closed_at":        row.ClosedAt,
			"updated_at":       row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("session_repo_save_meeting_failed", create.Error,
			"meeting_id", strings.TrimSpace(meeting.MeetingID),
		)
	}
	return nil
}

func (r *Repository) GetMeeting(ctx context.Context, meetingID string) (entities.Meeting, error) {
	var row meetingModel
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Meeting{}, domainerrors.ErrMeetingNotFound
		}
		return entities.Meeting{}, r.logError("session_repo_get_meeting_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) TransitionMeeting(
	ctx context.Context,
	meetingID string,
	from entities.MeetingStatus,
	to entities.MeetingStatus,
	requireNoOpenMotion bool,
	updatedAt time.Time,
) (bool, error) {
	updates := map[string]any{
		"status":     string(to),
		"updated_at": updatedAt.UTC(),
	}
	switch to {
	case entities.MeetingStatusLive:
		// opened_at is stamped once; re-entering live after a pause keeps the
		// original timestamp.
		updates["opened_at"] = gorm.Expr("COALESCE(opened_at, ?)", updatedAt.UTC())
	case entities.MeetingStatusClosed:
		updates["closed_at"] = updatedAt.UTC()
	}

	tx := r.db.WithContext(ctx).
		Model(&meetingModel{}).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Where("status = ?", string(from))
	if requireNoOpenMotion {
		tx = tx.Where("open_motion_id = ''")
	}
	result := tx.Updates(updates)
	if result.Error != nil {
		return false, r.logError("session_repo_transition_meeting_failed", result.Error,
			"meeting_id", strings.TrimSpace(meetingID),
			"from", string(from),
			"to", string(to),
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) SaveMotion(ctx context.Context, motion entities.Motion) error {
	row := motionModelFromEntity(motion)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "motion_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":           row.Title,
			"description":     row.Description,
			"position":        row.Position,
			"secret":          row.Secret,
			"decision":        row.Decision,
			"decision_reason": row.DecisionReason,
			"votes_for":       row.VotesFor,
			"votes_against":   row.VotesAgainst,
			"votes_abstain":   row.VotesAbstain,
			"weight_for":      row.WeightFor,
			"weight_against":  row.WeightAgainst,
			"weight_abstain":  row.WeightAbstain,
			"opened_at":       row.OpenedAt,
			"closed_at":       row.ClosedAt,
			"updated_at":      row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("session_repo_save_motion_failed", create.Error,
			"motion_id", strings.TrimSpace(motion.MotionID),
			"meeting_id", strings.TrimSpace(motion.MeetingID),
		)
	}
	return nil
}

func (r *Repository) GetMotion(ctx context.Context, motionID string) (entities.Motion, error) {
	var row motionModel
	err := r.db.WithContext(ctx).
		Where("motion_id = ?", strings.TrimSpace(motionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Motion{}, domainerrors.ErrMotionNotFound
		}
		return entities.Motion{}, r.logError("session_repo_get_motion_failed", err,
			"motion_id", strings.TrimSpace(motionID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListMotionsByMeeting(ctx context.Context, meetingID string) ([]entities.Motion, error) {
	var rows []motionModel
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Order("position ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_motions_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
		)
	}
	items := make([]entities.Motion, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) OpenMotion(ctx context.Context, meetingID string, motionID string, openedAt time.Time) (bool, error) {
	claimed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&meetingModel{}).
			Where("meeting_id = ?", strings.TrimSpace(meetingID)).
			Where("open_motion_id = ''").
			Updates(map[string]any{
				"open_motion_id": strings.TrimSpace(motionID),
				"updated_at":     openedAt.UTC(),
			})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		stamp := tx.Model(&motionModel{}).
			Where("motion_id = ?", strings.TrimSpace(motionID)).
			Where("meeting_id = ?", strings.TrimSpace(meetingID)).
			Where("opened_at IS NULL").
			Updates(map[string]any{
				"opened_at":  openedAt.UTC(),
				"updated_at": openedAt.UTC(),
			})
		if stamp.Error != nil {
			return stamp.Error
		}
		if stamp.RowsAffected == 0 {
			// Roll back the slot claim; the motion was opened before.
			return domainerrors.ErrMotionAlreadyOpen
		}
		claimed = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrMotionAlreadyOpen) {
			return false, nil
		}
		return false, r.logError("session_repo_open_motion_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
			"motion_id", strings.TrimSpace(motionID),
		)
	}
	return claimed, nil
}

func (r *Repository) CloseMotion(
	ctx context.Context,
	meetingID string,
	motionID string,
	closedAt time.Time,
	decided entities.Decision,
	reason string,
	tallies entities.Tallies,
) (bool, error) {
	released := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		release := tx.Model(&meetingModel{}).
			Where("meeting_id = ?", strings.TrimSpace(meetingID)).
			Where("open_motion_id = ?", strings.TrimSpace(motionID)).
			Updates(map[string]any{
				"open_motion_id": "",
				"updated_at":     closedAt.UTC(),
			})
		if release.Error != nil {
			return release.Error
		}
		if release.RowsAffected == 0 {
			return nil
		}

		stamp := tx.Model(&motionModel{}).
			Where("motion_id = ?", strings.TrimSpace(motionID)).
			Where("closed_at IS NULL").
			Updates(map[string]any{
				"closed_at":       closedAt.UTC(),
				"decision":        string(decided),
				"decision_reason": strings.TrimSpace(reason),
				"votes_for":       tallies.VotesFor,
				"votes_against":   tallies.VotesAgainst,
				"votes_abstain":   tallies.VotesAbstain,
				"weight_for":      tallies.WeightFor,
				"weight_against":  tallies.WeightAgainst,
				"weight_abstain":  tallies.WeightAbstain,
				"updated_at":      closedAt.UTC(),
			})
		if stamp.Error != nil {
			return stamp.Error
		}
		released = stamp.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, r.logError("session_repo_close_motion_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
			"motion_id", strings.TrimSpace(motionID),
		)
	}
	return released, nil
}

func (r *Repository) ReorderMotions(ctx context.Context, meetingID string, positions map[string]int, updatedAt time.Time) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for motionID, position := range positions {
			result := tx.Model(&motionModel{}).
				Where("motion_id = ?", strings.TrimSpace(motionID)).
				Where("meeting_id = ?", strings.TrimSpace(meetingID)).
				Updates(map[string]any{
					"position":   position,
					"updated_at": updatedAt.UTC(),
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return domainerrors.ErrMotionNotFound
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrMotionNotFound) {
			return err
		}
		return r.logError("session_repo_reorder_motions_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
		)
	}
	return nil
}

func (r *Repository) UpsertBallot(ctx context.Context, ballot entities.Ballot) error {
	row := ballotModelFromEntity(ballot)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "motion_id"}, {Name: "member_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":         row.Value,
			"source":        row.Source,
			"weight":        row.Weight,
			"justification": row.Justification,
			"cast_at":       row.CastAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("session_repo_upsert_ballot_failed", create.Error,
			"motion_id", strings.TrimSpace(ballot.MotionID),
			"member_id", strings.TrimSpace(ballot.MemberID),
		)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, motionID string, memberID string) (entities.Ballot, bool, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("motion_id = ?", strings.TrimSpace(motionID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, false, nil
		}
		return entities.Ballot{}, false, r.logError("session_repo_get_ballot_failed", err,
			"motion_id", strings.TrimSpace(motionID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListBallotsByMotion(ctx context.Context, motionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("motion_id = ?", strings.TrimSpace(motionID)).
		Order("member_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_ballots_failed", err,
			"motion_id", strings.TrimSpace(motionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) DeleteBallot(ctx context.Context, motionID string, memberID string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("motion_id = ?", strings.TrimSpace(motionID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		Delete(&ballotModel{})
	if result.Error != nil {
		return false, r.logError("session_repo_delete_ballot_failed", result.Error,
			"motion_id", strings.TrimSpace(motionID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) UpsertAttendance(ctx context.Context, attendance entities.Attendance) error {
	row := attendanceModel{
		MeetingID: strings.TrimSpace(attendance.MeetingID),
		MemberID:  strings.TrimSpace(attendance.MemberID),
		Mode:      string(attendance.Mode),
		UpdatedAt: attendance.UpdatedAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "meeting_id"}, {Name: "member_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"mode":       row.Mode,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("session_repo_upsert_attendance_failed", create.Error,
			"meeting_id", row.MeetingID,
			"member_id", row.MemberID,
		)
	}
	return nil
}

func (r *Repository) GetAttendance(ctx context.Context, meetingID string, memberID string) (entities.Attendance, bool, error) {
	var row attendanceModel
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Attendance{}, false, nil
		}
		return entities.Attendance{}, false, r.logError("session_repo_get_attendance_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListAttendanceByMeeting(ctx context.Context, meetingID string) ([]entities.Attendance, error) {
	var rows []attendanceModel
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Order("member_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_attendance_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
		)
	}
	items := make([]entities.Attendance, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) SaveProxy(ctx context.Context, proxy entities.Proxy) error {
	row := proxyModel{
		ProxyID:    uuid.NewString(),
		MeetingID:  strings.TrimSpace(proxy.MeetingID),
		GiverID:    strings.TrimSpace(proxy.GiverID),
		ReceiverID: strings.TrimSpace(proxy.ReceiverID),
		GrantedAt:  proxy.GrantedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("session_repo_save_proxy_failed", err,
			"meeting_id", row.MeetingID,
			"giver_id", row.GiverID,
		)
	}
	return nil
}

func (r *Repository) GetActiveProxyByGiver(ctx context.Context, meetingID string, giverID string) (entities.Proxy, bool, error) {
	var row proxyModel
	err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Where("giver_id = ?", strings.TrimSpace(giverID)).
		Where("revoked_at IS NULL").
		Order("granted_at DESC").
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proxy{}, false, nil
		}
		return entities.Proxy{}, false, r.logError("session_repo_get_active_proxy_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
			"giver_id", strings.TrimSpace(giverID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) ListActiveProxiesByMeeting(ctx context.Context, meetingID string) ([]entities.Proxy, error) {
	var rows []proxyModel
	if err := r.db.WithContext(ctx).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Where("revoked_at IS NULL").
		Order("giver_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_active_proxies_failed", err,
			"meeting_id", strings.TrimSpace(meetingID),
		)
	}
	items := make([]entities.Proxy, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) RevokeProxy(ctx context.Context, meetingID string, giverID string, revokedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&proxyModel{}).
		Where("meeting_id = ?", strings.TrimSpace(meetingID)).
		Where("giver_id = ?", strings.TrimSpace(giverID)).
		Where("revoked_at IS NULL").
		Update("revoked_at", revokedAt.UTC())
	if result.Error != nil {
		return false, r.logError("session_repo_revoke_proxy_failed", result.Error,
			"meeting_id", strings.TrimSpace(meetingID),
			"giver_id", strings.TrimSpace(giverID),
		)
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) GetMember(ctx context.Context, memberID string) (entities.Member, error) {
	var row memberModel
	err := r.db.WithContext(ctx).
		Where("member_id = ?", strings.TrimSpace(memberID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Member{}, domainerrors.ErrMemberNotFound
		}
		return entities.Member{}, r.logError("session_repo_get_member_failed", err,
			"member_id", strings.TrimSpace(memberID),
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) ListMembers(ctx context.Context) ([]entities.Member, error) {
	var rows []memberModel
	if err := r.db.WithContext(ctx).
		Order("member_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_members_failed", err)
	}
	items := make([]entities.Member, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("session_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.IsZero() && now.UTC().After(row.ExpiresAt.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("session_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		EntityID:    row.EntityID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		EntityID:    strings.TrimSpace(record.EntityID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("session_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("session_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.EntityID != row.EntityID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("session_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("session_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("session_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("session_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("session_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "assembly-governance/session-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("session repository operation failed", fields...)
	return err
}

type meetingModel struct {
	MeetingID      string     `gorm:"column:meeting_id;primaryKey"`
	Title          string     `gorm:"column:title"`
	Status         string     `gorm:"column:status"`
	ConvocationNo  int        `gorm:"column:convocation_no"`
	QuorumPolicyID string     `gorm:"column:quorum_policy_id"`
	VotePolicyID   string     `gorm:"column:vote_policy_id"`
	OpenMotionID   string     `gorm:"column:open_motion_id"`
	OpenedAt       *time.Time `gorm:"column:opened_at"`
	ClosedAt       *time.Time `gorm:"column:closed_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (meetingModel) TableName() string {
	return "session_meetings"
}

func meetingModelFromEntity(meeting entities.Meeting) meetingModel {
	row := meetingModel{
		MeetingID:      strings.TrimSpace(meeting.MeetingID),
		Title:          strings.TrimSpace(meeting.Title),
		Status:         string(meeting.Status),
		ConvocationNo:  meeting.ConvocationNo,
		QuorumPolicyID: strings.TrimSpace(meeting.QuorumPolicyID),
		VotePolicyID:   strings.TrimSpace(meeting.VotePolicyID),
		OpenMotionID:   strings.TrimSpace(meeting.OpenMotionID),
		OpenedAt:       normalizeOptionalTime(meeting.OpenedAt),
		ClosedAt:       normalizeOptionalTime(meeting.ClosedAt),
		CreatedAt:      meeting.CreatedAt.UTC(),
		UpdatedAt:      meeting.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m meetingModel) toEntity() entities.Meeting {
	return entities.Meeting{
		MeetingID:      m.MeetingID,
		Title:          m.Title,
		Status:         entities.MeetingStatus(m.Status),
		ConvocationNo:  m.ConvocationNo,
		QuorumPolicyID: m.QuorumPolicyID,
		VotePolicyID:   m.VotePolicyID,
		OpenMotionID:   m.OpenMotionID,
		OpenedAt:       normalizeOptionalTime(m.OpenedAt),
		ClosedAt:       normalizeOptionalTime(m.ClosedAt),
		CreatedAt:      m.CreatedAt.UTC(),
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

type motionModel struct {
	MotionID       string          `gorm:"column:motion_id;primaryKey"`
	MeetingID      string          `gorm:"column:meeting_id"`
	Title          string          `gorm:"column:title"`
	Description    string          `gorm:"column:description"`
	Position       int             `gorm:"column:position"`
	Secret         bool            `gorm:"column:secret"`
	Decision       string          `gorm:"column:decision"`
	DecisionReason string          `gorm:"column:decision_reason"`
	VotesFor       int             `gorm:"column:votes_for"`
	VotesAgainst   int             `gorm:"column:votes_against"`
	VotesAbstain   int             `gorm:"column:votes_abstain"`
	WeightFor      decimal.Decimal `gorm:"column:weight_for;type:numeric"`
	WeightAgainst  decimal.Decimal `gorm:"column:weight_against;type:numeric"`
	WeightAbstain  decimal.Decimal `gorm:"column:weight_abstain;type:numeric"`
	OpenedAt       *time.Time      `gorm:"column:opened_at"`
	ClosedAt       *time.Time      `gorm:"column:closed_at"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
	UpdatedAt      time.Time       `gorm:"column:updated_at"`
}

func (motionModel) TableName() string {
	return "session_motions"
}

func motionModelFromEntity(motion entities.Motion) motionModel {
	row := motionModel{
		MotionID:       strings.TrimSpace(motion.MotionID),
		MeetingID:      strings.TrimSpace(motion.MeetingID),
		Title:          strings.TrimSpace(motion.Title),
		Description:    strings.TrimSpace(motion.Description),
		Position:       motion.Position,
		Secret:         motion.Secret,
		Decision:       string(motion.Decision),
		DecisionReason: strings.TrimSpace(motion.DecisionReason),
		VotesFor:       motion.Tallies.VotesFor,
		VotesAgainst:   motion.Tallies.VotesAgainst,
		VotesAbstain:   motion.Tallies.VotesAbstain,
		WeightFor:      motion.Tallies.WeightFor,
		WeightAgainst:  motion.Tallies.WeightAgainst,
		WeightAbstain:  motion.Tallies.WeightAbstain,
		OpenedAt:       normalizeOptionalTime(motion.OpenedAt),
		ClosedAt:       normalizeOptionalTime(motion.ClosedAt),
		CreatedAt:      motion.CreatedAt.UTC(),
		UpdatedAt:      motion.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m motionModel) toEntity() entities.Motion {
	return entities.Motion{
		MotionID:       m.MotionID,
		MeetingID:      m.MeetingID,
		Title:          m.Title,
		Description:    m.Description,
		Position:       m.Position,
		Secret:         m.Secret,
		Decision:       entities.Decision(m.Decision),
		DecisionReason: m.DecisionReason,
		Tallies: entities.Tallies{
			VotesFor:      m.VotesFor,
			VotesAgainst:  m.VotesAgainst,
			VotesAbstain:  m.VotesAbstain,
			WeightFor:     m.WeightFor,
			WeightAgainst: m.WeightAgainst,
			WeightAbstain: m.WeightAbstain,
		},
		OpenedAt:  normalizeOptionalTime(m.OpenedAt),
		ClosedAt:  normalizeOptionalTime(m.ClosedAt),
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type ballotModel struct {
	MotionID      string          `gorm:"column:motion_id;primaryKey"`
	MemberID      string          `gorm:"column:member_id;primaryKey"`
	Value         string          `gorm:"column:value"`
	Source        string          `gorm:"column:source"`
	Weight        decimal.Decimal `gorm:"column:weight;type:numeric"`
	Justification string          `gorm:"column:justification"`
	CastAt        time.Time       `gorm:"column:cast_at"`
}

func (ballotModel) TableName() string {
	return "session_ballots"
}

func ballotModelFromEntity(ballot entities.Ballot) ballotModel {
	return ballotModel{
		MotionID:      strings.TrimSpace(ballot.MotionID),
		MemberID:      strings.TrimSpace(ballot.MemberID),
		Value:         string(ballot.Value),
		Source:        string(ballot.Source),
		Weight:        ballot.Weight,
		Justification: strings.TrimSpace(ballot.Justification),
		CastAt:        ballot.CastAt.UTC(),
	}
}

func (m ballotModel) toEntity() entities.Ballot {
	return entities.Ballot{
		MotionID:      m.MotionID,
		MemberID:      m.MemberID,
		Value:         entities.BallotValue(m.Value),
		Source:        entities.BallotSource(m.Source),
		Weight:        m.Weight,
		Justification: m.Justification,
		CastAt:        m.CastAt.UTC(),
	}
}

type attendanceModel struct {
	MeetingID string    `gorm:"column:meeting_id;primaryKey"`
	MemberID  string    `gorm:"column:member_id;primaryKey"`
	Mode      string    `gorm:"column:mode"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

func (attendanceModel) TableName() string {
	return "session_attendance"
}

func (m attendanceModel) toEntity() entities.Attendance {
	return entities.Attendance{
		MeetingID: m.MeetingID,
		MemberID:  m.MemberID,
		Mode:      entities.AttendanceMode(m.Mode),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

type proxyModel struct {
	ProxyID    string     `gorm:"column:proxy_id;primaryKey"`
	MeetingID  string     `gorm:"column:meeting_id"`
	GiverID    string     `gorm:"column:giver_id"`
	ReceiverID string     `gorm:"column:receiver_id"`
	GrantedAt  time.Time  `gorm:"column:granted_at"`
	RevokedAt  *time.Time `gorm:"column:revoked_at"`
}

func (proxyModel) TableName() string {
	return "session_proxies"
}

func (m proxyModel) toEntity() entities.Proxy {
	return entities.Proxy{
		MeetingID:  m.MeetingID,
		GiverID:    m.GiverID,
		ReceiverID: m.ReceiverID,
		GrantedAt:  m.GrantedAt.UTC(),
		RevokedAt:  normalizeOptionalTime(m.RevokedAt),
	}
}

type memberModel struct {
	MemberID    string          `gorm:"column:member_id;primaryKey"`
	DisplayName string          `gorm:"column:display_name"`
	VotingPower decimal.Decimal `gorm:"column:voting_power;type:numeric"`
	Active      bool            `gorm:"column:active"`
}

func (memberModel) TableName() string {
	return "session_members"
}

func (m memberModel) toEntity() entities.Member {
	return entities.Member{
		MemberID:    m.MemberID,
		DisplayName: m.DisplayName,
		VotingPower: m.VotingPower,
		Active:      m.Active,
	}
}

type idempotencyModel struct {
	Key         string    `gorm:"column:key;primaryKey"`
	RequestHash string    `gorm:"column:request_hash"`
	EntityID    string    `gorm:"column:entity_id"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
}

func (idempotencyModel) TableName() string {
	return "session_idempotency"
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "session_outbox"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	timestamp := value.UTC()
	return &timestamp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.MeetingRepository = (*Repository)(nil)
var _ ports.MotionRepository = (*Repository)(nil)
var _ ports.BallotRepository = (*Repository)(nil)
var _ ports.AttendanceRepository = (*Repository)(nil)
var _ ports.MemberDirectory = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
