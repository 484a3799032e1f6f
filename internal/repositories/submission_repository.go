package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/previewvault/backend/internal/common"
	"github.com/previewvault/backend/internal/models"
	"go.uber.org/zap"
)

type submissionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSubmissionRepository creates a MySQL backed submission repository
func NewSubmissionRepository(db *sql.DB, logger *zap.Logger) *submissionRepository {
	return &submissionRepository{
		db:     db,
		logger: logger,
	}
}

const selectSubmission = `
		SELECT id, token, customer_name, customer_email, is_paid, expires_at, custom_message, payment_link, created_at
		FROM submissions
	`

// GetByToken loads a submission with its photos and videos in upload order.
// Returns common.ErrNotFound if no submission has the token.
func (r *submissionRepository) GetByToken(ctx context.Context, token string) (*models.Submission, error) {
	return r.getSubmission(ctx, selectSubmission+"WHERE token = ?", token)
}

// GetByID loads a submission by its id.
// Returns common.ErrNotFound if no submission has the id.
func (r *submissionRepository) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	return r.getSubmission(ctx, selectSubmission+"WHERE id = ?", id)
}

func (r *submissionRepository) getSubmission(ctx context.Context, query, key string) (*models.Submission, error) {

	var (
		sub           models.Submission
		customerEmail sql.NullString
		expiresAt     sql.NullTime
		customMessage sql.NullString
		paymentLink   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, key).Scan(
		&sub.ID,
		&sub.Token,
		&sub.CustomerName,
		&customerEmail,
		&sub.IsPaid,
		&expiresAt,
		&customMessage,
		&paymentLink,
		&sub.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		r.logger.Error("failed to query submission", zap.Error(err))
		return nil, fmt.Errorf("failed to query submission: %w", err)
	}

	sub.CustomerEmail = customerEmail.String
	sub.CustomMessage = customMessage.String
	sub.PaymentLink = paymentLink.String
	if expiresAt.Valid {
		t := expiresAt.Time
		sub.ExpiresAt = &t
	}

	if sub.Photos, err = r.getPhotos(ctx, sub.ID); err != nil {
		return nil, err
	}
	if sub.Videos, err = r.getVideos(ctx, sub.ID); err != nil {
		return nil, err
	}

	return &sub, nil
}

func (r *submissionRepository) getPhotos(ctx context.Context, submissionID string) ([]models.Photo, error) {
	query := `
		SELECT id, filename, locator, size
		FROM submission_photos
		WHERE submission_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		r.logger.Error("failed to query photos", zap.Error(err))
		return nil, fmt.Errorf("failed to query photos: %w", err)
	}
	defer rows.Close()

	photos := []models.Photo{}
	for rows.Next() {
		var p models.Photo
		if err := rows.Scan(&p.ID, &p.Filename, &p.Locator, &p.Size); err != nil {
			return nil, fmt.Errorf("failed to scan photo: %w", err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating photo rows: %w", err)
	}

	return photos, nil
}

func (r *submissionRepository) getVideos(ctx context.Context, submissionID string) ([]models.Video, error) {
	query := `
		SELECT id, filename, is_free_preview, watermarked_locator, original_locator, thumbnail_locator, size
		FROM submission_videos
		WHERE submission_id = ?
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		r.logger.Error("failed to query videos", zap.Error(err))
		return nil, fmt.Errorf("failed to query videos: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		var (
			v           models.Video
			watermarked sql.NullString
			thumbnail   sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.Filename, &v.IsFreePreview, &watermarked, &v.OriginalLocator, &thumbnail, &v.Size); err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		v.WatermarkedLocator = watermarked.String
		v.ThumbnailLocator = thumbnail.String
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating video rows: %w", err)
	}

	return videos, nil
}

// Create inserts the submission and all of its media in one transaction
func (r *submissionRepository) Create(ctx context.Context, sub *models.Submission) error {
	err := WithTx(ctx, r.db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submissions (id, token, customer_name, customer_email, is_paid, expires_at, custom_message, payment_link, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			sub.ID,
			sub.Token,
			sub.CustomerName,
			nullString(sub.CustomerEmail),
			sub.IsPaid,
			nullTime(sub.ExpiresAt),
			nullString(sub.CustomMessage),
			nullString(sub.PaymentLink),
			sub.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert submission: %w", err)
		}

		for i, p := range sub.Photos {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO submission_photos (id, submission_id, position, filename, locator, size)
				VALUES (?, ?, ?, ?, ?, ?)
			`, p.ID, sub.ID, i, p.Filename, p.Locator, p.Size)
			if err != nil {
				return fmt.Errorf("failed to insert photo %s: %w", p.ID, err)
			}
		}

		for i, v := range sub.Videos {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO submission_videos (id, submission_id, position, filename, is_free_preview, watermarked_locator, original_locator, thumbnail_locator, size)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, v.ID, sub.ID, i, v.Filename, v.IsFreePreview, nullString(v.WatermarkedLocator), v.OriginalLocator, nullString(v.ThumbnailLocator), v.Size)
			if err != nil {
				return fmt.Errorf("failed to insert video %s: %w", v.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		r.logger.Error("failed to create submission", zap.String("submission_id", sub.ID), zap.Error(err))
		return err
	}

	return nil
}

// SetPaymentStatus updates is_paid of a single submission.
// The DSN must carry clientFoundRows=true so that an unchanged value still counts as a match.
func (r *submissionRepository) SetPaymentStatus(ctx context.Context, id string, isPaid bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE submissions SET is_paid = ? WHERE id = ?`, isPaid, id)
	if err != nil {
		r.logger.Error("failed to update payment status", zap.String("submission_id", id), zap.Error(err))
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return common.ErrNotFound
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
