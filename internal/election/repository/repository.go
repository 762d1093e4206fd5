package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/humesociety/humesociety-sub000/internal/election/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateElection(ctx context.Context, db *gorm.DB, election *domain.Election) error {
	return db.WithContext(ctx).Create(election).Error
}

func (r *repo) FindElection(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Election, error) {
	var election domain.Election
	err := db.WithContext(ctx).Where("id = ?", id).First(&election).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrElectionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &election, nil
}

func (r *repo) ListElections(ctx context.Context, db *gorm.DB) ([]domain.Election, error) {
	var items []domain.Election
	if err := db.WithContext(ctx).Order("year DESC, created_at DESC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetOpen(ctx context.Context, db *gorm.DB, id snowflake.ID, open bool, at time.Time) (bool, error) {
	updates := map[string]any{"open": open, "updated_at": at}
	if open {
		updates["open_at"] = at
	} else {
		updates["close_at"] = at
	}
	result := db.WithContext(ctx).
		Model(&domain.Election{}).
		Where("id = ? AND close_at IS NULL", id).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) CreateCandidate(ctx context.Context, db *gorm.DB, candidate *domain.Candidate) error {
	return db.WithContext(ctx).Create(candidate).Error
}

func (r *repo) DeleteCandidate(ctx context.Context, db *gorm.DB, electionID, candidateID snowflake.ID) (bool, error) {
	result := db.WithContext(ctx).
		Where("id = ? AND election_id = ?", candidateID, electionID).
		Delete(&domain.Candidate{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) ListCandidates(ctx context.Context, db *gorm.DB, electionID snowflake.ID, byVotes bool) ([]domain.Candidate, error) {
	order := "name ASC"
	if byVotes {
		order = "votes DESC, name ASC"
	}
	var items []domain.Candidate
	if err := db.WithContext(ctx).
		Where("election_id = ?", electionID).
		Order(order).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountCandidates(ctx context.Context, db *gorm.DB, electionID snowflake.ID, ids []snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Candidate{}).
		Where("election_id = ? AND id IN ?", electionID, ids).
		Count(&count).Error
	return count, err
}

func (r *repo) IncrementVotes(ctx context.Context, db *gorm.DB, ids []snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Candidate{}).
		Where("id IN ?", ids).
		UpdateColumn("votes", gorm.Expr("votes + 1")).Error
}

func (r *repo) CreateBallot(ctx context.Context, db *gorm.DB, ballot *domain.Ballot) error {
	return db.WithContext(ctx).Create(ballot).Error
}

func (r *repo) HasBallot(ctx context.Context, db *gorm.DB, electionID, userID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Ballot{}).
		Where("election_id = ? AND user_id = ?", electionID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *repo) CountBallots(ctx context.Context, db *gorm.DB, electionID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Ballot{}).
		Where("election_id = ?", electionID).
		Count(&count).Error
	return count, err
}
