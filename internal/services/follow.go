package services

import (
	"yatube/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowService maintains the who-follows-whom relation that drives the
// personalized feed.
type FollowService struct {
	db *gorm.DB
}

func NewFollowService(db *gorm.DB) *FollowService {
	return &FollowService{db: db}
}

// Follow creates the edge user -> author. Re-following is a no-op, and a
// self-follow is silently ignored. Duplicate edges are impossible even
// under concurrent attempts: the insert rides the composite unique index.
func (s *FollowService) Follow(userID, authorID uint) error {
	if userID == authorID {
		return nil
	}
	follow := models.Follow{UserID: userID, AuthorID: authorID}
	return s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&follow).Error
}

// Unfollow removes the edge if present; removing an absent edge is a no-op.
func (s *FollowService) Unfollow(userID, authorID uint) error {
	return s.db.
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Delete(&models.Follow{}).Error
}

// IsFollowing reports whether user follows author. Anonymous callers
// (userID 0) never follow anyone.
func (s *FollowService) IsFollowing(userID, authorID uint) bool {
	if userID == 0 {
		return false
	}
	var follow models.Follow
	err := s.db.
		Where("user_id = ? AND author_id = ?", userID, authorID).
		First(&follow).Error
	return err == nil
}

// FollowedAuthorIDs returns the authors whose posts belong in the user's
// follow feed.
func (s *FollowService) FollowedAuthorIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Follow{}).
		Where("user_id = ?", userID).
		Pluck("author_id", &ids).Error
	return ids, err
}
