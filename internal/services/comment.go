package services

import (
	"yatube/internal/models"

	"gorm.io/gorm"
)

// CommentService handles comments on posts. Inactive comments exist in the
// database (moderation flag) but are never rendered or counted.
type CommentService struct {
	db *gorm.DB
}

func NewCommentService(db *gorm.DB) *CommentService {
	return &CommentService{db: db}
}

// Add attaches a comment to an existing post. The post lookup and the
// insert are all-or-nothing: a missing post writes nothing.
func (s *CommentService) Add(postID, authorID uint, text string) (models.Comment, error) {
	var post models.Post
	if err := s.db.First(&post, postID).Error; err != nil {
		return models.Comment{}, err
	}

	comment := models.Comment{
		PostID:   post.ID,
		AuthorID: authorID,
		Text:     text,
		Active:   true,
	}
	if err := s.db.Create(&comment).Error; err != nil {
		return models.Comment{}, err
	}
	return comment, nil
}

// ForPost returns the active comments of a post, oldest first.
func (s *CommentService) ForPost(postID uint) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.Preload("Author").
		Where("post_id = ? AND active = ?", postID, true).
		Order("created_at ASC, id ASC").
		Find(&comments).Error
	return comments, err
}
