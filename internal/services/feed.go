package services

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
	"yatube/internal/cache"
	"yatube/internal/models"

	"gorm.io/gorm"
)

const (
	// DefaultPageSize is the number of posts per feed page.
	DefaultPageSize = 10
	// DefaultCacheTTL bounds how long a cached global feed page may be served.
	DefaultCacheTTL = 20 * time.Second
)

// Page is one slice of a feed plus the metadata templates need to draw
// pagination controls.
type Page struct {
	Items      []models.Post
	Number     int
	PageSize   int
	TotalCount int64
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// FeedService assembles the four post listings: global, group, profile and
// follow feed. Every context orders by created_at DESC with id DESC as the
// tie-break, so repeated reads paginate identically. Only the global feed
// goes through the cache; the other contexts are always computed fresh.
type FeedService struct {
	db       *gorm.DB
	follows  *FollowService
	cache    cache.Store
	pageSize int
	ttl      time.Duration
}

func NewFeedService(db *gorm.DB, follows *FollowService, store cache.Store) *FeedService {
	ttl := DefaultCacheTTL
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = time.Duration(n) * time.Second
		}
	}
	return &FeedService{
		db:       db,
		follows:  follows,
		cache:    store,
		pageSize: DefaultPageSize,
		ttl:      ttl,
	}
}

// Global returns a page of all posts. Within the TTL window the result may
// be stale: writes after a cache fill stay invisible until expiry or
// InvalidateAll. That trade-off is deliberate, the home page is the
// highest-traffic view.
func (s *FeedService) Global(page int) (Page, error) {
	key := fmt.Sprintf("feed:global:page:%d", page)
	if s.cache != nil {
		if cached := s.cache.Get(key); cached != nil {
			if p, ok := cached.(Page); ok {
				return p, nil
			}
		}
	}

	p, err := s.paginate(func() *gorm.DB {
		return s.db.Model(&models.Post{})
	}, page)
	if err != nil {
		return Page{}, err
	}

	if s.cache != nil {
		s.cache.Set(key, p, s.ttl)
	}
	return p, nil
}

// Group returns the group and a page of its posts. An unknown slug yields
// gorm.ErrRecordNotFound.
func (s *FeedService) Group(slug string, page int) (models.Group, Page, error) {
	var group models.Group
	if err := s.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		return models.Group{}, Page{}, err
	}

	p, err := s.paginate(func() *gorm.DB {
		return s.db.Model(&models.Post{}).Where("group_id = ?", group.ID)
	}, page)
	return group, p, err
}

// Profile returns the author and a page of their posts. An unknown
// username yields gorm.ErrRecordNotFound.
func (s *FeedService) Profile(username string, page int) (models.User, Page, error) {
	var author models.User
	if err := s.db.Where("username = ?", username).First(&author).Error; err != nil {
		return models.User{}, Page{}, err
	}

	p, err := s.paginate(func() *gorm.DB {
		return s.db.Model(&models.Post{}).Where("author_id = ?", author.ID)
	}, page)
	return author, p, err
}

// Following returns a page of posts by the authors the user follows.
// Following nobody gives an empty page.
func (s *FeedService) Following(userID uint, page int) (Page, error) {
	authorIDs, err := s.follows.FollowedAuthorIDs(userID)
	if err != nil {
		return Page{}, err
	}
	if len(authorIDs) == 0 {
		return Page{Number: page, PageSize: s.pageSize, Items: []models.Post{}}, nil
	}

	return s.paginate(func() *gorm.DB {
		return s.db.Model(&models.Post{}).Where("author_id IN ?", authorIDs)
	}, page)
}

// InvalidateAll drops every cached feed page; the next global read is
// recomputed. Used operationally and by tests.
func (s *FeedService) InvalidateAll() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// paginate runs the count and the page query off a fresh base chain each
// time. A page number out of range renders as "no more posts", not an
// error, matching what visitors see.
func (s *FeedService) paginate(base func() *gorm.DB, page int) (Page, error) {
	var total int64
	if err := base().Count(&total).Error; err != nil {
		return Page{}, err
	}

	totalPages := int(math.Ceil(float64(total) / float64(s.pageSize)))

	p := Page{
		Items:      []models.Post{},
		Number:     page,
		PageSize:   s.pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}

	if page < 1 || page > totalPages {
		p.HasPrev = page > 1 && totalPages > 0
		return p, nil
	}

	var posts []models.Post
	err := base().
		Preload("Author").
		Preload("Group").
		Order("created_at DESC, id DESC").
		Limit(s.pageSize).
		Offset((page - 1) * s.pageSize).
		Find(&posts).Error
	if err != nil {
		return Page{}, err
	}

	s.fillCommentCounts(posts)

	p.Items = posts
	p.HasNext = page < totalPages
	p.HasPrev = page > 1
	return p, nil
}

// fillCommentCounts batch-loads active comment counts for a page of posts.
func (s *FeedService) fillCommentCounts(posts []models.Post) {
	if len(posts) == 0 {
		return
	}

	postIDs := make([]uint, len(posts))
	for i, p := range posts {
		postIDs[i] = p.ID
	}

	type countResult struct {
		PostID uint
		Count  int
	}
	var results []countResult
	s.db.Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ? AND active = ?", postIDs, true).
		Group("post_id").
		Scan(&results)

	countMap := make(map[uint]int, len(results))
	for _, r := range results {
		countMap[r.PostID] = r.Count
	}

	for i := range posts {
		posts[i].CommentCount = countMap[posts[i].ID]
	}
}
