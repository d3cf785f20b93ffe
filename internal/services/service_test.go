package services

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"yatube/internal/cache"
	"yatube/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq atomic.Int64

// newTestDB opens a per-call in-memory database. The DSN carries the test
// name plus a sequence number so gorm's connection pool shares one
// database per call and calls never collide.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), testDBSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	err = gdb.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.Post{},
		&models.Comment{},
		&models.Follow{},
	)
	if err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func createUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "hash",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createGroup(t *testing.T, db *gorm.DB, title, slug string) models.Group {
	t.Helper()
	group := models.Group{Title: title, Slug: slug, Description: "test-description"}
	if err := db.Create(&group).Error; err != nil {
		t.Fatalf("create group %s: %v", slug, err)
	}
	return group
}

func createPost(t *testing.T, db *gorm.DB, author models.User, group *models.Group, text string, createdAt time.Time) models.Post {
	t.Helper()
	post := models.Post{
		Text:      text,
		AuthorID:  author.ID,
		CreatedAt: createdAt,
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("create post %q: %v", text, err)
	}
	return post
}

// newFeedService builds a service with fixed page size and TTL so tests
// are independent of the environment.
func newFeedService(db *gorm.DB, store cache.Store) *FeedService {
	return &FeedService{
		db:       db,
		follows:  NewFollowService(db),
		cache:    store,
		pageSize: DefaultPageSize,
		ttl:      DefaultCacheTTL,
	}
}
