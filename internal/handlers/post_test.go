package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"yatube/internal/db"
	"yatube/internal/middleware"
	"yatube/internal/models"
	"yatube/internal/router"
	"yatube/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var serverSeq atomic.Int64

// newTestServer wires the full engine (sessions, templates, middleware,
// routes) onto a fresh in-memory database.
func newTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handlers_%s_%d?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"), serverSeq.Add(1))
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
	db.DB = gdb

	r := gin.New()
	r.Use(sessions.Sessions("yatube_session", cookie.NewStore([]byte("test-secret"))))
	r.HTMLRender = router.LoadTemplates("../../web/templates")
	r.Use(middleware.LoadUser())
	router.RegisterRoutes(r)
	return r
}

func signUpUser(t *testing.T, username, password string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func postForm(r *gin.Engine, target string, form url.Values, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, username, password string) []*http.Cookie {
	t.Helper()
	w := postForm(r, "/auth/login", url.Values{
		"username": {username},
		"password": {password},
	}, nil)
	if w.Code != http.StatusFound {
		t.Fatalf("login as %s returned %d, want 302", username, w.Code)
	}
	return w.Result().Cookies()
}

func TestAddCommentEmptyTextShowsError(t *testing.T) {
	r := newTestServer(t)
	author := signUpUser(t, "Ilya", "password1")
	signUpUser(t, "John", "password1")
	post := models.Post{Text: "text-example", AuthorID: author.ID}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	cookies := login(t, r, "John", "password1")
	w := postForm(r, fmt.Sprintf("/posts/%d/comment", post.ID), url.Values{
		"text": {"   "},
	}, cookies)

	if w.Code != http.StatusBadRequest {
		t.Errorf("empty comment returned %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Комментарий не может быть пустым") {
		t.Error("re-rendered page is missing the field error")
	}

	var count int64
	db.DB.Model(&models.Comment{}).Count(&count)
	if count != 0 {
		t.Errorf("empty comment wrote %d rows, want 0", count)
	}
}

func TestEditByNonAuthorRedirectsWithoutMutation(t *testing.T) {
	r := newTestServer(t)
	author := signUpUser(t, "Ilya", "password1")
	signUpUser(t, "John", "password1")
	post := models.Post{Text: "original", AuthorID: author.ID}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	cookies := login(t, r, "John", "password1")
	w := postForm(r, fmt.Sprintf("/posts/%d/edit", post.ID), url.Values{
		"text": {"rewritten"},
	}, cookies)

	if w.Code != http.StatusFound {
		t.Fatalf("non-author edit returned %d, want 302", w.Code)
	}
	if got, want := w.Header().Get("Location"), fmt.Sprintf("/posts/%d", post.ID); got != want {
		t.Errorf("redirected to %q, want %q", got, want)
	}

	var reloaded models.Post
	if err := db.DB.First(&reloaded, post.ID).Error; err != nil {
		t.Fatalf("reload post: %v", err)
	}
	if reloaded.Text != "original" {
		t.Errorf("post text = %q, non-author edit must not mutate", reloaded.Text)
	}
}

func TestDeleteByNonAuthorKeepsPost(t *testing.T) {
	r := newTestServer(t)
	author := signUpUser(t, "Ilya", "password1")
	signUpUser(t, "John", "password1")
	post := models.Post{Text: "text-example", AuthorID: author.ID}
	if err := db.DB.Create(&post).Error; err != nil {
		t.Fatalf("create post: %v", err)
	}

	cookies := login(t, r, "John", "password1")
	w := postForm(r, fmt.Sprintf("/posts/%d/delete", post.ID), nil, cookies)

	if w.Code != http.StatusFound {
		t.Fatalf("non-author delete returned %d, want 302", w.Code)
	}
	if got, want := w.Header().Get("Location"), fmt.Sprintf("/posts/%d", post.ID); got != want {
		t.Errorf("redirected to %q, want %q", got, want)
	}

	var count int64
	db.DB.Model(&models.Post{}).Count(&count)
	if count != 1 {
		t.Errorf("post count = %d, non-author delete must not remove it", count)
	}
}

func TestLoginNextRejectsOffsiteTargets(t *testing.T) {
	r := newTestServer(t)
	signUpUser(t, "Ilya", "password1")

	cases := map[string]string{
		"/create":          "/create",
		"//evil.com":       "/",
		"//evil.com/path":  "/",
		"https://evil.com": "/",
	}
	for next, want := range cases {
		w := postForm(r, "/auth/login", url.Values{
			"username": {"Ilya"},
			"password": {"password1"},
			"next":     {next},
		}, nil)
		if w.Code != http.StatusFound {
			t.Fatalf("login with next=%q returned %d, want 302", next, w.Code)
		}
		if got := w.Header().Get("Location"); got != want {
			t.Errorf("next=%q redirected to %q, want %q", next, got, want)
		}
	}
}

func TestLoginTrailingSlashRedirects(t *testing.T) {
	r := newTestServer(t)

	req := httptest.NewRequest("GET", "/auth/login/?next=/create", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusMovedPermanently {
		t.Fatalf("trailing-slash login returned %d, want 301", w.Code)
	}
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/auth/login") {
		t.Errorf("redirected to %q, want the canonical login path", loc)
	}

	req = httptest.NewRequest("GET", "/auth/login?next=/create", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("canonical login returned %d, want 200", w.Code)
	}
}
