package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"yatube/internal/db"
	"yatube/internal/models"
	"yatube/internal/services"
	"yatube/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type PostHandler struct {
	feed     *services.FeedService
	follows  *services.FollowService
	comments *services.CommentService
}

func NewPostHandler(feed *services.FeedService, follows *services.FollowService, comments *services.CommentService) *PostHandler {
	return &PostHandler{
		feed:     feed,
		follows:  follows,
		comments: comments,
	}
}

// pageParam reads ?page=, defaulting to the first page. Out-of-range
// values are not clamped here: the feed service renders them as an empty
// page.
func pageParam(c *gin.Context) int {
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil {
			return pageNum
		}
	}
	return 1
}

// Index is the global feed, the only cached page.
func (h *PostHandler) Index(c *gin.Context) {
	page, err := h.feed.Global(pageParam(c))
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Не удалось загрузить ленту")
		return
	}

	Render(c, http.StatusOK, "posts/index.html", gin.H{
		"Title": "Последние обновления на сайте",
		"Page":  page,
	})
}

// GroupPosts lists a group's posts by slug.
func (h *PostHandler) GroupPosts(c *gin.Context) {
	slug := c.Param("slug")

	group, page, err := h.feed.Group(slug, pageParam(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RenderError(c, http.StatusNotFound, "Группа не найдена")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Не удалось загрузить ленту")
		return
	}

	Render(c, http.StatusOK, "posts/group_list.html", gin.H{
		"Title": "Записи сообщества " + group.Title,
		"Group": group,
		"Page":  page,
	})
}

// Profile shows an author's posts plus the follow state for the viewer.
func (h *PostHandler) Profile(c *gin.Context) {
	username := c.Param("username")

	author, page, err := h.feed.Profile(username, pageParam(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RenderError(c, http.StatusNotFound, "Пользователь не найден")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Не удалось загрузить профиль")
		return
	}

	following := false
	isSelf := false
	if user := currentUser(c); user != nil {
		following = h.follows.IsFollowing(user.ID, author.ID)
		isSelf = user.ID == author.ID
	}

	Render(c, http.StatusOK, "posts/profile.html", gin.H{
		"Title":     "Профайл пользователя " + author.Username,
		"Author":    author,
		"Page":      page,
		"Following": following,
		"IsSelf":    isSelf,
		"PostCount": page.TotalCount,
	})
}

// Detail shows one post with its active comments and the comment form.
func (h *PostHandler) Detail(c *gin.Context) {
	h.renderDetail(c, http.StatusOK, uint(utils.StringToInt(c.Param("id"))), "")
}

// renderDetail draws the post page; a non-empty errMsg becomes the field
// error next to the comment form.
func (h *PostHandler) renderDetail(c *gin.Context, code int, id uint, errMsg string) {
	var post models.Post
	if err := db.DB.Preload("Author").Preload("Group").First(&post, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Запись не найдена")
		return
	}

	comments, err := h.comments.ForPost(post.ID)
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Не удалось загрузить комментарии")
		return
	}

	isAuthor := false
	if user := currentUser(c); user != nil {
		isAuthor = user.ID == post.AuthorID
	}

	data := gin.H{
		"Title":        "Пост " + post.Author.Username,
		"Post":         post,
		"PostText":     utils.RenderMarkdown(post.Text),
		"Comments":     comments,
		"CommentCount": len(comments),
		"IsAuthor":     isAuthor,
	}
	if errMsg != "" {
		data["Error"] = errMsg
	}
	Render(c, code, "posts/post_detail.html", data)
}

func (h *PostHandler) ShowCreate(c *gin.Context) {
	var groups []models.Group
	db.DB.Order("id ASC").Find(&groups)

	Render(c, http.StatusOK, "posts/create_post.html", gin.H{
		"Title":         "Новый пост",
		"Groups":        groups,
		"SelectedGroup": uint(0),
	})
}

// Create adds a post for the logged-in user and redirects to their
// profile. Validation failures re-render the form and write nothing.
func (h *PostHandler) Create(c *gin.Context) {
	user := currentUser(c)

	text := c.PostForm("text")
	if text == "" {
		h.renderCreateError(c, nil, "Текст поста не может быть пустым")
		return
	}

	groupID, ok := parseGroupID(c.PostForm("group"))
	if !ok {
		h.renderCreateError(c, nil, "Выбранной группы не существует")
		return
	}

	image := ""
	if file, header, err := c.Request.FormFile("image"); err == nil {
		defer file.Close()
		image, err = services.SaveImage(file, header)
		if err != nil {
			h.renderCreateError(c, nil, err.Error())
			return
		}
	}

	post := models.Post{
		Text:     text,
		AuthorID: user.ID,
		GroupID:  groupID,
		Image:    image,
	}
	if err := db.DB.Create(&post).Error; err != nil {
		h.renderCreateError(c, nil, "Не удалось сохранить пост")
		return
	}

	c.Redirect(http.StatusFound, "/profile/"+user.Username)
}

func (h *PostHandler) ShowEdit(c *gin.Context) {
	user := currentUser(c)
	id := utils.StringToInt(c.Param("id"))

	var post models.Post
	if err := db.DB.First(&post, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Запись не найдена")
		return
	}

	// Only the author edits; everyone else is sent back to the post.
	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, "/posts/"+c.Param("id"))
		return
	}

	var groups []models.Group
	db.DB.Order("id ASC").Find(&groups)

	Render(c, http.StatusOK, "posts/create_post.html", gin.H{
		"Title":         "Редактировать пост",
		"Post":          post,
		"Groups":        groups,
		"IsEdit":        true,
		"SelectedGroup": groupIDValue(post.GroupID),
	})
}

// Update edits text, group and image. The author never changes.
func (h *PostHandler) Update(c *gin.Context) {
	user := currentUser(c)
	id := utils.StringToInt(c.Param("id"))

	var post models.Post
	if err := db.DB.First(&post, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Запись не найдена")
		return
	}

	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, "/posts/"+c.Param("id"))
		return
	}

	text := c.PostForm("text")
	if text == "" {
		h.renderCreateError(c, &post, "Текст поста не может быть пустым")
		return
	}

	groupID, ok := parseGroupID(c.PostForm("group"))
	if !ok {
		h.renderCreateError(c, &post, "Выбранной группы не существует")
		return
	}

	post.Text = text
	post.GroupID = groupID

	if file, header, err := c.Request.FormFile("image"); err == nil {
		defer file.Close()
		image, err := services.SaveImage(file, header)
		if err != nil {
			h.renderCreateError(c, &post, err.Error())
			return
		}
		post.Image = image
	}

	if err := db.DB.Save(&post).Error; err != nil {
		h.renderCreateError(c, &post, "Не удалось сохранить пост")
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+c.Param("id"))
}

// Delete removes the author's own post and returns home. The cached
// global feed is left alone: staleness inside the TTL window is the
// documented behavior.
func (h *PostHandler) Delete(c *gin.Context) {
	user := currentUser(c)
	id := utils.StringToInt(c.Param("id"))

	var post models.Post
	if err := db.DB.First(&post, id).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Запись не найдена")
		return
	}

	if post.AuthorID != user.ID {
		c.Redirect(http.StatusFound, "/posts/"+c.Param("id"))
		return
	}

	db.DB.Delete(&post)
	c.Redirect(http.StatusFound, "/")
}

// AddComment appends a comment to a post. An empty comment writes nothing
// and re-renders the post page with a field error.
func (h *PostHandler) AddComment(c *gin.Context) {
	user := currentUser(c)
	id := utils.StringToInt(c.Param("id"))

	text := strings.TrimSpace(c.PostForm("text"))
	if text == "" {
		h.renderDetail(c, http.StatusBadRequest, uint(id), "Комментарий не может быть пустым")
		return
	}

	if _, err := h.comments.Add(uint(id), user.ID, text); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			RenderError(c, http.StatusNotFound, "Запись не найдена")
			return
		}
		RenderError(c, http.StatusInternalServerError, "Не удалось сохранить комментарий")
		return
	}

	c.Redirect(http.StatusFound, "/posts/"+c.Param("id"))
}

// FollowIndex is the personalized feed of followed authors.
func (h *PostHandler) FollowIndex(c *gin.Context) {
	user := currentUser(c)

	page, err := h.feed.Following(user.ID, pageParam(c))
	if err != nil {
		RenderError(c, http.StatusInternalServerError, "Не удалось загрузить ленту")
		return
	}

	Render(c, http.StatusOK, "posts/follow.html", gin.H{
		"Title": "Избранные авторы",
		"Page":  page,
	})
}

// ProfileFollow subscribes the viewer to an author.
func (h *PostHandler) ProfileFollow(c *gin.Context) {
	user := currentUser(c)
	username := c.Param("username")

	var author models.User
	if err := db.DB.Where("username = ?", username).First(&author).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Пользователь не найден")
		return
	}

	if err := h.follows.Follow(user.ID, author.ID); err != nil {
		RenderError(c, http.StatusInternalServerError, "Не удалось подписаться")
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+username)
}

// ProfileUnfollow removes the subscription.
func (h *PostHandler) ProfileUnfollow(c *gin.Context) {
	user := currentUser(c)
	username := c.Param("username")

	var author models.User
	if err := db.DB.Where("username = ?", username).First(&author).Error; err != nil {
		RenderError(c, http.StatusNotFound, "Пользователь не найден")
		return
	}

	if err := h.follows.Unfollow(user.ID, author.ID); err != nil {
		RenderError(c, http.StatusInternalServerError, "Не удалось отписаться")
		return
	}
	c.Redirect(http.StatusFound, "/profile/"+username)
}

func (h *PostHandler) renderCreateError(c *gin.Context, post *models.Post, message string) {
	var groups []models.Group
	db.DB.Order("id ASC").Find(&groups)

	data := gin.H{
		"Title":         "Новый пост",
		"Groups":        groups,
		"Error":         message,
		"SelectedGroup": uint(0),
	}
	if post != nil {
		data["Title"] = "Редактировать пост"
		data["Post"] = *post
		data["IsEdit"] = true
		data["SelectedGroup"] = groupIDValue(post.GroupID)
	}
	Render(c, http.StatusBadRequest, "posts/create_post.html", data)
}

func groupIDValue(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}

// parseGroupID turns the optional form value into a nullable group id,
// verifying the group exists.
func parseGroupID(value string) (*uint, bool) {
	if value == "" {
		return nil, true
	}
	id, err := strconv.Atoi(value)
	if err != nil || id <= 0 {
		return nil, false
	}
	var group models.Group
	if err := db.DB.First(&group, id).Error; err != nil {
		return nil, false
	}
	return &group.ID, true
}
