package handlers

import (
	"net/http"
	"strings"
	"yatube/internal/db"
	"yatube/internal/models"
	"yatube/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct{}

func NewAuthHandler() *AuthHandler {
	return &AuthHandler{}
}

func (h *AuthHandler) ShowSignUp(c *gin.Context) {
	Render(c, http.StatusOK, "auth/signup.html", gin.H{
		"Title":     "Регистрация",
		"FirstName": "",
		"LastName":  "",
		"Username":  "",
		"Email":     "",
	})
}

// SignUp registers a user and logs them in. All checks happen before the
// insert so a failed form writes nothing.
func (h *AuthHandler) SignUp(c *gin.Context) {
	firstName := strings.TrimSpace(c.PostForm("first_name"))
	lastName := strings.TrimSpace(c.PostForm("last_name"))
	username := strings.TrimSpace(c.PostForm("username"))
	email := strings.TrimSpace(c.PostForm("email"))
	password1 := c.PostForm("password1")
	password2 := c.PostForm("password2")

	form := gin.H{
		"FirstName": firstName,
		"LastName":  lastName,
		"Username":  username,
		"Email":     email,
	}

	if username == "" || email == "" {
		form["Error"] = "Имя пользователя и почта обязательны"
		Render(c, http.StatusBadRequest, "auth/signup.html", form)
		return
	}
	if password1 != password2 {
		form["Error"] = "Пароли не совпадают"
		Render(c, http.StatusBadRequest, "auth/signup.html", form)
		return
	}
	if len(password1) < 6 {
		form["Error"] = "Пароль должен быть не короче 6 символов"
		Render(c, http.StatusBadRequest, "auth/signup.html", form)
		return
	}

	hash, err := utils.HashPassword(password1)
	if err != nil {
		form["Error"] = "Не удалось создать пользователя"
		Render(c, http.StatusInternalServerError, "auth/signup.html", form)
		return
	}

	user := models.User{
		Username:  username,
		FirstName: firstName,
		LastName:  lastName,
		Email:     email,
		Password:  hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		form["Error"] = "Пользователь с таким именем или почтой уже существует"
		Render(c, http.StatusConflict, "auth/signup.html", form)
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Next": c.Query("next")})
}

func (h *AuthHandler) Login(c *gin.Context) {
	username := strings.TrimSpace(c.PostForm("username"))
	password := c.PostForm("password")
	next := c.PostForm("next")

	var user models.User
	if err := db.DB.Where("username = ?", username).First(&user).Error; err != nil {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Error": "Неверное имя пользователя или пароль",
			"Next":  next,
		})
		return
	}

	if !utils.CheckPasswordHash(password, user.Password) {
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{
			"Error": "Неверное имя пользователя или пароль",
			"Next":  next,
		})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	session.Save()

	// Only same-site targets: "//host" is protocol-relative and would
	// leave the site.
	if next != "" && strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") {
		c.Redirect(http.StatusFound, next)
		return
	}
	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Save()
	c.Redirect(http.StatusFound, "/")
}
