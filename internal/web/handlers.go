package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"work-journal/internal/model"
	"work-journal/internal/service"
	"work-journal/internal/session"
)

const listingPath = "/"

type entryForm struct {
	ID             uint
	Date           string
	Category       string
	Text           string
	IdempotencyKey string
	ErrorField     string
	ErrorReason    string
}

type indexPage struct {
	IsAdmin bool
	Weeks   []service.WeekBucket
	Form    entryForm
}

type editPage struct {
	IsAdmin bool
	Form    entryForm
}

type loginPage struct {
	IsAdmin bool
	Email   string
	Error   string
}

type errorPage struct {
	IsAdmin bool
	Status  int
	Message string
}

func (s *Server) handleIndex(c *gin.Context) {
	if !isAdmin(c) {
		c.HTML(http.StatusOK, "index.html", indexPage{})
		return
	}
	s.renderIndex(c, http.StatusOK, newEntryForm())
}

func (s *Server) handleCreate(c *gin.Context) {
	form := readEntryForm(c)
	input, err := service.ValidateEntry(service.EntryForm{
		Date:           form.Date,
		Category:       form.Category,
		Text:           form.Text,
		IdempotencyKey: form.IdempotencyKey,
	})
	if err != nil {
		s.renderIndex(c, http.StatusUnprocessableEntity, withValidationError(form, err))
		return
	}

	id, err := s.journal.Create(c.Request.Context(), input)
	if err != nil {
		s.renderError(c, err)
		return
	}
	log.Printf("[info] entry created id=%d date=%s tag=%s", id, input.Date.Format(model.DateLayout), input.Tag)
	c.Redirect(http.StatusSeeOther, listingPath)
}

func (s *Server) handleEdit(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		s.renderError(c, service.ErrNotFound)
		return
	}
	entry, err := s.journal.Get(c.Request.Context(), id)
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.HTML(http.StatusOK, "edit.html", editPage{
		IsAdmin: true,
		Form: entryForm{
			ID:       entry.ID,
			Date:     entry.DateString(),
			Category: string(entry.Type),
			Text:     entry.Text,
		},
	})
}

func (s *Server) handleEditSubmit(c *gin.Context) {
	id, ok := entryID(c)
	if !ok {
		s.renderError(c, service.ErrNotFound)
		return
	}
	ctx := c.Request.Context()

	if c.PostForm("_action") == "delete" {
		if err := s.journal.Delete(ctx, id); err != nil {
			s.renderError(c, err)
			return
		}
		log.Printf("[info] entry deleted id=%d", id)
		c.Redirect(http.StatusSeeOther, listingPath)
		return
	}

	form := readEntryForm(c)
	form.ID = id
	input, err := service.ValidateEntry(service.EntryForm{
		Date:     form.Date,
		Category: form.Category,
		Text:     form.Text,
	})
	if err != nil {
		c.HTML(http.StatusUnprocessableEntity, "edit.html", editPage{IsAdmin: true, Form: withValidationError(form, err)})
		return
	}

	if err := s.journal.Update(ctx, id, input); err != nil {
		s.renderError(c, err)
		return
	}
	log.Printf("[info] entry updated id=%d", id)
	c.Redirect(http.StatusSeeOther, listingPath)
}

func (s *Server) handleLoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login.html", loginPage{IsAdmin: isAdmin(c)})
}

func (s *Server) handleLogin(c *gin.Context) {
	email := c.PostForm("email")
	token, err := s.guard.Login(email, c.PostForm("password"))
	if err != nil {
		if !errors.Is(err, session.ErrInvalidCredentials) {
			log.Printf("login: %v", err)
		}
		c.HTML(http.StatusUnauthorized, "login.html", loginPage{Email: email, Error: "Email or password is incorrect."})
		return
	}
	log.Println("[info] owner logged in")
	http.SetCookie(c.Writer, s.guard.Cookie(token))
	c.Redirect(http.StatusSeeOther, listingPath)
}

func (s *Server) handleLogout(c *gin.Context) {
	http.SetCookie(c.Writer, s.guard.Logout())
	c.Redirect(http.StatusSeeOther, listingPath)
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (s *Server) renderIndex(c *gin.Context, status int, form entryForm) {
	weeks, err := s.journal.Weeks(c.Request.Context())
	if err != nil {
		s.renderError(c, err)
		return
	}
	c.HTML(status, "index.html", indexPage{IsAdmin: true, Weeks: weeks, Form: form})
}

func (s *Server) renderError(c *gin.Context, err error) {
	page := errorPage{IsAdmin: isAdmin(c)}
	switch {
	case errors.Is(err, service.ErrNotFound):
		page.Status = http.StatusNotFound
		page.Message = "Entry not found."
	case errors.Is(err, service.ErrStoreUnavailable):
		log.Printf("store: %v", err)
		page.Status = http.StatusServiceUnavailable
		page.Message = "The journal is temporarily unavailable."
	default:
		log.Printf("request %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		page.Status = http.StatusInternalServerError
		page.Message = "Something went wrong."
	}
	c.HTML(page.Status, "error.html", page)
}

func newEntryForm() entryForm {
	return entryForm{
		Date:           time.Now().Format(model.DateLayout),
		IdempotencyKey: uuid.NewString(),
	}
}

func readEntryForm(c *gin.Context) entryForm {
	return entryForm{
		Date:           c.PostForm("date"),
		Category:       c.PostForm("category"),
		Text:           c.PostForm("text"),
		IdempotencyKey: c.PostForm("idempotency_key"),
	}
}

// withValidationError marks the offending field. A rejected create keeps its
// idempotency key so a corrected resubmission is still deduplicated.
func withValidationError(form entryForm, err error) entryForm {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		form.ErrorField = verr.Field
		form.ErrorReason = verr.Reason
	}
	if tag, ok := model.ParseTag(form.Category); ok {
		form.Category = string(tag)
	}
	return form
}

func entryID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
