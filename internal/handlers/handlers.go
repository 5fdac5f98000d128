package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"oahushop/internal/catalog"
	"oahushop/internal/database"
	"oahushop/internal/errx"
	"oahushop/internal/logx"
	"oahushop/internal/models"
	"oahushop/internal/services"
	"oahushop/internal/session"
)

// SettingsStore reads and replaces the settings document.
type SettingsStore interface {
	Load() models.Settings
	Save(settings models.Settings) error
}

// InquiryStore reads and appends inquiries.
type InquiryStore interface {
	LoadAll() ([]models.Inquiry, error)
	Append(values map[string]string) (models.Inquiry, error)
}

// Catalog is the product source.
type Catalog interface {
	FetchProducts(ctx context.Context) catalog.Feed
	ClearCache()
	Products(ctx context.Context) ([]models.Product, catalog.Feed, error)
	Product(ctx context.Context, id string) (models.Product, catalog.Feed, error)
	Probe(folder, file string) bool
	OpenImage(folder, file string) (*os.File, error)
}

type Authenticator interface {
	Authenticate(username, password string) bool
}

type Publisher interface {
	Enabled() bool
	Publish(ctx context.Context, message string) services.PipelineResult
	Status(ctx context.Context) services.StepResult
}

type Notifier interface {
	NotifyInquiry(schema []models.FormField, inq models.Inquiry) error
}

// Deps are the collaborators of Handler. Security and Spam may be nil.
type Deps struct {
	Settings  SettingsStore
	Inquiries InquiryStore
	Catalog   Catalog
	Sessions  session.Store
	Auth      Authenticator
	Pipeline  Publisher
	Mailer    Notifier
	Security  *services.SecurityLogger
	Spam      *services.SpamDetector
	SheetURL  string
	Secure    bool
}

// Handler serves every page of the shop.
type Handler struct {
	settings  SettingsStore
	inquiries InquiryStore
	catalog   Catalog
	sessions  session.Store
	auth      Authenticator
	pipeline  Publisher
	mailer    Notifier
	security  *services.SecurityLogger
	spam      *services.SpamDetector
	sheetURL  string
	secure    bool
}

// NewHandler creates a Handler.
func NewHandler(d Deps) *Handler {
	h := &Handler{
		settings:  d.Settings,
		inquiries: d.Inquiries,
		catalog:   d.Catalog,
		sessions:  d.Sessions,
		auth:      d.Auth,
		pipeline:  d.Pipeline,
		mailer:    d.Mailer,
		security:  d.Security,
		spam:      d.Spam,
		sheetURL:  d.SheetURL,
		secure:    d.Secure,
	}
	if h.security == nil {
		h.security = services.NewSecurityLoggerTo(nopWriter{})
	}
	if h.spam == nil {
		h.spam = services.NewSpamDetector()
	}
	return h
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

const (
	stateKey   = "session_state"
	flashName  = "oahu_flash"
	flashError = "error"
	flashOK    = "success"
)

// SessionMiddleware loads the session state into the request context.
func (h *Handler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := h.sessions.Load(c.Request)
		if err != nil {
			logx.Warn().Err(err).Msg("session load failed, starting a new one")
		}
		c.Set(stateKey, s)
		c.Next()
	}
}

// AuthMiddleware guards the admin operations. Unauthenticated requests are
// sent to the login page.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !h.state(c).Authenticated {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}

func (h *Handler) state(c *gin.Context) session.State {
	if v, ok := c.Get(stateKey); ok {
		if s, ok := v.(session.State); ok {
			return s
		}
	}
	return session.Initial()
}

func (h *Handler) dispatch(c *gin.Context, e session.Event) session.Outcome {
	from := h.state(c)
	out := session.Transition(from, e)
	logx.Debug().
		Str("event", e.Kind.String()).
		Str("from", string(from.Page)).
		Str("to", string(out.State.Page)).
		AnErr("transition_error", out.Err).
		Msg("session transition")
	return out
}

// commit stores s as the session state. It must run before the body is written.
func (h *Handler) commit(c *gin.Context, s session.State) {
	c.Set(stateKey, s)
	if err := h.sessions.Save(c.Writer, c.Request, s); err != nil {
		logx.Error().Err(err).Msg("session save failed")
	}
}

// step runs an in-page event and redirects to the resulting page.
func (h *Handler) step(c *gin.Context, e session.Event) (session.Outcome, bool) {
	out := h.dispatch(c, e)
	if out.Err != nil {
		h.reject(c, out)
		return out, false
	}
	h.commit(c, out.State)
	c.Redirect(http.StatusSeeOther, pathFor(out.State))
	return out, true
}

func (h *Handler) reject(c *gin.Context, out session.Outcome) {
	h.commit(c, out.State)
	h.setFlash(c, flashError, msgRequestRejected)
	c.Redirect(http.StatusSeeOther, pathFor(out.State))
}

func (h *Handler) setFlash(c *gin.Context, kind, text string) {
	c.SetCookie(flashName, kind+"|"+text, 60, "/", "", h.secure, true)
}

// takeFlash returns and clears the pending flash message.
func (h *Handler) takeFlash(c *gin.Context) *Flash {
	raw, err := c.Cookie(flashName)
	if err != nil || raw == "" {
		return nil
	}
	c.SetCookie(flashName, "", -1, "/", "", h.secure, true)
	kind, text, ok := strings.Cut(raw, "|")
	if !ok || text == "" {
		return nil
	}
	if kind != flashOK {
		kind = flashError
	}
	return &Flash{Kind: kind, Text: text}
}

func asMissingField(err error) (*session.MissingFieldError, bool) {
	var mf *session.MissingFieldError
	if errors.As(err, &mf) {
		return mf, true
	}
	return nil, false
}

// errorText is the message shown to users for err.
func errorText(err error) string {
	if mf, ok := asMissingField(err); ok {
		return mf.Error()
	}
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return session.ErrInvalidCredentials.Error()
	case errors.Is(err, session.ErrIllegalTransition):
		return msgRequestRejected
	case errors.Is(err, database.ErrInvalidSettings):
		return "설정 값이 올바르지 않습니다."
	}
	return errx.Message(err)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
