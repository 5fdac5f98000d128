package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"oahushop/internal/catalog"
	"oahushop/internal/errx"
	"oahushop/internal/logx"
	"oahushop/internal/services"
	"oahushop/internal/session"
)

func (h *Handler) HomePage(c *gin.Context) {
	out := h.dispatch(c, session.Navigate(session.PageHome))
	h.commit(c, out.State)

	settings := h.settings.Load()
	products, feed, err := h.catalog.Products(c.Request.Context())
	if err != nil {
		logx.Error().Err(err).Msg("failed to list products")
		products = nil
	}

	thumbReadable := make(map[string]bool, len(products))
	for _, p := range products {
		if p.HasThumbnail() {
			thumbReadable[p.ID] = h.catalog.Probe(p.ID, p.Thumbnail)
		}
	}
	v := BuildHomeView(settings, products, thumbReadable, feed, out.State)
	v.Flash = h.takeFlash(c)
	c.HTML(http.StatusOK, "home.html", v)
}

func (h *Handler) ProductPage(c *gin.Context) {
	id := c.Param("id")
	product, _, err := h.catalog.Product(c.Request.Context(), id)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			logx.Error().Err(err).Str("product", id).Msg("failed to load product")
		}
		out := h.dispatch(c, session.Navigate(session.PageHome))
		h.commit(c, out.State)
		h.setFlash(c, flashError, msgProductNotFound)
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	out := h.dispatch(c, session.SelectProduct(product.ID))
	h.commit(c, out.State)

	readable := make(map[string]bool, len(product.Images))
	for _, file := range product.Images {
		readable[file] = h.catalog.Probe(product.ID, file)
	}
	v := BuildDetailView(h.settings.Load(), product, readable, out.State)
	v.Flash = h.takeFlash(c)
	c.HTML(http.StatusOK, "detail.html", v)
}

// ProductsIndex re-enters the detail page of the selected product, or home
// when nothing is selected.
func (h *Handler) ProductsIndex(c *gin.Context) {
	out := h.dispatch(c, session.Navigate(session.PageDetail))
	h.commit(c, out.State)
	c.Redirect(http.StatusSeeOther, pathFor(out.State))
}

func (h *Handler) ProductBack(c *gin.Context) {
	h.step(c, session.Back())
}

func (h *Handler) InquiryPage(c *gin.Context) {
	out := h.dispatch(c, session.OpenInquiry())
	h.commit(c, out.State)

	v := BuildInquiryView(h.settings.Load(), out.State, nil, nil)
	v.Flash = h.takeFlash(c)
	c.HTML(http.StatusOK, "inquiry.html", v)
}

func (h *Handler) SubmitInquiry(c *gin.Context) {
	settings := h.settings.Load()
	values := make(map[string]string, len(settings.InquiryFields))
	for _, f := range settings.InquiryFields {
		values[f.ID] = c.PostForm("field_" + f.ID)
	}

	// a form posted from another tab still carries the customer's input
	if h.state(c).Page != session.PageInquiry {
		opened := h.dispatch(c, session.OpenInquiry())
		c.Set(stateKey, opened.State)
	}
	from := h.state(c)
	out := h.dispatch(c, session.SubmitInquiry(settings.InquiryFields, values))
	if out.Err != nil {
		if _, ok := asMissingField(out.Err); !ok {
			h.reject(c, out)
			return
		}
		h.commit(c, out.State)
		c.HTML(http.StatusBadRequest, "inquiry.html", BuildInquiryView(settings, out.State, values, out.Err))
		return
	}

	for _, eff := range out.Effects {
		switch e := eff.(type) {
		case session.AppendInquiry:
			inq, err := h.inquiries.Append(e.Values)
			if err != nil {
				logx.Error().Err(err).Msg("inquiry not stored")
				h.commit(c, from)
				c.HTML(errx.Status(err), "inquiry.html", BuildInquiryView(settings, from, values, err))
				return
			}
			logx.Info().Int("inquiry", inq.ID).Msg("inquiry stored")
			if h.spam.IsSpamValues(e.Values) {
				logx.Warn().Int("inquiry", inq.ID).Msg("inquiry looks like spam")
				h.security.LogSecurityEvent(services.EventSpam, "inquiry #"+strconv.Itoa(inq.ID), c.ClientIP())
			}
			if err := h.mailer.NotifyInquiry(settings.InquiryFields, inq); err != nil {
				logx.Warn().Err(err).Int("inquiry", inq.ID).Msg("inquiry notification failed")
			}
		}
	}

	h.commit(c, out.State)
	h.setFlash(c, flashOK, msgInquiryAccepted)
	c.Redirect(http.StatusSeeOther, pathFor(out.State))
}

func (h *Handler) CancelInquiry(c *gin.Context) {
	h.step(c, session.Cancel())
}

func (h *Handler) LoginPage(c *gin.Context) {
	out := h.dispatch(c, session.OpenAdmin())
	h.commit(c, out.State)

	v := BuildLoginView(h.settings.Load(), out.State, "", nil)
	v.Flash = h.takeFlash(c)
	c.HTML(http.StatusOK, "login.html", v)
}

func (h *Handler) Login(c *gin.Context) {
	username := c.PostForm("username")
	password := c.PostForm("password")
	valid := h.auth.Authenticate(username, password)

	out := h.dispatch(c, session.SubmitCredentials(valid))
	switch {
	case errors.Is(out.Err, session.ErrInvalidCredentials):
		logx.Warn().Str("username", username).Msg("admin login failed")
		h.security.LogSecurityEvent(services.EventLoginFailure, "username="+username, c.ClientIP())
		h.commit(c, out.State)
		c.HTML(http.StatusUnauthorized, "login.html", BuildLoginView(h.settings.Load(), out.State, username, out.Err))
		return
	case out.Err != nil:
		h.reject(c, out)
		return
	}

	logx.Info().Str("username", username).Msg("admin login")
	h.security.LogSecurityEvent(services.EventLoginSuccess, "username="+username, c.ClientIP())
	h.commit(c, out.State)
	c.Redirect(http.StatusSeeOther, pathFor(out.State))
}

func (h *Handler) CancelLogin(c *gin.Context) {
	h.step(c, session.Cancel())
}

// BannerImage serves one stored banner blob.
func (h *Handler) BannerImage(c *gin.Context) {
	i, err := strconv.Atoi(c.Param("index"))
	settings := h.settings.Load()
	if err != nil || i < 0 || i >= len(settings.Banners) {
		c.Status(http.StatusNotFound)
		return
	}
	b := settings.Banners[i]
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, b.ContentType, b.Data)
}

// ProductImage serves a displayable catalog image.
func (h *Handler) ProductImage(c *gin.Context) {
	folder, file := c.Param("folder"), c.Param("file")
	f, err := h.catalog.OpenImage(folder, file)
	if err != nil {
		if !errors.Is(err, catalog.ErrNotFound) {
			logx.Warn().Err(err).Str("folder", folder).Str("file", file).Msg("image open failed")
		}
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Cache-Control", "public, max-age=3600")
	http.ServeContent(c.Writer, c.Request, file, info.ModTime(), f)
}
