package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"oahushop/internal/errx"
	"oahushop/internal/logx"
	"oahushop/internal/models"
	"oahushop/internal/services"
	"oahushop/internal/session"
)

const maxBannerBytes = 5 << 20

var bannerTypes = map[string]bool{"image/jpeg": true, "image/png": true}

func adminURL(tab string) string {
	return "/admin?tab=" + tab
}

// AdminPage shows the admin panel, or sends an unauthenticated session to login.
func (h *Handler) AdminPage(c *gin.Context) {
	out := h.dispatch(c, session.Navigate(session.PageAdmin))
	h.commit(c, out.State)
	if out.State.Page != session.PageAdmin {
		c.Redirect(http.StatusSeeOther, pathFor(out.State))
		return
	}
	h.renderAdmin(c, http.StatusOK, c.Query("tab"), nil, nil)
}

func (h *Handler) renderAdmin(c *gin.Context, status int, tab string, publish *services.PipelineResult, err error) {
	if !validTab(tab) {
		tab = TabBanners
	}
	settings := h.settings.Load()
	data := AdminData{SheetURL: h.sheetURL, Publish: publish, DeployEnable: h.pipeline.Enabled()}
	ctx := c.Request.Context()

	switch tab {
	case TabInquiries:
		inquiries, lerr := h.inquiries.LoadAll()
		if lerr != nil {
			logx.Error().Err(lerr).Msg("failed to load inquiries")
			if err == nil {
				err = lerr
			}
		}
		data.Inquiries = inquiries
		data.Spam = make(map[int]bool)
		for _, inq := range inquiries {
			if h.spam.IsSpamValues(inq.Values) {
				data.Spam[inq.ID] = true
			}
		}
	case TabCatalog:
		products, feed, perr := h.catalog.Products(ctx)
		if perr != nil {
			logx.Error().Err(perr).Msg("failed to list products")
		}
		data.Feed = &feed
		data.ProductCount = len(products)
	case TabDeploy:
		if data.DeployEnable {
			st := h.pipeline.Status(ctx)
			data.Status = &st
		}
	}

	v := BuildAdminView(settings, data, tab, h.state(c), err)
	v.Flash = h.takeFlash(c)
	c.HTML(status, "admin.html", v)
}

func (h *Handler) AdminBack(c *gin.Context) {
	h.step(c, session.Back())
}

func (h *Handler) AdminLogout(c *gin.Context) {
	if _, ok := h.step(c, session.Logout()); ok {
		h.security.LogSecurityEvent(services.EventLogout, "", c.ClientIP())
	}
}

// updateSettings applies mutate to the current settings and saves them,
// redirecting back to tab with the outcome as a flash message.
func (h *Handler) updateSettings(c *gin.Context, tab, success string, mutate func(*models.Settings) error) {
	settings := h.settings.Load()
	if err := mutate(&settings); err != nil {
		h.setFlash(c, flashError, errorText(err))
		c.Redirect(http.StatusSeeOther, adminURL(tab))
		return
	}
	if err := h.settings.Save(settings); err != nil {
		logx.Error().Err(err).Str("tab", tab).Msg("settings not saved")
		h.setFlash(c, flashError, errorText(err))
		c.Redirect(http.StatusSeeOther, adminURL(tab))
		return
	}
	h.security.LogSecurityEvent(services.EventSettings, tab, c.ClientIP())
	h.setFlash(c, flashOK, success)
	c.Redirect(http.StatusSeeOther, adminURL(tab))
}

// UpdateBanners replaces the banner set with the uploaded files (when any)
// and updates the slide interval.
func (h *Handler) UpdateBanners(c *gin.Context) {
	var files []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		files = form.File["banners"]
	} else if !errors.Is(err, http.ErrNotMultipart) {
		logx.Warn().Err(err).Msg("banner upload unreadable")
	}

	h.updateSettings(c, TabBanners, "배너가 업데이트되었습니다!", func(s *models.Settings) error {
		if raw := strings.TrimSpace(c.PostForm("interval")); raw != "" {
			interval, err := strconv.Atoi(raw)
			if err != nil || interval <= 0 {
				return errx.BadRequest(err, "슬라이드 간격은 1초 이상이어야 합니다.")
			}
			s.BannerInterval = interval
		}
		if len(files) == 0 {
			return nil
		}
		if len(files) > models.MaxBanners {
			return errx.BadRequest(nil, fmt.Sprintf("배너는 최대 %d장까지 등록할 수 있습니다.", models.MaxBanners))
		}
		banners := make([]models.Banner, 0, len(files))
		for _, fh := range files {
			b, err := readBanner(fh)
			if err != nil {
				return err
			}
			banners = append(banners, b)
		}
		s.Banners = banners
		return nil
	})
}

func readBanner(fh *multipart.FileHeader) (models.Banner, error) {
	switch strings.ToLower(filepath.Ext(fh.Filename)) {
	case ".jpg", ".jpeg", ".png":
	default:
		return models.Banner{}, errx.BadRequest(nil, "배너는 jpg, jpeg, png 파일만 올릴 수 있습니다: "+fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return models.Banner{}, errx.BadRequest(err, "배너 파일을 읽을 수 없습니다: "+fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBannerBytes+1))
	if err != nil {
		return models.Banner{}, errx.BadRequest(err, "배너 파일을 읽을 수 없습니다: "+fh.Filename)
	}
	if len(data) > maxBannerBytes {
		return models.Banner{}, errx.BadRequest(nil, "배너 파일이 너무 큽니다(최대 5MB): "+fh.Filename)
	}
	contentType := http.DetectContentType(data)
	if !bannerTypes[contentType] {
		return models.Banner{}, errx.BadRequest(nil, "이미지 파일이 아닙니다: "+fh.Filename)
	}
	return models.Banner{ContentType: contentType, Data: data}, nil
}

func (h *Handler) ClearBanners(c *gin.Context) {
	h.updateSettings(c, TabBanners, "배너가 제거되었습니다!", func(s *models.Settings) error {
		s.Banners = []models.Banner{}
		return nil
	})
}

func (h *Handler) UpdateNotice(c *gin.Context) {
	var form models.NoticeForm
	if err := c.ShouldBind(&form); err != nil {
		h.setFlash(c, flashError, "입력값을 확인해 주세요.")
		c.Redirect(http.StatusSeeOther, adminURL(TabNotice))
		return
	}
	h.updateSettings(c, TabNotice, "공지사항이 저장되었습니다!", func(s *models.Settings) error {
		s.Notice = models.Notice{
			Title:   strings.TrimSpace(form.Title),
			Body:    strings.TrimSpace(form.Body),
			Enabled: form.Enabled,
		}
		return nil
	})
}

func (h *Handler) UpdateBusiness(c *gin.Context) {
	var form models.BusinessForm
	if err := c.ShouldBind(&form); err != nil {
		h.setFlash(c, flashError, "입력값을 확인해 주세요.")
		c.Redirect(http.StatusSeeOther, adminURL(TabBusiness))
		return
	}
	h.updateSettings(c, TabBusiness, "사업자 정보가 저장되었습니다!", func(s *models.Settings) error {
		s.Business = models.BusinessInfo{
			Name:               strings.TrimSpace(form.Name),
			Owner:              strings.TrimSpace(form.Owner),
			RegistrationNumber: strings.TrimSpace(form.RegistrationNumber),
			Address:            strings.TrimSpace(form.Address),
			Phone:              strings.TrimSpace(form.Phone),
			Kakao:              strings.TrimSpace(form.Kakao),
			Instagram:          strings.TrimSpace(form.Instagram),
			Enabled:            form.Enabled,
		}
		return nil
	})
}

func (h *Handler) AddField(c *gin.Context) {
	var form models.FieldForm
	if err := c.ShouldBind(&form); err != nil || strings.TrimSpace(form.Label) == "" {
		h.setFlash(c, flashError, "항목 이름과 종류를 입력해 주세요.")
		c.Redirect(http.StatusSeeOther, adminURL(TabForm))
		return
	}
	h.updateSettings(c, TabForm, "항목이 추가되었습니다!", func(s *models.Settings) error {
		t := models.FieldType(form.Type)
		if !t.Valid() {
			return errx.BadRequest(nil, "알 수 없는 항목 종류입니다: "+form.Type)
		}
		s.InquiryFields = append(s.InquiryFields, models.FormField{
			ID:       "field_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
			Label:    strings.TrimSpace(form.Label),
			Type:     t,
			Required: form.Required,
		})
		return nil
	})
}

func (h *Handler) RemoveField(c *gin.Context) {
	id := c.Param("id")
	h.updateSettings(c, TabForm, "항목이 삭제되었습니다!", func(s *models.Settings) error {
		fields := make([]models.FormField, 0, len(s.InquiryFields))
		for _, f := range s.InquiryFields {
			if f.ID != id {
				fields = append(fields, f)
			}
		}
		if len(fields) == len(s.InquiryFields) {
			return errx.BadRequest(nil, "항목을 찾을 수 없습니다.")
		}
		if len(fields) == 0 {
			return errx.BadRequest(nil, "문의 양식에는 최소 한 개의 항목이 필요합니다.")
		}
		s.InquiryFields = fields
		return nil
	})
}

// ExportInquiries returns the inquiry document as a JSON download.
func (h *Handler) ExportInquiries(c *gin.Context) {
	inquiries, err := h.inquiries.LoadAll()
	if err != nil {
		logx.Error().Err(err).Msg("failed to export inquiries")
		c.JSON(errx.Status(err), gin.H{"error": errx.Message(err)})
		return
	}
	c.Header("Content-Disposition", `attachment; filename="inquiries.json"`)
	c.JSON(http.StatusOK, gin.H{"inquiries": inquiries})
}

func (h *Handler) RefreshCatalog(c *gin.Context) {
	h.catalog.ClearCache()
	h.setFlash(c, flashOK, "상품 정보가 새로고침되었습니다!")
	c.Redirect(http.StatusSeeOther, adminURL(TabCatalog))
}

// Deploy publishes through the version-control pipeline and shows every
// step's output.
func (h *Handler) Deploy(c *gin.Context) {
	if !h.pipeline.Enabled() {
		h.setFlash(c, flashError, msgPipelineDisabled)
		c.Redirect(http.StatusSeeOther, adminURL(TabDeploy))
		return
	}
	res := h.pipeline.Publish(c.Request.Context(), c.PostForm("message"))
	h.security.LogSecurityEvent(services.EventPublish, fmt.Sprintf("ok=%t message=%q", res.OK(), res.Message), c.ClientIP())

	status := http.StatusOK
	if !res.OK() {
		status = http.StatusBadGateway
	}
	h.renderAdmin(c, status, TabDeploy, &res, nil)
}
