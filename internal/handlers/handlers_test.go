package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	"github.com/stretchr/testify/require"

	"oahushop/internal/catalog"
	"oahushop/internal/database"
	"oahushop/internal/errx"
	"oahushop/internal/models"
	"oahushop/internal/services"
	"oahushop/internal/session"
	"oahushop/web"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type fakePipeline struct {
	enabled  bool
	result   services.PipelineResult
	messages []string
}

func (f *fakePipeline) Enabled() bool { return f.enabled }

func (f *fakePipeline) Publish(_ context.Context, message string) services.PipelineResult {
	f.messages = append(f.messages, message)
	res := f.result
	res.Message = message
	return res
}

func (f *fakePipeline) Status(context.Context) services.StepResult {
	return services.StepResult{Step: "status", Command: "git status --short", Output: " M data/settings.json\n"}
}

type fakeMailer struct {
	sent []models.Inquiry
}

func (f *fakeMailer) NotifyInquiry(_ []models.FormField, inq models.Inquiry) error {
	f.sent = append(f.sent, inq)
	return nil
}

type shop struct {
	t         *testing.T
	router    *gin.Engine
	dataDir   string
	imageRoot string
	settings  *database.SettingsStore
	inquiries *database.InquiryStore
	reader    *catalog.Reader
	pipeline  *fakePipeline
	mailer    *fakeMailer
	security  *bytes.Buffer
	feedHits  *atomic.Int32
}

type shopOptions struct {
	feed          string // CSV body; empty means the feed is unreachable
	inquiriesPath string
}

func newShop(t *testing.T, opts shopOptions) *shop {
	t.Helper()
	dir := t.TempDir()
	s := &shop{
		t:         t,
		dataDir:   filepath.Join(dir, "data"),
		imageRoot: filepath.Join(dir, "image"),
		pipeline:  &fakePipeline{enabled: true, result: services.PipelineResult{Steps: []services.StepResult{{Step: "push", Command: "git push", Output: "Everything up-to-date"}}}},
		mailer:    &fakeMailer{},
		security:  &bytes.Buffer{},
		feedHits:  &atomic.Int32{},
	}

	feedURL := ""
	if opts.feed != "" {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.feedHits.Add(1)
			fmt.Fprint(w, opts.feed)
		}))
		t.Cleanup(srv.Close)
		feedURL = srv.URL
	}
	s.reader = catalog.NewReader(catalog.Options{FeedURL: feedURL, ImageRoot: s.imageRoot})

	s.settings = database.NewSettingsStore(filepath.Join(s.dataDir, "settings.json"))
	inqPath := opts.inquiriesPath
	if inqPath == "" {
		inqPath = filepath.Join(s.dataDir, "inquiries.json")
	}
	s.inquiries = database.NewInquiryStore(inqPath)

	auth, err := services.NewAuthenticator("oahu", "oahu123", "")
	require.NoError(t, err)

	h := NewHandler(Deps{
		Settings:  s.settings,
		Inquiries: s.inquiries,
		Catalog:   s.reader,
		Sessions:  session.NewCookieStore(securecookie.GenerateRandomKey(32), securecookie.GenerateRandomKey(32), false),
		Auth:      auth,
		Pipeline:  s.pipeline,
		Mailer:    s.mailer,
		Security:  services.NewSecurityLoggerTo(s.security),
		SheetURL:  "https://docs.google.com/spreadsheets/d/test/edit",
	})

	renderer, err := NewHTMLRenderer(web.Templates())
	require.NoError(t, err)
	r := gin.New()
	r.HTMLRender = renderer
	h.Register(r)
	s.router = r
	return s
}

func (s *shop) addImage(folder, file string, valid bool) {
	s.t.Helper()
	path := filepath.Join(s.imageRoot, folder, file)
	require.NoError(s.t, os.MkdirAll(filepath.Dir(path), 0o755))
	data := []byte("not an image")
	if valid {
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.Set(0, 0, color.White)
		var buf bytes.Buffer
		require.NoError(s.t, jpeg.Encode(&buf, img, nil))
		data = buf.Bytes()
	}
	require.NoError(s.t, os.WriteFile(path, data, 0o644))
}

// browser carries cookies across requests like a real client.
type browser struct {
	shop *shop
	jar  map[string]*http.Cookie
}

func (s *shop) browser() *browser {
	return &browser{shop: s, jar: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range b.jar {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	b.shop.router.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.jar, c.Name)
			continue
		}
		b.jar[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string) *httptest.ResponseRecorder {
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) upload(path string, fields map[string]string, files map[string][]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	for name, data := range files {
		part, err := w.CreateFormFile("banners", name)
		require.NoError(b.shop.t, err)
		_, err = part.Write(data)
		require.NoError(b.shop.t, err)
	}
	require.NoError(b.shop.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) login() {
	b.shop.t.Helper()
	b.get("/login")
	rec := b.post("/login", url.Values{"username": {"oahu"}, "password": {"oahu123"}})
	require.Equal(b.shop.t, http.StatusSeeOther, rec.Code)
	require.Equal(b.shop.t, "/admin", rec.Header().Get("Location"))
}

func doc(t *testing.T, rec *httptest.ResponseRecorder) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(io.NopCloser(bytes.NewReader(rec.Body.Bytes())))
	require.NoError(t, err)
	return d
}

func requireRedirect(t *testing.T, rec *httptest.ResponseRecorder, location string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, location, rec.Header().Get("Location"))
}

func TestHomeEmptyImageRoot(t *testing.T) {
	s := newShop(t, shopOptions{})
	rec := s.browser().get("/")
	require.Equal(t, http.StatusOK, rec.Code)

	d := doc(t, rec)
	require.Equal(t, "상품 폴더를 찾을 수 없습니다.", strings.TrimSpace(d.Find(".no-products").Text()))
	require.Equal(t, 0, d.Find(".product").Length())
	require.Equal(t, "NEW ARRIVALS", strings.TrimSpace(d.Find(".banner-default").Text()))
}

func TestHomeFallsBackWhenFeedUnavailable(t *testing.T) {
	s := newShop(t, shopOptions{})
	s.addImage("126", "image_1.jpg", true)
	s.addImage("126", "image_2.jpg", true)
	s.addImage("127", "only.jpg", true)

	d := doc(t, s.browser().get("/"))
	require.Equal(t, 1, d.Find(".feed-notice").Length())

	products := d.Find(".product")
	require.Equal(t, 2, products.Length())
	first := products.First()
	require.Equal(t, "상품 126", first.Find(".name").Text())
	require.Equal(t, "50000원", first.Find(".price").Text())
	src, _ := first.Find("img").Attr("src")
	require.Equal(t, "/images/126/image_2.jpg", src)
	require.Equal(t, "상품 127", products.Eq(1).Find(".name").Text())
}

func TestHomeMarksUnreadableThumbnail(t *testing.T) {
	s := newShop(t, shopOptions{})
	s.addImage("126", "image_1.jpg", true)
	s.addImage("126", "image_2.jpg", false)
	s.addImage("127", "image_1.jpg", true)

	rec := s.browser().get("/")
	d := doc(t, rec)
	products := d.Find(".product")
	require.Equal(t, "이미지를 불러올 수 없습니다.", products.Eq(0).Find(".unreadable").Text())
	require.Equal(t, 0, products.Eq(0).Find("img").Length())
	require.NotContains(t, rec.Body.String(), `src="/images/126/image_2.jpg"`)
	require.Equal(t, "/images/127/image_1.jpg", products.Eq(1).Find("img").AttrOr("src", ""))
}

func TestHomeUsesFeedRows(t *testing.T) {
	s := newShop(t, shopOptions{feed: "상품명,색상/사이즈,가격\n린넨 셔츠,화이트 / M,39000원\n"})
	s.addImage("126", "a.jpg", true)
	s.addImage("127", "a.jpg", true)

	d := doc(t, s.browser().get("/"))
	require.Equal(t, 0, d.Find(".feed-notice").Length())
	products := d.Find(".product")
	require.Equal(t, "린넨 셔츠", products.Eq(0).Find(".name").Text())
	require.Equal(t, "화이트 / M", products.Eq(0).Find(".variant").Text())
	require.Equal(t, "상품 127", products.Eq(1).Find(".name").Text())
	require.Equal(t, models.FallbackVariant, products.Eq(1).Find(".variant").Text())
	require.Equal(t, models.FallbackPrice, products.Eq(1).Find(".price").Text())
}

func TestProductDetailAndBack(t *testing.T) {
	s := newShop(t, shopOptions{})
	s.addImage("126", "image_1.jpg", true)
	s.addImage("126", "image_2.jpg", false)
	s.addImage("126", catalog.SentinelImage, true)
	b := s.browser()

	rec := b.get("/products/126")
	require.Equal(t, http.StatusOK, rec.Code)
	d := doc(t, rec)
	require.Equal(t, "상품 126", d.Find("h1.name").Text())
	require.Equal(t, 2, d.Find("figure.image").Length())
	require.Equal(t, "이미지를 불러올 수 없습니다.", d.Find(".unreadable").Text())
	require.NotContains(t, rec.Body.String(), catalog.SentinelImage)

	requireRedirect(t, b.get("/products"), "/products/126")
	requireRedirect(t, b.post("/products/back", nil), "/")
	requireRedirect(t, b.get("/products"), "/")
}

func TestProductWithoutImages(t *testing.T) {
	s := newShop(t, shopOptions{})
	require.NoError(t, os.MkdirAll(filepath.Join(s.imageRoot, "140"), 0o755))

	d := doc(t, s.browser().get("/products/140"))
	require.Equal(t, "상품 이미지가 없습니다.", d.Find(".no-images").Text())
}

func TestUnknownProductGuardsToHome(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()

	requireRedirect(t, b.get("/products/999"), "/")
	d := doc(t, b.get("/"))
	require.Equal(t, "상품을 찾을 수 없습니다.", d.Find(".flash-error").Text())

	// the flash is shown once
	require.Equal(t, 0, doc(t, b.get("/")).Find(".flash").Length())
}

func TestBackWithoutDetailIsRejected(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()
	b.get("/")
	requireRedirect(t, b.post("/products/back", nil), "/")
	require.Equal(t, msgRequestRejected, doc(t, b.get("/")).Find(".flash-error").Text())
}

func TestAdminGuard(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()

	requireRedirect(t, b.get("/admin"), "/login")
	requireRedirect(t, b.post("/admin/notice", url.Values{"title": {"해킹"}, "enabled": {"true"}}), "/login")
	requireRedirect(t, b.get("/admin/inquiries.json"), "/login")
	require.False(t, s.settings.Load().Notice.Enabled)
}

func TestLoginFlow(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()

	require.Equal(t, http.StatusOK, b.get("/login").Code)

	for _, pair := range [][2]string{{"oahu", "wrong"}, {"admin", "oahu123"}, {"", ""}} {
		rec := b.post("/login", url.Values{"username": {pair[0]}, "password": {pair[1]}})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Equal(t, "아이디 또는 비밀번호가 올바르지 않습니다.", doc(t, rec).Find(".login .error").Text())
	}
	requireRedirect(t, b.get("/admin"), "/login")

	rec := b.post("/login", url.Values{"username": {"oahu"}, "password": {"oahu123"}})
	requireRedirect(t, rec, "/admin")

	rec = b.get("/admin")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	require.Equal(t, 7, doc(t, rec).Find(".tabs a").Length())

	log := s.security.String()
	require.Equal(t, 3, strings.Count(log, services.EventLoginFailure))
	require.Equal(t, 1, strings.Count(log, services.EventLoginSuccess))
	require.NotContains(t, log, "oahu123")
}

func TestLoginCancel(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()
	b.get("/login")
	requireRedirect(t, b.post("/login/cancel", nil), "/")
	requireRedirect(t, b.get("/admin"), "/login")
}

func TestLogoutAndBack(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()
	b.login()
	b.get("/admin")

	requireRedirect(t, b.post("/admin/back", nil), "/")
	d := doc(t, b.get("/"))
	require.Equal(t, "/admin", d.Find("a.admin-link").AttrOr("href", ""))
	require.Equal(t, http.StatusOK, b.get("/admin").Code)

	requireRedirect(t, b.post("/admin/logout", nil), "/")
	requireRedirect(t, b.get("/admin"), "/login")
	require.Contains(t, s.security.String(), services.EventLogout)
}

func TestInquiryMissingRequiredField(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()
	b.get("/inquiry")

	rec := b.post("/inquiry", url.Values{
		"field_name":    {"김하나"},
		"field_phone":   {""},
		"field_message": {"재입고 문의"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	d := doc(t, rec)
	require.Contains(t, d.Find(".inquiry .error").Text(), "연락처")
	require.Equal(t, "김하나", d.Find("#field_name").AttrOr("value", ""))
	require.Equal(t, 1, d.Find(".field.missing").Length())

	n, err := s.inquiries.Count()
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, s.mailer.sent)
}

func TestInquirySubmitted(t *testing.T) {
	s := newShop(t, shopOptions{})
	b := s.browser()

	for i := 1; i <= 3; i++ {
		b.get("/inquiry")
		rec := b.post("/inquiry", url.Values{
			"field_name":    {fmt.Sprintf("고객 %d", i)},
			"field_phone":   {"010-0000-0000"},
			"field_message": {"사이즈 문의"},
		})
		requireRedirect(t, rec, "/")
	}

	d := doc(t, b.get("/"))
	require.Equal(t, msgInquiryAccepted, d.Find(".flash-success").Text())

	all, err := s.inquiries.LoadAll()
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, inq := range all {
		require.Equal(t, i+1, inq.ID)
		require.Equal(t, fmt.Sprintf("고객 %d", i+1), inq.Value("name"))
		require.Equal(t, "", inq.Value("email"))
	}
	require.Len(t, s.mailer.sent, 3)
}

func TestInquiryPostedFromAnotherTab(t *testing.T) {
	s := newShop(t, shopOptions{})
	s.addImage("126", "a.jpg", true)
	b := s.browser()

	b.get("/inquiry")
	b.get("/products/126")

	rec := b.post("/inquiry", url.Values{
		"field_name":    {"김하나"},
		"field_phone":   {""},
		"field_message": {"재입고 문의"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	d := doc(t, rec)
	require.Contains(t, d.Find(".inquiry .error").Text(), "연락처")
	require.Equal(t, "재입고 문의", d.Find("#field_message").Text())

	b.get("/")
	rec = b.post("/inquiry", url.Values{
		"field_name":    {"김하나"},
		"field_phone":   {"010"},
		"field_message": {"재입고 문의"},
	})
	requireRedirect(t, rec, "/")
	n, err := s.inquiries.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, msgInquiryAccepted, doc(t, b.get("/")).Find(".flash-success").Text())
}

func TestInquiryWriteFailureIsReported(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := newShop(t, shopOptions{inquiriesPath: filepath.Join(blocker, "inquiries.json")})
	b := s.browser()
	b.get("/inquiry")

	rec := b.post("/inquiry", url.Values{
		"field_name":    {"김하나"},
		"field_phone":   {"010"},
		"field_message": {"문의"},
	})
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, errx.StorageErrorMessage, doc(t, rec).Find(".inquiry .error").Text())
	require.Empty(t, s.mailer.sent)

	// still on the inquiry page
	requireRedirect(t, b.post("/inquiry/cancel", nil), "/")
}

func TestProductImageEndpoint(t *testing.T) {
	s := newShop(t, shopOptions{})
	s.addImage("126", "image_1.jpg", true)
	s.addImage("126", catalog.SentinelImage, true)
	b := s.browser()

	rec := b.get("/images/126/image_1.jpg")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))

	require.Equal(t, http.StatusNotFound, b.get("/images/126/"+url.PathEscape(catalog.SentinelImage)).Code)
	require.Equal(t, http.StatusNotFound, b.get("/images/126/missing.jpg").Code)
}

func TestHealth(t *testing.T) {
	s := newShop(t, shopOptions{})
	rec := s.browser().get("/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
