package handlers

import (
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"sort"

	"oahushop/internal/catalog"
	"oahushop/internal/models"
	"oahushop/internal/services"
	"oahushop/internal/session"
)

// User-facing texts.
const (
	msgNoProducts       = "상품 폴더를 찾을 수 없습니다."
	msgNoImages         = "상품 이미지가 없습니다."
	msgImageUnreadable  = "이미지를 불러올 수 없습니다."
	msgFeedUnavailable  = "상품 정보를 불러오지 못해 임시 정보를 표시합니다."
	msgProductNotFound  = "상품을 찾을 수 없습니다."
	msgInquiryAccepted  = "문의가 접수되었습니다. 빠르게 답변드리겠습니다."
	msgRequestRejected  = "요청을 처리할 수 없습니다. 페이지를 새로고침한 뒤 다시 시도해 주세요."
	msgDefaultBanner    = "NEW ARRIVALS"
	msgAlreadyLoggedIn  = "이미 로그인되어 있습니다."
	msgPipelineDisabled = "배포 기능이 비활성화되어 있습니다."
)

// Action is one thing the user can do from a page.
type Action struct {
	Label  string
	Method string
	Path   string
}

func get(label, path string) Action { return Action{Label: label, Method: http.MethodGet, Path: path} }
func post(label, path string) Action { return Action{Label: label, Method: http.MethodPost, Path: path} }

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Kind string
	Text string
}

// Layout is shared by every page.
type Layout struct {
	Title         string
	Page          session.Page
	Authenticated bool
	Business      *models.BusinessInfo
	Flash         *Flash
}

func newLayout(title string, settings models.Settings, state session.State) Layout {
	l := Layout{Title: title, Page: state.Page, Authenticated: state.Authenticated}
	if settings.Business.Enabled {
		b := settings.Business
		l.Business = &b
	}
	return l
}

func productPath(id string) string {
	return "/products/" + url.PathEscape(id)
}

func imagePath(folder, file string) string {
	return "/images/" + url.PathEscape(folder) + "/" + url.PathEscape(file)
}

// pathFor is where a session in state s is shown.
func pathFor(s session.State) string {
	switch s.Page {
	case session.PageDetail:
		if s.Selected != "" {
			return productPath(s.Selected)
		}
	case session.PageInquiry:
		return "/inquiry"
	case session.PageLogin:
		return "/login"
	case session.PageAdmin:
		return "/admin"
	}
	return "/"
}

type BannerView struct {
	URL string
}

type NoticeView struct {
	Title string
	Body  template.HTML
}

type ProductCard struct {
	models.Product
	URL             string
	ThumbnailURL    string
	ThumbnailNotice string
}

type HomeView struct {
	Layout
	Banners        []BannerView
	DefaultBanner  string
	BannerInterval int
	Notice         *NoticeView
	Products       []ProductCard
	NoProducts     bool
	FeedNotice     string
	Actions        []Action
}

// BuildHomeView renders the product gallery. thumbReadable maps product ids to
// the result of probing their thumbnail; missing entries count as unreadable.
func BuildHomeView(settings models.Settings, products []models.Product, thumbReadable map[string]bool, feed catalog.Feed, state session.State) HomeView {
	v := HomeView{
		Layout:         newLayout("OAHU", settings, state),
		BannerInterval: settings.BannerInterval,
		NoProducts:     len(products) == 0,
	}
	for i := range settings.Banners {
		v.Banners = append(v.Banners, BannerView{URL: fmt.Sprintf("/banners/%d", i)})
	}
	if len(v.Banners) == 0 {
		v.DefaultBanner = msgDefaultBanner
	}
	if settings.Notice.Enabled && (settings.Notice.Title != "" || settings.Notice.Body != "") {
		v.Notice = &NoticeView{Title: settings.Notice.Title, Body: services.RenderMarkdown(settings.Notice.Body)}
	}
	if feed.Err != nil {
		v.FeedNotice = msgFeedUnavailable
	}
	for _, p := range products {
		card := ProductCard{Product: p, URL: productPath(p.ID)}
		if p.HasThumbnail() {
			card.ThumbnailURL = imagePath(p.ID, p.Thumbnail)
			if !thumbReadable[p.ID] {
				card.ThumbnailNotice = msgImageUnreadable
			}
		}
		v.Products = append(v.Products, card)
		v.Actions = append(v.Actions, get("상세 보기", card.URL))
	}
	v.Actions = append(v.Actions, get("문의하기", "/inquiry"))
	if state.Authenticated {
		v.Actions = append(v.Actions, get("관리자 페이지", "/admin"))
	} else {
		v.Actions = append(v.Actions, get("관리자", "/login"))
	}
	return v
}

type ImageView struct {
	File     string
	URL      string
	Readable bool
	Notice   string
}

type DetailView struct {
	Layout
	Product  models.Product
	Images   []ImageView
	NoImages bool
	Actions  []Action
}

// BuildDetailView renders one product. readable maps image file names to the
// result of probing them; missing entries count as unreadable.
func BuildDetailView(settings models.Settings, product models.Product, readable map[string]bool, state session.State) DetailView {
	v := DetailView{
		Layout:   newLayout(product.Name+" | OAHU", settings, state),
		Product:  product,
		NoImages: len(product.Images) == 0,
		Actions: []Action{
			post("← 목록으로", "/products/back"),
			get("문의하기", "/inquiry"),
		},
	}
	for _, file := range product.Images {
		iv := ImageView{File: file, URL: imagePath(product.ID, file), Readable: readable[file]}
		if !iv.Readable {
			iv.Notice = msgImageUnreadable
		}
		v.Images = append(v.Images, iv)
	}
	return v
}

type FieldView struct {
	models.FormField
	Name      string
	Value     string
	Multiline bool
	InputType string
	Missing   bool
}

type InquiryView struct {
	Layout
	Fields  []FieldView
	Error   string
	Actions []Action
}

// BuildInquiryView renders the inquiry form for the current schema. values
// are echoed back after a failed submission.
func BuildInquiryView(settings models.Settings, state session.State, values map[string]string, err error) InquiryView {
	v := InquiryView{
		Layout: newLayout("문의하기 | OAHU", settings, state),
		Actions: []Action{
			post("문의 보내기", "/inquiry"),
			post("취소", "/inquiry/cancel"),
		},
	}
	missingID := ""
	if err != nil {
		v.Error = errorText(err)
		if mf, ok := asMissingField(err); ok {
			missingID = mf.Field.ID
		}
	}
	for _, f := range settings.InquiryFields {
		fv := FieldView{
			FormField: f,
			Name:      "field_" + f.ID,
			Value:     values[f.ID],
			Multiline: f.Type == models.FieldMultiline,
			InputType: "text",
			Missing:   f.ID == missingID,
		}
		if f.Type == models.FieldEmail {
			fv.InputType = "email"
		}
		v.Fields = append(v.Fields, fv)
	}
	return v
}

type LoginView struct {
	Layout
	Username string
	Error    string
	Notice   string
	Actions  []Action
}

// BuildLoginView renders the admin login form.
func BuildLoginView(settings models.Settings, state session.State, username string, err error) LoginView {
	v := LoginView{
		Layout:   newLayout("관리자 로그인 | OAHU", settings, state),
		Username: username,
		Actions: []Action{
			post("로그인", "/login"),
			post("취소", "/login/cancel"),
		},
	}
	if err != nil {
		v.Error = errorText(err)
	}
	if state.Authenticated {
		v.Notice = msgAlreadyLoggedIn
		v.Actions = append(v.Actions, get("관리자 페이지", "/admin"))
	}
	return v
}

// Admin tabs.
const (
	TabBanners   = "banners"
	TabNotice    = "notice"
	TabBusiness  = "business"
	TabForm      = "form"
	TabInquiries = "inquiries"
	TabCatalog   = "catalog"
	TabDeploy    = "deploy"
)

var adminTabs = []struct{ ID, Label string }{
	{TabBanners, "배너 관리"},
	{TabNotice, "공지사항"},
	{TabBusiness, "사업자 정보"},
	{TabForm, "문의 양식"},
	{TabInquiries, "문의 내역"},
	{TabCatalog, "상품 관리"},
	{TabDeploy, "배포"},
}

func validTab(tab string) bool {
	for _, t := range adminTabs {
		if t.ID == tab {
			return true
		}
	}
	return false
}

type TabView struct {
	ID     string
	Label  string
	URL    string
	Active bool
}

type InquiryRow struct {
	ID        int
	Timestamp string
	Cells     []string
	Extra     []string
	Spam      bool
}

type FeedTable struct {
	Header   []string
	Rows     [][]string
	Fallback bool
	Error    string
}

// AdminData is what the admin page needs beyond settings; only the active
// tab's parts are filled.
type AdminData struct {
	Inquiries    []models.Inquiry
	Spam         map[int]bool
	Feed         *catalog.Feed
	ProductCount int
	SheetURL     string
	Status       *services.StepResult
	Publish      *services.PipelineResult
	DeployEnable bool
}

type AdminView struct {
	Layout
	Tab            string
	Tabs           []TabView
	Settings       models.Settings
	BannerURLs     []string
	MaxBanners     int
	FieldTypes     []models.FieldType
	InquiryColumns []string
	Inquiries      []InquiryRow
	Feed           *FeedTable
	ProductCount   int
	SheetURL       string
	Status         *services.StepResult
	Publish        *services.PipelineResult
	DeployNotice   string
	Error          string
	Actions        []Action
}

// BuildAdminView renders the admin panel with tab active.
func BuildAdminView(settings models.Settings, data AdminData, tab string, state session.State, err error) AdminView {
	if !validTab(tab) {
		tab = TabBanners
	}
	v := AdminView{
		Layout:       newLayout("관리자 페이지 | OAHU", settings, state),
		Tab:          tab,
		Settings:     settings,
		MaxBanners:   models.MaxBanners,
		FieldTypes:   []models.FieldType{models.FieldText, models.FieldEmail, models.FieldMultiline},
		ProductCount: data.ProductCount,
		SheetURL:     data.SheetURL,
		Status:       data.Status,
		Publish:      data.Publish,
		Actions: []Action{
			post("← 메인 페이지로", "/admin/back"),
			post("로그아웃", "/admin/logout"),
		},
	}
	if err != nil {
		v.Error = errorText(err)
	}
	for _, t := range adminTabs {
		v.Tabs = append(v.Tabs, TabView{ID: t.ID, Label: t.Label, URL: "/admin?tab=" + t.ID, Active: t.ID == tab})
	}
	for i := range settings.Banners {
		v.BannerURLs = append(v.BannerURLs, fmt.Sprintf("/banners/%d", i))
	}

	switch tab {
	case TabBanners:
		v.Actions = append(v.Actions, post("배너 적용", "/admin/banners"))
		if len(settings.Banners) > 0 {
			v.Actions = append(v.Actions, post("배너 제거", "/admin/banners/clear"))
		}
	case TabNotice:
		v.Actions = append(v.Actions, post("공지 저장", "/admin/notice"))
	case TabBusiness:
		v.Actions = append(v.Actions, post("사업자 정보 저장", "/admin/business"))
	case TabForm:
		v.Actions = append(v.Actions, post("항목 추가", "/admin/form/fields"))
		for _, f := range settings.InquiryFields {
			v.Actions = append(v.Actions, post("삭제", "/admin/form/fields/"+url.PathEscape(f.ID)+"/delete"))
		}
	case TabInquiries:
		v.InquiryColumns, v.Inquiries = inquiryTable(settings.InquiryFields, data.Inquiries, data.Spam)
		v.Actions = append(v.Actions, get("JSON 내보내기", "/admin/inquiries.json"))
	case TabCatalog:
		if data.Feed != nil {
			ft := &FeedTable{Header: data.Feed.Header, Rows: data.Feed.Rows, Fallback: data.Feed.Fallback}
			if data.Feed.Err != nil {
				ft.Error = data.Feed.Err.Error()
			}
			v.Feed = ft
		}
		v.Actions = append(v.Actions, post("상품 정보 새로고침", "/admin/catalog/refresh"))
	case TabDeploy:
		if data.DeployEnable {
			v.Actions = append(v.Actions, post("배포하기", "/admin/deploy"))
		} else {
			v.DeployNotice = msgPipelineDisabled
		}
	}
	return v
}

// inquiryTable lays inquiries out newest first, one column per current schema
// field. Values of fields removed since submission are listed as extras.
func inquiryTable(schema []models.FormField, inquiries []models.Inquiry, spam map[int]bool) ([]string, []InquiryRow) {
	columns := make([]string, 0, len(schema))
	known := make(map[string]bool, len(schema))
	for _, f := range schema {
		columns = append(columns, f.Label)
		known[f.ID] = true
	}
	rows := make([]InquiryRow, 0, len(inquiries))
	for i := len(inquiries) - 1; i >= 0; i-- {
		inq := inquiries[i]
		row := InquiryRow{ID: inq.ID, Timestamp: inq.Timestamp, Spam: spam[inq.ID]}
		for _, f := range schema {
			row.Cells = append(row.Cells, inq.Value(f.ID))
		}
		extra := make([]string, 0)
		for id, val := range inq.Values {
			if !known[id] && val != "" {
				extra = append(extra, id+": "+val)
			}
		}
		sort.Strings(extra)
		row.Extra = extra
		rows = append(rows, row)
	}
	return columns, rows
}
