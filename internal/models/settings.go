package models

// MaxBanners, 배너 세트에 들어갈 수 있는 최대 이미지 수.
const MaxBanners = 5

// FieldType, 문의 양식 필드의 입력 형태.
type FieldType string

const (
	FieldText      FieldType = "text"
	FieldEmail     FieldType = "email"
	FieldMultiline FieldType = "multiline"
)

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldEmail, FieldMultiline:
		return true
	}
	return false
}

// Label, 관리자 화면에 보여줄 타입 이름.
func (t FieldType) Label() string {
	switch t {
	case FieldEmail:
		return "이메일"
	case FieldMultiline:
		return "여러 줄"
	default:
		return "텍스트"
	}
}

// Banner, 메인 페이지 상단 슬라이드 이미지 한 장. Data는 JSON에서 base64로 저장된다.
type Banner struct {
	ContentType string `json:"content_type" yaml:"content_type"`
	Data        []byte `json:"data" yaml:"data"`
}

// Notice, 메인 페이지 공지.
type Notice struct {
	Title   string `json:"title" yaml:"title"`
	Body    string `json:"body" yaml:"body"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

// BusinessInfo, 하단에 표시되는 사업자 정보.
type BusinessInfo struct {
	Name               string `json:"name" yaml:"name"`
	Owner              string `json:"owner" yaml:"owner"`
	RegistrationNumber string `json:"registration_number" yaml:"registration_number"`
	Address            string `json:"address" yaml:"address"`
	Phone              string `json:"phone" yaml:"phone"`
	Kakao              string `json:"kakao,omitempty" yaml:"kakao"`
	Instagram          string `json:"instagram,omitempty" yaml:"instagram"`
	Enabled            bool   `json:"enabled" yaml:"enabled"`
}

// FormField, 문의 양식의 필드 정의.
type FormField struct {
	ID       string    `json:"id" yaml:"id"`
	Label    string    `json:"label" yaml:"label"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
}

// Settings, 관리자가 수정하는 단일 설정 문서.
type Settings struct {
	BannerInterval int          `json:"banner_interval" yaml:"banner_interval"`
	Banners        []Banner     `json:"banners" yaml:"banners"`
	Notice         Notice       `json:"notice" yaml:"notice"`
	Business       BusinessInfo `json:"business" yaml:"business"`
	InquiryFields  []FormField  `json:"inquiry_fields" yaml:"inquiry_fields"`
}

// Clone returns a deep copy so callers can mutate without touching shared slices.
func (s Settings) Clone() Settings {
	out := s
	out.Banners = make([]Banner, len(s.Banners))
	for i, b := range s.Banners {
		out.Banners[i] = Banner{ContentType: b.ContentType, Data: append([]byte(nil), b.Data...)}
	}
	out.InquiryFields = append([]FormField(nil), s.InquiryFields...)
	if out.InquiryFields == nil {
		out.InquiryFields = []FormField{}
	}
	return out
}

// Field returns the schema field with the given id.
func (s Settings) Field(id string) (FormField, bool) {
	for _, f := range s.InquiryFields {
		if f.ID == id {
			return f, true
		}
	}
	return FormField{}, false
}

// NoticeForm, 공지 수정 폼.
type NoticeForm struct {
	Title   string `form:"title"`
	Body    string `form:"body"`
	Enabled bool   `form:"enabled"`
}

// BusinessForm, 사업자 정보 수정 폼.
type BusinessForm struct {
	Name               string `form:"name"`
	Owner              string `form:"owner"`
	RegistrationNumber string `form:"registration_number"`
	Address            string `form:"address"`
	Phone              string `form:"phone"`
	Kakao              string `form:"kakao"`
	Instagram          string `form:"instagram"`
	Enabled            bool   `form:"enabled"`
}

// FieldForm, 문의 양식 필드 추가 폼.
type FieldForm struct {
	Label    string `form:"label" binding:"required"`
	Type     string `form:"type" binding:"required"`
	Required bool   `form:"required"`
}
