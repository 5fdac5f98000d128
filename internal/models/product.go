package models

// Fallback labels used when the feed has no row or column for a product.
const (
	FallbackVariant = "정보 없음"
	FallbackPrice   = "가격 문의"
)

// FallbackName, feed에 행이 없는 상품의 이름을 폴더명으로 만든다.
func FallbackName(folder string) string {
	return "상품 " + folder
}

// Product, 이미지 폴더 하나와 feed 한 행을 합친 상품을 나타낸다.
// 저장되지 않고 요청마다 다시 계산된다.
type Product struct {
	ID        string   `json:"id"`
	Index     int      `json:"index"`
	Name      string   `json:"name"`
	Variant   string   `json:"variant"`
	Price     string   `json:"price"`
	Thumbnail string   `json:"thumbnail,omitempty"`
	Images    []string `json:"images"`
	FromFeed  bool     `json:"from_feed"`
}

// HasThumbnail reports whether the folder has at least one displayable image.
func (p Product) HasThumbnail() bool {
	return p.Thumbnail != ""
}
