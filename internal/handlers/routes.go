package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Register mounts every page and admin operation on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/.well-known/appspecific/com.chrome.devtools.json", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/banners/:index", h.BannerImage)
	r.GET("/images/:folder/:file", h.ProductImage)

	pages := r.Group("/", h.SessionMiddleware())
	{
		pages.GET("", h.HomePage)
		pages.GET("/products", h.ProductsIndex)
		pages.GET("/products/:id", h.ProductPage)
		pages.POST("/products/back", h.ProductBack)

		pages.GET("/inquiry", h.InquiryPage)
		pages.POST("/inquiry", h.SubmitInquiry)
		pages.POST("/inquiry/cancel", h.CancelInquiry)

		pages.GET("/login", h.LoginPage)
		pages.POST("/login", h.Login)
		pages.POST("/login/cancel", h.CancelLogin)

		pages.GET("/admin", NoCache(), h.AdminPage)
		pages.POST("/admin/back", h.AdminBack)
		pages.POST("/admin/logout", h.AdminLogout)
	}

	admin := pages.Group("/admin", NoCache(), h.AuthMiddleware())
	{
		admin.POST("/banners", h.UpdateBanners)
		admin.POST("/banners/clear", h.ClearBanners)
		admin.POST("/notice", h.UpdateNotice)
		admin.POST("/business", h.UpdateBusiness)
		admin.POST("/form/fields", h.AddField)
		admin.POST("/form/fields/:id/delete", h.RemoveField)
		admin.GET("/inquiries.json", h.ExportInquiries)
		admin.POST("/catalog/refresh", h.RefreshCatalog)
		admin.POST("/deploy", h.Deploy)
	}
}
