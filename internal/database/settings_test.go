package database

import (
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"oahushop/internal/errx"
	"oahushop/internal/models"
)

func TestSettingsLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "settings.json")
	store := NewSettingsStore(path)

	settings := store.Load()
	require.Equal(t, DefaultSettings(), settings)
	require.Equal(t, 5, settings.BannerInterval)
	require.Empty(t, settings.Banners)
	require.Len(t, settings.InquiryFields, 4)
	require.Equal(t, "name", settings.InquiryFields[0].ID)

	_, err := os.Stat(path)
	require.NoError(t, err, "defaults should be persisted on first load")
}

func TestSettingsRoundTripPreservesUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store := NewSettingsStore(path)

	settings := store.Load()
	settings.Business = models.BusinessInfo{
		Name:               "오아후 샵",
		Owner:              "김하늘",
		RegistrationNumber: "123-45-67890",
		Address:            "서울특별시 마포구 <연남로> 12 & 3층",
		Phone:              "010-0000-0000",
		Instagram:          "@oahu.shop",
		Enabled:            true,
	}
	settings.Notice = models.Notice{Title: "🌺 여름 세일", Body: "**전 상품** 10% 할인", Enabled: true}
	settings.Banners = []models.Banner{{ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G', 0, 1, 2}}}
	require.NoError(t, store.Save(settings))

	first, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(first), "서울특별시 마포구 <연남로> 12 & 3층")

	loaded := store.Load()
	require.Equal(t, settings, loaded)

	require.NoError(t, store.Save(store.Load()))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "save(load()) must be idempotent")
}

func TestSettingsCorruptDocumentFallsBackWithoutOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store := NewSettingsStore(path)
	require.Equal(t, DefaultSettings(), store.Load())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{not json", string(data))
}

func TestSettingsPartialDocumentKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"notice":{"title":"안내","body":"","enabled":true}}`), 0o644))

	settings := NewSettingsStore(path).Load()
	require.Equal(t, "안내", settings.Notice.Title)
	require.True(t, settings.Notice.Enabled)
	require.Equal(t, 5, settings.BannerInterval)
	require.Len(t, settings.InquiryFields, 4)
}

func TestSettingsStoredFieldsDoNotInheritDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	doc := `{"inquiry_fields":[{"id":"memo","label":"메모","type":"text"}],"notice":{"title":"안내"}}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	settings := NewSettingsStore(path).Load()
	require.Equal(t, []models.FormField{{ID: "memo", Label: "메모", Type: models.FieldText}}, settings.InquiryFields)
	require.Equal(t, models.Notice{Title: "안내"}, settings.Notice)
	require.Equal(t, DefaultSettings().Business, settings.Business)
	require.Equal(t, 5, settings.BannerInterval)
}

func TestSettingsSaveValidates(t *testing.T) {
	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.json"))
	base := DefaultSettings()

	tests := []struct {
		name   string
		mutate func(*models.Settings)
	}{
		{"zero interval", func(s *models.Settings) { s.BannerInterval = 0 }},
		{"too many banners", func(s *models.Settings) {
			s.Banners = make([]models.Banner, models.MaxBanners+1)
		}},
		{"unknown field type", func(s *models.Settings) {
			s.InquiryFields = append(s.InquiryFields, models.FormField{ID: "x", Label: "X", Type: "date"})
		}},
		{"duplicate field id", func(s *models.Settings) {
			s.InquiryFields = append(s.InquiryFields, s.InquiryFields[0])
		}},
		{"empty field id", func(s *models.Settings) {
			s.InquiryFields = append(s.InquiryFields, models.FormField{Label: "X", Type: models.FieldText})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base.Clone()
			tt.mutate(&s)
			require.ErrorIs(t, store.Save(s), ErrInvalidSettings)
		})
	}
}

func TestSettingsSaveSurfacesWriteFailure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := NewSettingsStore(filepath.Join(blocker, "settings.json"))
	err := store.Save(DefaultSettings())
	require.Error(t, err)
	require.Equal(t, http.StatusInternalServerError, errx.Status(err))
	// load never fails even when the document cannot be written
	require.Equal(t, DefaultSettings(), store.Load())
}
