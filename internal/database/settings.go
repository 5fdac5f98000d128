package database

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"oahushop/internal/errx"
	"oahushop/internal/logx"
	"oahushop/internal/models"
)

//go:embed defaults.yaml
var defaultSettingsYAML []byte

var (
	// ErrInvalidSettings, 저장하려는 설정이 문서 규칙을 어겼을 때 반환된다.
	ErrInvalidSettings = errors.New("invalid settings")

	errEmptyDocument = errors.New("empty document")
)

// DefaultSettings, 내장된 기본 설정을 새로 만들어 돌려준다.
func DefaultSettings() models.Settings {
	var s models.Settings
	if err := yaml.Unmarshal(defaultSettingsYAML, &s); err != nil {
		// the embedded document is part of the binary
		panic(fmt.Sprintf("database: embedded default settings: %v", err))
	}
	return s.Clone()
}

// SettingsStore, 설정 문서(JSON 파일 하나)를 읽고 쓴다.
type SettingsStore struct {
	mu       sync.Mutex
	filePath string
}

// NewSettingsStore, path에 있는 설정 문서를 다루는 SettingsStore를 만든다.
func NewSettingsStore(path string) *SettingsStore {
	return &SettingsStore{filePath: path}
}

// Path returns the document location.
func (s *SettingsStore) Path() string {
	return s.filePath
}

// Load, 현재 설정을 돌려준다. 오류를 호출자에게 올리지 않는다:
// 문서가 없으면 기본값을 저장하고 돌려주며, 읽을 수 없거나 깨진 문서면
// 파일은 그대로 두고 기본값을 돌려준다.
func (s *SettingsStore) Load() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	var data json.RawMessage
	err := readDocument(s.filePath, &data)
	if err == nil {
		settings, derr := decodeSettings(data)
		if derr == nil {
			return normalize(settings)
		}
		err = derr
	}
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, errEmptyDocument):
		defaults := DefaultSettings()
		if werr := writeDocument(s.filePath, defaults); werr != nil {
			logx.Error().Err(werr).Str("path", s.filePath).Msg("failed to persist default settings")
		} else {
			logx.Info().Str("path", s.filePath).Msg("created default settings document")
		}
		return defaults
	default:
		logx.Warn().Err(err).Str("path", s.filePath).Msg("settings document unreadable, using defaults")
		return DefaultSettings()
	}
}

// decodeSettings, 저장된 문서를 빈 Settings에 디코딩한다. 문서에 없는 최상위 키만
// 기본값으로 채우고, 중첩된 값(필드 목록 등)은 기본값을 물려받지 않는다.
func decodeSettings(data []byte) (models.Settings, error) {
	var stored models.Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return models.Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	defaults := DefaultSettings()
	if _, ok := keys["banner_interval"]; !ok {
		stored.BannerInterval = defaults.BannerInterval
	}
	if _, ok := keys["banners"]; !ok {
		stored.Banners = defaults.Banners
	}
	if _, ok := keys["notice"]; !ok {
		stored.Notice = defaults.Notice
	}
	if _, ok := keys["business"]; !ok {
		stored.Business = defaults.Business
	}
	if _, ok := keys["inquiry_fields"]; !ok {
		stored.InquiryFields = defaults.InquiryFields
	}
	return stored, nil
}

// Save, 설정 문서를 통째로 교체한다(병합하지 않음). 마지막 쓰기가 이긴다.
func (s *SettingsStore) Save(settings models.Settings) error {
	if err := Validate(settings); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeDocument(s.filePath, settings.Clone()); err != nil {
		logx.Error().Err(err).Str("path", s.filePath).Msg("failed to save settings")
		return errx.WrapStorage(err)
	}
	return nil
}

// Validate, 설정 문서의 불변 조건을 확인한다.
func Validate(settings models.Settings) error {
	if settings.BannerInterval <= 0 {
		return fmt.Errorf("%w: banner interval must be positive, got %d", ErrInvalidSettings, settings.BannerInterval)
	}
	if len(settings.Banners) > models.MaxBanners {
		return fmt.Errorf("%w: at most %d banners, got %d", ErrInvalidSettings, models.MaxBanners, len(settings.Banners))
	}
	seen := make(map[string]bool, len(settings.InquiryFields))
	for i, f := range settings.InquiryFields {
		if f.ID == "" {
			return fmt.Errorf("%w: inquiry field %d has no id", ErrInvalidSettings, i)
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: duplicate inquiry field id %q", ErrInvalidSettings, f.ID)
		}
		seen[f.ID] = true
		if !f.Type.Valid() {
			return fmt.Errorf("%w: inquiry field %q has unknown type %q", ErrInvalidSettings, f.ID, f.Type)
		}
	}
	return nil
}

// normalize repairs values a hand-edited document may carry.
func normalize(settings models.Settings) models.Settings {
	if settings.BannerInterval <= 0 {
		settings.BannerInterval = DefaultSettings().BannerInterval
	}
	if settings.Banners == nil {
		settings.Banners = []models.Banner{}
	}
	if settings.InquiryFields == nil {
		settings.InquiryFields = []models.FormField{}
	}
	return settings
}
