package database

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"oahushop/internal/errx"
	"oahushop/internal/logx"
	"oahushop/internal/models"
)

type inquiryDocument struct {
	Inquiries []models.Inquiry `json:"inquiries"`
}

// InquiryStore, 고객 문의 목록을 JSON 문서에 덧붙여 저장한다.
type InquiryStore struct {
	mu       sync.Mutex
	filePath string
	// Now stamps new inquiries; tests replace it.
	Now func() time.Time
}

// NewInquiryStore, path에 있는 문의 문서를 다루는 InquiryStore를 만든다.
func NewInquiryStore(path string) *InquiryStore {
	return &InquiryStore{filePath: path, Now: time.Now}
}

// LoadAll, 저장된 모든 문의를 접수 순서대로 돌려준다. 문서가 없으면 빈 목록.
func (s *InquiryStore) LoadAll() ([]models.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, errx.WrapStorage(err)
	}
	return doc.Inquiries, nil
}

// Count returns the number of stored inquiries.
func (s *InquiryStore) Count() (int, error) {
	all, err := s.LoadAll()
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// Append, 현재 목록을 읽고 id = 개수+1, 현재 시각을 붙여 추가한 뒤 문서 전체를 다시 쓴다.
// 읽기나 쓰기에 실패하면 아무것도 저장하지 않고 오류를 돌려준다.
func (s *InquiryStore) Append(values map[string]string) (models.Inquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		logx.Error().Err(err).Str("path", s.filePath).Msg("failed to read inquiries before append")
		return models.Inquiry{}, errx.WrapStorage(err)
	}

	copied := make(map[string]string, len(values))
	for k, v := range values {
		copied[k] = v
	}
	inquiry := models.Inquiry{
		ID:        len(doc.Inquiries) + 1,
		Timestamp: s.Now().Format(models.TimestampLayout),
		Values:    copied,
	}
	doc.Inquiries = append(doc.Inquiries, inquiry)

	if err := writeDocument(s.filePath, doc); err != nil {
		logx.Error().Err(err).Str("path", s.filePath).Int("id", inquiry.ID).Msg("failed to append inquiry")
		return models.Inquiry{}, errx.WrapStorage(err)
	}
	logx.Info().Int("id", inquiry.ID).Msg("inquiry stored")
	return inquiry, nil
}

func (s *InquiryStore) read() (inquiryDocument, error) {
	var doc inquiryDocument
	err := readDocument(s.filePath, &doc)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist), errors.Is(err, errEmptyDocument):
		err = nil
	default:
		return inquiryDocument{}, fmt.Errorf("read inquiries: %w", err)
	}
	if doc.Inquiries == nil {
		doc.Inquiries = []models.Inquiry{}
	}
	return doc, err
}
