package database

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// writeDocument, v를 들여쓴 JSON으로 직렬화해 path를 통째로 교체한다.
// 한글 등 비 ASCII 문자는 이스케이프하지 않고 UTF-8 그대로 쓴다.
func writeDocument(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// readDocument, path의 JSON을 v로 읽는다. 파일이 없으면 errors.Is(err, os.ErrNotExist)인 오류가 나온다.
func readDocument(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return errEmptyDocument
	}
	return json.Unmarshal(data, v)
}
