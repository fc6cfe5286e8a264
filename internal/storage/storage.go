// Package storage хранилище загруженных файлов: скриншоты оплат и QR коды.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store объектное хранилище
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
	URL(key string) string
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// IsImage поддерживаемые типы картинок
func IsImage(contentType string) bool {
	_, ok := extensions[normalizeContentType(contentType)]
	return ok
}

func normalizeContentType(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(ct))
}

// ProofKey ключ скриншота оплаты
func ProofKey(paymentID int64, contentType string) string {
	return path.Join("proofs", fmt.Sprint(paymentID), uuid.NewString()+extensions[normalizeContentType(contentType)])
}

// QRKey ключ QR кода интервьюера
func QRKey(userID int64, contentType string) string {
	return path.Join("qr", fmt.Sprint(userID), uuid.NewString()+extensions[normalizeContentType(contentType)])
}

type object struct {
	data        []byte
	contentType string
}

// MemoryStore держит файлы в памяти, если S3 не настроен
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]object
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]object),
	}
}

func (m *MemoryStore) Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read object body: %w", err)
	}

	m.mu.Lock()
	m.objects[key] = object{data: data, contentType: contentType}
	m.mu.Unlock()

	return key, nil
}

// Get содержимое объекта, ok=false если нет такого ключа
func (m *MemoryStore) Get(key string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, ok := m.objects[key]
	return obj.data, obj.contentType, ok
}

// Len количество сохранённых объектов
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

func (m *MemoryStore) URL(key string) string {
	return m.baseURL + "/" + key
}
