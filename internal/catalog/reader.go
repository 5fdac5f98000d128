// Package catalog reads the product catalog: a remote spreadsheet feed paired
// by position with a local tree of per-product image folders.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"oahushop/internal/models"
)

// SentinelImage is a placeholder asset kept in product folders but never displayed.
const SentinelImage = "ㅎ.jpg"

const imageExt = ".jpg"

// ErrNotFound is returned for unknown product folders or images.
var ErrNotFound = errors.New("catalog: not found")

// Options configures a Reader.
type Options struct {
	FeedURL   string
	ImageRoot string
	Timeout   time.Duration
	Retries   int
	Client    *http.Client
}

// Reader serves catalog reads. Its feed cache is process-wide and only
// invalidated by ClearCache.
type Reader struct {
	feedURL    string
	imageRoot  string
	client     *http.Client
	retries    int
	newBackOff func() backoff.BackOff

	mu     sync.Mutex
	cached *Feed
}

func NewReader(opts Options) *Reader {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Reader{
		feedURL:   opts.FeedURL,
		imageRoot: opts.ImageRoot,
		client:    client,
		retries:   retries,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 300 * time.Millisecond
			b.MaxElapsedTime = 5 * time.Second
			return b
		},
	}
}

// ImageRoot returns the configured image directory.
func (r *Reader) ImageRoot() string {
	return r.imageRoot
}

// ListProductFolders returns the immediate sub-directories of the image root,
// sorted by name. A missing root yields an empty list.
func (r *Reader) ListProductFolders() ([]string, error) {
	entries, err := os.ReadDir(r.imageRoot)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list product folders: %w", err)
	}
	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			folders = append(folders, e.Name())
		}
	}
	sort.Strings(folders)
	return folders, nil
}

// ListFolderImages returns the .jpg files directly inside folder, sorted by
// name, without the sentinel image.
func (r *Reader) ListFolderImages(folder string) ([]string, error) {
	dir, err := r.folderPath(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("list images of %s: %w", folder, err)
	}
	images := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != imageExt || name == SentinelImage {
			continue
		}
		images = append(images, name)
	}
	sort.Strings(images)
	return images, nil
}

// PickThumbnail returns the second image when there are at least two (the
// first is usually a size chart), else the first, else false.
func (r *Reader) PickThumbnail(folder string) (string, bool) {
	images, err := r.ListFolderImages(folder)
	if err != nil {
		return "", false
	}
	return Thumbnail(images)
}

// Thumbnail applies the thumbnail convention to an already sorted image list.
func Thumbnail(images []string) (string, bool) {
	switch {
	case len(images) >= 2:
		return images[1], true
	case len(images) == 1:
		return images[0], true
	default:
		return "", false
	}
}

// Join pairs the i-th sorted folder with the i-th feed row. Indexes beyond the
// feed get fallback labels; it never reads out of range.
func Join(folders []string, feed Feed) []models.Product {
	products := make([]models.Product, 0, len(folders))
	for i, folder := range folders {
		name, variant, price, fromFeed := feed.Describe(i, folder)
		products = append(products, models.Product{
			ID:       folder,
			Index:    i,
			Name:     name,
			Variant:  variant,
			Price:    price,
			FromFeed: fromFeed,
		})
	}
	return products
}

// Products builds the full product list with images and thumbnails.
func (r *Reader) Products(ctx context.Context) ([]models.Product, Feed, error) {
	feed := r.FetchProducts(ctx)
	folders, err := r.ListProductFolders()
	if err != nil {
		return nil, feed, err
	}
	products := Join(folders, feed)
	for i := range products {
		images, err := r.ListFolderImages(products[i].ID)
		if err != nil {
			images = []string{}
		}
		products[i].Images = images
		products[i].Thumbnail, _ = Thumbnail(images)
	}
	return products, feed, nil
}

// Product returns the product stored in folder id.
func (r *Reader) Product(ctx context.Context, id string) (models.Product, Feed, error) {
	products, feed, err := r.Products(ctx)
	if err != nil {
		return models.Product{}, feed, err
	}
	for _, p := range products {
		if p.ID == id {
			return p, feed, nil
		}
	}
	return models.Product{}, feed, ErrNotFound
}

// Probe reports whether the image decodes as a picture.
func (r *Reader) Probe(folder, file string) bool {
	f, err := r.OpenImage(folder, file)
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}

// OpenImage opens a displayable image of folder. Only files ListFolderImages
// would return can be opened.
func (r *Reader) OpenImage(folder, file string) (*os.File, error) {
	images, err := r.ListFolderImages(folder)
	if err != nil {
		return nil, err
	}
	i := sort.SearchStrings(images, file)
	if i >= len(images) || images[i] != file {
		return nil, ErrNotFound
	}
	dir, _ := r.folderPath(folder)
	return os.Open(filepath.Join(dir, file))
}

func (r *Reader) folderPath(folder string) (string, error) {
	if folder == "" || folder == "." || folder == ".." || strings.ContainsAny(folder, `/\`) {
		return "", ErrNotFound
	}
	return filepath.Join(r.imageRoot, folder), nil
}
