package minio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DRSN-tech/visual-matcher/internal/cfg"
	"github.com/DRSN-tech/visual-matcher/internal/domain"
	"github.com/DRSN-tech/visual-matcher/internal/usecase"
	"github.com/DRSN-tech/visual-matcher/pkg/jitter"
	"github.com/DRSN-tech/visual-matcher/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memRepo struct {
	mu        sync.Mutex
	objects   map[string][]byte
	failOn    string
	deleteErr int // сколько первых удалений завершить ошибкой
	deletes   int
}

func newMemRepo() *memRepo {
	return &memRepo{objects: map[string][]byte{}}
}

func (r *memRepo) Upload(_ context.Context, image *domain.Image) (string, error) {
	if r.failOn != "" && strings.Contains(image.ObjectKey, r.failOn) {
		return "", errors.New("s3 unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[image.ObjectKey] = image.Bytes
	return image.ObjectKey, nil
}

func (r *memRepo) Download(_ context.Context, key string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	data, ok := r.objects[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (r *memRepo) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deletes <= r.deleteErr {
		return errors.New("transient")
	}
	delete(r.objects, key)
	return nil
}

func (r *memRepo) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

func newInfra(repo *memRepo) *MinioInfrastructure {
	m := NewMinioInfrastructure(repo, &cfg.MinIOCfg{BucketName: "catalog", UploadImagesLimit: 2}, logger.NewNop(), context.Background())
	m.cleanupBackoff = jitter.Fixed(time.Millisecond, 0)
	return m
}

func images(names ...string) []usecase.CatalogImage {
	out := make([]usecase.CatalogImage, len(names))
	for i, n := range names {
		out[i] = *usecase.NewCatalogImage([]byte(n), "image/jpeg", int64(len(n)), n+".jpg")
	}
	return out
}

func TestUploadImages_KeysInInputOrder(t *testing.T) {
	repo := newMemRepo()
	m := newInfra(repo)

	res, err := m.UploadImages(context.Background(), usecase.NewUploadImagesReq("shoes", images("red boot", "blue", "green")))
	require.NoError(t, err)

	require.Len(t, res.ImagesKeys, 3)
	assert.True(t, strings.HasPrefix(res.ImagesKeys[0], "shoes/red_boot-"))
	assert.True(t, strings.HasSuffix(res.ImagesKeys[0], ".jpg"))
	assert.True(t, strings.HasPrefix(res.ImagesKeys[1], "shoes/blue-"))
	assert.True(t, strings.HasPrefix(res.ImagesKeys[2], "shoes/green-"))

	data, err := m.DownloadImage(context.Background(), res.ImagesKeys[1])
	require.NoError(t, err)
	assert.Equal(t, []byte("blue"), data)
}

func TestUploadImages_FailureCleansUp(t *testing.T) {
	repo := newMemRepo()
	repo.failOn = "broken"
	m := newInfra(repo)

	_, err := m.UploadImages(context.Background(), usecase.NewUploadImagesReq("shoes", images("a", "broken", "c")))
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitForCleanup(ctx))
	assert.Zero(t, repo.len())
}

func TestUploadImages_UnsupportedMime(t *testing.T) {
	m := newInfra(newMemRepo())
	img := *usecase.NewCatalogImage([]byte("x"), "text/plain", 1, "note.txt")

	_, err := m.UploadImages(context.Background(), usecase.NewUploadImagesReq("misc", []usecase.CatalogImage{img}))
	assert.Error(t, err)
}

func TestCleanupImages_RetriesDelete(t *testing.T) {
	repo := newMemRepo()
	repo.objects["k"] = []byte("v")
	repo.deleteErr = 2
	m := newInfra(repo)

	m.CleanupImages([]string{"k"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, m.WaitForCleanup(ctx))
	assert.Zero(t, repo.len())
	assert.Equal(t, 3, repo.deletes)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "red_boot", objectName("red boot.jpeg"))
	assert.Equal(t, ".hidden", objectName(".hidden"))
}
