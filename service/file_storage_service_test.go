package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFileStorageUploadImage(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileStorageService(testLogger, dir, "http://localhost:8090/uploads", true)
	require.NoError(t, fs.InitializeUploadDirectories())

	data := pngBytes(t, 640, 320)
	res, err := fs.UploadImage(context.Background(), "draft01", UploadFile{
		Reader: bytes.NewReader(data), Filename: "Photo.PNG", Size: int64(len(data)),
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(res.URL, "http://localhost:8090/uploads/images/draft01/order_image_"))
	assert.True(t, strings.HasSuffix(res.URL, ".png"))
	assert.Equal(t, int64(len(data)), res.Size)
	assert.FileExists(t, res.FilePath)

	require.NotEmpty(t, res.ThumbnailURL)
	assert.True(t, strings.HasSuffix(res.ThumbnailURL, "_thumb.webp"))
	thumbPath := filepath.Join(dir, fs.RelativePathFromURL(res.ThumbnailURL))
	assert.FileExists(t, thumbPath)

	require.NoError(t, fs.DeleteByURL(context.Background(), res.URL))
	_, err = os.Stat(res.FilePath)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorageRejectsUnsupported(t *testing.T) {
	fs := NewFileStorageService(testLogger, t.TempDir(), "http://localhost/uploads", false)

	_, err := fs.UploadImage(context.Background(), "d", UploadFile{Reader: strings.NewReader("x"), Filename: "doc.pdf", Size: 1})
	assert.True(t, errors.Is(err, ErrUnsupportedFile))

	_, err = fs.UploadImage(context.Background(), "d", UploadFile{Reader: strings.NewReader("x"), Filename: "big.jpg", Size: maxImageSize + 1})
	assert.True(t, errors.Is(err, ErrUnsupportedFile))

	_, err = fs.UploadAudio(context.Background(), "d", UploadFile{Reader: strings.NewReader("x"), Filename: "memo.txt", Size: 1})
	assert.True(t, errors.Is(err, ErrUnsupportedFile))

	res, err := fs.UploadAudio(context.Background(), "d", UploadFile{Reader: strings.NewReader("x"), Filename: "memo.m4a", Size: 1})
	require.NoError(t, err)
	assert.Empty(t, res.ThumbnailURL)
}

func TestFileStorageThumbnailFailureKeepsUpload(t *testing.T) {
	fs := NewFileStorageService(testLogger, t.TempDir(), "http://localhost/uploads", true)
	res, err := fs.UploadImage(context.Background(), "d", UploadFile{Reader: strings.NewReader("not an image"), Filename: "broken.png", Size: 12})
	require.NoError(t, err)
	assert.Empty(t, res.ThumbnailURL)
	assert.FileExists(t, res.FilePath)
}

func TestFileStorageDeleteByURL(t *testing.T) {
	fs := NewFileStorageService(testLogger, t.TempDir(), "http://localhost/uploads", false)
	// 外部網址與不存在的檔案皆略過
	assert.NoError(t, fs.DeleteByURL(context.Background(), "https://cdn.example.com/a.png"))
	assert.NoError(t, fs.DeleteByURL(context.Background(), "http://localhost/uploads/images/x/missing.png"))
	assert.Equal(t, "", fs.RelativePathFromURL("https://cdn.example.com/a.png"))
}
