package service

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

const (
	maxImageSize   = 10 * 1024 * 1024
	maxAudioSize   = 20 * 1024 * 1024
	thumbnailWidth = 320
)

// ErrUnsupportedFile 副檔名或大小不符
var ErrUnsupportedFile = errors.New("unsupported file")

// UploadFile 上傳內容與原始檔名
type UploadFile struct {
	Reader   io.Reader
	Filename string
	Size     int64
}

type FileUploadResult struct {
	URL          string
	FilePath     string
	RelativePath string // 相對路徑
	Size         int64
	ThumbnailURL string // 僅圖片且啟用縮圖時
}

// FileUploader 草稿使用的上傳介面
type FileUploader interface {
	UploadImage(ctx context.Context, draftID string, file UploadFile) (*FileUploadResult, error)
	UploadAudio(ctx context.Context, draftID string, file UploadFile) (*FileUploadResult, error)
	DeleteByURL(ctx context.Context, url string) error
}

type FileStorageService struct {
	logger     zerolog.Logger
	uploadPath string
	baseURL    string
	thumbnails bool
}

func NewFileStorageService(logger zerolog.Logger, uploadPath, baseURL string, thumbnails bool) *FileStorageService {
	return &FileStorageService{
		logger:     logger.With().Str("module", "file_storage_service").Logger(),
		uploadPath: uploadPath,
		baseURL:    baseURL,
		thumbnails: thumbnails,
	}
}

// UploadFile 上傳文件到本地存儲
func (fs *FileStorageService) UploadFile(ctx context.Context, file UploadFile, subDir, prefix string) (*FileUploadResult, error) {
	targetDir := filepath.Join(fs.uploadPath, subDir)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return nil, fmt.Errorf("創建目錄失敗: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	uniqueID := uuid.New().String()
	filename := fmt.Sprintf("%s_%s_%d%s", prefix, uniqueID[:8], time.Now().Unix(), ext)
	filePath := filepath.Join(targetDir, filename)

	dst, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("創建文件失敗: %w", err)
	}
	size, err := io.Copy(dst, file.Reader)
	closeErr := dst.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(filePath)
		return nil, fmt.Errorf("保存文件失敗: %w", err)
	}

	relativeURL := strings.ReplaceAll(filepath.Join(subDir, filename), "\\", "/")

	fs.logger.Info().
		Str("filename", filename).
		Int64("size", size).
		Msg("文件上傳成功 (File uploaded)")

	return &FileUploadResult{
		URL:          fs.urlFor(relativeURL),
		FilePath:     filePath,
		RelativePath: relativeURL,
		Size:         size,
	}, nil
}

func (fs *FileStorageService) urlFor(relative string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSuffix(fs.baseURL, "/"), relative)
}

// UploadImage 上傳訂單圖片，存於 images/{draftID}
func (fs *FileStorageService) UploadImage(ctx context.Context, draftID string, file UploadFile) (*FileUploadResult, error) {
	if !isValidImageFile(file.Filename) {
		return nil, fmt.Errorf("不支持的圖片文件格式 %s: %w", filepath.Ext(file.Filename), ErrUnsupportedFile)
	}
	if file.Size > maxImageSize {
		return nil, fmt.Errorf("圖片文件太大 %d bytes: %w", file.Size, ErrUnsupportedFile)
	}

	result, err := fs.UploadFile(ctx, file, filepath.Join("images", draftID), "order_image")
	if err != nil {
		return nil, err
	}

	if fs.thumbnails {
		thumb, err := fs.writeThumbnail(result.FilePath)
		if err != nil {
			// 縮圖失敗不影響原圖
			fs.logger.Warn().Err(err).Str("file", result.RelativePath).Msg("產生縮圖失敗 (Thumbnail generation failed)")
		} else {
			result.ThumbnailURL = fs.urlFor(strings.ReplaceAll(thumb, "\\", "/"))
		}
	}
	return result, nil
}

// UploadAudio 上傳語音備註，存於 audio/{draftID}
func (fs *FileStorageService) UploadAudio(ctx context.Context, draftID string, file UploadFile) (*FileUploadResult, error) {
	if !isValidAudioFile(file.Filename) {
		return nil, fmt.Errorf("不支持的音頻文件格式 %s: %w", filepath.Ext(file.Filename), ErrUnsupportedFile)
	}
	if file.Size > maxAudioSize {
		return nil, fmt.Errorf("音頻文件太大 %d bytes: %w", file.Size, ErrUnsupportedFile)
	}
	return fs.UploadFile(ctx, file, filepath.Join("audio", draftID), "order_audio")
}

// writeThumbnail 產生等比例縮小的 webp，回傳相對路徑
func (fs *FileStorageService) writeThumbnail(srcPath string) (string, error) {
	f, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return "", fmt.Errorf("解碼圖片失敗: %w", err)
	}

	b := src.Bounds()
	width, height := b.Dx(), b.Dy()
	if width > thumbnailWidth {
		height = height * thumbnailWidth / width
		width = thumbnailWidth
	}
	if height < 1 {
		height = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)

	thumbPath := strings.TrimSuffix(srcPath, filepath.Ext(srcPath)) + "_thumb.webp"
	out, err := os.Create(thumbPath)
	if err != nil {
		return "", err
	}
	if err := webp.Encode(out, dst, &webp.Options{Quality: 75}); err != nil {
		out.Close()
		os.Remove(thumbPath)
		return "", fmt.Errorf("編碼 webp 失敗: %w", err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}

	rel, err := filepath.Rel(fs.uploadPath, thumbPath)
	if err != nil {
		return "", err
	}
	return rel, nil
}

// DeleteFile 刪除文件
func (fs *FileStorageService) DeleteFile(ctx context.Context, relativePath string) error {
	fullPath := filepath.Join(fs.uploadPath, filepath.Clean("/"+relativePath))

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			fs.logger.Warn().Str("file_path", fullPath).Msg("要刪除的文件不存在")
			return nil
		}
		return fmt.Errorf("刪除文件失敗: %w", err)
	}

	fs.logger.Info().Str("file_path", fullPath).Msg("文件已刪除")
	return nil
}

// RelativePathFromURL 由公開網址取回相對路徑，非本服務網址回傳空字串
func (fs *FileStorageService) RelativePathFromURL(url string) string {
	prefix := strings.TrimSuffix(fs.baseURL, "/") + "/"
	if !strings.HasPrefix(url, prefix) {
		return ""
	}
	return strings.TrimPrefix(url, prefix)
}

// DeleteByURL 刪除本服務上傳的文件，外部網址略過
func (fs *FileStorageService) DeleteByURL(ctx context.Context, url string) error {
	rel := fs.RelativePathFromURL(url)
	if rel == "" {
		return nil
	}
	return fs.DeleteFile(ctx, rel)
}

// InitializeUploadDirectories 初始化上傳目錄
func (fs *FileStorageService) InitializeUploadDirectories() error {
	for _, dir := range []string{"images", "audio"} {
		fullDir := filepath.Join(fs.uploadPath, dir)
		if err := os.MkdirAll(fullDir, 0755); err != nil {
			return fmt.Errorf("創建目錄 %s 失敗: %w", fullDir, err)
		}
	}
	return nil
}

func isValidAudioFile(filename string) bool {
	return hasExt(filename, ".mp3", ".wav", ".m4a", ".aac", ".ogg", ".webm", ".flac")
}

func isValidImageFile(filename string) bool {
	return hasExt(filename, ".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp")
}

func hasExt(filename string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
