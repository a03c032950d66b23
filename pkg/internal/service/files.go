package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivemini/pkg/internal/storage/s3"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/queue"
)

// PresignExpiry 下载链接有效期.
const PresignExpiry = 15 * time.Minute

// FileService 在存储根路径下浏览与修改文件.
type FileService struct {
	store      ObjectStore
	root       string
	bucket     string
	events     *queue.Emitter
	invalidate Invalidator
	clock      clockwork.Clock
	logger     zerolog.Logger
}

// FileServiceOption 配置 FileService.
type FileServiceOption func(*FileService)

// WithEvents 设置事件发布器.
func WithEvents(e *queue.Emitter) FileServiceOption {
	return func(s *FileService) { s.events = e }
}

// WithInvalidator 设置内容变化后需要清理的响应缓存.
func WithInvalidator(inv Invalidator) FileServiceOption {
	return func(s *FileService) { s.invalidate = inv }
}

// WithClock 注入时钟.
func WithClock(c clockwork.Clock) FileServiceOption {
	return func(s *FileService) { s.clock = c }
}

// NewFileService 创建文件服务，root 为存储根路径（如 "uploads/"）.
func NewFileService(store ObjectStore, root, bucket string, opts ...FileServiceOption) *FileService {
	s := &FileService{
		store:  store,
		root:   root,
		bucket: bucket,
		clock:  clockwork.NewRealClock(),
		logger: log.Component("files"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Root 返回存储根路径.
func (s *FileService) Root() string { return s.root }

func (s *FileService) key(rel string) string { return s.root + rel }

func (s *FileService) rel(key string) string { return strings.TrimPrefix(key, s.root) }

// entry 将存储对象转换为相对路径表示.
func (s *FileService) entry(o s3.ObjectInfo) types.FileEntry {
	e := types.FileEntry{
		Name:         baseName(o.Key),
		Path:         s.rel(o.Key),
		IsDir:        o.IsDir,
		Size:         o.Size,
		LastModified: o.LastModified,
	}

	if o.IsDir {
		e.Type = types.FileTypeFolder
	} else {
		e.Type = ClassifyFile(e.Name)
	}

	return e
}

// List 列出目录的直接子项，隐藏文件夹占位对象.
func (s *FileService) List(ctx context.Context, dir string) (*types.ListFilesResponse, error) {
	rel, err := cleanRel(dir, true)
	if err != nil {
		return nil, err
	}

	objs, err := s.store.List(ctx, s.key(rel), false)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", rel, err)
	}

	resp := &types.ListFilesResponse{
		Path:    rel,
		Folders: []types.FileEntry{},
		Files:   []types.FileEntry{},
	}

	for _, o := range objs {
		e := s.entry(o)

		switch {
		case e.IsDir:
			resp.Folders = append(resp.Folders, e)
		case e.Name == FolderMarker:
			// 占位对象不展示
		default:
			resp.Files = append(resp.Files, e)
		}
	}

	return resp, nil
}

// CreateFolder 在 req.Path 下创建名为 req.Name 的文件夹（写入占位对象）.
func (s *FileService) CreateFolder(ctx context.Context, req *types.CreateFolderRequest) (*types.CreateFolderResponse, error) {
	if err := ValidateName(req.Name); err != nil {
		return nil, err
	}

	parent, err := cleanRel(req.Path, true)
	if err != nil {
		return nil, err
	}

	folder := parent + strings.TrimSpace(req.Name) + "/"

	if err := s.store.Put(ctx, s.key(folder+FolderMarker), bytes.NewReader(nil), 0, "application/octet-stream", nil); err != nil {
		return nil, fmt.Errorf("create folder %q: %w", folder, err)
	}

	s.changed(ctx)
	s.logger.Info().Str("path", folder).Msg("folder created")

	return &types.CreateFolderResponse{Path: folder, CreatedAt: s.clock.Now().UTC()}, nil
}

// Delete 删除一个文件；以 "/" 结尾时删除该文件夹下全部对象.
func (s *FileService) Delete(ctx context.Context, p string) (*types.DeleteResponse, error) {
	rel, err := cleanRel(p, false)
	if err != nil {
		return nil, err
	}

	if rel == "" {
		return nil, fmt.Errorf("%w: refusing to delete the root", ErrInvalidPath)
	}

	var keys []string

	if strings.HasSuffix(rel, "/") {
		objs, err := s.store.List(ctx, s.key(rel), true)
		if err != nil {
			return nil, fmt.Errorf("list %q: %w", rel, err)
		}

		for _, o := range objs {
			keys = append(keys, o.Key)
		}

		if len(keys) == 0 {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
		}
	} else {
		if _, err := s.store.Stat(ctx, s.key(rel)); err != nil {
			return nil, notFound(err)
		}

		keys = []string{s.key(rel)}
	}

	if err := s.store.Remove(ctx, keys...); err != nil {
		return nil, fmt.Errorf("delete %q: %w", rel, err)
	}

	for _, k := range keys {
		if err := s.events.ObjectDeleted(ctx, queue.ObjectDeletedPayload{
			Object: queue.ObjectRef{Bucket: s.bucket, ObjectKey: k},
		}); err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("publish object deleted failed")
		}
	}

	s.changed(ctx)
	s.logger.Info().Str("path", rel).Int("objects", len(keys)).Msg("deleted")

	return &types.DeleteResponse{Deleted: len(keys)}, nil
}

// DownloadURL 生成限时下载链接.
func (s *FileService) DownloadURL(ctx context.Context, p string) (*types.DownloadResponse, error) {
	rel, err := s.filePath(p)
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Stat(ctx, s.key(rel)); err != nil {
		return nil, notFound(err)
	}

	u, err := s.store.PresignGet(ctx, s.key(rel), PresignExpiry)
	if err != nil {
		return nil, err
	}

	return &types.DownloadResponse{URL: u, ExpiresAt: s.clock.Now().Add(PresignExpiry).UTC()}, nil
}

// Open 打开文件内容，调用方负责关闭.
func (s *FileService) Open(ctx context.Context, p string) (io.ReadCloser, s3.ObjectInfo, error) {
	rel, err := s.filePath(p)
	if err != nil {
		return nil, s3.ObjectInfo{}, err
	}

	rc, info, err := s.store.Get(ctx, s.key(rel))
	if err != nil {
		return nil, s3.ObjectInfo{}, notFound(err)
	}

	if info.ContentType == "" {
		info.ContentType = contentType(rel)
	}

	return rc, info, nil
}

// PutContent 覆盖保存文本文件.
func (s *FileService) PutContent(ctx context.Context, req *types.PutContentRequest) (*types.PutContentResponse, error) {
	rel, err := s.filePath(req.Path)
	if err != nil {
		return nil, err
	}

	if err := ValidateName(path.Base(rel)); err != nil {
		return nil, err
	}

	data := []byte(req.Content)

	if err := s.store.Put(ctx, s.key(rel), bytes.NewReader(data), int64(len(data)), contentType(rel), nil); err != nil {
		return nil, fmt.Errorf("save %q: %w", rel, err)
	}

	if err := s.events.ObjectStored(ctx, queue.ObjectStoredPayload{
		Object:   queue.ObjectRef{Bucket: s.bucket, ObjectKey: s.key(rel), Size: int64(len(data)), ContentType: contentType(rel)},
		FileName: path.Base(rel),
	}); err != nil {
		s.logger.Warn().Err(err).Str("path", rel).Msg("publish object stored failed")
	}

	s.changed(ctx)

	return &types.PutContentResponse{Path: rel, Size: int64(len(data))}, nil
}

// filePath 规范化指向文件（而非目录）的路径.
func (s *FileService) filePath(p string) (string, error) {
	rel, err := cleanRel(p, false)
	if err != nil {
		return "", err
	}

	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", fmt.Errorf("%w: %q is not a file", ErrInvalidPath, p)
	}

	return rel, nil
}

// changed 清理响应缓存.
func (s *FileService) changed(ctx context.Context) {
	if s.invalidate == nil {
		return
	}

	if _, err := s.invalidate.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("invalidate response cache failed")
	}
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}

	if t := ClassifyFile(name); t == types.FileTypeDocument || t == types.FileTypeCode {
		return "text/plain; charset=utf-8"
	}

	return "application/octet-stream"
}
