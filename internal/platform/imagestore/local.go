package imagestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const tempPrefix = ".upload-"

type Config struct {
	// Root is the flat directory holding every blob.
	Root string
	// URLPrefix is prepended to blob names to form refs, e.g. "/uploads".
	URLPrefix     string
	StoreTimeout  time.Duration
	DeleteTimeout time.Duration
}

// LocalStore keeps blobs as files named <uuid><ext> directly under Root.
type LocalStore struct {
	log           *logger.Logger
	root          string
	urlPrefix     string
	storeTimeout  time.Duration
	deleteTimeout time.Duration
}

var _ Store = (*LocalStore)(nil)

func NewLocalStore(log *logger.Logger, cfg Config) (*LocalStore, error) {
	if log == nil {
		log = logger.Nop()
	}
	raw := strings.TrimSpace(cfg.Root)
	if raw == "" {
		return nil, &BootstrapError{Code: BootstrapErrorInvalidRoot, Root: raw, Cause: errors.New("upload dir is empty")}
	}
	root, err := filepath.Abs(raw)
	if err != nil {
		return nil, &BootstrapError{Code: BootstrapErrorInvalidRoot, Root: raw, Cause: err}
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, &BootstrapError{Code: BootstrapErrorCreateFailed, Root: root, Cause: err}
	}
	probe, err := os.CreateTemp(root, tempPrefix+"probe-*")
	if err != nil {
		return nil, &BootstrapError{Code: BootstrapErrorNotWritable, Root: root, Cause: err}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	prefix := "/" + strings.Trim(strings.TrimSpace(cfg.URLPrefix), "/")
	if prefix == "/" {
		prefix = "/uploads"
	}
	storeTimeout := cfg.StoreTimeout
	if storeTimeout <= 0 {
		storeTimeout = 2 * time.Minute
	}
	deleteTimeout := cfg.DeleteTimeout
	if deleteTimeout <= 0 {
		deleteTimeout = 30 * time.Second
	}
	s := &LocalStore{
		log:           log.With("service", "LocalImageStore"),
		root:          root,
		urlPrefix:     prefix,
		storeTimeout:  storeTimeout,
		deleteTimeout: deleteTimeout,
	}
	s.log.Info("Image store ready", "root", root, "url_prefix", prefix)
	return s, nil
}

func (s *LocalStore) Root() string      { return s.root }
func (s *LocalStore) URLPrefix() string { return s.urlPrefix }

func (s *LocalStore) Store(ctx context.Context, content io.Reader, originalName string) (ref string, err error) {
	ctx, span := otel.Tracer("imagestore").Start(ctx, "imagestore.Store")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if content == nil {
		return "", &Error{Op: "store", Err: ErrEmptyContent}
	}
	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	name := uuid.New().String() + extensionOf(originalName)
	dest, err := s.resolve(name)
	if err != nil {
		return "", &Error{Op: "store", Err: err}
	}
	span.SetAttributes(attribute.String("imagestore.name", name))

	tmp, err := os.CreateTemp(s.root, tempPrefix+"*")
	if err != nil {
		return "", &Error{Op: "store", Err: fmt.Errorf("create temp file: %w", err)}
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, &ctxReader{ctx: ctx, r: content})
	if err != nil {
		return "", &Error{Op: "store", Err: fmt.Errorf("write blob: %w", err)}
	}
	if n == 0 {
		return "", &Error{Op: "store", Err: ErrEmptyContent}
	}
	if err := tmp.Sync(); err != nil {
		return "", &Error{Op: "store", Err: fmt.Errorf("sync blob: %w", err)}
	}
	if err := tmp.Close(); err != nil {
		return "", &Error{Op: "store", Err: fmt.Errorf("close blob: %w", err)}
	}
	if err := ctx.Err(); err != nil {
		return "", &Error{Op: "store", Err: err}
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return "", &Error{Op: "store", Err: fmt.Errorf("publish blob: %w", err)}
	}
	committed = true
	span.SetAttributes(attribute.Int64("imagestore.bytes", n))
	return s.urlPrefix + "/" + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, ref string) (err error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	ctx, span := otel.Tracer("imagestore").Start(ctx, "imagestore.Delete")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.deleteTimeout)
	defer cancel()

	path, err := s.PathOf(ref)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &Error{Op: "delete", Ref: ref, Err: err}
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return &Error{Op: "delete", Ref: ref, Err: err}
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, ref string) (bool, error) {
	_, ok, err := s.Stat(ctx, ref)
	return ok, err
}

func (s *LocalStore) Stat(ctx context.Context, ref string) (BlobInfo, bool, error) {
	path, err := s.PathOf(ref)
	if err != nil {
		return BlobInfo{}, false, err
	}
	if err := ctx.Err(); err != nil {
		return BlobInfo{}, false, err
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return BlobInfo{}, false, nil
	case err != nil:
		return BlobInfo{}, false, &Error{Op: "stat", Ref: ref, Err: err}
	case !info.Mode().IsRegular():
		return BlobInfo{}, false, nil
	}
	return BlobInfo{Ref: strings.TrimSpace(ref), Size: info.Size(), ModTime: info.ModTime()}, true, nil
}

// PathOf resolves a ref carrying this store's url prefix to its file path.
func (s *LocalStore) PathOf(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if !strings.HasPrefix(ref, s.urlPrefix+"/") {
		return "", &Error{Op: "resolve", Ref: ref, Err: ErrInvalidRef}
	}
	path, err := s.resolve(strings.TrimPrefix(ref, s.urlPrefix+"/"))
	if err != nil {
		return "", &Error{Op: "resolve", Ref: ref, Err: err}
	}
	return path, nil
}

func (s *LocalStore) List(ctx context.Context) ([]BlobInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &Error{Op: "list", Err: err}
	}
	out := make([]BlobInfo, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() || strings.HasPrefix(e.Name(), tempPrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, BlobInfo{
			Ref:     s.urlPrefix + "/" + e.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}
	return out, nil
}

// resolve joins name onto the root and rejects anything that is not a direct child.
func (s *LocalStore) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", ErrOutsideRoot
	}
	path := filepath.Clean(filepath.Join(s.root, name))
	if filepath.Dir(path) != s.root {
		return "", ErrOutsideRoot
	}
	return path, nil
}

// extensionOf returns a lowercase ".ext" made only of letters and digits, or "".
func extensionOf(originalName string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(originalName), `\`, "/"))
	ext := strings.ToLower(filepath.Ext(base))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// ContentTypeFor guesses a content type from a ref's extension.
func ContentTypeFor(ref string) string {
	switch strings.ToLower(filepath.Ext(ref)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	default:
		return ""
	}
}
