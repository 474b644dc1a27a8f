package control

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/logging"
	"github.com/alexandervaneck/lambda-ai-cloud-api-client/internal/remote"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
)

// fileSystem is the part of a file tree mirror needs, local or remote.
type fileSystem interface {
	Stat(p string) (os.FileInfo, error)
	ReadDir(p string) ([]os.FileInfo, error)
	MkdirAll(p string) error
	Open(p string) (io.ReadCloser, error)
	Create(p string) (io.WriteCloser, error)
	Chmod(p string, mode os.FileMode) error
	RemoveAll(p string) error
	Join(elem ...string) string
}

type localFS struct{}

func (localFS) Stat(p string) (os.FileInfo, error) { return os.Stat(p) }

func (localFS) ReadDir(p string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (localFS) MkdirAll(p string) error                 { return os.MkdirAll(p, 0755) }
func (localFS) Open(p string) (io.ReadCloser, error)    { return os.Open(p) }
func (localFS) Create(p string) (io.WriteCloser, error) { return os.Create(p) }
func (localFS) Chmod(p string, mode os.FileMode) error  { return os.Chmod(p, mode) }
func (localFS) RemoveAll(p string) error                { return os.RemoveAll(p) }
func (localFS) Join(elem ...string) string              { return filepath.Join(elem...) }

type sftpFS struct{ c *sftp.Client }

func (f sftpFS) Stat(p string) (os.FileInfo, error)      { return f.c.Stat(p) }
func (f sftpFS) ReadDir(p string) ([]os.FileInfo, error) { return f.c.ReadDir(p) }
func (f sftpFS) MkdirAll(p string) error                 { return f.c.MkdirAll(p) }
func (f sftpFS) Open(p string) (io.ReadCloser, error)    { return f.c.Open(p) }
func (f sftpFS) Create(p string) (io.WriteCloser, error) { return f.c.Create(p) }
func (f sftpFS) Chmod(p string, mode os.FileMode) error  { return f.c.Chmod(p, mode) }
func (f sftpFS) RemoveAll(p string) error                { return f.c.RemoveAll(p) }
func (f sftpFS) Join(elem ...string) string              { return path.Join(elem...) }

type stats struct {
	filesCopied int64
	dirsCreated int64
	removed     int64
	totalBytes  int64
}

// mirror makes dstPath identical to srcPath. A directory source has its
// contents mirrored into dstPath and extraneous destination entries
// removed, except those the ignore matcher protects.
func mirror(src, dst fileSystem, srcPath, dstPath string, ignore *remote.IgnoreMatcher) (stats, error) {
	var st stats
	info, err := src.Stat(srcPath)
	if err != nil {
		return st, fmt.Errorf("failed to stat %s: %w", srcPath, err)
	}

	if !info.IsDir() {
		if dstInfo, err := dst.Stat(dstPath); err == nil && dstInfo.IsDir() {
			dstPath = dst.Join(dstPath, path.Base(filepath.ToSlash(srcPath)))
		}
		n, err := copyFile(src, dst, srcPath, dstPath, info.Mode())
		if err != nil {
			return st, err
		}
		st.filesCopied++
		st.totalBytes += n
		return st, nil
	}

	err = mirrorDir(src, dst, srcPath, dstPath, "", ignore, &st)
	return st, err
}

func mirrorDir(src, dst fileSystem, srcDir, dstDir, rel string, ignore *remote.IgnoreMatcher, st *stats) error {
	if err := dst.MkdirAll(dstDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dstDir, err)
	}

	existing := map[string]os.FileInfo{}
	dstEntries, err := dst.ReadDir(dstDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", dstDir, err)
	}
	for _, e := range dstEntries {
		existing[e.Name()] = e
	}

	srcEntries, err := src.ReadDir(srcDir)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", srcDir, err)
	}

	keep := map[string]bool{}
	for _, e := range srcEntries {
		name := e.Name()
		childRel := path.Join(rel, name)
		if ignore.Match(childRel, e.IsDir()) {
			continue
		}
		if !e.IsDir() && !e.Mode().IsRegular() {
			logging.Logger().Debug("skipping non-regular file", zap.String("path", childRel))
			continue
		}
		keep[name] = true

		srcChild, dstChild := src.Join(srcDir, name), dst.Join(dstDir, name)
		// a file where a directory should be, or the reverse
		if prev, ok := existing[name]; ok && prev.IsDir() != e.IsDir() {
			if err := dst.RemoveAll(dstChild); err != nil {
				return fmt.Errorf("failed to replace %s: %w", dstChild, err)
			}
			st.removed++
		}

		if e.IsDir() {
			if _, ok := existing[name]; !ok {
				st.dirsCreated++
			}
			if err := mirrorDir(src, dst, srcChild, dstChild, childRel, ignore, st); err != nil {
				return err
			}
			continue
		}

		n, err := copyFile(src, dst, srcChild, dstChild, e.Mode())
		if err != nil {
			return err
		}
		st.filesCopied++
		st.totalBytes += n
	}

	for name, e := range existing {
		if keep[name] || ignore.Match(path.Join(rel, name), e.IsDir()) {
			continue
		}
		if err := dst.RemoveAll(dst.Join(dstDir, name)); err != nil {
			return fmt.Errorf("failed to remove %s: %w", dst.Join(dstDir, name), err)
		}
		st.removed++
	}
	return nil
}

// copyFile copies a single file between file systems
func copyFile(src, dst fileSystem, srcPath, dstPath string, fileMode os.FileMode) (int64, error) {
	in, err := src.Open(srcPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", srcPath, err)
	}
	defer safeClose("source file", in.Close)

	out, err := dst.Create(dstPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dstPath, err)
	}

	bytesWritten, err := io.Copy(out, in)
	if err != nil {
		safeClose("destination file", out.Close)
		return 0, fmt.Errorf("failed to copy file content: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", dstPath, err)
	}

	if err := dst.Chmod(dstPath, fileMode.Perm()); err != nil {
		logging.Logger().Warn("failed to set file permissions",
			zap.String("path", dstPath),
			zap.Error(err))
	}

	return bytesWritten, nil
}
