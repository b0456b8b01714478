// Package utils holds the filesystem helpers of the better-cover CLI.
package utils

import (
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// decodable lists the extensions processing.LoadImage can read
var decodable = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "webp": true,
	"gif": true, "bmp": true, "tif": true, "tiff": true,
}

func extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// IsURL reports whether in names a remote image
func IsURL(in string) bool {
	return strings.HasPrefix(in, "http://") || strings.HasPrefix(in, "https://")
}

// OutputPath names the rendered file for in, which is a path or URL:
// <dir>/<name><suffix>.<format>. An empty format keeps the input extension
// and falls back to jpg.
func OutputPath(in, dir, suffix, format string) string {
	name := filepath.Base(in)
	if IsURL(in) {
		name = "image"
		if u, err := url.Parse(in); err == nil && path.Base(u.Path) != "/" && path.Base(u.Path) != "." {
			name = path.Base(u.Path)
		}
	}

	if format == "" {
		format = extension(name)
		if !decodable[format] {
			format = "jpg"
		}
	}
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(dir, fmt.Sprintf("%s%s.%s", stem, suffix, strings.ToLower(format)))
}

// EnsureParentDir creates the directory that will hold file
func EnsureParentDir(file string) error {
	return os.MkdirAll(filepath.Dir(file), 0755)
}

// ListImageFiles walks dir and returns the images it can decode in lexical
// order. Hidden directories are skipped.
func ListImageFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if decodable[extension(p)] {
			files = append(files, p)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// FileExists reports whether name is an existing regular file
func FileExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether name is an existing directory
func DirExists(name string) bool {
	info, err := os.Stat(name)
	return err == nil && info.IsDir()
}

// FormatFileSize renders size with a binary unit, e.g. "12.3 KB"
func FormatFileSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}
	v := float64(size)
	for _, u := range []string{"KB", "MB", "GB", "TB"} {
		v /= 1024
		if v < 1024 || u == "TB" {
			return fmt.Sprintf("%.1f %s", v, u)
		}
	}
	return ""
}
