package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
)

// FileSystem は実ファイルシステムと任意のfs.FSを統一的に扱うインターフェース
type FileSystem interface {
	// ReadFile はファイルの内容を読み込む（大文字小文字を無視）
	ReadFile(name string) ([]byte, error)
	// Resolve は大文字小文字を無視してファイルを検索し、実際のパスを返す
	Resolve(name string) (string, error)
}

// RealFS は実ファイルシステムへのアクセスを提供する
type RealFS struct{}

// NewRealFS は実ファイルシステム用のFileSystemを作成する
func NewRealFS() *RealFS {
	return &RealFS{}
}

func (RealFS) ReadFile(name string) ([]byte, error) {
	actual, err := RealFS{}.Resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(actual)
}

func (RealFS) Resolve(name string) (string, error) {
	// まず直接アクセスを試みる
	if _, err := os.Stat(name); err == nil || !errors.Is(err, fs.ErrNotExist) {
		return name, err
	}
	return FindFileCaseInsensitive(filepath.Dir(name), filepath.Base(name))
}

// FSys はfs.FS（embed.FSやfstest.MapFSなど）へのアクセスを提供する
type FSys struct {
	fsys fs.FS
}

// NewFSys はfs.FS用のFileSystemを作成する
func NewFSys(fsys fs.FS) *FSys {
	return &FSys{fsys: fsys}
}

func (f *FSys) ReadFile(name string) ([]byte, error) {
	actual, err := f.Resolve(name)
	if err != nil {
		return nil, err
	}
	return fs.ReadFile(f.fsys, actual)
}

func (f *FSys) Resolve(name string) (string, error) {
	// fs.FSでは "/" を使用
	name = path.Clean(filepath.ToSlash(name))
	if _, err := fs.Stat(f.fsys, name); err == nil {
		return name, nil
	}
	return FindFileCaseInsensitiveFS(f.fsys, path.Dir(name), path.Base(name))
}
