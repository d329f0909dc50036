package upload

import (
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ronit111/documind/types"
)

// FileFromPath describes a local file for upload.
// The declared media type follows the extension. The content is sniffed
// separately so Validate can reject a file whose bytes disagree with it.
func FileFromPath(path string) (types.FileRef, error) {
	info, err := os.Stat(path)
	if err != nil {
		return types.FileRef{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return types.FileRef{}, fmt.Errorf("%s is a directory", path)
	}

	sniffed := ""
	if info.Size() > 0 {
		mtype, err := mimetype.DetectFile(path)
		if err != nil {
			return types.FileRef{}, fmt.Errorf("detect media type of %s: %w", path, err)
		}
		sniffed = mtype.String()
	}

	return types.FileRef{
		Name:        filepath.Base(path),
		MediaType:   mime.TypeByExtension(filepath.Ext(path)),
		SniffedType: sniffed,
		Size:        info.Size(),
		Path:        path,
		Open: func() (io.ReadCloser, error) {
			return os.Open(path)
		},
	}, nil
}

// FilesFromPaths describes each path, stopping at the first error.
func FilesFromPaths(paths []string) ([]types.FileRef, error) {
	files := make([]types.FileRef, 0, len(paths))
	for _, p := range paths {
		f, err := FileFromPath(p)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}
