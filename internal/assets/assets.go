package assets

import (
	"encoding/base64"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/farxc/informes-obras/internal/logger"
	"github.com/farxc/informes-obras/internal/report/types"
)

// Bundle holds the static resources shared by every report, as data URIs.
type Bundle struct {
	Banner      string
	Footer      string
	Arrow       string
	FontRegular string
	FontBold    string
}

var bundleFiles = map[string]string{
	"banner":       filepath.Join("images", "banner.jpg"),
	"footer":       filepath.Join("images", "footer.jpg"),
	"doble_flecha": filepath.Join("images", "doble_flecha.jpg"),
	"regular":      filepath.Join("fonts", "EncodeSans-Regular.ttf"),
	"bold":         filepath.Join("fonts", "EncodeSans-Bold.ttf"),
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// LoadBundle reads the static resources under dir. Missing files are
// logged and left blank so a report can still be rendered without them.
func LoadBundle(dir string, appLogger *logger.Logger) Bundle {
	const component = "Assets"

	load := func(key string) string {
		path := filepath.Join(dir, bundleFiles[key])
		uri, err := DataURI(path)
		if err != nil {
			appLogger.Warn(component, "Resource not available: name=%s path=%s error=%v", key, path, err)
			return ""
		}
		return uri
	}

	b := Bundle{
		Banner:      load("banner"),
		Footer:      load("footer"),
		Arrow:       load("doble_flecha"),
		FontRegular: load("regular"),
		FontBold:    load("bold"),
	}
	appLogger.Info(component, "Resource bundle loaded: dir=%s", dir)
	return b
}

// DataURI embeds a file as a base64 data URI.
func DataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return "data:" + mimeType(path) + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func mimeType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ttf":
		return "font/ttf"
	case ".otf":
		return "font/otf"
	case ".woff2":
		return "font/woff2"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}

// Finder locates the photos of each project under a root directory. Photos
// live either in a folder named after the project or as files whose name
// starts with the project id.
type Finder struct {
	root string
	log  *logger.Logger
}

func NewFinder(root string, appLogger *logger.Logger) *Finder {
	return &Finder{root: root, log: appLogger}
}

// Images returns the principal photo and the extra ones. A file whose name
// contains "principal" wins the principal slot, otherwise the first file
// in name order does.
func (f *Finder) Images(projectID string) types.ProjectImages {
	const component = "ImageFinder"

	images := types.ProjectImages{Extra: []string{}}
	id := SafeName(strings.TrimSpace(projectID))
	if f == nil || f.root == "" || id == "" {
		return images
	}

	paths := f.collect(id)
	if len(paths) == 0 {
		f.log.Debug(component, "No images found: id=%s", projectID)
		return images
	}

	principal := 0
	for i, p := range paths {
		if strings.Contains(strings.ToLower(filepath.Base(p)), "principal") {
			principal = i
			break
		}
	}

	for i, p := range paths {
		uri, err := DataURI(p)
		if err != nil {
			f.log.Warn(component, "Image not readable: path=%s error=%v", p, err)
			continue
		}
		if i == principal {
			images.Principal = uri
			continue
		}
		images.Extra = append(images.Extra, uri)
	}
	return images
}

func (f *Finder) collect(id string) []string {
	var paths []string

	if entries, err := os.ReadDir(filepath.Join(f.root, id)); err == nil {
		for _, e := range entries {
			if !e.IsDir() && imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
				paths = append(paths, filepath.Join(f.root, id, e.Name()))
			}
		}
	}

	if entries, err := os.ReadDir(f.root); err == nil {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !imageExtensions[strings.ToLower(filepath.Ext(name))] {
				continue
			}
			stem := strings.TrimSuffix(name, filepath.Ext(name))
			if stem == id || strings.HasPrefix(stem, id+"_") || strings.HasPrefix(stem, id+" ") {
				paths = append(paths, filepath.Join(f.root, name))
			}
		}
	}

	sort.Strings(paths)
	return paths
}

// SafeName drops the characters that are not allowed in file names.
func SafeName(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/*?:"<>|`, r) {
			return -1
		}
		return r
	}, s)
}
