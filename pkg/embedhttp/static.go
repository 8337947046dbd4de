package embedhttp

import (
	"path"
	"path/filepath"
	"strings"
)

// IndexFile is served for "/".
const IndexFile = "/index.html"

var mimeByExt = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".png":  "image/png",
	".jpg":  "image/jpg",
}

// MIMEType infers a static file's content type from its extension, falling
// back to text/plain.
func MIMEType(name string) string {
	if mime, ok := mimeByExt[path.Ext(name)]; ok {
		return mime
	}
	return MIMEText
}

// staticPath maps a request path onto the base directory. Paths that could
// escape the directory are rejected and answered as missing files.
func staticPath(baseDir, reqPath string) (string, bool) {
	if strings.IndexByte(reqPath, 0) != -1 || strings.Contains(reqPath, "\\") {
		return "", false
	}
	for _, seg := range strings.Split(reqPath, "/") {
		if seg == ".." {
			return "", false
		}
	}
	return filepath.Join(baseDir, filepath.FromSlash(reqPath)), true
}
