package files

import (
	"mime"
	"path/filepath"
	"strings"
)

// OctetStream is served for anything outside the whitelist.
const OctetStream = "application/octet-stream"

// extTypes covers common extensions so the result does not depend on the
// host's mime.types files.
var extTypes = map[string]string{
	".avif": "image/avif",
	".css":  "text/css",
	".csv":  "text/csv",
	".gif":  "image/gif",
	".gz":   "application/gzip",
	".htm":  "text/html",
	".html": "text/html",
	".ico":  "image/x-icon",
	".jpeg": "image/jpeg",
	".jpg":  "image/jpeg",
	".js":   "application/javascript",
	".json": "application/json",
	".md":   "text/markdown",
	".mp3":  "audio/mpeg",
	".mp4":  "video/mp4",
	".oga":  "audio/ogg",
	".ogg":  "audio/ogg",
	".pdf":  "application/pdf",
	".png":  "image/png",
	".svg":  "image/svg+xml",
	".tar":  "application/x-tar",
	".txt":  "text/plain",
	".wav":  "audio/wav",
	".webm": "video/webm",
	".webp": "image/webp",
	".xml":  "application/xml",
	".zip":  "application/zip",
}

// LookupType returns the MIME type for name's extension without parameters,
// or "" when the extension is unknown.
func LookupType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return ""
	}
	t, ok := extTypes[ext]
	if !ok {
		t = mime.TypeByExtension(ext)
	}
	if t == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(t)
	if err != nil {
		return ""
	}
	return mt
}

// ContentType is the type a file named name is served with: its extension
// type when whitelisted, OctetStream otherwise.
func ContentType(name string, whitelist []string) string {
	t := LookupType(name)
	if t == "" {
		return OctetStream
	}
	for _, w := range whitelist {
		if strings.EqualFold(w, t) {
			return t
		}
	}
	return OctetStream
}
