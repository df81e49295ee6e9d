package transcription

import (
	"mime"
	"path/filepath"
	"strings"
)

// DefaultExtensions are the accepted upload file extensions.
var DefaultExtensions = []string{".mp3", ".wav", ".m4a", ".ogg", ".flac", ".webm", ".aac"}

// DefaultContentTypes are the accepted declared upload media types.
var DefaultContentTypes = []string{
	"audio/mp3", "audio/mpeg", "audio/mp4", "audio/wav", "audio/x-wav",
	"audio/ogg", "audio/flac", "audio/webm", "audio/aac", "audio/x-m4a",
}

// ValidateAudioFormat checks the file extension against allowed.
func ValidateAudioFormat(filename string, allowed []string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return false
	}

	for _, format := range allowed {
		if ext == strings.ToLower(format) {
			return true
		}
	}
	return false
}

// ValidateContentType checks a declared Content-Type header against allowed.
// Parameters such as charset are ignored.
func ValidateContentType(contentType string, allowed []string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	for _, ct := range allowed {
		if mediaType == strings.ToLower(ct) {
			return true
		}
	}
	return false
}

// ContentTypeForExtension guesses the media type of a file that arrived
// without one, such as inbox drops and websocket streams.
func ContentTypeForExtension(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/x-m4a"
	case ".ogg":
		return "audio/ogg"
	case ".flac":
		return "audio/flac"
	case ".webm":
		return "audio/webm"
	case ".aac":
		return "audio/aac"
	default:
		return "application/octet-stream"
	}
}
