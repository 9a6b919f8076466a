package models

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
)

var imageRefPattern = regexp.MustCompile(`data:image/[a-zA-Z0-9.+-]+;base64,[A-Za-z0-9+/=]+`)

// EncodeImageRef packs raw image bytes into a data-URI reference
func EncodeImageRef(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeImageRef unpacks a data-URI reference into its MIME type and raw bytes
func DecodeImageRef(ref string) (string, []byte, error) {
	if !strings.HasPrefix(ref, "data:") {
		return "", nil, fmt.Errorf("invalid image reference: missing data scheme")
	}
	rest := strings.TrimPrefix(ref, "data:")
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, fmt.Errorf("invalid image reference: missing base64 payload")
	}
	mimeType := rest[:sep]
	data, err := base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, fmt.Errorf("error decoding image reference: %v", err)
	}
	return mimeType, data, nil
}

// ExtractImageRef pulls the first inline data-URI image out of a text and
// returns it alongside the remaining text. Used by /photo, where users may
// paste a reference image directly into the command.
func ExtractImageRef(text string) (ref string, remaining string, found bool) {
	loc := imageRefPattern.FindStringIndex(text)
	if loc == nil {
		return "", text, false
	}
	ref = text[loc[0]:loc[1]]
	remaining = strings.Join(strings.Fields(text[:loc[0]]+" "+text[loc[1]:]), " ")
	return ref, remaining, true
}
