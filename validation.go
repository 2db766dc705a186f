package tryon

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/webp"
)

// Validation errors
var (
	ErrEmptyPrompt      = errors.New("prompt cannot be empty")
	ErrEmptyImageData   = errors.New("image data cannot be empty")
	ErrInvalidMIMEType  = errors.New("invalid or unsupported MIME type")
	ErrImageTooLarge    = errors.New("image data exceeds maximum size")
	ErrEmptyDescription = errors.New("outfit description cannot be empty")
)

// MaxImageSize is the maximum allowed image size in bytes (20MB)
const MaxImageSize = 20 * 1024 * 1024

// ValidMIMETypes contains the supported image MIME types
var ValidMIMETypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// ValidatePrompt validates a text prompt.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return ErrEmptyPrompt
	}
	return nil
}

// ValidateInputImage validates an image before it is sent inline.
func ValidateInputImage(img InputImage) error {
	if len(img.Data) == 0 {
		return ErrEmptyImageData
	}

	if len(img.Data) > MaxImageSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrImageTooLarge, len(img.Data), MaxImageSize)
	}

	if img.MIMEType == "" {
		return fmt.Errorf("%w: MIME type is required", ErrInvalidMIMEType)
	}

	if !ValidMIMETypes[img.MIMEType] {
		return fmt.Errorf("%w: %s", ErrInvalidMIMEType, img.MIMEType)
	}

	return nil
}

// DetectMIMEType sniffs the image format from its content.
// It returns "" when the data is not a decodable image.
func DetectMIMEType(data []byte) string {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	switch format {
	case "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return ""
	}
}

// GetMIMEType guesses an image MIME type from a file extension.
func GetMIMEType(filePath string) string {
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

// NewInputImage builds an InputImage, preferring the sniffed content type over
// the declared one and the file extension of name.
func NewInputImage(data []byte, declaredMIME, name string) InputImage {
	mimeType := DetectMIMEType(data)
	if mimeType == "" {
		mimeType, _, _ = strings.Cut(declaredMIME, ";")
		mimeType = strings.TrimSpace(mimeType)
	}
	if !ValidMIMETypes[mimeType] {
		if guessed := GetMIMEType(name); guessed != "" {
			mimeType = guessed
		}
	}
	return InputImage{
		Data:     data,
		MIMEType: mimeType,
		URI:      name,
	}
}
