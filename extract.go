package tryon

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// ExtractImage returns the first inline image of resp as a data URI.
//
// A blocked prompt, an abnormal finish reason and a text-only answer are all
// terminal and reported as *BlockedError, *IncompleteError and *NoImageError.
func ExtractImage(resp *Response) (string, error) {
	if resp == nil {
		return "", &NoImageError{}
	}

	if resp.BlockReason != "" {
		return "", &BlockedError{
			Reason:  resp.BlockReason,
			Message: resp.BlockReasonMessage,
		}
	}

	for _, candidate := range resp.Candidates {
		for _, part := range candidate.Parts {
			if part.Image != nil && len(part.Image.Data) > 0 {
				return EncodeDataURI(part.Image.MIMEType, part.Image.Data), nil
			}
		}
	}

	if len(resp.Candidates) > 0 {
		finishReason := resp.Candidates[0].FinishReason
		if finishReason != "" && finishReason != FinishReasonStop {
			return "", &IncompleteError{FinishReason: finishReason}
		}
	}

	return "", &NoImageError{Text: strings.TrimSpace(resp.Text)}
}

// EncodeDataURI encodes data as data:<mime>;base64,<payload>.
func EncodeDataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// ParseDataURI decodes a base64 data URI into an InputImage.
func ParseDataURI(uri string) (InputImage, error) {
	header, payload, ok := strings.Cut(uri, ",")
	if !ok {
		return InputImage{}, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
	}

	meta, found := strings.CutPrefix(header, "data:")
	if !found {
		return InputImage{}, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURI)
	}
	mimeType, _, _ := strings.Cut(meta, ";")
	if mimeType == "" || !strings.HasSuffix(meta, ";base64") {
		return InputImage{}, fmt.Errorf("%w: could not parse MIME type", ErrInvalidDataURI)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return InputImage{}, fmt.Errorf("%w: invalid base64: %v", ErrInvalidDataURI, err)
	}

	return InputImage{
		Data:     data,
		MIMEType: mimeType,
	}, nil
}
