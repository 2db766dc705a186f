package tryon

// Model is an API model identifier, e.g. "gemini-2.5-flash-image".
type Model string

// String returns the model identifier.
func (m Model) String() string {
	return string(m)
}

// OutputKind selects the response modality requested from the model.
type OutputKind int

const (
	// OutputImage asks for an inline image.
	OutputImage OutputKind = iota
	// OutputJSON asks for JSON text matching Request.Schema.
	OutputJSON
)

func (k OutputKind) String() string {
	switch k {
	case OutputImage:
		return "image"
	case OutputJSON:
		return "json"
	default:
		return "unknown"
	}
}

// SchemaProperty is one string field of a structured-output schema.
type SchemaProperty struct {
	Name        string
	Description string
}

// Schema describes a JSON object whose properties are all strings.
type Schema struct {
	Properties []SchemaProperty
	Required   []string
}

// Request is a single call to the generative model.
type Request struct {
	Model Model

	// Images are sent as inline data parts, before the prompt.
	Images []InputImage

	Prompt            string
	SystemInstruction string

	Output OutputKind

	// Schema is required when Output is OutputJSON.
	Schema *Schema
}

// InputImage represents an image sent to the model.
type InputImage struct {
	// Data is the raw image bytes
	Data []byte

	// MIMEType of the image (e.g., "image/jpeg", "image/png")
	MIMEType string

	// URI is an optional reference to where the image came from
	URI string
}
