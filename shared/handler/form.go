package handler

// FormPayload is the JSON payload the platform adapters build from a
// multipart or url-encoded form body.
type FormPayload struct {
	Fields map[string]string `json:"fields"`
	Files  []FormFile        `json:"files,omitempty"`
}

// FormFile is one uploaded file part. Data is base64 encoded on the wire.
type FormFile struct {
	Field       string `json:"field"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// File returns the first file submitted under field.
func (p FormPayload) File(field string) (FormFile, bool) {
	for _, f := range p.Files {
		if f.Field == field {
			return f, true
		}
	}
	return FormFile{}, false
}
