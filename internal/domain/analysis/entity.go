package analysis

// DefaultMediaType is used when an upload does not declare its own type.
const DefaultMediaType = "application/octet-stream"

// ThreatLevel is the verdict vocabulary the model is asked to use.
// The gateway never checks the model's answer against it.
type ThreatLevel string

const (
	ThreatSafe       ThreatLevel = "SAFE"
	ThreatSuspicious ThreatLevel = "SUSPICIOUS"
	ThreatDangerous  ThreatLevel = "DANGEROUS"
	ThreatUnknown    ThreatLevel = "UNKNOWN"
)

// VerdictLevels are the levels a model may return.
var VerdictLevels = []ThreatLevel{ThreatSafe, ThreatSuspicious, ThreatDangerous}

// UploadedFile is owned by a single request and dropped when it returns.
type UploadedFile struct {
	Filename  string
	MediaType string
	Content   []byte
}

// EffectiveMediaType returns the declared type or the octet-stream fallback.
func (f UploadedFile) EffectiveMediaType() string {
	if f.MediaType == "" {
		return DefaultMediaType
	}
	return f.MediaType
}

// Size of the content in bytes.
func (f UploadedFile) Size() int { return len(f.Content) }

// Result is the model's raw text, expected but not guaranteed to be JSON
// shaped like {"threatLevel","score","summary"}.
type Result struct {
	Analysis string `json:"analysis"`
}
