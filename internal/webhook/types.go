package webhook

// Config holds webhook server configuration.
type Config struct {
	// Listen is the host:port the server binds to.
	Listen string

	// Path is the URL path deliveries are posted to (default: /webhook/github)
	Path string

	// Secret is the shared HMAC secret. Empty disables verification.
	Secret string

	// SignatureHeader names the header carrying the signature
	// (default: X-Hub-Signature-256)
	SignatureHeader string

	// MaxBodySize is the maximum accepted body size in bytes (default: 1MB)
	MaxBodySize int64
}

// AcceptedResponse is the JSON response for accepted deliveries.
type AcceptedResponse struct {
	Status     string `json:"status"`
	DeliveryID string `json:"delivery_id,omitempty"`
}

// ErrorResponse is the JSON response for rejected deliveries.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Defaults and well-known GitHub headers.
const (
	DefaultPath            = "/webhook/github"
	DefaultSignatureHeader = "X-Hub-Signature-256"
	DefaultMaxBodySize     = 1048576 // 1 MB

	DeliveryHeader = "X-GitHub-Delivery"
	EventHeader    = "X-GitHub-Event"

	// SecretEnv is the environment variable the shared secret is read from.
	SecretEnv = "GITHUB_WEBHOOK_SECRET"

	EventWorkflowJob = "workflow_job"
)

func (c Config) withDefaults() Config {
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.SignatureHeader == "" {
		c.SignatureHeader = DefaultSignatureHeader
	}
	if c.MaxBodySize <= 0 {
		c.MaxBodySize = DefaultMaxBodySize
	}
	return c
}
