// Package webhook receives GitHub workflow_job deliveries over HTTP and
// authenticates them with HMAC-SHA256 before handing them to an EventHandler.
//
// # Security Model
//
//   - Signatures are "sha256=" plus lowercase hex, compared with crypto/subtle
//   - A blank signature header counts as missing
//   - An empty secret disables verification; every skipped check is logged at WARN
//   - Body size limits are enforced before any digest is computed
//   - Error responses never include the expected signature or the secret
//
// # Request Flow
//
//  1. POST arrives at the configured path (default /webhook/github)
//  2. Body size checked (413 if too large)
//  3. Signature verified against the raw body (401 on failure)
//  4. Non workflow_job events acknowledged and ignored (202)
//  5. Body decoded and checked for required fields (400 on failure)
//  6. Delivery passed to the EventHandler (500 on failure)
//  7. 202 Accepted returned with the delivery id
//
// # Example Usage
//
//	srv := webhook.New(webhook.Config{
//		Listen: "0.0.0.0:8080",
//		Secret: os.Getenv(webhook.SecretEnv),
//	}, journal, logger)
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package webhook
