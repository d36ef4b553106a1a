// Copyright 2026 The Repod Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Authentication failures for webhook deliveries.
var (
	ErrMissingSignature     = errors.New("missing X-Hub-Signature-256 header")
	ErrUnsupportedAlgorithm = errors.New("unsupported signature algorithm")
	ErrSignatureMismatch    = errors.New("signature mismatch")
)

// VerifySignature checks the HMAC-SHA256 signature of a GitHub webhook
// delivery against the repository's shared secret.
//
// The header value has the form "sha256=<hex-encoded-hmac>". The HMAC
// is computed over the raw body bytes exactly as received; hashing a
// re-serialized payload would not reproduce GitHub's digest.
func VerifySignature(payload []byte, header, secret string) error {
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, "sha256=") {
		return fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, header)
	}

	receivedMAC := strings.TrimPrefix(header, "sha256=")

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	expectedMAC := hex.EncodeToString(mac.Sum(nil))

	// Constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(receivedMAC), []byte(expectedMAC)) {
		return ErrSignatureMismatch
	}
	return nil
}
