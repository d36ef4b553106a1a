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

// PingEvent is the handshake GitHub sends when a webhook is installed
type PingEvent struct {
	Zen string `json:"zen"`
}

// WorkflowRunEvent represents a GitHub workflow_run webhook event
type WorkflowRunEvent struct {
	Action      string      `json:"action"`
	Repository  Repository  `json:"repository"`
	WorkflowRun WorkflowRun `json:"workflow_run"`
}

// Repository contains repository metadata
type Repository struct {
	Name  string `json:"name"`
	Owner Owner  `json:"owner"`
}

// Owner represents the repository owner
type Owner struct {
	Login string `json:"login"`
}

// FullName returns "owner/name" as claimed by the payload
func (r Repository) FullName() string {
	return r.Owner.Login + "/" + r.Name
}

// WorkflowRun contains the run metadata the pipeline needs
type WorkflowRun struct {
	HeadSHA      string `json:"head_sha"`
	ArtifactsURL string `json:"artifacts_url"`
}
