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

// Package config loads and validates the repod configuration file.
//
// The configuration is read once at startup and is immutable afterwards:
// every component receives the same *Config value and none of them
// mutates it. Each monitored repository carries its own webhook secret,
// artifact filter and API credentials, so the set of repositories also
// acts as the registry consulted for every inbound webhook.
//
// Example config.yml:
//
//	host: 0.0.0.0
//	port: 8080
//	storagePath: /var/lib/repod
//	baseUrl: https://repo.arbjerg.dev
//	repositories:
//	  - owner: arbjerg
//	    name: lavalink
//	    secret: hunter2
//	    artifactRegex: Lavalink\.jar
//	    username: arbjerg
//	    token: ghp_xxxx
package config
