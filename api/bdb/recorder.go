// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package bdb

import (
	"time"
)

// Recorder receives one observation per request attempt.
type Recorder interface {
	Request(operation string, outcome string, duration time.Duration)
}

// The following are the outcomes passed to the recorder.
const (
	OutcomeSuccess    = "success"
	OutcomeNotFound   = "not_found"
	OutcomeQuery      = "query_error"
	OutcomeNetwork    = "network_error"
	OutcomeTimeout    = "timeout"
	OutcomeSubmission = "submission_error"
	OutcomeCanceled   = "canceled"
)

type nopRecorder struct{}

func (nopRecorder) Request(string, string, time.Duration) {}
