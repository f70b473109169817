// Copyright 2026 Poiesic Systems
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

package queue

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/poiesic/corpus/core"
)

// EnrichmentTopic is the topic enrichment jobs travel on.
const EnrichmentTopic = "corpus.enrichment"

// metaBatchID carries the batch ID on job messages for routing and logging.
const metaBatchID = "batch_id"

// Job is one fragment queued for enrichment. Retries redeliver the same
// message, so the job itself carries no attempt state; the transport tracks
// delivery counts.
type Job struct {
	BatchID  string        `json:"batchId"`
	Fragment core.Fragment `json:"fragment"`
}

// Message encodes the job as a Watermill message.
func (j *Job) Message() (*message.Message, error) {
	payload, err := json.Marshal(j)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaBatchID, j.BatchID)
	return msg, nil
}

// DecodeJob decodes a Watermill message back into a job.
func DecodeJob(msg *message.Message) (*Job, error) {
	var job Job
	if err := json.Unmarshal(msg.Payload, &job); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedJob, err)
	}
	if job.BatchID == "" {
		return nil, fmt.Errorf("%w: missing batch id", ErrMalformedJob)
	}
	return &job, nil
}
