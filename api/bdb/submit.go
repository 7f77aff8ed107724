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
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/optakt/walletkit/models/failure"
)

// CreateTransaction submits a signed transaction to the given blockchain.
// Any response other than a success is reported as a SubmissionError. The
// submission is never retried, as resubmitting a signed transaction is up to
// the caller.
func (c *Client) CreateTransaction(ctx context.Context, blockchainID string, hash string, data []byte) error {

	start := time.Now()
	payload := submission{
		BlockchainID: blockchainID,
		Hash:         hash,
		Data:         data,
	}
	res, err := c.do(ctx, "create_transaction", http.MethodPost, c.endpoint("/transactions", nil), payload)
	if err != nil {
		return fmt.Errorf("could not submit transaction: %w", err)
	}

	if res.status < 200 || res.status >= 300 {
		err = failure.SubmissionError{
			Description: failure.NewDescription("transaction refused",
				failure.WithString("blockchain", blockchainID),
				failure.WithString("hash", hash),
			),
			Code:    res.status,
			Message: message(res.body),
		}
	}
	c.record.Request("create_transaction", outcome(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("could not submit transaction: %w", err)
	}

	c.log.Info().
		Str("blockchain", blockchainID).
		Str("hash", hash).
		Int("size", len(data)).
		Msg("transaction submitted")

	return nil
}

// EstimateTransactionFee asks the service for the cost of the given signed
// transaction without submitting it.
func (c *Client) EstimateTransactionFee(ctx context.Context, blockchainID string, hash string, data []byte) (FeeEstimate, error) {

	start := time.Now()
	query := url.Values{}
	query.Set("estimate_fee", "true")
	payload := submission{
		BlockchainID: blockchainID,
		Hash:         hash,
		Data:         data,
	}
	res, err := c.do(ctx, "estimate_fee", http.MethodPost, c.endpoint("/transactions", query), payload)
	if err != nil {
		return FeeEstimate{}, fmt.Errorf("could not estimate fee: %w", err)
	}

	var estimate FeeEstimate
	err = c.check(res, "transaction", hash)
	if err == nil {
		err = c.decode(res, &estimate)
	}
	c.record.Request("estimate_fee", outcome(err), time.Since(start))
	if err != nil {
		return FeeEstimate{}, fmt.Errorf("could not estimate fee: %w", err)
	}

	return estimate, nil
}

// message extracts the most useful error text from an error response.
func message(body []byte) string {
	var wire struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	err := json.Unmarshal(body, &wire)
	switch {
	case err != nil:
		return excerpt(body)
	case wire.Message != "":
		return wire.Message
	case wire.Error != "":
		return wire.Error
	default:
		return excerpt(body)
	}
}
