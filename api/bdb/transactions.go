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
	"fmt"
	"net/url"
	"strconv"
)

// TransactionQuery selects the transactions of a set of addresses within a
// block range. The range is half-open; an End of zero leaves it unbounded.
type TransactionQuery struct {
	BlockchainID string
	Addresses    []string
	Begin        uint64
	End          uint64
	IncludeRaw   bool
	IncludeProof bool
	MaxPageSize  uint
}

// Transactions returns a lazy sequence of pages of matching transactions,
// with their transfers embedded.
func (c *Client) Transactions(query TransactionQuery) *Transactions {

	params := url.Values{}
	params.Set("blockchain_id", query.BlockchainID)
	params.Set("start_height", formatHeight(query.Begin))
	if query.End > 0 {
		params.Set("end_height", formatHeight(query.End))
	}
	params.Set("include_raw", strconv.FormatBool(query.IncludeRaw))
	params.Set("include_proof", strconv.FormatBool(query.IncludeProof))
	params.Set("include_transfers", "true")
	params.Set("max_page_size", c.pageSize(query.MaxPageSize))

	fetch := func(ctx context.Context, cursor string) ([]Transaction, string, error) {
		var transactions []Transaction
		next, err := c.list(ctx, "transactions", "transactions", cursor, &transactions)
		if err != nil {
			return nil, "", fmt.Errorf("could not list transactions: %w", err)
		}
		return transactions, next, nil
	}

	return NewTransactions(fetch, c.chunks("/transactions", params, query.Addresses)...)
}

// Transaction returns the transaction with the given ID.
func (c *Client) Transaction(ctx context.Context, id string, includeRaw bool, includeProof bool) (Transaction, error) {

	params := url.Values{}
	params.Set("include_raw", strconv.FormatBool(includeRaw))
	params.Set("include_proof", strconv.FormatBool(includeProof))
	params.Set("include_transfers", "true")

	var transaction Transaction
	target := c.endpoint("/transactions/"+url.PathEscape(id), params)
	err := c.get(ctx, "transaction", "transaction", id, target, &transaction)
	if err != nil {
		return Transaction{}, fmt.Errorf("could not get transaction: %w", err)
	}

	return transaction, nil
}
