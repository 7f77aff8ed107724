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
)

// TransferQuery selects the transfers of a set of addresses within a block
// range. The range is half-open; an End of zero leaves it unbounded.
type TransferQuery struct {
	BlockchainID string
	Addresses    []string
	Begin        uint64
	End          uint64
	MaxPageSize  uint
}

// Transfers returns a lazy sequence of pages of matching transfers. Nothing
// is requested before the first call to Next.
func (c *Client) Transfers(query TransferQuery) *Transfers {

	params := url.Values{}
	params.Set("blockchain_id", query.BlockchainID)
	params.Set("start_height", formatHeight(query.Begin))
	if query.End > 0 {
		params.Set("end_height", formatHeight(query.End))
	}
	params.Set("max_page_size", c.pageSize(query.MaxPageSize))

	fetch := func(ctx context.Context, cursor string) ([]Transfer, string, error) {
		var transfers []Transfer
		next, err := c.list(ctx, "transfers", "transfers", cursor, &transfers)
		if err != nil {
			return nil, "", fmt.Errorf("could not list transfers: %w", err)
		}
		return transfers, next, nil
	}

	return NewTransfers(fetch, c.chunks("/transfers", params, query.Addresses)...)
}

// Transfer returns the transfer with the given ID.
func (c *Client) Transfer(ctx context.Context, id string) (Transfer, error) {

	var transfer Transfer
	target := c.endpoint("/transfers/"+url.PathEscape(id), nil)
	err := c.get(ctx, "transfer", "transfer", id, target, &transfer)
	if err != nil {
		return Transfer{}, fmt.Errorf("could not get transfer: %w", err)
	}

	return transfer, nil
}
