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

// BlockQuery selects the blocks of a blockchain within a half-open height
// range. An End of zero leaves it unbounded.
type BlockQuery struct {
	BlockchainID        string
	Begin               uint64
	End                 uint64
	IncludeRaw          bool
	IncludeTransactions bool
	MaxPageSize         uint
}

// Blocks returns a lazy sequence of pages of matching blocks.
func (c *Client) Blocks(query BlockQuery) *Blocks {

	params := url.Values{}
	params.Set("blockchain_id", query.BlockchainID)
	params.Set("start_height", formatHeight(query.Begin))
	if query.End > 0 {
		params.Set("end_height", formatHeight(query.End))
	}
	params.Set("include_raw", strconv.FormatBool(query.IncludeRaw))
	params.Set("include_tx", strconv.FormatBool(query.IncludeTransactions))
	params.Set("max_page_size", c.pageSize(query.MaxPageSize))

	fetch := func(ctx context.Context, cursor string) ([]Block, string, error) {
		var blocks []Block
		next, err := c.list(ctx, "blocks", "blocks", cursor, &blocks)
		if err != nil {
			return nil, "", fmt.Errorf("could not list blocks: %w", err)
		}
		return blocks, next, nil
	}

	return NewBlocks(fetch, c.endpoint("/blocks", params))
}

// Block returns the block with the given ID.
func (c *Client) Block(ctx context.Context, id string, includeRaw bool, includeTransactions bool) (Block, error) {

	params := url.Values{}
	params.Set("include_raw", strconv.FormatBool(includeRaw))
	params.Set("include_tx", strconv.FormatBool(includeTransactions))

	var block Block
	target := c.endpoint("/blocks/"+url.PathEscape(id), params)
	err := c.get(ctx, "block", "block", id, target, &block)
	if err != nil {
		return Block{}, fmt.Errorf("could not get block: %w", err)
	}

	return block, nil
}
