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

// Blockchains returns the blockchains of the requested network kind.
func (c *Client) Blockchains(ctx context.Context, mainnet bool) ([]Blockchain, error) {

	query := url.Values{}
	query.Set("testnet", strconv.FormatBool(!mainnet))
	query.Set("max_page_size", c.pageSize(0))

	var all []Blockchain
	target := c.endpoint("/blockchains", query)
	for target != "" {
		var blockchains []Blockchain
		next, err := c.list(ctx, "blockchains", "blockchains", target, &blockchains)
		if err != nil {
			return nil, fmt.Errorf("could not list blockchains: %w", err)
		}
		all = append(all, blockchains...)
		target = next
	}

	return all, nil
}

// Blockchain returns the blockchain with the given ID.
func (c *Client) Blockchain(ctx context.Context, id string) (Blockchain, error) {

	var blockchain Blockchain
	target := c.endpoint("/blockchains/"+url.PathEscape(id), nil)
	err := c.get(ctx, "blockchain", "blockchain", id, target, &blockchain)
	if err != nil {
		return Blockchain{}, fmt.Errorf("could not get blockchain: %w", err)
	}

	return blockchain, nil
}
