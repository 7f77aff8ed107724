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

// Currencies returns the verified currencies of the given blockchain, or of
// all blockchains if the ID is empty. Every returned currency is cached.
func (c *Client) Currencies(ctx context.Context, blockchainID string) ([]Currency, error) {

	query := url.Values{}
	query.Set("verified", "true")
	query.Set("max_page_size", c.pageSize(0))
	if blockchainID != "" {
		query.Set("blockchain_id", blockchainID)
	}

	var all []Currency
	target := c.endpoint("/currencies", query)
	for target != "" {
		var currencies []Currency
		next, err := c.list(ctx, "currencies", "currencies", target, &currencies)
		if err != nil {
			return nil, fmt.Errorf("could not list currencies: %w", err)
		}
		all = append(all, currencies...)
		target = next
	}

	for _, currency := range all {
		c.cache.Set(currency.ID, currency, 1)
	}

	return all, nil
}

// Currency returns the currency with the given ID. Currencies are immutable,
// so they are served from the cache when possible.
func (c *Client) Currency(ctx context.Context, id string) (Currency, error) {

	cached, ok := c.cache.Get(id)
	if ok {
		return cached.(Currency), nil
	}

	var currency Currency
	target := c.endpoint("/currencies/"+url.PathEscape(id), nil)
	err := c.get(ctx, "currency", "currency", id, target, &currency)
	if err != nil {
		return Currency{}, fmt.Errorf("could not get currency: %w", err)
	}

	c.cache.Set(id, currency, 1)

	return currency, nil
}
