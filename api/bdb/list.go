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
	"net/url"
	"strconv"

	"github.com/optakt/walletkit/models/failure"
)

// list fetches one page of a collection and decodes its embedded items of
// the given kind. It returns the absolute URL of the next page, or an empty
// string on the last page.
func (c *Client) list(ctx context.Context, operation string, kind string, target string, items interface{}) (string, error) {

	var p page
	err := c.get(ctx, operation, kind, "", target, &p)
	if err != nil {
		return "", err
	}

	raw, ok := p.Embedded[kind]
	if ok {
		err = json.Unmarshal(raw, items)
		if err != nil {
			return "", failure.QueryError{
				Description: failure.NewDescription("malformed embedded items",
					failure.WithString("kind", kind),
					failure.WithErr(err),
				),
				Status: 200,
				Body:   excerpt(raw),
			}
		}
		err = c.validateValue(items)
		if err != nil {
			return "", failure.QueryError{
				Description: failure.NewDescription("invalid embedded items",
					failure.WithString("kind", kind),
					failure.WithErr(err),
				),
				Status: 200,
				Body:   excerpt(raw),
			}
		}
	}

	if p.Links.Next == nil || p.Links.Next.Href == "" {
		return "", nil
	}

	next, err := c.resolve(p.Links.Next.Href)
	if err != nil {
		return "", failure.QueryError{
			Description: failure.NewDescription("invalid continuation link", failure.WithErr(err)),
			Status:      200,
			Body:        p.Links.Next.Href,
		}
	}

	return next, nil
}

// chunks builds one first-page URL per chunk of addresses. Without
// addresses, a single URL without address filter is returned.
func (c *Client) chunks(path string, query url.Values, addresses []string) []string {

	if len(addresses) == 0 {
		return []string{c.endpoint(path, query)}
	}

	size := int(c.cfg.AddressChunk)
	var targets []string
	for start := 0; start < len(addresses); start += size {
		end := start + size
		if end > len(addresses) {
			end = len(addresses)
		}
		chunk := cloneValues(query)
		for _, address := range addresses[start:end] {
			chunk.Add("address", address)
		}
		targets = append(targets, c.endpoint(path, chunk))
	}

	return targets
}

func (c *Client) pageSize(hint uint) string {
	if hint == 0 {
		hint = c.cfg.MaxPageSize
	}
	return strconv.FormatUint(uint64(hint), 10)
}

func cloneValues(values url.Values) url.Values {
	clone := make(url.Values, len(values))
	for key, vals := range values {
		clone[key] = append([]string(nil), vals...)
	}
	return clone
}

func formatHeight(height uint64) string {
	return strconv.FormatUint(height, 10)
}
