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
	"net/http"
	"net/url"
	"time"
)

// CreateSubscription registers a server-side subscription. The service
// assigns its ID.
func (c *Client) CreateSubscription(ctx context.Context, subscription Subscription) (Subscription, error) {

	err := c.validate.Struct(subscription)
	if err != nil {
		return Subscription{}, fmt.Errorf("could not validate subscription: %w", err)
	}

	start := time.Now()
	res, err := c.do(ctx, "create_subscription", http.MethodPost, c.endpoint("/subscriptions", nil), subscription)
	if err != nil {
		return Subscription{}, fmt.Errorf("could not create subscription: %w", err)
	}

	var created Subscription
	err = c.check(res, "subscription", subscription.DeviceID)
	if err == nil {
		err = c.decode(res, &created)
	}
	c.record.Request("create_subscription", outcome(err), time.Since(start))
	if err != nil {
		return Subscription{}, fmt.Errorf("could not create subscription: %w", err)
	}

	return created, nil
}

// Subscription returns the subscription with the given ID.
func (c *Client) Subscription(ctx context.Context, id string) (Subscription, error) {

	var subscription Subscription
	target := c.endpoint("/subscriptions/"+url.PathEscape(id), nil)
	err := c.get(ctx, "subscription", "subscription", id, target, &subscription)
	if err != nil {
		return Subscription{}, fmt.Errorf("could not get subscription: %w", err)
	}

	return subscription, nil
}

// Subscriptions returns every subscription of the client.
func (c *Client) Subscriptions(ctx context.Context) ([]Subscription, error) {

	var all []Subscription
	target := c.endpoint("/subscriptions", nil)
	for target != "" {
		var subscriptions []Subscription
		next, err := c.list(ctx, "subscriptions", "subscriptions", target, &subscriptions)
		if err != nil {
			return nil, fmt.Errorf("could not list subscriptions: %w", err)
		}
		all = append(all, subscriptions...)
		target = next
	}

	return all, nil
}

// UpdateSubscription replaces an existing subscription.
func (c *Client) UpdateSubscription(ctx context.Context, subscription Subscription) (Subscription, error) {

	err := c.validate.Struct(subscription)
	if err != nil {
		return Subscription{}, fmt.Errorf("could not validate subscription: %w", err)
	}

	var updated Subscription
	target := c.endpoint("/subscriptions/"+url.PathEscape(subscription.ID), nil)
	err = c.retry(ctx, func() error {
		start := time.Now()
		res, err := c.do(ctx, "update_subscription", http.MethodPut, target, subscription)
		if err != nil {
			return err
		}
		err = c.check(res, "subscription", subscription.ID)
		if err == nil && len(res.body) > 0 {
			err = c.decode(res, &updated)
		}
		c.record.Request("update_subscription", outcome(err), time.Since(start))
		return err
	})
	if err != nil {
		return Subscription{}, fmt.Errorf("could not update subscription: %w", err)
	}
	if updated.ID == "" {
		updated = subscription
	}

	return updated, nil
}

// DeleteSubscription removes a subscription.
func (c *Client) DeleteSubscription(ctx context.Context, id string) error {

	target := c.endpoint("/subscriptions/"+url.PathEscape(id), nil)
	err := c.retry(ctx, func() error {
		start := time.Now()
		res, err := c.do(ctx, "delete_subscription", http.MethodDelete, target, nil)
		if err != nil {
			return err
		}
		err = c.check(res, "subscription", id)
		c.record.Request("delete_subscription", outcome(err), time.Since(start))
		return err
	})
	if err != nil {
		return fmt.Errorf("could not delete subscription: %w", err)
	}

	return nil
}
