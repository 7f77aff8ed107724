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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/optakt/walletkit/models/failure"
)

const maxBodyExcerpt = 512

type response struct {
	status int
	body   []byte
}

// retry runs the given read attempt until it succeeds, fails permanently or
// runs out of retries. Only network failures are retried.
func (c *Client) retry(ctx context.Context, attempt func() error) error {

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.RetryDelay
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.Retries), ctx)

	return backoff.Retry(func() error {
		err := attempt()
		if err != nil && !failure.IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// do executes a single HTTP request under the client's in-flight limit and
// timeout. Transport failures are classified; HTTP statuses are left to the
// caller.
func (c *Client) do(ctx context.Context, operation string, method string, target string, payload interface{}) (*response, error) {

	start := time.Now()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("could not encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	err := c.sema.Acquire(ctx, 1)
	if err != nil {
		c.record.Request(operation, OutcomeCanceled, time.Since(start))
		return nil, fmt.Errorf("could not acquire request slot: %w", err)
	}
	defer c.sema.Release(1)

	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", MediaType)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	res, err := c.http.Do(req)
	if err != nil {
		err = c.transportError(ctx, reqCtx, err)
		c.record.Request(operation, outcome(err), time.Since(start))
		return nil, err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		err = c.transportError(ctx, reqCtx, err)
		c.record.Request(operation, outcome(err), time.Since(start))
		return nil, err
	}

	c.log.Trace().
		Str("operation", operation).
		Str("method", method).
		Str("url", target).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("request completed")

	r := response{
		status: res.StatusCode,
		body:   data,
	}

	return &r, nil
}

// get performs a read request with retries and decodes the response into the
// given value, which is validated before being returned.
func (c *Client) get(ctx context.Context, operation string, resource string, id string, target string, value interface{}) error {
	return c.retry(ctx, func() error {
		start := time.Now()
		res, err := c.do(ctx, operation, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		err = c.check(res, resource, id)
		if err == nil {
			err = c.decode(res, value)
		}
		c.record.Request(operation, outcome(err), time.Since(start))
		return err
	})
}

// check maps an HTTP status onto the error taxonomy.
func (c *Client) check(res *response, resource string, id string) error {
	switch {
	case res.status >= 200 && res.status < 300:
		return nil
	case res.status == http.StatusNotFound:
		return failure.NotFound{
			Description: failure.NewDescription("resource does not exist", failure.WithString("body", excerpt(res.body))),
			Resource:    resource,
			ID:          id,
		}
	case res.status == http.StatusTooManyRequests || res.status >= 500:
		return failure.NetworkError{
			Description: failure.NewDescription("service unavailable", failure.WithString("body", excerpt(res.body))),
			Status:      res.status,
		}
	default:
		return failure.QueryError{
			Description: failure.NewDescription("request rejected"),
			Status:      res.status,
			Body:        excerpt(res.body),
		}
	}
}

// decode decodes and validates a successful response. Malformed or invalid
// payloads are rejected as query errors, so that they are not retried.
func (c *Client) decode(res *response, value interface{}) error {

	err := json.Unmarshal(res.body, value)
	if err != nil {
		return failure.QueryError{
			Description: failure.NewDescription("malformed response", failure.WithErr(err)),
			Status:      res.status,
			Body:        excerpt(res.body),
		}
	}

	err = c.validateValue(value)
	if err != nil {
		return failure.QueryError{
			Description: failure.NewDescription("invalid response", failure.WithErr(err)),
			Status:      res.status,
			Body:        excerpt(res.body),
		}
	}

	return nil
}

func (c *Client) validateValue(value interface{}) error {
	v := reflect.ValueOf(value)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Struct:
		return c.validate.Struct(v.Interface())
	case reflect.Slice:
		return c.validate.Var(v.Interface(), "dive")
	default:
		return nil
	}
}

func (c *Client) transportError(parent context.Context, reqCtx context.Context, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("request aborted: %w", parent.Err())
	}
	if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return failure.Timeout{
			Description: failure.NewDescription("no response before deadline", failure.WithErr(err)),
			After:       c.cfg.Timeout,
		}
	}
	return failure.NetworkError{
		Description: failure.NewDescription("could not reach service", failure.WithErr(err)),
	}
}

func outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	var (
		notFound   failure.NotFound
		query      failure.QueryError
		network    failure.NetworkError
		timeout    failure.Timeout
		submission failure.SubmissionError
	)
	switch {
	case errors.As(err, &notFound):
		return OutcomeNotFound
	case errors.As(err, &query):
		return OutcomeQuery
	case errors.As(err, &network):
		return OutcomeNetwork
	case errors.As(err, &timeout):
		return OutcomeTimeout
	case errors.As(err, &submission):
		return OutcomeSubmission
	default:
		return OutcomeCanceled
	}
}

func excerpt(body []byte) string {
	if len(body) > maxBodyExcerpt {
		return string(body[:maxBodyExcerpt])
	}
	return string(body)
}
