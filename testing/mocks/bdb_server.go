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

package mocks

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/optakt/walletkit/api/bdb"
)

// BDBServer is an in-memory BlockchainDB service for tests. It serves the
// same resources, pagination links and status codes as the real service.
type BDBServer struct {
	*httptest.Server

	mutex         *sync.Mutex
	token         string
	blockchains   []bdb.Blockchain
	currencies    []bdb.Currency
	transactions  []bdb.Transaction
	blocks        []bdb.Block
	subscriptions map[string]bdb.Subscription
	submitted     []Submission
	submitStatus  int
	failures      map[string][]int
	hits          map[string]int
	requests      []*http.Request
}

// Submission is a transaction received by the fake service.
type Submission struct {
	BlockchainID string `json:"blockchain_id"`
	Hash         string `json:"transaction_id"`
	Data         []byte `json:"data"`
}

// NewBDBServer starts a fake service that is stopped at the end of the test.
func NewBDBServer(t *testing.T, token string) *BDBServer {
	t.Helper()

	s := BDBServer{
		mutex:         &sync.Mutex{},
		token:         token,
		subscriptions: make(map[string]bdb.Subscription),
		submitStatus:  http.StatusOK,
		failures:      make(map[string][]int),
		hits:          make(map[string]int),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(s.middleware)

	e.GET("/blockchains", s.listBlockchains)
	e.GET("/blockchains/:id", s.getBlockchain)
	e.GET("/currencies", s.listCurrencies)
	e.GET("/currencies/:id", s.getCurrency)
	e.GET("/transfers", s.listTransfers)
	e.GET("/transfers/:id", s.getTransfer)
	e.GET("/transactions", s.listTransactions)
	e.GET("/transactions/:id", s.getTransaction)
	e.POST("/transactions", s.createTransaction)
	e.GET("/blocks", s.listBlocks)
	e.GET("/blocks/:id", s.getBlock)
	e.GET("/subscriptions", s.listSubscriptions)
	e.POST("/subscriptions", s.createSubscription)
	e.GET("/subscriptions/:id", s.getSubscription)
	e.PUT("/subscriptions/:id", s.updateSubscription)
	e.DELETE("/subscriptions/:id", s.deleteSubscription)

	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)

	return &s
}

// AddBlockchain adds or replaces a blockchain.
func (s *BDBServer) AddBlockchain(blockchain bdb.Blockchain) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, existing := range s.blockchains {
		if existing.ID == blockchain.ID {
			s.blockchains[i] = blockchain
			return
		}
	}
	s.blockchains = append(s.blockchains, blockchain)
}

// SetHeight moves the tip of a blockchain.
func (s *BDBServer) SetHeight(blockchainID string, height uint64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, existing := range s.blockchains {
		if existing.ID == blockchainID {
			h := height
			s.blockchains[i].BlockHeight = &h
		}
	}
}

func (s *BDBServer) AddCurrency(currency bdb.Currency) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.currencies = append(s.currencies, currency)
}

// AddTransaction adds the transaction, or replaces the one with the same ID.
func (s *BDBServer) AddTransaction(transaction bdb.Transaction) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	for i, existing := range s.transactions {
		if existing.ID == transaction.ID {
			s.transactions[i] = transaction
			return
		}
	}
	s.transactions = append(s.transactions, transaction)
}

func (s *BDBServer) AddBlock(block bdb.Block) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.blocks = append(s.blocks, block)
}

// SetSubmitStatus sets the status code returned for submitted transactions.
func (s *BDBServer) SetSubmitStatus(status int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.submitStatus = status
}

// Fail makes the next requests to the given path fail with the given status
// codes, one per request.
func (s *BDBServer) Fail(path string, statuses ...int) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.failures[path] = append(s.failures[path], statuses...)
}

// Hits returns how many requests reached the given path.
func (s *BDBServer) Hits(path string) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.hits[path]
}

// Submitted returns the transactions received so far.
func (s *BDBServer) Submitted() []Submission {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return append([]Submission(nil), s.submitted...)
}

// LastRequest returns the last request received.
func (s *BDBServer) LastRequest() *http.Request {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if len(s.requests) == 0 {
		return nil
	}
	return s.requests[len(s.requests)-1]
}

func (s *BDBServer) middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := c.Request().URL.Path

		s.mutex.Lock()
		s.hits[path]++
		s.requests = append(s.requests, c.Request().Clone(c.Request().Context()))
		var status int
		pending := s.failures[path]
		if len(pending) > 0 {
			status = pending[0]
			s.failures[path] = pending[1:]
		}
		s.mutex.Unlock()

		if status != 0 {
			return c.JSON(status, map[string]string{"message": http.StatusText(status)})
		}

		if s.token != "" && c.Request().Header.Get("Authorization") != "Bearer "+s.token {
			return c.JSON(http.StatusUnauthorized, map[string]string{"message": "missing or invalid token"})
		}

		return next(c)
	}
}

func (s *BDBServer) listBlockchains(c echo.Context) error {
	testnet := c.QueryParam("testnet") == "true"

	s.mutex.Lock()
	var items []bdb.Blockchain
	for _, blockchain := range s.blockchains {
		if blockchain.IsMainnet != testnet {
			items = append(items, blockchain)
		}
	}
	s.mutex.Unlock()

	return s.page(c, "blockchains", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) getBlockchain(c echo.Context) error {
	id := c.Param("id")

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, blockchain := range s.blockchains {
		if blockchain.ID == id {
			return c.JSON(http.StatusOK, blockchain)
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "blockchain not found"})
}

func (s *BDBServer) listCurrencies(c echo.Context) error {
	blockchainID := c.QueryParam("blockchain_id")

	s.mutex.Lock()
	var items []bdb.Currency
	for _, currency := range s.currencies {
		if blockchainID == "" || currency.BlockchainID == blockchainID {
			items = append(items, currency)
		}
	}
	s.mutex.Unlock()

	return s.page(c, "currencies", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) getCurrency(c echo.Context) error {
	id := c.Param("id")

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, currency := range s.currencies {
		if currency.ID == id {
			return c.JSON(http.StatusOK, currency)
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "currency not found"})
}

func (s *BDBServer) listTransfers(c echo.Context) error {
	filter, err := parseFilter(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	s.mutex.Lock()
	var items []bdb.Transfer
	for _, transaction := range s.transactions {
		if !filter.inRange(transaction) {
			continue
		}
		for _, transfer := range transaction.Transfers {
			if filter.matches(transfer) {
				items = append(items, transfer)
			}
		}
	}
	s.mutex.Unlock()

	return s.page(c, "transfers", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) getTransfer(c echo.Context) error {
	id := c.Param("id")

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, transaction := range s.transactions {
		for _, transfer := range transaction.Transfers {
			if transfer.ID == id {
				return c.JSON(http.StatusOK, transfer)
			}
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "transfer not found"})
}

func (s *BDBServer) listTransactions(c echo.Context) error {
	filter, err := parseFilter(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}
	includeRaw := c.QueryParam("include_raw") == "true"

	s.mutex.Lock()
	var items []bdb.Transaction
	for _, transaction := range s.transactions {
		if !filter.inRange(transaction) {
			continue
		}
		for _, transfer := range transaction.Transfers {
			if filter.matches(transfer) {
				if !includeRaw {
					transaction.Raw = nil
				}
				items = append(items, transaction)
				break
			}
		}
	}
	s.mutex.Unlock()

	return s.page(c, "transactions", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) getTransaction(c echo.Context) error {
	id := c.Param("id")

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, transaction := range s.transactions {
		if transaction.ID == id {
			if c.QueryParam("include_raw") != "true" {
				transaction.Raw = nil
			}
			if c.QueryParam("include_proof") != "true" {
				transaction.Proof = nil
			}
			return c.JSON(http.StatusOK, transaction)
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "transaction not found"})
}

func (s *BDBServer) createTransaction(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}
	var submission Submission
	err = json.Unmarshal(body, &submission)
	if err != nil || submission.BlockchainID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid submission"})
	}

	if c.QueryParam("estimate_fee") == "true" {
		estimate := bdb.FeeEstimate{
			CostUnits: uint64(len(submission.Data)),
		}
		return c.JSON(http.StatusOK, estimate)
	}

	s.mutex.Lock()
	status := s.submitStatus
	if status >= 200 && status < 300 {
		s.submitted = append(s.submitted, submission)
	}
	s.mutex.Unlock()

	if status < 200 || status >= 300 {
		return c.JSON(status, map[string]string{"message": "transaction rejected"})
	}

	return c.JSON(status, map[string]string{})
}

func (s *BDBServer) listBlocks(c echo.Context) error {
	filter, err := parseFilter(c.QueryParams())
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": err.Error()})
	}

	s.mutex.Lock()
	var items []bdb.Block
	for _, block := range s.blocks {
		if block.BlockchainID == filter.blockchainID && filter.contains(block.Height) {
			items = append(items, block)
		}
	}
	s.mutex.Unlock()

	return s.page(c, "blocks", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) getBlock(c echo.Context) error {
	id := c.Param("id")

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, block := range s.blocks {
		if block.ID == id {
			return c.JSON(http.StatusOK, block)
		}
	}

	return c.JSON(http.StatusNotFound, map[string]string{"message": "block not found"})
}

func (s *BDBServer) listSubscriptions(c echo.Context) error {
	s.mutex.Lock()
	var items []bdb.Subscription
	for _, subscription := range s.subscriptions {
		items = append(items, subscription)
	}
	s.mutex.Unlock()

	return s.page(c, "subscriptions", len(items), func(start, end int) interface{} { return items[start:end] })
}

func (s *BDBServer) createSubscription(c echo.Context) error {
	var subscription bdb.Subscription
	err := c.Bind(&subscription)
	if err != nil || subscription.DeviceID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid subscription"})
	}

	s.mutex.Lock()
	subscription.ID = "subscription-" + strconv.Itoa(len(s.subscriptions)+1)
	s.subscriptions[subscription.ID] = subscription
	s.mutex.Unlock()

	return c.JSON(http.StatusCreated, subscription)
}

func (s *BDBServer) getSubscription(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	subscription, ok := s.subscriptions[c.Param("id")]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "subscription not found"})
	}
	return c.JSON(http.StatusOK, subscription)
}

func (s *BDBServer) updateSubscription(c echo.Context) error {
	var subscription bdb.Subscription
	err := c.Bind(&subscription)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid subscription"})
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("id")
	_, ok := s.subscriptions[id]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "subscription not found"})
	}
	subscription.ID = id
	s.subscriptions[id] = subscription

	return c.JSON(http.StatusOK, subscription)
}

func (s *BDBServer) deleteSubscription(c echo.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	id := c.Param("id")
	_, ok := s.subscriptions[id]
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"message": "subscription not found"})
	}
	delete(s.subscriptions, id)
	return c.NoContent(http.StatusNoContent)
}

// page writes one page of a collection, with a relative link to the next
// page if there are more items.
func (s *BDBServer) page(c echo.Context, kind string, total int, slice func(start, end int) interface{}) error {
	size := total
	if total == 0 {
		size = 1
	}
	param := c.QueryParam("max_page_size")
	if param != "" {
		parsed, err := strconv.Atoi(param)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid page size"})
		}
		size = parsed
	}
	start := 0
	cursor := c.QueryParam("cursor")
	if cursor != "" {
		parsed, err := strconv.Atoi(cursor)
		if err != nil || parsed < 0 || parsed > total {
			return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid cursor"})
		}
		start = parsed
	}
	end := start + size
	if end > total {
		end = total
	}

	items := slice(start, end)
	if start == end {
		items = []struct{}{}
	}
	body := map[string]interface{}{
		"_embedded": map[string]interface{}{
			kind: items,
		},
		"_links": map[string]interface{}{},
	}
	if end < total {
		query := c.QueryParams()
		next := url.Values{}
		for key, vals := range query {
			next[key] = vals
		}
		next.Set("cursor", strconv.Itoa(end))
		href := c.Request().URL.Path + "?" + next.Encode()
		body["_links"] = map[string]interface{}{
			"next": map[string]string{"href": href},
		}
	}

	return c.JSON(http.StatusOK, body)
}

type filter struct {
	blockchainID string
	addresses    map[string]struct{}
	begin        uint64
	end          uint64
}

func parseFilter(values url.Values) (filter, error) {
	f := filter{
		blockchainID: values.Get("blockchain_id"),
		addresses:    make(map[string]struct{}),
	}
	for _, address := range values["address"] {
		f.addresses[address] = struct{}{}
	}
	var err error
	if values.Get("start_height") != "" {
		f.begin, err = strconv.ParseUint(values.Get("start_height"), 10, 64)
		if err != nil {
			return filter{}, err
		}
	}
	if values.Get("end_height") != "" {
		f.end, err = strconv.ParseUint(values.Get("end_height"), 10, 64)
		if err != nil {
			return filter{}, err
		}
	}
	return f, nil
}

func (f filter) contains(height uint64) bool {
	return height >= f.begin && (f.end == 0 || height < f.end)
}

func (f filter) inRange(transaction bdb.Transaction) bool {
	if transaction.BlockchainID != f.blockchainID {
		return false
	}
	if transaction.BlockHeight == nil {
		return f.end == 0
	}
	return f.contains(*transaction.BlockHeight)
}

func (f filter) matches(transfer bdb.Transfer) bool {
	if len(f.addresses) == 0 {
		return true
	}
	_, source := f.addresses[transfer.Source]
	_, target := f.addresses[transfer.Target]
	return source || target
}
