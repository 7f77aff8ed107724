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

package status

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/optakt/walletkit/models/failure"
	"github.com/optakt/walletkit/service/system"
)

var depths = map[string]system.SyncDepth{
	system.SyncFromLastConfirmedSend.String(): system.SyncFromLastConfirmedSend,
	system.SyncFromLastTrustedBlock.String():  system.SyncFromLastTrustedBlock,
	system.SyncFromCreation.String():          system.SyncFromCreation,
}

// Registry gives access to the networks and wallet managers of a system.
type Registry interface {
	Networks() []*system.Network
	Managers() []*system.WalletManager
	ManagerBy(networkID string) (*system.WalletManager, bool)
}

// Controller serves a read-mostly view of a running system over HTTP.
type Controller struct {
	registry Registry
}

func NewController(registry Registry) *Controller {
	c := Controller{
		registry: registry,
	}
	return &c
}

// Register adds the controller's routes to the given echo instance.
func (c *Controller) Register(server *echo.Echo) {
	server.GET("/networks", c.Networks)
	server.GET("/managers", c.Managers)
	server.GET("/managers/:network", c.Manager)
	server.POST("/managers/:network/connect", c.Connect)
	server.POST("/managers/:network/disconnect", c.Disconnect)
	server.POST("/managers/:network/sync", c.Sync)
}

func (c *Controller) Networks(ctx echo.Context) error {
	networks := c.registry.Networks()
	res := make([]Network, 0, len(networks))
	for _, network := range networks {
		res = append(res, networkFrom(network))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) Managers(ctx echo.Context) error {
	managers := c.registry.Managers()
	res := make([]Manager, 0, len(managers))
	for _, manager := range managers {
		res = append(res, managerFrom(manager))
	}
	return ctx.JSON(http.StatusOK, res)
}

func (c *Controller) Manager(ctx echo.Context) error {
	manager, err := c.lookup(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, managerFrom(manager))
}

func (c *Controller) Connect(ctx echo.Context) error {
	return c.transition(ctx, (*system.WalletManager).Connect)
}

func (c *Controller) Disconnect(ctx echo.Context) error {
	return c.transition(ctx, (*system.WalletManager).Disconnect)
}

// Sync starts a sync pass. The optional depth query parameter rescans the
// network from the given depth.
func (c *Controller) Sync(ctx echo.Context) error {
	param := ctx.QueryParam("depth")
	if param == "" {
		return c.transition(ctx, (*system.WalletManager).Sync)
	}
	depth, ok := depths[param]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown sync depth "+param)
	}
	return c.transition(ctx, func(manager *system.WalletManager) error {
		return manager.SyncToDepth(depth)
	})
}

func (c *Controller) transition(ctx echo.Context, move func(*system.WalletManager) error) error {
	manager, err := c.lookup(ctx)
	if err != nil {
		return err
	}

	err = move(manager)
	var transErr failure.InvalidTransition
	if errors.As(err, &transErr) {
		return echo.NewHTTPError(http.StatusConflict, transErr.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return ctx.JSON(http.StatusAccepted, managerFrom(manager))
}

func (c *Controller) lookup(ctx echo.Context) (*system.WalletManager, error) {
	id := ctx.Param("network")
	manager, ok := c.registry.ManagerBy(id)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "no wallet manager for network "+id)
	}
	return manager, nil
}

func networkFrom(network *system.Network) Network {
	fees := network.Fees()
	n := Network{
		ID:       network.ID(),
		Name:     network.Name(),
		Mainnet:  network.IsMainnet(),
		Height:   network.Height(),
		Currency: network.Currency().Code(),
		Fees:     make([]Fee, 0, len(fees)),
	}
	for _, fee := range fees {
		n.Fees = append(n.Fees, Fee{
			Tier:      fee.Tier,
			PricePer:  fee.PricePerCostFactor.String(),
			ConfirmIn: fee.ConfirmationTime.String(),
		})
	}
	return n
}

func managerFrom(manager *system.WalletManager) Manager {
	wallets := manager.Wallets()
	m := Manager{
		Network: manager.Network().ID(),
		Address: manager.Address(),
		State:   manager.State().String(),
		Wallets: make([]Wallet, 0, len(wallets)),
	}
	for _, wallet := range wallets {
		m.Wallets = append(m.Wallets, Wallet{
			Currency:  wallet.Currency().Code(),
			Balance:   wallet.Balance().String(),
			Transfers: len(wallet.Transfers()),
		})
	}
	return m
}
