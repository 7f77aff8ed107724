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

package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/optakt/walletkit/service/storage"
)

// Codec wraps the codec of the wallet state and records the size of what it
// encodes.
type Codec struct {
	storage.Codec
	size *prometheus.CounterVec
}

func NewCodec(codec storage.Codec, reg prometheus.Registerer) *Codec {

	sizeOpts := prometheus.CounterOpts{
		Name:      "storage_encoded_bytes_total",
		Namespace: namespace,
		Help:      "number of bytes of encoded wallet state",
	}
	size := promauto.With(reg).NewCounterVec(sizeOpts, []string{"type"})

	c := Codec{
		Codec: codec,
		size:  size,
	}

	return &c
}

func (c *Codec) Marshal(value interface{}) ([]byte, error) {
	data, err := c.Codec.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	name := "unknown"
	switch value.(type) {
	case uint64, *uint64:
		name = "height"
	case storage.Transfer, *storage.Transfer:
		name = "transfer"
	case storage.Network, *storage.Network:
		name = "network"
	}
	c.size.WithLabelValues(name).Add(float64(len(data)))
	return data, nil
}
