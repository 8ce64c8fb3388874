// Copyright 2022 The OpenZipkin Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package encoding

import (
	"bytes"
	"net"

	jsoniter "github.com/json-iterator/go"

	"github.com/openzipkin-contrib/zipkin-go-scope/models"
)

// json sorts map keys, so tags encode deterministically.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// jsonEndpoint is the endpoint shape shared by both JSON schemas.
type jsonEndpoint struct {
	ServiceName string `json:"serviceName"`
	IPv4        string `json:"ipv4,omitempty"`
	IPv6        string `json:"ipv6,omitempty"`
	Port        uint16 `json:"port,omitempty"`
}

func toJSONEndpoint(e *models.Endpoint) *jsonEndpoint {
	if e == nil {
		return nil
	}
	j := &jsonEndpoint{ServiceName: e.ServiceName, Port: e.Port}
	if ip := e.IPv4.To4(); ip != nil {
		j.IPv4 = ip.String()
	}
	if len(e.IPv6) == net.IPv6len {
		j.IPv6 = e.IPv6.String()
	}
	return j
}

func fromJSONEndpoint(j *jsonEndpoint) (*models.Endpoint, error) {
	if j == nil {
		return nil, nil
	}
	e := &models.Endpoint{ServiceName: j.ServiceName, Port: j.Port}
	if j.IPv4 != "" {
		ip := net.ParseIP(j.IPv4).To4()
		if ip == nil {
			return nil, models.Configurationf("invalid ipv4 %q", j.IPv4)
		}
		e.IPv4 = ip
	}
	if j.IPv6 != "" {
		ip := net.ParseIP(j.IPv6)
		if ip == nil {
			return nil, models.Configurationf("invalid ipv6 %q", j.IPv6)
		}
		e.IPv6 = ip.To16()
	}
	return e, nil
}

// jsonBatch wraps JSON fragments into an array.
func jsonBatch(fragments [][]byte) []byte {
	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(bytes.Join(fragments, []byte{','}))
	buf.WriteByte(']')
	return buf.Bytes()
}

// jsonFits accounts for the brackets and one separator per fragment.
func jsonFits(count, size, maxSize int, fragment []byte) bool {
	return 2+count+size+len(fragment) <= maxSize
}
