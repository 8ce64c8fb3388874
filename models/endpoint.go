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

package models

import (
	"net"
	"strconv"
)

// Endpoint identifies a service instance associated with a span or
// annotation. Port 0 means the port is unknown.
type Endpoint struct {
	ServiceName string
	IPv4        net.IP
	IPv6        net.IP
	Port        uint16
}

// Empty returns true if the endpoint carries no information.
func (e Endpoint) Empty() bool {
	return e.ServiceName == "" && len(e.IPv4) == 0 && len(e.IPv6) == 0 && e.Port == 0
}

func (e Endpoint) clone() Endpoint {
	c := e
	if e.IPv4 != nil {
		c.IPv4 = append(net.IP(nil), e.IPv4...)
	}
	if e.IPv6 != nil {
		c.IPv6 = append(net.IP(nil), e.IPv6...)
	}
	return c
}

// NewEndpoint builds an endpoint from a literal host address. An empty host
// leaves both addresses unset; a host that is not an IP address is an error.
func NewEndpoint(serviceName, host string, port uint16) (Endpoint, error) {
	e := Endpoint{ServiceName: serviceName, Port: port}
	if host == "" {
		return e, nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return Endpoint{}, Configurationf("host %q is not an IP address", host)
	}
	if ip4 := ip.To4(); ip4 != nil {
		e.IPv4 = ip4
	} else {
		e.IPv6 = ip.To16()
	}
	return e, nil
}

// MakeEndpoint takes the hostport and service name that represent this
// service and resolves them into an Endpoint. The host may be a name, in
// which case the first IPv4 and IPv6 addresses found are used.
func MakeEndpoint(hostport, serviceName string) (Endpoint, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return Endpoint{}, &ConfigurationError{Msg: "invalid host:port " + hostport, Err: err}
	}

	portInt, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return Endpoint{}, &ConfigurationError{Msg: "invalid port " + port, Err: err}
	}

	addrs, err := net.LookupIP(host)
	if err != nil {
		return Endpoint{}, &ConfigurationError{Msg: "unable to resolve " + host, Err: err}
	}

	var addr4, addr16 net.IP
	for i := range addrs {
		if addr := addrs[i].To4(); addr == nil {
			if addr16 == nil {
				addr16 = addrs[i].To16()
			}
		} else if addr4 == nil {
			addr4 = addr
		}
		if addr16 != nil && addr4 != nil {
			break
		}
	}

	return Endpoint{
		ServiceName: serviceName,
		IPv4:        addr4,
		IPv6:        addr16,
		Port:        uint16(portInt),
	}, nil
}
