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

import "strings"

// Kind clarifies the role of a span in an RPC or messaging exchange.
// A span without a kind is a local span; that state is not a Kind value,
// see Span.Kind.
type Kind uint8

// Available Kind values
const (
	Client Kind = iota + 1
	Server
	Producer
	Consumer
)

var kindNames = map[Kind]string{
	Client:   "CLIENT",
	Server:   "SERVER",
	Producer: "PRODUCER",
	Consumer: "CONSUMER",
}

func (k Kind) String() string {
	return kindNames[k]
}

func (k Kind) valid() bool {
	_, ok := kindNames[k]
	return ok
}

// ParseKind maps a wire name (case insensitive) to a Kind.
func ParseKind(s string) (Kind, error) {
	upper := strings.ToUpper(s)
	for k, name := range kindNames {
		if name == upper {
			return k, nil
		}
	}
	return 0, Configurationf("unknown span kind %q", s)
}
