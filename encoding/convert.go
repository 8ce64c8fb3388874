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

// Convert re-encodes a payload of unknown encoding into the to encoding.
func Convert(data []byte, to Encoding) ([]byte, error) {
	from, err := Detect(data)
	if err != nil {
		return nil, err
	}
	return ConvertFrom(data, from, to)
}

// ConvertFrom re-encodes a payload from one encoding into another, keeping
// span order. When both encodings are the same data is returned as is.
func ConvertFrom(data []byte, from, to Encoding) ([]byte, error) {
	decoder, err := Get(from)
	if err != nil {
		return nil, err
	}
	encoder, err := Get(to)
	if err != nil {
		return nil, err
	}
	if from == to {
		return data, nil
	}

	spans, err := decoder.Decode(data)
	if err != nil {
		return nil, err
	}
	fragments := make([][]byte, 0, len(spans))
	for _, s := range spans {
		f, err := encoder.EncodeSpan(s)
		if err != nil {
			return nil, err
		}
		fragments = append(fragments, f)
	}
	return encoder.EncodeBatch(fragments), nil
}
