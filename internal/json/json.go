// Package json is the single JSON codec used across inkledger.
// It is backed by sonic with standard-library compatible semantics.
package json

import "github.com/bytedance/sonic"

var api = sonic.ConfigStd

func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

func MarshalIndent(v any, prefix, indent string) ([]byte, error) {
	return api.MarshalIndent(v, prefix, indent)
}

func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}
