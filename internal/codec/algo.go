package codec

import (
	"encoding/json"

	"main/internal/schema"
)

// Algo-order commands carry externally-defined, variable-length content, so
// they travel as JSON rather than fixed-size binary.

// EncodeAlgoOrderInput serializes an algo order input.
func EncodeAlgoOrderInput(in schema.AlgoOrderInput) ([]byte, error) {
	return json.Marshal(in)
}

// DecodeAlgoOrderInput parses an algo order input payload.
func DecodeAlgoOrderInput(src []byte) (schema.AlgoOrderInput, bool) {
	var in schema.AlgoOrderInput
	if err := json.Unmarshal(src, &in); err != nil {
		return schema.AlgoOrderInput{}, false
	}
	return in, true
}

// EncodeAlgoOrderAction serializes an algo order action.
func EncodeAlgoOrderAction(action schema.AlgoOrderAction) ([]byte, error) {
	return json.Marshal(action)
}

// DecodeAlgoOrderAction parses an algo order action payload.
func DecodeAlgoOrderAction(src []byte) (schema.AlgoOrderAction, bool) {
	var action schema.AlgoOrderAction
	if err := json.Unmarshal(src, &action); err != nil {
		return schema.AlgoOrderAction{}, false
	}
	return action, true
}

// EncodeAccountInfo serializes an account announcement.
func EncodeAccountInfo(info schema.AccountInfo) ([]byte, error) {
	return json.Marshal(info)
}

// DecodeAccountInfo parses an account announcement payload.
func DecodeAccountInfo(src []byte) (schema.AccountInfo, bool) {
	var info schema.AccountInfo
	if err := json.Unmarshal(src, &info); err != nil {
		return schema.AccountInfo{}, false
	}
	return info, true
}
