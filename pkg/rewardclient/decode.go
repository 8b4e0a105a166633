package rewardclient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"reward-core/pkg/errno"
	"reward-core/pkg/validator"
)

// decodeObject unmarshals body into out and validates it.
func decodeObject(body []byte, out interface{}) error {
	if err := json.Unmarshal(body, out); err != nil {
		return errno.ErrBadResponse.Wrap(err)
	}
	if err := validator.Struct(out); err != nil {
		return errno.ErrBadResponse.Wrap(fmt.Errorf("%s", validator.GetErrorMsg(err)))
	}
	return nil
}

// decodeList accepts either a bare JSON array or an envelope holding the array under one of keys
// (DRF pagination uses "results").
func decodeList[T any](body []byte, keys ...string) ([]T, error) {
	raw := bytes.TrimSpace(body)

	if len(raw) == 0 || raw[0] != '[' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, errno.ErrBadResponse.Wrap(err)
		}
		found := false
		for _, k := range keys {
			if v, ok := envelope[k]; ok {
				raw = v
				found = true
				break
			}
		}
		if !found {
			return nil, errno.ErrBadResponse.Wrap(fmt.Errorf("expected a list under one of %v", keys))
		}
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, errno.ErrBadResponse.Wrap(err)
	}
	for i := range items {
		if err := validator.Struct(&items[i]); err != nil {
			return nil, errno.ErrBadResponse.Wrap(fmt.Errorf("item %d: %s", i, validator.GetErrorMsg(err)))
		}
	}
	return items, nil
}
