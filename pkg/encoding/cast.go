package encoding

import (
	"fmt"

	"github.com/spf13/cast"
)

func castToString(v any) (string, error) {
	out, err := cast.ToStringE(v)
	if err != nil {
		return "", fmt.Errorf(`cannot cast %T to string: %w`, v, err)
	}
	return out, nil
}
