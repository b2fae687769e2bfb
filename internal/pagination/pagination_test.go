package pagination

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Params{Page: 1, Limit: DefaultLimit}, Params{}.Normalize())
	assert.Equal(t, Params{Page: 3, Limit: MaxLimit}, Params{Page: 3, Limit: 5000}.Normalize())
	assert.Equal(t, 40, Params{Page: 3, Limit: 20}.Offset())
}

func TestNewResult(t *testing.T) {
	r := NewResult[int](nil, Params{Page: 2, Limit: 10}, 25)
	assert.NotNil(t, r.Items)
	assert.Equal(t, 3, r.TotalPages)
	assert.Equal(t, int64(25), r.Total)
}
