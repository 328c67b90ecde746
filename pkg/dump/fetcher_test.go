package dump

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vkdumper/pkg/logger"
	"vkdumper/pkg/vkapi"
)

// fakeTransport scripts the transport responses for one test
type fakeTransport struct {
	callResult    interface{}
	callErr       error
	calledMethods []string

	// pageSizes records every CallAll page size in order
	pageSizes []int
	// failUntil makes CallAll fail with a too-big error while the page size
	// is above this threshold
	failUntil int
	// callAllErr, when set, is returned by every CallAll invocation
	callAllErr error
	result     map[string]interface{}
}

func (f *fakeTransport) Call(method string, params vkapi.Params) (interface{}, error) {
	f.calledMethods = append(f.calledMethods, method)
	return f.callResult, f.callErr
}

func (f *fakeTransport) CallAll(method string, pageSize int, params vkapi.Params) (map[string]interface{}, error) {
	f.calledMethods = append(f.calledMethods, method)
	f.pageSizes = append(f.pageSizes, pageSize)
	if f.callAllErr != nil {
		return nil, f.callAllErr
	}
	if pageSize > f.failUntil {
		return nil, &vkapi.Error{Code: vkapi.ErrCodeTooBigResponse, Message: "response size is too big", Method: method}
	}
	return f.result, nil
}

func TestFetchWithoutPageSizeUsesSingleCall(t *testing.T) {
	transport := &fakeTransport{callResult: map[string]interface{}{"id": 1.0}}
	fetcher := NewFetcher(transport, logger.NewTestLogger())

	result, err := fetcher.Fetch("groups.getById", vkapi.Params{"group_id": 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"id": 1.0}, result)
	assert.Empty(t, transport.pageSizes, "non-paginated fetch must not page")
}

func TestFetchShrinksPageSizeOnTooBigResponse(t *testing.T) {
	transport := &fakeTransport{
		failUntil: 10,
		result:    map[string]interface{}{"count": 0.0, "items": []interface{}{}},
	}
	fetcher := NewFetcher(transport, logger.NewTestLogger())

	result, err := fetcher.Fetch("wall.get", vkapi.Params{"owner_id": -1}, 100)
	require.NoError(t, err)
	assert.NotNil(t, result)

	// 100 and 20 are rejected as too big, 4 succeeds
	assert.Equal(t, []int{100, 20, 4}, transport.pageSizes)
}

func TestFetchGivesUpAtPageSizeOne(t *testing.T) {
	transport := &fakeTransport{failUntil: 0}
	fetcher := NewFetcher(transport, logger.NewTestLogger())

	_, err := fetcher.Fetch("wall.get", vkapi.Params{"owner_id": -1}, 100)
	require.Error(t, err)
	assert.True(t, vkapi.IsTooBigResponse(err))

	// The size walks all the way down and the final failure is at 1
	assert.Equal(t, []int{100, 20, 4, 1}, transport.pageSizes)
}

func TestFetchPropagatesOtherErrorsImmediately(t *testing.T) {
	apiErr := &vkapi.Error{Code: vkapi.ErrCodeAccessDenied, Message: "access denied", Method: "wall.get"}
	transport := &fakeTransport{callAllErr: apiErr}
	fetcher := NewFetcher(transport, logger.NewTestLogger())

	_, err := fetcher.Fetch("wall.get", vkapi.Params{"owner_id": -1}, 100)
	require.Error(t, err)

	var got *vkapi.Error
	require.True(t, errors.As(err, &got))
	assert.Equal(t, vkapi.ErrCodeAccessDenied, got.Code)
	assert.Len(t, transport.pageSizes, 1, "non-recoverable errors must not be retried")
}

func TestFetchPropagatesTransportErrors(t *testing.T) {
	transport := &fakeTransport{callAllErr: errors.New("connection reset")}
	fetcher := NewFetcher(transport, logger.NewTestLogger())

	_, err := fetcher.Fetch("wall.get", vkapi.Params{"owner_id": -1}, 100)
	require.Error(t, err)
	assert.Len(t, transport.pageSizes, 1)
}

func TestReducePageSize(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{1, 1},
		{2, 1},
		{5, 1},
		{6, 2},
		{100, 20},
		{101, 21},
		{1000, 200},
		{2000, 400},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ReducePageSize(tc.in), "ReducePageSize(%d)", tc.in)
	}
}

func TestReducePageSizeAlwaysTerminates(t *testing.T) {
	// From any starting size the reduction reaches 1 in finitely many steps
	// and never grows
	for start := 1; start <= 5000; start++ {
		size := start
		for steps := 0; size > 1; steps++ {
			next := ReducePageSize(size)
			require.Less(t, next, size, "reduction from %d must shrink", size)
			size = next
			require.Less(t, steps, 64, "reduction from %d must terminate", start)
		}
		require.Equal(t, 1, size)
	}
}
